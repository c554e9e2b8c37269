// Package entities contains the core domain objects for the water-quality application
package entities

import (
	"fmt"
	"strings"
)

// Parameter identifies a measured water-quality field
type Parameter string

const (
	PH           Parameter = "ph"
	TDS          Parameter = "tds"
	Hardness     Parameter = "hardness"
	Nitrate      Parameter = "nitrate"
	Uranium      Parameter = "uranium"
	Conductivity Parameter = "conductivity"
)

// Parameters lists every known parameter in display order
var Parameters = []Parameter{PH, TDS, Hardness, Nitrate, Uranium, Conductivity}

var parameterLabels = map[Parameter]string{
	PH:           "pH",
	TDS:          "TDS",
	Hardness:     "Hardness",
	Nitrate:      "Nitrate",
	Uranium:      "Uranium",
	Conductivity: "Conductivity",
}

// Label returns the column/display name of the parameter
func (p Parameter) Label() string {
	if l, ok := parameterLabels[p]; ok {
		return l
	}
	return string(p)
}

// ParseParameter resolves a parameter from its key or display label, ignoring case
func ParseParameter(s string) (Parameter, bool) {
	s = strings.TrimSpace(s)
	for _, p := range Parameters {
		if strings.EqualFold(s, string(p)) || strings.EqualFold(s, p.Label()) {
			return p, true
		}
	}
	return "", false
}

// Reading represents one set of manually entered water-quality measurements
type Reading struct {
	Location     string   // Optional sampling location
	PH           float64  // 0-14
	TDS          float64  // Total dissolved solids in mg/L
	Hardness     float64  // mg/L as CaCO3
	Nitrate      float64  // mg/L
	Uranium      *float64 // mg/L, optional
	Conductivity *float64 // µS/cm, optional
}

// Float returns a pointer to v, for the optional reading fields
func Float(v float64) *float64 {
	return &v
}

// Value returns the value of a parameter and whether the reading carries it
func (r Reading) Value(p Parameter) (float64, bool) {
	switch p {
	case PH:
		return r.PH, true
	case TDS:
		return r.TDS, true
	case Hardness:
		return r.Hardness, true
	case Nitrate:
		return r.Nitrate, true
	case Uranium:
		if r.Uranium == nil {
			return 0, false
		}
		return *r.Uranium, true
	case Conductivity:
		if r.Conductivity == nil {
			return 0, false
		}
		return *r.Conductivity, true
	}
	return 0, false
}

// Set assigns a parameter value on the reading
func (r *Reading) Set(p Parameter, v float64) error {
	switch p {
	case PH:
		r.PH = v
	case TDS:
		r.TDS = v
	case Hardness:
		r.Hardness = v
	case Nitrate:
		r.Nitrate = v
	case Uranium:
		r.Uranium = Float(v)
	case Conductivity:
		r.Conductivity = Float(v)
	default:
		return fmt.Errorf("unknown parameter %q", p)
	}
	return nil
}

// Limit is the accepted input range of a field at the input boundary
type Limit struct {
	Min float64
	Max float64
}

// InputLimits holds the fixed min/max per field enforced by the input surfaces
var InputLimits = map[Parameter]Limit{
	PH:           {Min: 0, Max: 14},
	TDS:          {Min: 0, Max: 5000},
	Hardness:     {Min: 0, Max: 2000},
	Nitrate:      {Min: 0, Max: 500},
	Uranium:      {Min: 0, Max: 10},
	Conductivity: {Min: 0, Max: 10000},
}

// RangeError lists every field outside its input limit
type RangeError struct {
	Fields []string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("values out of range: %s", strings.Join(e.Fields, ", "))
}

// Validate checks the reading against InputLimits
func (r Reading) Validate() error {
	var bad []string
	for _, p := range Parameters {
		v, ok := r.Value(p)
		if !ok {
			continue
		}
		lim := InputLimits[p]
		if v < lim.Min || v > lim.Max {
			bad = append(bad, fmt.Sprintf("%s=%g (allowed %g-%g)", p.Label(), v, lim.Min, lim.Max))
		}
	}
	if len(bad) > 0 {
		return &RangeError{Fields: bad}
	}
	return nil
}
