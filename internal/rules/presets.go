package rules

import (
	"fmt"
	"sort"

	"github.com/abelzeko/water-quality-bot/internal/entities"
)

func bound(v float64) *float64 { return &v }

func canonicalElements() []ElementRule {
	return []ElementRule{
		{
			Label: entities.ElementUranium,
			Match: MatchAny,
			Conditions: []Condition{
				{Parameter: entities.PH, Op: "<", Value: 6.5},
				{Parameter: entities.TDS, Op: ">", Value: 550},
				{Parameter: entities.Hardness, Op: ">", Value: 200},
			},
		},
		{
			Label: entities.ElementCesium,
			Match: MatchAny,
			Conditions: []Condition{
				{Parameter: entities.Nitrate, Op: ">", Value: 40},
				{Parameter: entities.TDS, Op: ">", Value: 600},
			},
		},
		{
			Label: entities.ElementRadium,
			Match: MatchAll,
			Conditions: []Condition{
				{Parameter: entities.PH, Op: ">", Value: 7.5},
				{Parameter: entities.Hardness, Op: "<", Value: 150},
			},
		},
	}
}

// Canonical returns the reference rule table: pH 6.5-8.5 (+30), TDS<=500 (+25),
// Hardness<=200 (+20), Nitrate<=45 (+25)
func Canonical() Table {
	return Table{
		Name: "canonical",
		Ranges: []SafeRange{
			{Parameter: entities.PH, Low: bound(6.5), High: bound(8.5), Penalty: 30},
			{Parameter: entities.TDS, High: bound(500), Penalty: 25},
			{Parameter: entities.Hardness, High: bound(200), Penalty: 20},
			{Parameter: entities.Nitrate, High: bound(45), Penalty: 25},
		},
		Elements:   canonicalElements(),
		ModerateAt: 30,
		HighAt:     60,
	}
}

// Hardness300 is the canonical table with the relaxed hardness limit
func Hardness300() Table {
	t := Canonical()
	t.Name = "hardness300"
	t.Ranges[2].High = bound(300)
	return t
}

// Extended adds uranium and conductivity bands to the canonical table
func Extended() Table {
	t := Canonical()
	t.Name = "extended"
	t.Ranges = append(t.Ranges,
		SafeRange{Parameter: entities.Uranium, High: bound(0.03), Penalty: 20},
		SafeRange{Parameter: entities.Conductivity, High: bound(1500), Penalty: 10},
	)
	return t
}

var presets = map[string]func() Table{
	"canonical":   Canonical,
	"hardness300": Hardness300,
	"extended":    Extended,
}

// Preset returns a named built-in table
func Preset(name string) (Table, error) {
	fn, ok := presets[name]
	if !ok {
		return Table{}, fmt.Errorf("unknown rule preset %q (available: %v)", name, PresetNames())
	}
	return fn(), nil
}

// PresetNames lists the built-in tables
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the table from file when set, otherwise the named preset
func Resolve(preset, file string) (Table, error) {
	if file != "" {
		return LoadTable(file)
	}
	if preset == "" {
		preset = "canonical"
	}
	return Preset(preset)
}
