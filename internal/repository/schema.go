// Package repository provides data access implementations
package repository

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/abelzeko/water-quality-bot/internal/entities"
)

// ErrDatasetNotFound marks the first-run state: nothing has been recorded yet
var ErrDatasetNotFound = errors.New("dataset not found")

// Dataset column names
const (
	ColLocation     = "Location"
	ColPH           = "pH"
	ColTDS          = "TDS"
	ColHardness     = "Hardness"
	ColNitrate      = "Nitrate"
	ColUranium      = "Uranium"
	ColConductivity = "Conductivity"
	ColRiskScore    = "Risk Score"
	ColBand         = "Band"
	ColElements     = "Elements Found"
	ColPrediction   = "Prediction"
)

// DatasetColumns is the column layout written by the CSV sink
var DatasetColumns = []string{
	ColLocation, ColPH, ColTDS, ColHardness, ColNitrate, ColUranium, ColConductivity,
	ColRiskScore, ColBand, ColElements, ColPrediction,
}

// RequiredColumns must be present in any dataset or uploaded readings table
var RequiredColumns = []string{ColPH, ColTDS, ColHardness, ColNitrate}

// SchemaError lists the columns that made a table unusable
type SchemaError struct {
	Missing []string
	Extra   []string
}

func (e *SchemaError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing columns: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Extra) > 0 {
		parts = append(parts, "unexpected columns: "+strings.Join(e.Extra, ", "))
	}
	return "invalid table schema: " + strings.Join(parts, "; ")
}

// CheckColumns verifies that header carries every required column. When
// allowed is non-nil, columns outside required and allowed are reported as extra.
func CheckColumns(header, required, allowed []string) error {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[strings.TrimSpace(h)] = true
	}

	schemaErr := &SchemaError{}
	for _, col := range required {
		if !present[col] {
			schemaErr.Missing = append(schemaErr.Missing, col)
		}
	}

	if allowed != nil {
		known := make(map[string]bool, len(required)+len(allowed))
		for _, col := range required {
			known[col] = true
		}
		for _, col := range allowed {
			known[col] = true
		}
		for _, h := range header {
			if h = strings.TrimSpace(h); !known[h] {
				schemaErr.Extra = append(schemaErr.Extra, h)
			}
		}
	}

	if len(schemaErr.Missing) > 0 || len(schemaErr.Extra) > 0 {
		return schemaErr
	}
	return nil
}

// ColumnIndex maps trimmed header names to their position
func ColumnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

// RecordValues renders a record keyed by dataset column
func RecordValues(rec entities.DatasetRecord) map[string]string {
	return map[string]string{
		ColLocation:     rec.Location,
		ColPH:           formatFloat(rec.PH),
		ColTDS:          formatFloat(rec.TDS),
		ColHardness:     formatFloat(rec.Hardness),
		ColNitrate:      formatFloat(rec.Nitrate),
		ColUranium:      formatOptional(rec.Uranium),
		ColConductivity: formatOptional(rec.Conductivity),
		ColRiskScore:    strconv.Itoa(rec.RiskScore),
		ColBand:         string(rec.Band),
		ColElements:     entities.JoinElements(rec.Elements),
		ColPrediction:   rec.Prediction,
	}
}

// RecordRow renders a record in the given column order
func RecordRow(rec entities.DatasetRecord, columns []string) []string {
	values := RecordValues(rec)
	row := make([]string, len(columns))
	for i, col := range columns {
		row[i] = values[col]
	}
	return row
}

// ParseReadingRow builds a reading from a row using a header index.
// Numeric strings are coerced; empty optional fields stay absent.
func ParseReadingRow(idx map[string]int, row []string) (entities.Reading, error) {
	field := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var r entities.Reading
	r.Location = field(ColLocation)

	required := []struct {
		col string
		dst *float64
	}{
		{ColPH, &r.PH},
		{ColTDS, &r.TDS},
		{ColHardness, &r.Hardness},
		{ColNitrate, &r.Nitrate},
	}
	for _, f := range required {
		v, err := strconv.ParseFloat(field(f.col), 64)
		if err != nil {
			return r, fmt.Errorf("column %s: invalid number %q", f.col, field(f.col))
		}
		*f.dst = v
	}

	optional := []struct {
		col string
		dst **float64
	}{
		{ColUranium, &r.Uranium},
		{ColConductivity, &r.Conductivity},
	}
	for _, f := range optional {
		s := field(f.col)
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return r, fmt.Errorf("column %s: invalid number %q", f.col, s)
		}
		*f.dst = entities.Float(v)
	}
	return r, nil
}

// parseRecordRow parses a full dataset row. Elements stay nil when the
// Elements Found column is absent or blank.
func parseRecordRow(idx map[string]int, row []string) (entities.DatasetRecord, error) {
	reading, err := ParseReadingRow(idx, row)
	if err != nil {
		return entities.DatasetRecord{}, err
	}
	rec := entities.DatasetRecord{Reading: reading}

	field := func(col string) (string, bool) {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return "", false
		}
		return strings.TrimSpace(row[i]), true
	}

	if s, ok := field(ColRiskScore); ok && s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return rec, fmt.Errorf("column %s: invalid number %q", ColRiskScore, s)
		}
		rec.RiskScore = int(f)
	}
	if s, ok := field(ColBand); ok {
		rec.Band = entities.Band(s)
	}
	if s, ok := field(ColElements); ok {
		rec.Elements = entities.SplitElements(s)
	}
	if s, ok := field(ColPrediction); ok {
		rec.Prediction = s
	}
	return rec, nil
}
