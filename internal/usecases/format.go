package usecases

import (
	"errors"
	"fmt"
	"strings"

	"github.com/abelzeko/water-quality-bot/internal/classifier"
	"github.com/abelzeko/water-quality-bot/internal/entities"
)

const gaugeWidth = 10

// Gauge renders a score as a fixed-width text bar
func Gauge(score int) string {
	filled := score * gaugeWidth / 100
	if filled < 0 {
		filled = 0
	}
	if filled > gaugeWidth {
		filled = gaugeWidth
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", gaugeWidth-filled) + "]"
}

func bandIcon(b entities.Band) string {
	switch b {
	case entities.BandSafe:
		return "🟢"
	case entities.BandModerate:
		return "🟡"
	default:
		return "🔴"
	}
}

func elementNames(labels []entities.ElementLabel) string {
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = string(l)
	}
	return strings.Join(parts, ", ")
}

// FormatAssessment formats an assessment for display
func (uc *QualityUseCase) FormatAssessment(a entities.Assessment) string {
	var result strings.Builder
	r := a.Reading

	if r.Location != "" {
		result.WriteString(fmt.Sprintf("📍 Location: %s\n", r.Location))
	}
	result.WriteString(fmt.Sprintf("💧 pH %g | TDS %g mg/L | Hardness %g mg/L | Nitrate %g mg/L\n",
		r.PH, r.TDS, r.Hardness, r.Nitrate))
	if r.Uranium != nil {
		result.WriteString(fmt.Sprintf("☢️ Uranium: %g mg/L\n", *r.Uranium))
	}
	if r.Conductivity != nil {
		result.WriteString(fmt.Sprintf("⚡ Conductivity: %g µS/cm\n", *r.Conductivity))
	}

	result.WriteString(fmt.Sprintf("\n%s Risk score: %d/100 %s %s\n", bandIcon(a.Band), a.Score, Gauge(a.Score), a.Band))
	for _, v := range uc.evaluator.Violations(r) {
		result.WriteString(fmt.Sprintf("  • %s\n", v))
	}
	result.WriteString(fmt.Sprintf("🧪 Elements: %s\n", elementNames(a.Elements)))

	switch {
	case a.Prediction != "":
		result.WriteString(fmt.Sprintf("🤖 Classifier: %s", a.Prediction))
	case errors.Is(a.PredictionErr, classifier.ErrModelUnavailable):
		result.WriteString("🤖 Classifier: unavailable")
	case a.PredictionErr != nil:
		result.WriteString(fmt.Sprintf("🤖 Classifier: error (%v)", a.PredictionErr))
	}

	return strings.TrimRight(result.String(), "\n")
}

// FormatDataset renders a short summary of the dataset, one line per record
func FormatDataset(records []entities.DatasetRecord, limit int) string {
	if len(records) == 0 {
		return "No dataset found yet. Run an analysis first."
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Dataset: %d records\n\n", len(records)))

	start := 0
	if limit > 0 && len(records) > limit {
		start = len(records) - limit
	}
	for _, rec := range records[start:] {
		location := rec.Location
		if location == "" {
			location = "(no location)"
		}
		result.WriteString(fmt.Sprintf("• %s: score %d %s, %s\n", location, rec.RiskScore, rec.Band, elementNames(rec.Elements)))
	}
	return strings.TrimRight(result.String(), "\n")
}
