package rules

import (
	"fmt"

	"github.com/abelzeko/water-quality-bot/internal/entities"
)

// MaxScore caps the risk score
const MaxScore = 100

// Evaluator applies a rule table to readings. It is stateless and trusts that
// readings were range-checked at the input boundary.
type Evaluator struct {
	table Table
}

// NewEvaluator validates the table and returns an evaluator for it
func NewEvaluator(t Table) (*Evaluator, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Evaluator{table: t}, nil
}

// Table returns the rule table in use
func (e *Evaluator) Table() Table {
	return e.table
}

// Violation describes one parameter outside its safe band
type Violation struct {
	Range SafeRange
	Value float64
}

func (v Violation) String() string {
	switch {
	case v.Range.Low != nil && v.Value < *v.Range.Low:
		return fmt.Sprintf("%s %g below %g (+%d)", v.Range.Parameter.Label(), v.Value, *v.Range.Low, v.Range.Penalty)
	case v.Range.High != nil:
		return fmt.Sprintf("%s %g above %g (+%d)", v.Range.Parameter.Label(), v.Value, *v.Range.High, v.Range.Penalty)
	}
	return fmt.Sprintf("%s %g out of range (+%d)", v.Range.Parameter.Label(), v.Value, v.Range.Penalty)
}

// Violations lists the out-of-band parameters in table order
func (e *Evaluator) Violations(r entities.Reading) []Violation {
	var out []Violation
	for _, sr := range e.table.Ranges {
		v, ok := r.Value(sr.Parameter)
		if ok && sr.Outside(v) {
			out = append(out, Violation{Range: sr, Value: v})
		}
	}
	return out
}

// Score sums the penalties of out-of-band parameters, clamped to [0, MaxScore]
func (e *Evaluator) Score(r entities.Reading) int {
	score := 0
	for _, v := range e.Violations(r) {
		score += v.Range.Penalty
	}
	if score > MaxScore {
		score = MaxScore
	}
	return score
}

// Band maps a score to its risk band
func (e *Evaluator) Band(score int) entities.Band {
	switch {
	case score >= e.table.HighAt:
		return entities.BandHigh
	case score >= e.table.ModerateAt:
		return entities.BandModerate
	default:
		return entities.BandSafe
	}
}

// DetectElements returns matching labels in table order, or None Detected
func (e *Evaluator) DetectElements(r entities.Reading) []entities.ElementLabel {
	var labels []entities.ElementLabel
	for _, rule := range e.table.Elements {
		if rule.Matches(r) {
			labels = append(labels, rule.Label)
		}
	}
	if len(labels) == 0 {
		return []entities.ElementLabel{entities.ElementNoneDetected}
	}
	return labels
}

// Evaluate runs scoring, banding and element detection on one reading
func (e *Evaluator) Evaluate(r entities.Reading) entities.Assessment {
	score := e.Score(r)
	return entities.Assessment{
		Reading:  r,
		Score:    score,
		Band:     e.Band(score),
		Elements: e.DetectElements(r),
	}
}

// Complete fills in the derived fields of a record stored without them.
// A record with no band gets its score and band recomputed from the reading.
func (e *Evaluator) Complete(rec *entities.DatasetRecord) {
	if rec.Band == "" {
		rec.RiskScore = e.Score(rec.Reading)
		rec.Band = e.Band(rec.RiskScore)
	}
	if len(rec.Elements) == 0 {
		rec.Elements = e.DetectElements(rec.Reading)
	}
}
