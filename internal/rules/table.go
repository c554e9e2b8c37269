// Package rules implements the threshold evaluator that scores readings and tags element labels
package rules

import (
	"fmt"

	"github.com/abelzeko/water-quality-bot/internal/entities"
	"github.com/spf13/viper"
)

// SafeRange is the safe band of one parameter and the penalty for leaving it.
// A nil bound is open.
type SafeRange struct {
	Parameter entities.Parameter `mapstructure:"parameter"`
	Low       *float64           `mapstructure:"low"`
	High      *float64           `mapstructure:"high"`
	Penalty   int                `mapstructure:"penalty"`
}

// Outside reports whether v falls outside the band
func (s SafeRange) Outside(v float64) bool {
	return (s.Low != nil && v < *s.Low) || (s.High != nil && v > *s.High)
}

// Condition is a single comparison of a parameter against a constant
type Condition struct {
	Parameter entities.Parameter `mapstructure:"parameter"`
	Op        string             `mapstructure:"op"`
	Value     float64            `mapstructure:"value"`
}

// Holds reports whether the reading satisfies the condition.
// Absent optional parameters never satisfy a condition.
func (c Condition) Holds(r entities.Reading) bool {
	v, ok := r.Value(c.Parameter)
	if !ok {
		return false
	}
	switch c.Op {
	case "<":
		return v < c.Value
	case "<=":
		return v <= c.Value
	case ">":
		return v > c.Value
	case ">=":
		return v >= c.Value
	}
	return false
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %g", c.Parameter.Label(), c.Op, c.Value)
}

// Match modes for element rules
const (
	MatchAny = "any"
	MatchAll = "all"
)

// ElementRule tags a label when any (or all) of its conditions hold
type ElementRule struct {
	Label      entities.ElementLabel `mapstructure:"label"`
	Match      string                `mapstructure:"match"`
	Conditions []Condition           `mapstructure:"conditions"`
}

// Matches evaluates the rule against a reading
func (e ElementRule) Matches(r entities.Reading) bool {
	if len(e.Conditions) == 0 {
		return false
	}
	all := e.Match == MatchAll
	for _, c := range e.Conditions {
		held := c.Holds(r)
		if all && !held {
			return false
		}
		if !all && held {
			return true
		}
	}
	return all
}

// Table is one complete configuration of the evaluator
type Table struct {
	Name       string        `mapstructure:"name"`
	Ranges     []SafeRange   `mapstructure:"ranges"`
	Elements   []ElementRule `mapstructure:"elements"`
	ModerateAt int           `mapstructure:"moderate_at"`
	HighAt     int           `mapstructure:"high_at"`
}

// Validate checks the table for unknown parameters, operators and band cut-offs
func (t Table) Validate() error {
	seen := make(map[entities.Parameter]bool)
	for _, r := range t.Ranges {
		if _, ok := entities.InputLimits[r.Parameter]; !ok {
			return fmt.Errorf("rule table %q: unknown parameter %q", t.Name, r.Parameter)
		}
		if seen[r.Parameter] {
			return fmt.Errorf("rule table %q: duplicate range for %q", t.Name, r.Parameter)
		}
		seen[r.Parameter] = true
		if r.Low == nil && r.High == nil {
			return fmt.Errorf("rule table %q: range for %q has no bounds", t.Name, r.Parameter)
		}
		if r.Penalty < 0 {
			return fmt.Errorf("rule table %q: negative penalty for %q", t.Name, r.Parameter)
		}
	}
	for _, e := range t.Elements {
		if e.Label == "" {
			return fmt.Errorf("rule table %q: element rule without label", t.Name)
		}
		if e.Match != MatchAny && e.Match != MatchAll {
			return fmt.Errorf("rule table %q: element %q has match mode %q", t.Name, e.Label, e.Match)
		}
		for _, c := range e.Conditions {
			if _, ok := entities.InputLimits[c.Parameter]; !ok {
				return fmt.Errorf("rule table %q: element %q uses unknown parameter %q", t.Name, e.Label, c.Parameter)
			}
			switch c.Op {
			case "<", "<=", ">", ">=":
			default:
				return fmt.Errorf("rule table %q: element %q uses operator %q", t.Name, e.Label, c.Op)
			}
		}
	}
	if t.ModerateAt <= 0 || t.HighAt <= t.ModerateAt {
		return fmt.Errorf("rule table %q: band cut-offs must satisfy 0 < moderate_at < high_at", t.Name)
	}
	return nil
}

// LoadTable reads a rule table from a YAML or JSON file
func LoadTable(path string) (Table, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Table{}, fmt.Errorf("failed to read rule table %s: %w", path, err)
	}

	t := Table{ModerateAt: 30, HighAt: 60}
	if err := v.Unmarshal(&t); err != nil {
		return Table{}, fmt.Errorf("failed to decode rule table %s: %w", path, err)
	}
	if t.Name == "" {
		t.Name = path
	}
	if err := t.Validate(); err != nil {
		return Table{}, err
	}
	return t, nil
}
