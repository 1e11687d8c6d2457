package rules

import (
	"fmt"
	"time"

	"github.com/mohamedkhairy/stock-isolator/internal/models"
)

// RuleSpec is a threshold rule as written in configuration. Bounds are
// magnitude strings ("5K", "2.3M", "-3B") and are optional individually.
type RuleSpec struct {
	Condition string `yaml:"condition" json:"condition" validate:"required"`
	MinValue  string `yaml:"min_value,omitempty" json:"min_value,omitempty"`
	MaxValue  string `yaml:"max_value,omitempty" json:"max_value,omitempty"`
}

// Violation describes the first record that broke a rule
type Violation struct {
	Rule  models.ThresholdRule
	Date  time.Time
	Value float64
	Bound string // "min" or "max"
}

func (v *Violation) Error() string {
	limit := v.Rule.Max
	op := ">"
	if v.Bound == "min" {
		limit = v.Rule.Min
		op = "<"
	}
	return fmt.Sprintf("%s on %s: %g %s %s %g",
		v.Rule.Field, v.Date.Format(time.DateOnly), v.Value, op, v.Bound, *limit)
}
