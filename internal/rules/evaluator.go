package rules

import (
	"fmt"

	"github.com/mohamedkhairy/stock-isolator/internal/models"
)

// Evaluator checks windowed series against an ordered list of threshold
// rules. A single violating record rejects the whole series.
type Evaluator struct {
	rules []models.ThresholdRule
}

// NewEvaluator creates an evaluator. Rules are validated up front so that an
// unbounded rule is reported as a configuration problem, not per instrument.
func NewEvaluator(rules []models.ThresholdRule) (*Evaluator, error) {
	for i := range rules {
		if err := rules[i].Validate(); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
	}

	copied := make([]models.ThresholdRule, len(rules))
	copy(copied, rules)
	return &Evaluator{rules: copied}, nil
}

// Rules returns the rules in evaluation order
func (e *Evaluator) Rules() []models.ThresholdRule {
	out := make([]models.ThresholdRule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Check returns the first violation found, or nil when every record passes
// every rule. Rules are checked in order; for each rule the minimum is
// checked across all records before the maximum.
func (e *Evaluator) Check(series *models.InstrumentSeries) (*Violation, error) {
	for _, rule := range e.rules {
		if rule.Min != nil {
			v, err := firstViolation(series, rule, "min", func(value float64) bool { return value < *rule.Min })
			if err != nil || v != nil {
				return v, err
			}
		}
		if rule.Max != nil {
			v, err := firstViolation(series, rule, "max", func(value float64) bool { return value > *rule.Max })
			if err != nil || v != nil {
				return v, err
			}
		}
	}
	return nil, nil
}

// Evaluate returns true only if all rules pass for all records
func (e *Evaluator) Evaluate(series *models.InstrumentSeries) (bool, error) {
	violation, err := e.Check(series)
	if err != nil {
		return false, err
	}
	return violation == nil, nil
}

func firstViolation(series *models.InstrumentSeries, rule models.ThresholdRule, bound string, violates func(float64) bool) (*Violation, error) {
	for i := range series.Records {
		value, err := series.Records[i].Field(rule.Field)
		if err != nil {
			return nil, fmt.Errorf("symbol %s: %w", series.Symbol, err)
		}
		if violates(value) {
			return &Violation{
				Rule:  rule,
				Date:  series.Records[i].Date,
				Value: value,
				Bound: bound,
			}, nil
		}
	}
	return nil, nil
}

// Evaluate is a convenience wrapper for one-off checks
func Evaluate(series *models.InstrumentSeries, rules []models.ThresholdRule) (bool, error) {
	e, err := NewEvaluator(rules)
	if err != nil {
		return false, err
	}
	return e.Evaluate(series)
}
