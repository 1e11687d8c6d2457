package rules

import (
	"fmt"
	"strings"

	"github.com/mohamedkhairy/stock-isolator/internal/models"
	"github.com/mohamedkhairy/stock-isolator/pkg/magnitude"
)

// ParseRule converts a configured rule into a validated ThresholdRule
func ParseRule(spec RuleSpec) (models.ThresholdRule, error) {
	rule := models.ThresholdRule{Field: strings.TrimSpace(spec.Condition)}

	if strings.TrimSpace(spec.MinValue) != "" {
		v, err := magnitude.Parse(spec.MinValue)
		if err != nil {
			return rule, fmt.Errorf("min_value for %q: %w", spec.Condition, err)
		}
		rule.Min = &v
	}
	if strings.TrimSpace(spec.MaxValue) != "" {
		v, err := magnitude.Parse(spec.MaxValue)
		if err != nil {
			return rule, fmt.Errorf("max_value for %q: %w", spec.Condition, err)
		}
		rule.Max = &v
	}

	if err := rule.Validate(); err != nil {
		return rule, err
	}
	return rule, nil
}

// ParseRules converts an ordered list of configured rules, keeping order
func ParseRules(specs []RuleSpec) ([]models.ThresholdRule, error) {
	out := make([]models.ThresholdRule, 0, len(specs))
	for i, spec := range specs {
		rule, err := ParseRule(spec)
		if err != nil {
			return nil, fmt.Errorf("invalid rule at index %d: %w", i, err)
		}
		out = append(out, rule)
	}
	return out, nil
}
