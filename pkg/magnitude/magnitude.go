// Package magnitude parses human-readable quantities such as "5K", "2.3M"
// or "-3B" into plain numbers.
package magnitude

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidMagnitude is returned when a string cannot be parsed
var ErrInvalidMagnitude = errors.New("invalid magnitude")

// Suffix multipliers, longest suffixes are matched first
var suffixes = []struct {
	suffix   string
	exponent int32
}{
	{"QI", 18},
	{"QA", 15},
	{"T", 12},
	{"B", 9},
	{"M", 6},
	{"K", 3},
}

var numberPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)$`)

// ParseDecimal parses a magnitude string into an exact decimal value
func ParseDecimal(value string) (decimal.Decimal, error) {
	s := strings.ToUpper(strings.TrimSpace(value))
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty string", ErrInvalidMagnitude)
	}

	var exponent int32
	for _, sf := range suffixes {
		if strings.HasSuffix(s, sf.suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, sf.suffix))
			exponent = sf.exponent
			break
		}
	}

	if !numberPattern.MatchString(s) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidMagnitude, value)
	}

	d, err := decimal.NewFromString(strings.TrimPrefix(s, "+"))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q: %v", ErrInvalidMagnitude, value, err)
	}

	return d.Shift(exponent), nil
}

// Parse parses a magnitude string into a float64
func Parse(value string) (float64, error) {
	d, err := ParseDecimal(value)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

// MustParse is like Parse but panics on error. Intended for constants in tests.
func MustParse(value string) float64 {
	f, err := Parse(value)
	if err != nil {
		panic(err)
	}
	return f
}

// Format renders a value using the largest suffix that keeps at least one
// integer digit, e.g. 2500000 -> "2.5M"
func Format(value float64) string {
	d := decimal.NewFromFloat(value)
	abs := d.Abs()
	for _, sf := range suffixes {
		unit := decimal.New(1, sf.exponent)
		if abs.GreaterThanOrEqual(unit) {
			return d.Shift(-sf.exponent).Round(2).String() + sf.suffix
		}
	}
	return d.Round(2).String()
}
