package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSymbol          = errors.New("invalid symbol")
	ErrInvalidDate            = errors.New("invalid date")
	ErrInvalidWindow          = errors.New("invalid window")
	ErrSeriesNotFound         = errors.New("series not found")
	ErrEmptySeries            = errors.New("series has no records")
	ErrUnknownField           = errors.New("unknown record field")
	ErrRuleWithoutBounds      = errors.New("threshold rule must have a minimum or a maximum")
	ErrInvertedBounds         = errors.New("threshold rule minimum is greater than its maximum")
	ErrEmptyUniverse          = errors.New("universe is empty")
	ErrNegativeKeep           = errors.New("keep counts must be non-negative")
	ErrInsufficientCandidates = errors.New("not enough candidates for the requested ranking size")
)

// ConfigurationError is a fatal, whole-run error. It is raised before any
// report is produced and is never retried.
type ConfigurationError struct {
	Reason string
	Err    error
}

// NewConfigurationError wraps err with a human readable reason
func NewConfigurationError(err error, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{
		Reason: fmt.Sprintf(format, args...),
		Err:    err,
	}
}

func (e *ConfigurationError) Error() string {
	if e.Err == nil {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err is, or wraps, a ConfigurationError
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
