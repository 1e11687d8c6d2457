package models

import (
	"fmt"
	"strings"
	"time"
)

// DailyRecord is one processed trading day of an instrument
type DailyRecord struct {
	Date         time.Time `json:"date" msgpack:"date"`
	Open         float64   `json:"open" msgpack:"open"`
	High         float64   `json:"high" msgpack:"high"`
	Low          float64   `json:"low" msgpack:"low"`
	Close        float64   `json:"close" msgpack:"close"`
	AdjClose     float64   `json:"adj_close" msgpack:"adj_close"`
	Volume       float64   `json:"volume" msgpack:"volume"`
	MarketCap    float64   `json:"market_cap" msgpack:"market_cap"`
	Delta        float64   `json:"delta" msgpack:"delta"`
	DeltaPercent float64   `json:"delta_percent" msgpack:"delta_percent"`
}

// Record field names as they appear in the processed CSV files
const (
	FieldDate         = "Date"
	FieldOpen         = "Open"
	FieldHigh         = "High"
	FieldLow          = "Low"
	FieldClose        = "Close"
	FieldAdjClose     = "Adj Close"
	FieldVolume       = "Volume"
	FieldMarketCap    = "Market Cap"
	FieldDelta        = "Delta"
	FieldDeltaPercent = "DeltaPercent"
)

// RankingField is the per-day metric instruments are ranked by
const RankingField = FieldDeltaPercent

// RecordFields lists the numeric fields in file column order
var RecordFields = []string{
	FieldOpen, FieldHigh, FieldLow, FieldClose, FieldAdjClose,
	FieldVolume, FieldMarketCap, FieldDelta, FieldDeltaPercent,
}

var fieldAccessors = map[string]func(r *DailyRecord) float64{
	normalizeField(FieldOpen):         func(r *DailyRecord) float64 { return r.Open },
	normalizeField(FieldHigh):         func(r *DailyRecord) float64 { return r.High },
	normalizeField(FieldLow):          func(r *DailyRecord) float64 { return r.Low },
	normalizeField(FieldClose):        func(r *DailyRecord) float64 { return r.Close },
	normalizeField(FieldAdjClose):     func(r *DailyRecord) float64 { return r.AdjClose },
	normalizeField(FieldVolume):       func(r *DailyRecord) float64 { return r.Volume },
	normalizeField(FieldMarketCap):    func(r *DailyRecord) float64 { return r.MarketCap },
	normalizeField(FieldDelta):        func(r *DailyRecord) float64 { return r.Delta },
	normalizeField(FieldDeltaPercent): func(r *DailyRecord) float64 { return r.DeltaPercent },
}

// normalizeField makes "Market Cap", "market_cap" and "MarketCap" equivalent
func normalizeField(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "")
	return strings.ReplaceAll(name, "_", "")
}

// IsKnownField reports whether name refers to a numeric record field
func IsKnownField(name string) bool {
	_, ok := fieldAccessors[normalizeField(name)]
	return ok
}

// Field returns the value of a numeric field by name
func (r *DailyRecord) Field(name string) (float64, error) {
	accessor, ok := fieldAccessors[normalizeField(name)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return accessor(r), nil
}

// Validate validates a DailyRecord
func (r *DailyRecord) Validate() error {
	if r.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD calendar date in UTC
func ParseDate(value string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return d, nil
}

// Window is an inclusive calendar-date range
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewWindow creates a validated window
func NewWindow(start, end time.Time) (Window, error) {
	w := Window{Start: start, End: end}
	return w, w.Validate()
}

// Validate validates a Window
func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidWindow)
	}
	if w.End.Before(w.Start) {
		return fmt.Errorf("%w: end %s is before start %s", ErrInvalidWindow,
			w.End.Format(time.DateOnly), w.Start.Format(time.DateOnly))
	}
	return nil
}

// Contains reports whether t falls inside the window, bounds included
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

func (w Window) String() string {
	return w.Start.Format(time.DateOnly) + ".." + w.End.Format(time.DateOnly)
}

// ThresholdRule bounds one record field. At least one bound must be set.
type ThresholdRule struct {
	Field string   `json:"field"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
}

// Validate validates a ThresholdRule
func (tr *ThresholdRule) Validate() error {
	if !IsKnownField(tr.Field) {
		return fmt.Errorf("%w: %q", ErrUnknownField, tr.Field)
	}
	if tr.Min == nil && tr.Max == nil {
		return fmt.Errorf("%w (field %q)", ErrRuleWithoutBounds, tr.Field)
	}
	if tr.Min != nil && tr.Max != nil && *tr.Min > *tr.Max {
		return fmt.Errorf("%w (field %q: %v > %v)", ErrInvertedBounds, tr.Field, *tr.Min, *tr.Max)
	}
	return nil
}

func (tr ThresholdRule) String() string {
	var b strings.Builder
	b.WriteString(tr.Field)
	if tr.Min != nil {
		fmt.Fprintf(&b, " >= %g", *tr.Min)
	}
	if tr.Max != nil {
		fmt.Fprintf(&b, " <= %g", *tr.Max)
	}
	return b.String()
}

// RankEntry is one ranked instrument for a single day
type RankEntry struct {
	Rank   int     `json:"rank"`
	Symbol string  `json:"symbol"`
	Value  float64 `json:"value"`
}

// RankingRow holds the best and worst performers of one day
type RankingRow struct {
	Date  time.Time   `json:"date"`
	Best  []RankEntry `json:"best"`
	Worst []RankEntry `json:"worst"`
}
