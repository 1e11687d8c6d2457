package models

import (
	"sort"
	"time"
)

// InstrumentSeries is the date-ordered record sequence of one instrument
type InstrumentSeries struct {
	Symbol  string        `json:"symbol" msgpack:"symbol"`
	Records []DailyRecord `json:"records" msgpack:"records"`
}

// NewInstrumentSeries creates a series and orders its records by date
func NewInstrumentSeries(symbol string, records []DailyRecord) *InstrumentSeries {
	s := &InstrumentSeries{Symbol: symbol, Records: records}
	s.SortByDate()
	return s
}

// Validate validates an InstrumentSeries
func (s *InstrumentSeries) Validate() error {
	if s.Symbol == "" {
		return ErrInvalidSymbol
	}
	for i := range s.Records {
		if err := s.Records[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SortByDate orders records by ascending date, keeping the file order of
// duplicated dates
func (s *InstrumentSeries) SortByDate() {
	sort.SliceStable(s.Records, func(i, j int) bool {
		return s.Records[i].Date.Before(s.Records[j].Date)
	})
}

// Len returns the number of records
func (s *InstrumentSeries) Len() int {
	return len(s.Records)
}

// FirstDate returns the earliest record date
func (s *InstrumentSeries) FirstDate() time.Time {
	if len(s.Records) == 0 {
		return time.Time{}
	}
	return s.Records[0].Date
}

// LastDate returns the latest record date
func (s *InstrumentSeries) LastDate() time.Time {
	if len(s.Records) == 0 {
		return time.Time{}
	}
	return s.Records[len(s.Records)-1].Date
}

// Covers reports whether the series spans the whole window. Overlap alone is
// not enough: data must start on or before the window start and end on or
// after the window end.
func (s *InstrumentSeries) Covers(w Window) bool {
	if len(s.Records) == 0 {
		return false
	}
	return !s.FirstDate().After(w.Start) && !s.LastDate().Before(w.End)
}

// Truncate returns a new series holding only the records inside the window.
// The receiver is left untouched.
func (s *InstrumentSeries) Truncate(w Window) *InstrumentSeries {
	records := make([]DailyRecord, 0, len(s.Records))
	for _, r := range s.Records {
		if w.Contains(r.Date) {
			records = append(records, r)
		}
	}
	return &InstrumentSeries{Symbol: s.Symbol, Records: records}
}

// Clone returns a deep copy of the series
func (s *InstrumentSeries) Clone() *InstrumentSeries {
	records := make([]DailyRecord, len(s.Records))
	copy(records, s.Records)
	return &InstrumentSeries{Symbol: s.Symbol, Records: records}
}

// CandidateSet maps accepted instruments to their windowed series. Iteration
// order is insertion order.
type CandidateSet struct {
	symbols []string
	series  map[string]*InstrumentSeries
}

// NewCandidateSet creates an empty candidate set
func NewCandidateSet() *CandidateSet {
	return &CandidateSet{series: make(map[string]*InstrumentSeries)}
}

// Add inserts a series. A symbol that is already present keeps its position
// and has its series replaced.
func (c *CandidateSet) Add(series *InstrumentSeries) {
	if _, exists := c.series[series.Symbol]; !exists {
		c.symbols = append(c.symbols, series.Symbol)
	}
	c.series[series.Symbol] = series
}

// Get returns the series of a symbol
func (c *CandidateSet) Get(symbol string) (*InstrumentSeries, bool) {
	s, ok := c.series[symbol]
	return s, ok
}

// Symbols returns the candidate identifiers in insertion order
func (c *CandidateSet) Symbols() []string {
	out := make([]string, len(c.symbols))
	copy(out, c.symbols)
	return out
}

// Len returns the number of candidates
func (c *CandidateSet) Len() int {
	return len(c.symbols)
}
