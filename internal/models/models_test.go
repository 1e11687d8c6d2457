package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func ptr(v float64) *float64 { return &v }

func TestDailyRecord_Field(t *testing.T) {
	r := &DailyRecord{
		Date:         date("2023-01-03"),
		Open:         10,
		High:         12,
		Low:          9,
		Close:        11,
		AdjClose:     10.5,
		Volume:       1500,
		MarketCap:    1e9,
		Delta:        1,
		DeltaPercent: 10,
	}

	tests := []struct {
		field string
		want  float64
	}{
		{"Open", 10},
		{"High", 12},
		{"Low", 9},
		{"Close", 11},
		{"Adj Close", 10.5},
		{"adj_close", 10.5},
		{"Volume", 1500},
		{"Market Cap", 1e9},
		{"market_cap", 1e9},
		{"MarketCap", 1e9},
		{"Delta", 1},
		{"DeltaPercent", 10},
		{"delta_percent", 10},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got, err := r.Field(tt.field)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := r.Field("Dividend")
	assert.True(t, errors.Is(err, ErrUnknownField))
}

func TestWindow_Validate(t *testing.T) {
	tests := []struct {
		name    string
		window  Window
		wantErr bool
	}{
		{"valid", Window{Start: date("2023-01-01"), End: date("2023-01-31")}, false},
		{"single day", Window{Start: date("2023-01-05"), End: date("2023-01-05")}, false},
		{"missing start", Window{End: date("2023-01-31")}, true},
		{"end before start", Window{Start: date("2023-02-01"), End: date("2023-01-31")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.window.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Window.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidWindow) {
				t.Errorf("expected ErrInvalidWindow, got %v", err)
			}
		})
	}
}

func TestWindow_Contains(t *testing.T) {
	w := Window{Start: date("2023-01-02"), End: date("2023-01-04")}

	assert.False(t, w.Contains(date("2023-01-01")))
	assert.True(t, w.Contains(date("2023-01-02")))
	assert.True(t, w.Contains(date("2023-01-03")))
	assert.True(t, w.Contains(date("2023-01-04")))
	assert.False(t, w.Contains(date("2023-01-05")))
	assert.Equal(t, "2023-01-02..2023-01-04", w.String())
}

func TestThresholdRule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rule    ThresholdRule
		wantErr error
	}{
		{"min only", ThresholdRule{Field: "Close", Min: ptr(10)}, nil},
		{"max only", ThresholdRule{Field: "Close", Max: ptr(500)}, nil},
		{"both", ThresholdRule{Field: "Volume", Min: ptr(1), Max: ptr(2)}, nil},
		{"equal bounds", ThresholdRule{Field: "Volume", Min: ptr(2), Max: ptr(2)}, nil},
		{"no bounds", ThresholdRule{Field: "Close"}, ErrRuleWithoutBounds},
		{"unknown field", ThresholdRule{Field: "PE", Min: ptr(1)}, ErrUnknownField},
		{"inverted", ThresholdRule{Field: "Close", Min: ptr(5), Max: ptr(1)}, ErrInvertedBounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestInstrumentSeries_CoversAndTruncate(t *testing.T) {
	s := NewInstrumentSeries("AAPL", []DailyRecord{
		{Date: date("2023-01-05"), DeltaPercent: 5},
		{Date: date("2023-01-02"), DeltaPercent: 2},
		{Date: date("2023-01-03"), DeltaPercent: 3},
		{Date: date("2023-01-04"), DeltaPercent: 4},
	})

	assert.Equal(t, date("2023-01-02"), s.FirstDate())
	assert.Equal(t, date("2023-01-05"), s.LastDate())

	assert.True(t, s.Covers(Window{Start: date("2023-01-03"), End: date("2023-01-04")}))
	assert.True(t, s.Covers(Window{Start: date("2023-01-02"), End: date("2023-01-05")}))
	assert.False(t, s.Covers(Window{Start: date("2023-01-01"), End: date("2023-01-04")}), "starts after window start")
	assert.False(t, s.Covers(Window{Start: date("2023-01-03"), End: date("2023-01-06")}), "ends before window end")

	truncated := s.Truncate(Window{Start: date("2023-01-03"), End: date("2023-01-04")})
	require.Equal(t, 2, truncated.Len())
	assert.Equal(t, 3.0, truncated.Records[0].DeltaPercent)
	assert.Equal(t, 4.0, truncated.Records[1].DeltaPercent)

	truncated.Records[0].DeltaPercent = 99
	assert.Equal(t, 3.0, s.Records[1].DeltaPercent, "truncation must not alias the source records")
}

func TestInstrumentSeries_Empty(t *testing.T) {
	s := &InstrumentSeries{Symbol: "EMPTY"}
	assert.True(t, s.FirstDate().IsZero())
	assert.False(t, s.Covers(Window{Start: date("2023-01-01"), End: date("2023-01-02")}))
}

func TestCandidateSet(t *testing.T) {
	set := NewCandidateSet()
	set.Add(&InstrumentSeries{Symbol: "MSFT"})
	set.Add(&InstrumentSeries{Symbol: "AAPL"})
	set.Add(&InstrumentSeries{Symbol: "MSFT", Records: []DailyRecord{{Date: date("2023-01-02")}}})

	assert.Equal(t, 2, set.Len())
	assert.Equal(t, []string{"MSFT", "AAPL"}, set.Symbols())

	s, ok := set.Get("MSFT")
	require.True(t, ok)
	assert.Equal(t, 1, s.Len())

	_, ok = set.Get("GOOG")
	assert.False(t, ok)
}

func TestConfigurationError(t *testing.T) {
	err := NewConfigurationError(ErrInsufficientCandidates, "only %d candidates for top %d", 2, 5)
	assert.True(t, IsConfigurationError(err))
	assert.True(t, errors.Is(err, ErrInsufficientCandidates))
	assert.Contains(t, err.Error(), "only 2 candidates for top 5")

	assert.False(t, IsConfigurationError(errors.New("boom")))
}
