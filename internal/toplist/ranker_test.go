package toplist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mohamedkhairy/stock-isolator/internal/crosssection"
	"github.com/mohamedkhairy/stock-isolator/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// buildMatrix assembles a matrix of DeltaPercent values. A symbol whose value
// slice is shorter than days has no record for the remaining days.
func buildMatrix(t *testing.T, symbols []string, days []string, values map[string][]float64) *crosssection.Matrix {
	t.Helper()
	set := models.NewCandidateSet()
	for _, s := range symbols {
		var records []models.DailyRecord
		for i, d := range days {
			v := values[s]
			if i >= len(v) {
				continue
			}
			records = append(records, models.DailyRecord{Date: day(d), DeltaPercent: v[i]})
		}
		set.Add(models.NewInstrumentSeries(s, records))
	}
	a, err := crosssection.NewAssembler("")
	require.NoError(t, err)
	m, err := a.Assemble(set)
	require.NoError(t, err)
	return m
}

func symbolsOf(entries []models.RankEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Symbol
	}
	return out
}

func TestRank_TiesKeepColumnOrder(t *testing.T) {
	m := buildMatrix(t, []string{"A", "B", "C"}, []string{"2023-01-03"}, map[string][]float64{
		"A": {5}, "B": {5}, "C": {3},
	})

	rows, err := Rank(context.Background(), m, Keep{Best: 2, Worst: 2})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, []string{"A", "B"}, symbolsOf(rows[0].Best))
	assert.Equal(t, []string{"C", "A"}, symbolsOf(rows[0].Worst))
	assert.Equal(t, 1, rows[0].Best[0].Rank)
	assert.Equal(t, 2, rows[0].Best[1].Rank)
	assert.Equal(t, 5.0, rows[0].Best[1].Value)
}

func TestRank_MissingCellIsZero(t *testing.T) {
	m := buildMatrix(t, []string{"A", "B", "C"}, []string{"2023-01-03", "2023-01-04"}, map[string][]float64{
		"A": {1, -1},
		"B": {2},
		"C": {-3, -2},
	})

	rows, err := Rank(context.Background(), m, Keep{Best: 1, Worst: 3})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// B has no record on the second day and ranks as 0
	assert.Equal(t, day("2023-01-04"), rows[1].Date)
	assert.Equal(t, "B", rows[1].Best[0].Symbol)
	assert.Equal(t, 0.0, rows[1].Best[0].Value)
	assert.Equal(t, []string{"C", "A", "B"}, symbolsOf(rows[1].Worst))
}

func TestRank_ManyRowsInDateOrder(t *testing.T) {
	var days []string
	values := map[string][]float64{}
	start := day("2023-01-01")
	for i := 0; i < 200; i++ {
		days = append(days, start.AddDate(0, 0, i).Format(time.DateOnly))
		values["A"] = append(values["A"], float64(i))
		values["B"] = append(values["B"], float64(-i))
	}
	m := buildMatrix(t, []string{"A", "B"}, days, values)

	r := NewRanker(RankerConfig{WorkerCount: 4, ChunkSize: 7})
	rows, err := r.Rank(context.Background(), m, Keep{Best: 1, Worst: 1})
	require.NoError(t, err)
	require.Len(t, rows, 200)

	for i, row := range rows {
		assert.Equal(t, start.AddDate(0, 0, i), row.Date)
		if i > 0 {
			assert.Equal(t, "A", row.Best[0].Symbol)
			assert.Equal(t, "B", row.Worst[0].Symbol)
		}
	}
}

func TestRank_KeepValidation(t *testing.T) {
	m := buildMatrix(t, []string{"A", "B"}, []string{"2023-01-03"}, map[string][]float64{"A": {1}, "B": {2}})

	tests := []struct {
		name string
		keep Keep
		want error
	}{
		{"negative best", Keep{Best: -1}, models.ErrNegativeKeep},
		{"too many best", Keep{Best: 5, Worst: 1}, models.ErrInsufficientCandidates},
		{"too many worst", Keep{Best: 1, Worst: 3}, models.ErrInsufficientCandidates},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := Rank(context.Background(), m, tt.keep)
			assert.Nil(t, rows)
			assert.True(t, models.IsConfigurationError(err))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRank_ZeroKeep(t *testing.T) {
	m := buildMatrix(t, []string{"A"}, []string{"2023-01-03"}, map[string][]float64{"A": {1}})

	rows, err := Rank(context.Background(), m, Keep{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].Best)
	assert.Empty(t, rows[0].Worst)
}

func TestArgsort(t *testing.T) {
	values := []float64{2, 7, 2, -1, 7}
	assert.Equal(t, []int{1, 4, 0, 2, 3}, Argsort(values, true))
	assert.Equal(t, []int{3, 0, 2, 1, 4}, Argsort(values, false))
	assert.Equal(t, []float64{2, 7, 2, -1, 7}, values)
}
