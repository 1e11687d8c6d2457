package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mohamedkhairy/stock-isolator/internal/candidate"
	"github.com/mohamedkhairy/stock-isolator/internal/config"
	"github.com/mohamedkhairy/stock-isolator/internal/models"
	"github.com/mohamedkhairy/stock-isolator/internal/report"
	"github.com/mohamedkhairy/stock-isolator/internal/storage"
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

// series builds records from 2023-01-02 onwards with the given closes and
// day-over-open changes
func series(symbol string, closes, changes []float64) *models.InstrumentSeries {
	start := day("2023-01-02")
	records := make([]models.DailyRecord, len(closes))
	for i := range closes {
		records[i] = models.DailyRecord{
			Date:         start.AddDate(0, 0, i),
			Close:        closes[i],
			DeltaPercent: changes[i],
		}
	}
	return models.NewInstrumentSeries(symbol, records)
}

func f64(v float64) *float64 { return &v }

func testConfig(keepBest, keepWorst int) *config.Config {
	return &config.Config{
		Isolator: config.IsolatorConfig{
			Window: models.Window{Start: day("2023-01-03"), End: day("2023-01-05")},
			Rules: []models.ThresholdRule{
				{Field: models.FieldClose, Min: f64(10), Max: f64(500)},
			},
			KeepBest:    keepBest,
			KeepWorst:   keepWorst,
			WorkerCount: 2,
		},
	}
}

func fiveInstruments() *storage.MemoryStore {
	return storage.NewMemoryStore(
		series("AAA", []float64{20, 20, 20, 20, 20}, []float64{9, 1, 2, 3, 9}),
		series("BBB", []float64{20, 5, 20, 20, 20}, []float64{9, 9, 9, 9, 9}),    // below min
		series("CCC", []float64{30, 30, 30, 30, 30}, []float64{0, 3, -1, 3, 0}),
		series("DDD", []float64{40, 40, 40, 900, 40}, []float64{0, 5, 5, 5, 0}), // above max
		series("EEE", []float64{50, 50, 50, 50, 50}, []float64{0, -2, 4, 1, 0}),
	)
}

func TestPipeline_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	publisher, err := report.NewPublisher(dir, []string{"csv"}, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	p, err := New(testConfig(2, 1), Dependencies{
		Store:     fiveInstruments(),
		Universe:  []string{"AAA", "BBB", "CCC", "DDD", "EEE"},
		Publisher: publisher,
		Console:   report.NewConsole(&out),
		Now:       func() time.Time { return time.Unix(1700000000, 0) },
	})
	require.NoError(t, err)

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	rep := result.Report
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, result.RunID, rep.RunID)
	assert.Equal(t, []string{"AAA", "CCC", "EEE"}, rep.Candidates)
	require.Len(t, rep.Rows, 3)

	passing := map[string]bool{"AAA": true, "CCC": true, "EEE": true}
	for _, row := range rep.Rows {
		require.Len(t, row.Best, 2)
		require.Len(t, row.Worst, 1)
		for _, e := range append(row.Best, row.Worst...) {
			assert.True(t, passing[e.Symbol], "unexpected %s", e.Symbol)
		}
	}

	// 2023-01-03: AAA 1, CCC 3, EEE -2
	assert.Equal(t, day("2023-01-03"), rep.Rows[0].Date)
	assert.Equal(t, "CCC", rep.Rows[0].Best[0].Symbol)
	assert.Equal(t, "AAA", rep.Rows[0].Best[1].Symbol)
	assert.Equal(t, "EEE", rep.Rows[0].Worst[0].Symbol)

	// 2023-01-05: AAA 3, CCC 3, EEE 1; tie keeps candidate order
	assert.Equal(t, "AAA", rep.Rows[2].Best[0].Symbol)
	assert.Equal(t, "CCC", rep.Rows[2].Best[1].Symbol)

	require.Len(t, result.Files, 1)
	assert.Equal(t, filepath.Join(dir, "stock_isolator_1700000000.csv"), result.Files[0])
	_, err = os.Stat(result.Files[0])
	assert.NoError(t, err)

	assert.Contains(t, out.String(), "3 stocks meet the requirements")
	assert.Len(t, result.Filter.Rejected(candidate.ReasonThreshold), 2)
}

func TestPipeline_InsufficientCandidates(t *testing.T) {
	store := storage.NewMemoryStore(
		series("AAA", []float64{20, 20, 20, 20, 20}, []float64{0, 1, 2, 3, 0}),
		series("CCC", []float64{30, 30, 30, 30, 30}, []float64{0, 3, -1, 3, 0}),
		series("BBB", []float64{20, 5, 20, 20, 20}, []float64{0, 0, 0, 0, 0}),
	)
	dir := t.TempDir()
	publisher, err := report.NewPublisher(dir, nil, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	p, err := New(testConfig(5, 1), Dependencies{
		Store:     store,
		Universe:  []string{"AAA", "BBB", "CCC"},
		Publisher: publisher,
		Console:   report.NewConsole(&out),
	})
	require.NoError(t, err)

	result, err := p.Run(context.Background())
	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, models.IsConfigurationError(err))
	assert.ErrorIs(t, err, models.ErrInsufficientCandidates)
	assert.Contains(t, err.Error(), "less strict")
	assert.Contains(t, out.String(), "Not enough stock")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPipeline_UniverseFromStockList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stock_list.csv")
	require.NoError(t, os.WriteFile(path, []byte("Symbol,Country\nAAA,United States\nCCC,Canada\nEEE,United States\n"), 0o644))

	cfg := testConfig(1, 1)
	cfg.Data.StockListPath = path
	cfg.Universe.Countries = []string{"United States"}

	p, err := New(cfg, Dependencies{Store: fiveInstruments()})
	require.NoError(t, err)

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "EEE"}, result.Report.Candidates)
}

func TestPipeline_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config, *Dependencies)
		wantErr error
	}{
		{
			name:    "empty universe",
			mutate:  func(_ *config.Config, d *Dependencies) { d.Universe = []string{} },
			wantErr: models.ErrEmptyUniverse,
		},
		{
			name:    "invalid window",
			mutate:  func(c *config.Config, _ *Dependencies) { c.Isolator.Window.End = day("2022-01-01") },
			wantErr: models.ErrInvalidWindow,
		},
		{
			name: "rule without bounds",
			mutate: func(c *config.Config, _ *Dependencies) {
				c.Isolator.Rules = []models.ThresholdRule{{Field: models.FieldClose}}
			},
			wantErr: models.ErrRuleWithoutBounds,
		},
		{
			name:    "negative keep",
			mutate:  func(c *config.Config, _ *Dependencies) { c.Isolator.KeepWorst = -1 },
			wantErr: models.ErrNegativeKeep,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(1, 1)
			deps := Dependencies{Store: fiveInstruments(), Universe: []string{"AAA", "CCC"}}
			tt.mutate(cfg, &deps)

			p, err := New(cfg, deps)
			require.NoError(t, err)

			_, err = p.Run(context.Background())
			assert.True(t, models.IsConfigurationError(err), "got %v", err)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, Dependencies{Store: storage.NewMemoryStore()})
	assert.Error(t, err)

	_, err = New(testConfig(1, 1), Dependencies{})
	assert.Error(t, err)
}

func TestPushMetrics_NoURL(t *testing.T) {
	assert.NoError(t, PushMetrics("", "job"))
}
