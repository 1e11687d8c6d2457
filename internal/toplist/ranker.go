package toplist

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/mohamedkhairy/stock-isolator/internal/crosssection"
	"github.com/mohamedkhairy/stock-isolator/internal/models"
	"github.com/mohamedkhairy/stock-isolator/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"
)

var (
	rowsRanked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "toplist_rows_ranked_total",
			Help: "Number of days ranked",
		},
	)

	rankDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "toplist_rank_duration_seconds",
			Help:    "Duration of ranking a whole matrix",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Keep is the number of best and worst entries kept per day
type Keep struct {
	Best  int
	Worst int
}

// Max returns the larger of the two counts
func (k Keep) Max() int {
	if k.Best > k.Worst {
		return k.Best
	}
	return k.Worst
}

// Validate checks the counts against the number of ranked instruments
func (k Keep) Validate(columns int) error {
	if k.Best < 0 || k.Worst < 0 {
		return models.NewConfigurationError(models.ErrNegativeKeep, "keep best=%d worst=%d", k.Best, k.Worst)
	}
	if k.Max() > columns {
		return models.NewConfigurationError(models.ErrInsufficientCandidates,
			"only %d stocks meet the requirements but %d are requested, try with less strict requirements",
			columns, k.Max())
	}
	return nil
}

// RankerConfig holds configuration for the ranking computer
type RankerConfig struct {
	WorkerCount int // Concurrent row chunks (default: GOMAXPROCS)
	ChunkSize   int // Rows per task (default: 64)
}

// DefaultRankerConfig returns default configuration
func DefaultRankerConfig() RankerConfig {
	return RankerConfig{
		WorkerCount: runtime.GOMAXPROCS(0),
		ChunkSize:   64,
	}
}

// Ranker computes per-day best and worst instruments of a matrix
type Ranker struct {
	config RankerConfig
}

// NewRanker creates a new ranking computer
func NewRanker(config RankerConfig) *Ranker {
	defaults := DefaultRankerConfig()
	if config.WorkerCount <= 0 {
		config.WorkerCount = defaults.WorkerCount
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = defaults.ChunkSize
	}
	return &Ranker{config: config}
}

// Rank returns one row per matrix day in date order. Best entries are in
// descending value order and worst entries in ascending order; equal values
// keep column order in both.
func (r *Ranker) Rank(ctx context.Context, m *crosssection.Matrix, keep Keep) ([]models.RankingRow, error) {
	if err := keep.Validate(m.Cols()); err != nil {
		return nil, err
	}

	start := time.Now()
	rows := make([]models.RankingRow, m.Rows())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.WorkerCount)
	for lo := 0; lo < m.Rows(); lo += r.config.ChunkSize {
		lo := lo
		hi := lo + r.config.ChunkSize
		if hi > m.Rows() {
			hi = m.Rows()
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				rows[i] = rankRow(m.Dates[i], m.Row(i), m.Symbols, keep)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ranking interrupted: %w", err)
	}

	rowsRanked.Add(float64(len(rows)))
	rankDuration.Observe(time.Since(start).Seconds())
	logger.WithContext(ctx).Debug("Ranked matrix",
		logger.Int("rows", m.Rows()),
		logger.Int("cols", m.Cols()),
		logger.Int("keep_best", keep.Best),
		logger.Int("keep_worst", keep.Worst),
		logger.Duration("duration", time.Since(start)),
	)
	return rows, nil
}

// Rank is a convenience wrapper using the default configuration
func Rank(ctx context.Context, m *crosssection.Matrix, keep Keep) ([]models.RankingRow, error) {
	return NewRanker(DefaultRankerConfig()).Rank(ctx, m, keep)
}

func rankRow(date time.Time, values []float64, symbols []string, keep Keep) models.RankingRow {
	row := models.RankingRow{Date: date}
	if keep.Best > 0 {
		order := Argsort(values, true)
		row.Best = entries(order[:keep.Best], values, symbols)
	}
	if keep.Worst > 0 {
		order := Argsort(values, false)
		row.Worst = entries(order[:keep.Worst], values, symbols)
	}
	return row
}

func entries(order []int, values []float64, symbols []string) []models.RankEntry {
	out := make([]models.RankEntry, len(order))
	for rank, j := range order {
		out[rank] = models.RankEntry{
			Rank:   rank + 1,
			Symbol: symbols[j],
			Value:  values[j],
		}
	}
	return out
}

// Argsort returns the column indices of values ordered by value. Ties keep
// the lower index first in either direction.
func Argsort(values []float64, descending bool) []int {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if descending {
			return values[idx[a]] > values[idx[b]]
		}
		return values[idx[a]] < values[idx[b]]
	})
	return idx
}
