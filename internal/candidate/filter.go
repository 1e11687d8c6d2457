package candidate

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/mohamedkhairy/stock-isolator/internal/models"
	"github.com/mohamedkhairy/stock-isolator/internal/rules"
	"github.com/mohamedkhairy/stock-isolator/internal/storage"
	"github.com/mohamedkhairy/stock-isolator/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"
)

var (
	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "candidate_decisions_total",
			Help: "Instruments evaluated by the candidate filter, by status and reason",
		},
		[]string{"status", "reason"},
	)

	filterDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "candidate_filter_duration_seconds",
			Help:    "Duration of a full candidate filter run",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// FilterConfig holds configuration for the candidate filter
type FilterConfig struct {
	WorkerCount int // Instruments evaluated concurrently (default: GOMAXPROCS)
}

// DefaultFilterConfig returns default configuration
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		WorkerCount: runtime.GOMAXPROCS(0),
	}
}

// Filter selects the instruments that cover the window and satisfy every
// threshold rule on every in-window day
type Filter struct {
	config    FilterConfig
	store     storage.SeriesStore
	window    models.Window
	evaluator *rules.Evaluator
}

// NewFilter creates a new candidate filter. An invalid window or rule is a
// configuration error.
func NewFilter(config FilterConfig, store storage.SeriesStore, window models.Window, thresholds []models.ThresholdRule) (*Filter, error) {
	if store == nil {
		return nil, fmt.Errorf("series store cannot be nil")
	}
	if err := window.Validate(); err != nil {
		return nil, models.NewConfigurationError(err, "window")
	}
	evaluator, err := rules.NewEvaluator(thresholds)
	if err != nil {
		return nil, models.NewConfigurationError(err, "threshold rules")
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultFilterConfig().WorkerCount
	}

	return &Filter{
		config:    config,
		store:     store,
		window:    window,
		evaluator: evaluator,
	}, nil
}

// Window returns the filter window
func (f *Filter) Window() models.Window {
	return f.window
}

// Run evaluates every symbol of the universe. Per-instrument failures become
// rejections; only context cancellation aborts the run. The candidate set
// keeps universe order.
func (f *Filter) Run(ctx context.Context, universe []string) (*Result, error) {
	start := time.Now()
	defer func() { filterDuration.Observe(time.Since(start).Seconds()) }()

	if len(universe) == 0 {
		return nil, models.NewConfigurationError(models.ErrEmptyUniverse, "nothing to filter")
	}

	decisions := make([]Decision, len(universe))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.config.WorkerCount)
	for i, symbol := range universe {
		i, symbol := i, symbol
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			decisions[i] = f.decide(gctx, symbol)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("candidate filter interrupted: %w", err)
	}

	candidates := models.NewCandidateSet()
	for _, d := range decisions {
		decisionsTotal.WithLabelValues(d.Status.String(), string(d.Reason)).Inc()
		if d.Accepted() {
			candidates.Add(d.Series)
		}
	}

	result := &Result{Candidates: candidates, Decisions: decisions}
	counts := result.Counts()
	logger.WithContext(ctx).Info("Candidate filter completed",
		logger.Int("universe", len(universe)),
		logger.Int("accepted", candidates.Len()),
		logger.Int("missing_input", counts[ReasonMissingInput]),
		logger.Int("coverage", counts[ReasonCoverage]),
		logger.Int("threshold", counts[ReasonThreshold]),
		logger.Int("compute_error", counts[ReasonComputeError]),
		logger.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// Evaluate runs the checks for a single symbol
func (f *Filter) Evaluate(ctx context.Context, symbol string) Decision {
	return f.decide(ctx, symbol)
}

func (f *Filter) decide(ctx context.Context, symbol string) Decision {
	log := logger.WithContext(ctx)

	series, err := f.store.Load(ctx, symbol)
	if errors.Is(err, models.ErrSeriesNotFound) {
		log.Debug("No processed series, skipping", logger.String("symbol", symbol))
		return reject(symbol, ReasonMissingInput)
	}
	if err != nil {
		log.Warn("Failed to load series",
			logger.String("symbol", symbol),
			logger.ErrorField(err),
		)
		d := reject(symbol, ReasonComputeError)
		d.Err = err
		return d
	}

	if series.Len() == 0 || !series.Covers(f.window) {
		log.Debug("Series does not cover window",
			logger.String("symbol", symbol),
			logger.Date("first", series.FirstDate()),
			logger.Date("last", series.LastDate()),
			logger.String("window", f.window.String()),
		)
		return reject(symbol, ReasonCoverage)
	}

	// Truncate copies, the loaded series may be shared with a cache
	windowed := series.Truncate(f.window)
	windowed.Symbol = symbol

	violation, err := f.evaluator.Check(windowed)
	if err != nil {
		log.Warn("Failed to evaluate rules",
			logger.String("symbol", symbol),
			logger.ErrorField(err),
		)
		d := reject(symbol, ReasonComputeError)
		d.Err = err
		return d
	}
	if violation != nil {
		log.Debug("Threshold violated",
			logger.String("symbol", symbol),
			logger.String("violation", violation.Error()),
		)
		d := reject(symbol, ReasonThreshold)
		d.Violation = violation
		return d
	}

	return accept(symbol, windowed)
}
