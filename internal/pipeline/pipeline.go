package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mohamedkhairy/stock-isolator/internal/candidate"
	"github.com/mohamedkhairy/stock-isolator/internal/config"
	"github.com/mohamedkhairy/stock-isolator/internal/crosssection"
	"github.com/mohamedkhairy/stock-isolator/internal/models"
	"github.com/mohamedkhairy/stock-isolator/internal/report"
	"github.com/mohamedkhairy/stock-isolator/internal/storage"
	"github.com/mohamedkhairy/stock-isolator/internal/toplist"
	"github.com/mohamedkhairy/stock-isolator/internal/universe"
	"github.com/mohamedkhairy/stock-isolator/pkg/logger"
)

// Dependencies are the collaborators of a run. Only Store is required.
type Dependencies struct {
	Store storage.SeriesStore

	// Universe overrides the stock list file when set
	Universe []string

	Publisher *report.Publisher
	Console   *report.Console

	Now func() time.Time
}

// Result is the outcome of a successful run
type Result struct {
	RunID  string
	Report *report.Report
	Filter *candidate.Result
	Files  []string
}

// Pipeline runs filter, assemble, rank and build for one configuration
type Pipeline struct {
	cfg  *config.Config
	deps Dependencies
}

// New creates a pipeline
func New(cfg *config.Config, deps Dependencies) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("series store cannot be nil")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Pipeline{cfg: cfg, deps: deps}, nil
}

// Run executes one run. A configuration problem, including too few
// candidates for the requested ranking size, is returned as a
// models.ConfigurationError before any report is produced.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	runID := uuid.New().String()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.WithContext(ctx)
	start := time.Now()

	iso := p.cfg.Isolator
	keep := toplist.Keep{Best: iso.KeepBest, Worst: iso.KeepWorst}
	if keep.Best < 0 || keep.Worst < 0 {
		return nil, models.NewConfigurationError(models.ErrNegativeKeep, "keep best=%d worst=%d", keep.Best, keep.Worst)
	}

	log.Info("Run started",
		logger.String("window", iso.Window.String()),
		logger.Int("rules", len(iso.Rules)),
		logger.Int("keep_best", keep.Best),
		logger.Int("keep_worst", keep.Worst),
	)

	symbols, err := p.universe()
	if err != nil {
		return nil, p.fail("universe", err)
	}

	var filterResult *candidate.Result
	err = timeStage("filter", func() error {
		filter, err := candidate.NewFilter(candidate.FilterConfig{WorkerCount: iso.WorkerCount}, p.deps.Store, iso.Window, iso.Rules)
		if err != nil {
			return err
		}
		filterResult, err = filter.Run(ctx, symbols)
		return err
	})
	if err != nil {
		return nil, p.fail("filter", err)
	}

	candidates := filterResult.Candidates
	if p.deps.Console != nil {
		p.deps.Console.Summary(candidates.Len())
	}
	if candidates.Len() < keep.Max() {
		if p.deps.Console != nil {
			p.deps.Console.Insufficient()
		}
		return nil, p.fail("filter", models.NewConfigurationError(models.ErrInsufficientCandidates,
			"%d stocks meet the requirements but %d are needed, try with less strict requirements",
			candidates.Len(), keep.Max()))
	}

	var matrix *crosssection.Matrix
	err = timeStage("assemble", func() error {
		assembler, err := crosssection.NewAssembler(models.RankingField)
		if err != nil {
			return err
		}
		matrix, err = assembler.Assemble(candidates)
		return err
	})
	if err != nil {
		return nil, p.fail("assemble", err)
	}

	var rows []models.RankingRow
	err = timeStage("rank", func() error {
		ranker := toplist.NewRanker(toplist.RankerConfig{WorkerCount: iso.RankWorkers})
		rows, err = ranker.Rank(ctx, matrix, keep)
		return err
	})
	if err != nil {
		return nil, p.fail("rank", err)
	}

	rep := report.Build(runID, p.deps.Now(), iso.Window, rows, candidates.Symbols())
	result := &Result{RunID: runID, Report: rep, Filter: filterResult}

	if p.deps.Publisher != nil {
		err = timeStage("publish", func() error {
			result.Files, err = p.deps.Publisher.Publish(ctx, rep)
			return err
		})
		if err != nil {
			return nil, p.fail("publish", err)
		}
	}
	if p.deps.Console != nil {
		if err := p.deps.Console.Render(rep); err != nil {
			log.Warn("Failed to render report", logger.ErrorField(err))
		}
	}

	log.Info("Run completed",
		logger.Int("candidates", candidates.Len()),
		logger.Int("rows", len(rows)),
		logger.Strings("files", result.Files),
		logger.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (p *Pipeline) universe() ([]string, error) {
	if p.deps.Universe != nil {
		if len(p.deps.Universe) == 0 {
			return nil, models.NewConfigurationError(models.ErrEmptyUniverse, "no symbols given")
		}
		return p.deps.Universe, nil
	}
	symbols, err := universe.Load(p.cfg.Data.StockListPath, p.cfg.Universe.Countries)
	if err != nil {
		return nil, models.NewConfigurationError(err, "universe")
	}
	return symbols, nil
}

func (p *Pipeline) fail(stage string, err error) error {
	errType := "runtime"
	if models.IsConfigurationError(err) {
		errType = "configuration"
	}
	logger.ErrorsTotal.WithLabelValues(stage, errType).Inc()
	return err
}

func timeStage(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	logger.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	return err
}
