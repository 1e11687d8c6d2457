package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mohamedkhairy/stock-isolator/internal/report"
	"github.com/mohamedkhairy/stock-isolator/pkg/logger"
	"github.com/robfig/cron/v3"
)

// Runner produces a report
type Runner interface {
	Run(ctx context.Context) (*Result, error)
}

// Refresher keeps the latest report of a runner, refreshed on a cron
// schedule. It is safe for concurrent use.
type Refresher struct {
	runner   Runner
	schedule string
	cron     *cron.Cron

	mu      sync.RWMutex
	latest  *report.Report
	lastErr error
	lastRun time.Time
	running bool
	runMu   sync.Mutex
	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewRefresher creates a refresher. The schedule uses six fields with
// seconds, e.g. "0 30 22 * * 1-5".
func NewRefresher(runner Runner, schedule string) *Refresher {
	return &Refresher{
		runner:   runner,
		schedule: schedule,
		cron:     cron.New(cron.WithSeconds()),
	}
}

// Start runs once immediately and then on the schedule
func (r *Refresher) Start(ctx context.Context) error {
	r.baseCtx, r.cancel = context.WithCancel(ctx)

	if r.schedule != "" {
		if _, err := r.cron.AddFunc(r.schedule, func() { r.Refresh(r.baseCtx) }); err != nil {
			return fmt.Errorf("failed to schedule refresh %q: %w", r.schedule, err)
		}
	}

	r.Refresh(r.baseCtx)
	r.cron.Start()
	logger.Info("Report refresher started", logger.String("schedule", r.schedule))
	return nil
}

// Stop stops the schedule and waits for a running refresh
func (r *Refresher) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	<-r.cron.Stop().Done()
	logger.Info("Report refresher stopped")
}

// Refresh runs the pipeline now. Overlapping refreshes are skipped. A failed
// run keeps the previous report.
func (r *Refresher) Refresh(ctx context.Context) {
	if !r.runMu.TryLock() {
		logger.Warn("Refresh already running, skipping")
		return
	}
	defer r.runMu.Unlock()

	r.setRunning(true)
	defer r.setRunning(false)

	result, err := r.runner.Run(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastRun = time.Now()
	r.lastErr = err
	if err != nil {
		logger.Error("Report refresh failed", logger.ErrorField(err))
		return
	}
	r.latest = result.Report
}

func (r *Refresher) setRunning(v bool) {
	r.mu.Lock()
	r.running = v
	r.mu.Unlock()
}

// Latest returns the most recent successful report, or nil
func (r *Refresher) Latest() *report.Report {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

// Status describes the last refresh
type Status struct {
	LastRun   time.Time `json:"last_run"`
	LastError string    `json:"last_error,omitempty"`
	Running   bool      `json:"running"`
	HasReport bool      `json:"has_report"`
}

// Status returns the refresh status
func (r *Refresher) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Status{LastRun: r.lastRun, Running: r.running, HasReport: r.latest != nil}
	if r.lastErr != nil {
		s.LastError = r.lastErr.Error()
	}
	return s
}
