package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flofmatrix/console-sync/internal/model"
	"github.com/flofmatrix/console-sync/internal/snapshot"
)

// DefaultPollInterval is the status poll cadence for a running job.
const DefaultPollInterval = 500 * time.Millisecond

// Backend is the slice of the REST client the tracker needs: job
// submission and status, plus the endpoints the completion cascade
// refreshes.
type Backend interface {
	RunBacktest(ctx context.Context, params model.BacktestParams) (*model.RunBacktestResponse, error)
	GetBacktestStatus(ctx context.Context, jobID string) (*model.BacktestJob, error)
	ListBacktestJobs(ctx context.Context) ([]model.JobSummary, error)
	GetDashboard(ctx context.Context) (*model.DashboardSummary, error)
	GetEquityCurve(ctx context.Context) ([]model.EquityPoint, error)
	GetTrades(ctx context.Context) ([]model.TradeRecord, error)
}

// Config holds tracker configuration.
type Config struct {
	PollInterval time.Duration // Status poll cadence (default: 500ms)
	Timeout      time.Duration // Per-request timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval: DefaultPollInterval,
		Timeout:      10 * time.Second,
	}
}

// Tracker submits backtest jobs and follows each one to its terminal
// state. While a job runs, its status lands in the snapshot's
// active-job slot on every poll. When it reaches completed or failed,
// the tracker stops polling and refreshes the dashboard, equity curve,
// trade list, and job list exactly once.
type Tracker struct {
	cfg     Config
	backend Backend
	snap    *snapshot.Snapshot
	logger  *slog.Logger

	mu     sync.Mutex
	active map[string]context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Tracker.
func New(cfg Config, backend Backend, snap *snapshot.Snapshot, logger *slog.Logger) *Tracker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		cfg:     cfg,
		backend: backend,
		snap:    snap,
		logger:  logger,
		active:  make(map[string]context.CancelFunc),
	}
}

// Submit starts a backtest and begins tracking it. On submission
// failure nothing is written and no tracking loop starts; the error
// carries the server's detail.
func (t *Tracker) Submit(ctx context.Context, params model.BacktestParams) (string, error) {
	resp, err := t.backend.RunBacktest(ctx, params)
	if err != nil {
		return "", fmt.Errorf("submit backtest: %w", err)
	}

	// The server acks a freshly started job as running; an ack that
	// omits the status means the same thing.
	status := resp.Status
	if status == "" {
		status = model.JobRunning
	}
	t.snap.SetActiveJob(&model.BacktestJob{
		JobID:  resp.JobID,
		Status: status,
		Params: params.Map(),
	})

	t.logger.Info("backtest submitted", "job_id", resp.JobID, "status", status)

	t.Track(resp.JobID)
	return resp.JobID, nil
}

// Track starts the status poll loop for a job: one poll immediately,
// then one per interval until the job is terminal. At most one loop
// runs per job id; tracking an already-tracked job is a no-op.
func (t *Tracker) Track(jobID string) {
	t.mu.Lock()
	if _, running := t.active[jobID]; running {
		t.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.active[jobID] = cancel
	t.mu.Unlock()

	t.wg.Add(1)
	go t.watch(ctx, jobID)
}

// Stop cancels all tracking loops and waits for them to finish.
func (t *Tracker) Stop() {
	t.mu.Lock()
	for _, cancel := range t.active {
		cancel()
	}
	t.mu.Unlock()

	t.wg.Wait()
}

// ClearActiveJob empties the snapshot's active-job slot. Completion
// never clears it; only this call does.
func (t *Tracker) ClearActiveJob() {
	t.snap.SetActiveJob(nil)
}

// watch polls one job until it is terminal, then runs the completion
// cascade.
func (t *Tracker) watch(ctx context.Context, jobID string) {
	defer t.wg.Done()
	defer func() {
		t.mu.Lock()
		delete(t.active, jobID)
		t.mu.Unlock()
	}()

	ticker := time.NewTicker(t.cfg.PollInterval)
	defer ticker.Stop()

	// Poll immediately: a job that is already terminal costs exactly
	// one status call.
	if t.poll(ctx, jobID) {
		t.cascade(ctx, jobID)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if t.poll(ctx, jobID) {
				t.cascade(ctx, jobID)
				return
			}
		}
	}
}

// poll fetches one status update and writes it into the snapshot.
// Returns true when the job is terminal. A failed fetch is logged and
// the loop keeps going.
func (t *Tracker) poll(ctx context.Context, jobID string) bool {
	reqCtx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	job, err := t.backend.GetBacktestStatus(reqCtx, jobID)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		t.logger.Warn("job status poll failed", "job_id", jobID, "error", err)
		return false
	}

	t.snap.SetActiveJob(job)
	return job.Status.IsTerminal()
}

// cascade refreshes the slots a finished backtest invalidates:
// dashboard, equity curve, trade list, and job list. Each fetch is
// attempted regardless of the others failing.
func (t *Tracker) cascade(ctx context.Context, jobID string) {
	t.logger.Info("backtest finished, refreshing", "job_id", jobID)

	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.cfg.Timeout)
	defer cancel()

	if d, err := t.backend.GetDashboard(reqCtx); err != nil {
		t.logger.Warn("cascade dashboard refresh failed", "error", err)
	} else {
		t.snap.SetDashboard(*d)
		t.snap.SetLastUpdate(time.Now())
	}

	if eq, err := t.backend.GetEquityCurve(reqCtx); err != nil {
		t.logger.Warn("cascade equity refresh failed", "error", err)
	} else {
		t.snap.SetEquityCurve(eq)
	}

	if trades, err := t.backend.GetTrades(reqCtx); err != nil {
		t.logger.Warn("cascade trades refresh failed", "error", err)
	} else {
		t.snap.SetTrades(trades)
	}

	if list, err := t.backend.ListBacktestJobs(reqCtx); err != nil {
		t.logger.Warn("cascade job-list refresh failed", "error", err)
	} else {
		t.snap.SetJobs(list)
	}
}
