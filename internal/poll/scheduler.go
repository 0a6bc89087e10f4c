package poll

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/flofmatrix/console-sync/internal/model"
	"github.com/flofmatrix/console-sync/internal/snapshot"
)

// DefaultInterval is the dashboard pull cadence.
const DefaultInterval = 2 * time.Second

// Source provides the dashboard summary on demand.
type Source interface {
	GetDashboard(ctx context.Context) (*model.DashboardSummary, error)
}

// Config holds scheduler configuration.
type Config struct {
	Interval time.Duration // Pull interval (default: 2s)
	Timeout  time.Duration // Per-request timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: DefaultInterval,
		Timeout:  10 * time.Second,
	}
}

// Scheduler periodically pulls the dashboard summary and writes it
// into the snapshot. Every Start opens a new epoch; a pull that was in
// flight when the scheduler stopped or restarted carries the old epoch
// and its result is discarded rather than written over fresher data.
type Scheduler struct {
	cfg    Config
	source Source
	snap   *snapshot.Snapshot
	logger *slog.Logger

	mu     sync.Mutex
	epoch  int64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Scheduler. It does not start polling until Start.
func New(cfg Config, source Source, snap *snapshot.Snapshot, logger *slog.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:    cfg,
		source: source,
		snap:   snap,
		logger: logger,
	}
}

// Start begins the pull loop: one immediate pull, then one per
// interval. Calling Start while running restarts the loop under a new
// epoch.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.epoch++
	epoch := s.epoch
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx, epoch)

	s.logger.Info("poll scheduler started", "interval", s.cfg.Interval)
}

// Stop halts the pull loop and invalidates any in-flight pull.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.epoch++
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("poll scheduler stopped")
}

// run is the pull loop.
func (s *Scheduler) run(ctx context.Context, epoch int64) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	// Pull immediately on start.
	s.pull(ctx, epoch)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pull(ctx, epoch)
		}
	}
}

// pull fetches one dashboard summary and applies it if the epoch is
// still current. A failed pull records the error and waits for the
// next tick; there is no inline retry.
func (s *Scheduler) pull(ctx context.Context, epoch int64) {
	reqCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	d, err := s.source.GetDashboard(reqCtx)

	s.mu.Lock()
	stale := s.epoch != epoch
	s.mu.Unlock()
	if stale {
		s.logger.Debug("discarding stale pull result", "epoch", epoch)
		return
	}

	if err != nil {
		s.logger.Warn("dashboard pull failed", "error", err)
		s.snap.SetLastError(err)
		return
	}

	s.snap.SetDashboard(*d)
	s.snap.SetLastUpdate(time.Now())
	s.snap.SetLastError(nil)
}
