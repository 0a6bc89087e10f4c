package console

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/flofmatrix/console-sync/internal/api"
	"github.com/flofmatrix/console-sync/internal/jobs"
	"github.com/flofmatrix/console-sync/internal/model"
	"github.com/flofmatrix/console-sync/internal/poll"
	"github.com/flofmatrix/console-sync/internal/snapshot"
	"github.com/flofmatrix/console-sync/internal/stream"
)

// Push topics the console subscribes to.
const (
	TopicDashboard        = "dashboard"
	TopicBacktestProgress = "backtest_progress"
)

// Recorder receives copies of live updates for persistence. Both
// methods run on hot paths and must not block.
type Recorder interface {
	RecordDashboard(d model.DashboardSummary)
	RecordProgress(p model.ProgressUpdate)
}

// Config holds service configuration.
type Config struct {
	PollInterval    time.Duration // Dashboard pull cadence (default: 2s)
	JobPollInterval time.Duration // Job status cadence (default: 500ms)
	RequestTimeout  time.Duration // Per-request timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:    poll.DefaultInterval,
		JobPollInterval: jobs.DefaultPollInterval,
		RequestTimeout:  10 * time.Second,
	}
}

// Service wires the push channel, the poll schedule, and the job
// tracker around one shared snapshot. All collaborators come in
// through the constructor; nothing here is package-global.
type Service struct {
	cfg      Config
	client   *api.Client
	push     *stream.Client
	snap     *snapshot.Snapshot
	poller   *poll.Scheduler
	tracker  *jobs.Tracker
	recorder Recorder
	logger   *slog.Logger

	subs []*stream.Subscription
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithRecorder attaches a recorder that receives live updates.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// New creates the sync service around a REST client and a push channel
// client.
func New(cfg Config, client *api.Client, push *stream.Client, opts ...Option) *Service {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = poll.DefaultInterval
	}
	if cfg.JobPollInterval <= 0 {
		cfg.JobPollInterval = jobs.DefaultPollInterval
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	s := &Service{
		cfg:    cfg,
		client: client,
		push:   push,
		snap:   snapshot.New(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.poller = poll.New(
		poll.Config{Interval: cfg.PollInterval, Timeout: cfg.RequestTimeout},
		client, s.snap, s.logger,
	)
	s.tracker = jobs.New(
		jobs.Config{PollInterval: cfg.JobPollInterval, Timeout: cfg.RequestTimeout},
		client, s.snap, s.logger,
	)
	return s
}

// Snapshot returns the shared state container.
func (s *Service) Snapshot() *snapshot.Snapshot {
	return s.snap
}

// Start subscribes the push topics, dials the push channel, and begins
// the dashboard pull schedule. A failed dial is not fatal; the push
// channel reconnects on its own while polling keeps the console fed.
func (s *Service) Start(ctx context.Context) error {
	s.subs = append(s.subs,
		s.push.Subscribe(TopicDashboard, s.onDashboard),
		s.push.Subscribe(TopicBacktestProgress, s.onProgress),
	)

	if err := s.push.Connect(ctx); err != nil {
		s.logger.Warn("push channel unavailable, continuing on poll only", "error", err)
	}

	s.poller.Start(ctx)

	s.logger.Info("console sync started",
		"poll_interval", s.cfg.PollInterval,
		"job_poll_interval", s.cfg.JobPollInterval,
	)
	return nil
}

// Stop halts job tracking and polling, then closes the push channel.
func (s *Service) Stop() {
	s.tracker.Stop()
	s.poller.Stop()

	for _, sub := range s.subs {
		sub.Cancel()
	}
	s.subs = nil

	s.push.Disconnect()
	s.logger.Info("console sync stopped")
}

// onDashboard handles a dashboard push message.
func (s *Service) onDashboard(data json.RawMessage) {
	var d model.DashboardSummary
	if err := json.Unmarshal(data, &d); err != nil {
		s.logger.Debug("dropping malformed dashboard push", "error", err)
		return
	}

	s.snap.SetDashboard(d)
	s.snap.SetLastUpdate(time.Now())

	if s.recorder != nil {
		s.recorder.RecordDashboard(d)
	}
}

// onProgress handles a backtest_progress push message. Progress for a
// job other than the active one is dropped.
func (s *Service) onProgress(data json.RawMessage) {
	var p model.ProgressUpdate
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Debug("dropping malformed progress push", "error", err)
		return
	}

	job := s.snap.ActiveJob()
	if job == nil || job.JobID != p.JobID {
		return
	}

	updated := *job
	updated.Progress = p.Progress
	updated.TotalBars = p.TotalBars
	s.snap.SetActiveJob(&updated)

	if s.recorder != nil {
		s.recorder.RecordProgress(p)
	}
}

// RunBacktest submits a backtest and tracks it to completion.
func (s *Service) RunBacktest(ctx context.Context, params model.BacktestParams) (string, error) {
	return s.tracker.Submit(ctx, params)
}

// ClearActiveJob empties the active-job slot.
func (s *Service) ClearActiveJob() {
	s.tracker.ClearActiveJob()
}

// SetToggle flips a feature toggle and refreshes the toggle list so
// dependent toggles show their effective state.
func (s *Service) SetToggle(ctx context.Context, id string, enabled bool) (*model.ToggleResult, error) {
	res, err := s.client.SetToggle(ctx, id, enabled)
	if err != nil {
		return nil, err
	}

	if toggles, err := s.client.GetToggles(ctx); err != nil {
		s.logger.Warn("toggle list refresh failed", "toggle", id, "error", err)
	} else {
		s.snap.SetToggles(toggles)
	}
	return res, nil
}

// NuclearFlatten closes every open position, then refreshes the
// dashboard and position list to reflect the flattened book.
func (s *Service) NuclearFlatten(ctx context.Context) (*model.FlattenResult, error) {
	res, err := s.client.NuclearFlatten(ctx)
	if err != nil {
		return nil, fmt.Errorf("nuclear flatten: %w", err)
	}

	if d, err := s.client.GetDashboard(ctx); err != nil {
		s.logger.Warn("dashboard refresh after flatten failed", "error", err)
	} else {
		s.snap.SetDashboard(*d)
		s.snap.SetLastUpdate(time.Now())
	}
	if positions, err := s.client.GetPositions(ctx); err != nil {
		s.logger.Warn("position refresh after flatten failed", "error", err)
	} else {
		s.snap.SetPositions(positions)
	}
	return res, nil
}

// RefreshAll pulls every panel's data in one pass and fills the
// snapshot. Individual failures are recorded and do not stop the rest.
func (s *Service) RefreshAll(ctx context.Context) error {
	var firstErr error
	record := func(what string, err error) {
		s.logger.Warn("refresh failed", "what", what, "error", err)
		if firstErr == nil {
			firstErr = fmt.Errorf("refresh %s: %w", what, err)
		}
	}

	s.snap.SetLoading(true)
	defer s.snap.SetLoading(false)

	if d, err := s.client.GetDashboard(ctx); err != nil {
		record("dashboard", err)
	} else {
		s.snap.SetDashboard(*d)
	}
	if positions, err := s.client.GetPositions(ctx); err != nil {
		record("positions", err)
	} else {
		s.snap.SetPositions(positions)
	}
	if trades, err := s.client.GetTrades(ctx); err != nil {
		record("trades", err)
	} else {
		s.snap.SetTrades(trades)
	}
	if toggles, err := s.client.GetToggles(ctx); err != nil {
		record("toggles", err)
	} else {
		s.snap.SetToggles(toggles)
	}
	if eq, err := s.client.GetEquityCurve(ctx); err != nil {
		record("equity curve", err)
	} else {
		s.snap.SetEquityCurve(eq)
	}
	if scoring, err := s.client.GetScoring(ctx); err != nil {
		record("scoring", err)
	} else {
		s.snap.SetScoring(*scoring)
	}
	if risk, err := s.client.GetRisk(ctx); err != nil {
		record("risk", err)
	} else {
		s.snap.SetRisk(*risk)
	}
	if pois, err := s.client.GetPOIs(ctx); err != nil {
		record("pois", err)
	} else {
		s.snap.SetPOIs(pois)
	}
	if list, err := s.client.ListBacktestJobs(ctx); err != nil {
		record("job list", err)
	} else {
		s.snap.SetJobs(list)
	}

	if firstErr == nil {
		s.snap.SetLastUpdate(time.Now())
		s.snap.SetLastError(nil)
	} else {
		s.snap.SetLastError(firstErr)
	}
	return firstErr
}
