package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flofmatrix/console-sync/internal/model"
	"github.com/flofmatrix/console-sync/internal/snapshot"
)

// fakeBackend serves scripted job statuses and counts every call.
type fakeBackend struct {
	submitErr error
	ackStatus model.JobStatus   // status in the submit ack; empty mimics servers that omit it
	statuses  []model.JobStatus // consumed one per status poll; last repeats
	statusErr map[int]error     // poll number (1-based) → error

	statusCalls    atomic.Int32
	dashboardCalls atomic.Int32
	equityCalls    atomic.Int32
	tradesCalls    atomic.Int32
	jobListCalls   atomic.Int32
}

func (f *fakeBackend) RunBacktest(ctx context.Context, params model.BacktestParams) (*model.RunBacktestResponse, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &model.RunBacktestResponse{JobID: "j1", Status: f.ackStatus}, nil
}

func (f *fakeBackend) GetBacktestStatus(ctx context.Context, jobID string) (*model.BacktestJob, error) {
	n := int(f.statusCalls.Add(1))
	if err, ok := f.statusErr[n]; ok {
		return nil, err
	}
	i := n - 1
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	status := f.statuses[i]
	job := &model.BacktestJob{JobID: jobID, Status: status, Progress: n * 10}
	if status == model.JobCompleted {
		job.Progress = 100
		job.Summary = &model.BacktestSummary{TradeCount: 5, TotalPnL: 1200}
	}
	if status == model.JobFailed {
		job.Error = "engine crashed"
	}
	return job, nil
}

func (f *fakeBackend) ListBacktestJobs(ctx context.Context) ([]model.JobSummary, error) {
	f.jobListCalls.Add(1)
	return []model.JobSummary{{JobID: "j1", Status: model.JobCompleted}}, nil
}

func (f *fakeBackend) GetDashboard(ctx context.Context) (*model.DashboardSummary, error) {
	f.dashboardCalls.Add(1)
	return &model.DashboardSummary{State: "active", Equity: 105000}, nil
}

func (f *fakeBackend) GetEquityCurve(ctx context.Context) ([]model.EquityPoint, error) {
	f.equityCalls.Add(1)
	return []model.EquityPoint{{Equity: 105000}}, nil
}

func (f *fakeBackend) GetTrades(ctx context.Context) ([]model.TradeRecord, error) {
	f.tradesCalls.Add(1)
	return []model.TradeRecord{{PositionID: "p1"}}, nil
}

func newTestTracker(backend *fakeBackend, snap *snapshot.Snapshot) *Tracker {
	cfg := Config{PollInterval: 20 * time.Millisecond, Timeout: time.Second}
	return New(cfg, backend, snap, nil)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timeout waiting for %s", what)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestTracker_CompletesOnThirdPoll(t *testing.T) {
	backend := &fakeBackend{
		statuses: []model.JobStatus{model.JobRunning, model.JobRunning, model.JobCompleted},
	}
	snap := snapshot.New()
	tr := newTestTracker(backend, snap)
	defer tr.Stop()

	jobID, err := tr.Submit(context.Background(), model.BacktestParams{Instrument: "ES"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if jobID != "j1" {
		t.Errorf("jobID = %q, want j1", jobID)
	}

	waitFor(t, "cascade", func() bool { return backend.jobListCalls.Load() > 0 })
	time.Sleep(100 * time.Millisecond) // room for any extra polls or cascades

	if got := backend.statusCalls.Load(); got != 3 {
		t.Errorf("status polls = %d, want 3", got)
	}
	for name, calls := range map[string]*atomic.Int32{
		"dashboard": &backend.dashboardCalls,
		"equity":    &backend.equityCalls,
		"trades":    &backend.tradesCalls,
		"job list":  &backend.jobListCalls,
	} {
		if got := calls.Load(); got != 1 {
			t.Errorf("%s refreshed %d times, want exactly 1", name, got)
		}
	}

	job := snap.ActiveJob()
	if job == nil {
		t.Fatal("active job missing after completion")
	}
	if job.Status != model.JobCompleted {
		t.Errorf("Status = %q, want completed", job.Status)
	}
	if job.Summary == nil || job.Summary.TradeCount != 5 {
		t.Errorf("Summary = %+v, want 5 trades", job.Summary)
	}

	if snap.Dashboard().Equity != 105000 {
		t.Error("dashboard slot not refreshed by cascade")
	}
	if len(snap.EquityCurve()) != 1 || len(snap.Trades()) != 1 || len(snap.Jobs()) != 1 {
		t.Error("cascade slots not all refreshed")
	}
}

func TestTracker_AlreadyTerminalCostsOnePoll(t *testing.T) {
	backend := &fakeBackend{
		statuses: []model.JobStatus{model.JobFailed},
	}
	snap := snapshot.New()
	tr := newTestTracker(backend, snap)
	defer tr.Stop()

	if _, err := tr.Submit(context.Background(), model.BacktestParams{}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	waitFor(t, "cascade", func() bool { return backend.jobListCalls.Load() > 0 })
	time.Sleep(100 * time.Millisecond)

	if got := backend.statusCalls.Load(); got != 1 {
		t.Errorf("status polls = %d, want 1", got)
	}
	if got := backend.dashboardCalls.Load(); got != 1 {
		t.Errorf("dashboard refreshes = %d, want 1 (failed jobs cascade too)", got)
	}

	job := snap.ActiveJob()
	if job == nil || job.Status != model.JobFailed {
		t.Fatalf("active job = %+v, want failed", job)
	}
	if job.Error != "engine crashed" {
		t.Errorf("Error = %q, want engine crashed", job.Error)
	}
}

func TestTracker_SubmitFailureWritesNothing(t *testing.T) {
	backend := &fakeBackend{submitErr: errors.New("insufficient data")}
	snap := snapshot.New()
	tr := newTestTracker(backend, snap)
	defer tr.Stop()

	if _, err := tr.Submit(context.Background(), model.BacktestParams{}); err == nil {
		t.Fatal("expected submit error")
	}

	time.Sleep(60 * time.Millisecond)

	if snap.ActiveJob() != nil {
		t.Error("active job written despite submit failure")
	}
	if backend.statusCalls.Load() != 0 {
		t.Error("status poll loop started despite submit failure")
	}
}

func TestTracker_EmptyAckSeedsRunning(t *testing.T) {
	backend := &fakeBackend{
		statuses:  []model.JobStatus{model.JobRunning},
		statusErr: map[int]error{1: errors.New("not ready")},
	}
	snap := snapshot.New()
	// A long interval keeps the loop from polling past the seeded
	// descriptor; the immediate first poll errors and leaves it alone.
	tr := New(Config{PollInterval: time.Hour, Timeout: time.Second}, backend, snap, nil)
	defer tr.Stop()

	if _, err := tr.Submit(context.Background(), model.BacktestParams{Instrument: "ES"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	waitFor(t, "first poll", func() bool { return backend.statusCalls.Load() > 0 })

	job := snap.ActiveJob()
	if job == nil {
		t.Fatal("active job not seeded")
	}
	if job.Status != model.JobRunning {
		t.Errorf("seeded status = %q, want running", job.Status)
	}
	if job.Params["instrument"] != "ES" {
		t.Errorf("seeded params = %v, want instrument ES", job.Params)
	}
}

func TestTracker_PollErrorKeepsLooping(t *testing.T) {
	backend := &fakeBackend{
		statuses:  []model.JobStatus{model.JobRunning, model.JobRunning, model.JobCompleted},
		statusErr: map[int]error{2: errors.New("blip")},
	}
	snap := snapshot.New()
	tr := newTestTracker(backend, snap)
	defer tr.Stop()

	if _, err := tr.Submit(context.Background(), model.BacktestParams{}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	waitFor(t, "completion despite poll error", func() bool {
		return backend.jobListCalls.Load() > 0
	})

	job := snap.ActiveJob()
	if job == nil || job.Status != model.JobCompleted {
		t.Fatalf("active job = %+v, want completed", job)
	}
}

func TestTracker_AtMostOneLoopPerJob(t *testing.T) {
	backend := &fakeBackend{
		statuses: []model.JobStatus{model.JobRunning, model.JobRunning, model.JobRunning, model.JobCompleted},
	}
	snap := snapshot.New()
	tr := newTestTracker(backend, snap)
	defer tr.Stop()

	tr.Track("j1")
	tr.Track("j1")
	tr.Track("j1")

	waitFor(t, "completion", func() bool { return backend.jobListCalls.Load() > 0 })
	time.Sleep(100 * time.Millisecond)

	if got := backend.statusCalls.Load(); got != 4 {
		t.Errorf("status polls = %d, want 4 (single loop)", got)
	}
	if got := backend.jobListCalls.Load(); got != 1 {
		t.Errorf("cascades = %d, want 1", got)
	}
}

func TestTracker_ClearActiveJob(t *testing.T) {
	backend := &fakeBackend{statuses: []model.JobStatus{model.JobCompleted}}
	snap := snapshot.New()
	tr := newTestTracker(backend, snap)
	defer tr.Stop()

	if _, err := tr.Submit(context.Background(), model.BacktestParams{}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitFor(t, "completion", func() bool { return snap.ActiveJob() != nil && snap.ActiveJob().Status.IsTerminal() })

	tr.ClearActiveJob()
	if snap.ActiveJob() != nil {
		t.Error("active job not cleared")
	}
}

func TestTracker_StopHaltsPolling(t *testing.T) {
	backend := &fakeBackend{statuses: []model.JobStatus{model.JobRunning}}
	snap := snapshot.New()
	tr := newTestTracker(backend, snap)

	if _, err := tr.Submit(context.Background(), model.BacktestParams{}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	waitFor(t, "first poll", func() bool { return backend.statusCalls.Load() > 0 })
	tr.Stop()

	stopped := backend.statusCalls.Load()
	time.Sleep(100 * time.Millisecond)
	if backend.statusCalls.Load() != stopped {
		t.Error("polling continued after Stop")
	}
	if backend.jobListCalls.Load() != 0 {
		t.Error("cascade ran for a job that never finished")
	}
}
