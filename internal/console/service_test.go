package console

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/flofmatrix/console-sync/internal/api"
	"github.com/flofmatrix/console-sync/internal/model"
	"github.com/flofmatrix/console-sync/internal/stream"
)

// mockBackend serves both the REST API and the push endpoint from one
// httptest server, the way the real backend does.
type mockBackend struct {
	t      *testing.T
	server *httptest.Server

	mu     sync.Mutex
	pushes []*websocket.Conn

	statusCalls  atomic.Int32
	jobListCalls atomic.Int32
	equityCalls  atomic.Int32
	tradesCalls  atomic.Int32

	dashboardEquity atomic.Value // float64 served by GET /api/dashboard
}

func newMockBackend(t *testing.T) *mockBackend {
	b := &mockBackend{t: t}
	b.dashboardEquity.Store(100000.0)

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		b.mu.Lock()
		b.pushes = append(b.pushes, conn)
		b.mu.Unlock()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	mux.HandleFunc("/api/dashboard", func(w http.ResponseWriter, r *http.Request) {
		eq := b.dashboardEquity.Load().(float64)
		json.NewEncoder(w).Encode(model.DashboardSummary{State: "active", Equity: eq})
	})
	mux.HandleFunc("/api/backtest/run", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.RunBacktestResponse{JobID: "bt-1", Status: model.JobQueued})
	})
	mux.HandleFunc("/api/backtest/status/", func(w http.ResponseWriter, r *http.Request) {
		n := b.statusCalls.Add(1)
		jobID := strings.TrimPrefix(r.URL.Path, "/api/backtest/status/")
		job := model.BacktestJob{JobID: jobID, Status: model.JobRunning, Progress: int(n) * 30, TotalBars: 5000}
		if n >= 3 {
			job.Status = model.JobCompleted
			job.Progress = 100
			job.Summary = &model.BacktestSummary{TradeCount: 12, TotalPnL: 3400, FinalEquity: 103400}
		}
		json.NewEncoder(w).Encode(job)
	})
	mux.HandleFunc("/api/backtest/jobs", func(w http.ResponseWriter, r *http.Request) {
		b.jobListCalls.Add(1)
		json.NewEncoder(w).Encode([]model.JobSummary{{JobID: "bt-1", Status: model.JobCompleted, Progress: 100}})
	})
	mux.HandleFunc("/api/equity-curve", func(w http.ResponseWriter, r *http.Request) {
		b.equityCalls.Add(1)
		json.NewEncoder(w).Encode([]model.EquityPoint{{Equity: 103400}})
	})
	mux.HandleFunc("/api/trades", func(w http.ResponseWriter, r *http.Request) {
		b.tradesCalls.Add(1)
		json.NewEncoder(w).Encode([]model.TradeRecord{{PositionID: "p1", PnLDollars: 250}})
	})
	mux.HandleFunc("/api/positions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]model.Position{})
	})
	mux.HandleFunc("/api/config/toggles", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]model.Toggle{{ID: "T05", Enabled: true}})
	})
	mux.HandleFunc("/api/toggles/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/toggles/")
		json.NewEncoder(w).Encode(model.ToggleResult{ToggleID: id, Enabled: true, RawValue: true})
	})
	mux.HandleFunc("/api/nuclear-flatten", func(w http.ResponseWriter, r *http.Request) {
		b.dashboardEquity.Store(99000.0)
		json.NewEncoder(w).Encode(model.FlattenResult{Status: "flattened", PositionsRemaining: 0})
	})
	mux.HandleFunc("/api/scoring", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.ScoringReport{GradeDistribution: map[string]int{"A+": 2}})
	})
	mux.HandleFunc("/api/risk", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.RiskReport{IsFlattened: false})
	})
	mux.HandleFunc("/api/pois", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]model.POI{{Type: "order_block", Price: 5000}})
	})

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

// push broadcasts one envelope over every connected push channel.
func (b *mockBackend) push(t *testing.T, topic string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal push payload: %v", err)
	}
	frame, _ := json.Marshal(stream.Envelope{Type: topic, Data: data})

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pushes) == 0 {
		t.Fatal("no push connections")
	}
	for _, conn := range b.pushes {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			t.Fatalf("write push frame: %v", err)
		}
	}
}

func (b *mockBackend) waitForPush(t *testing.T) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		b.mu.Lock()
		n := len(b.pushes)
		b.mu.Unlock()
		if n > 0 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("push channel never connected")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func newTestService(t *testing.T, b *mockBackend) *Service {
	client := api.NewClient(b.server.URL)
	push := stream.NewClient(stream.DefaultConfig(stream.DeriveURL(b.server.URL)),
		stream.WithRetryPolicy(stream.FixedDelay{Delay: 50 * time.Millisecond}))

	// A long poll interval keeps the schedule from overwriting pushed
	// values while a test is still asserting on them; the immediate
	// first pull still fires on Start.
	cfg := Config{
		PollInterval:    500 * time.Millisecond,
		JobPollInterval: 20 * time.Millisecond,
		RequestTimeout:  time.Second,
	}
	return New(cfg, client, push)
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

func TestService_BacktestSession(t *testing.T) {
	b := newMockBackend(t)
	svc := newTestService(t, b)

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer svc.Stop()
	b.waitForPush(t)

	snap := svc.Snapshot()

	// Polling fills the dashboard slot before any push arrives.
	waitFor(t, "initial poll", func() bool { return snap.Dashboard().State == "active" })

	// A push update lands in the same slot.
	bias := "long"
	b.push(t, TopicDashboard, model.DashboardSummary{State: "active", Equity: 100250, MacroBias: &bias})
	waitFor(t, "dashboard push", func() bool { return snap.Dashboard().MacroBias != nil })

	// Submit a backtest that completes on the third status poll.
	jobID, err := svc.RunBacktest(context.Background(), model.BacktestParams{Instrument: "ES", Profile: "futures"})
	if err != nil {
		t.Fatalf("RunBacktest: %v", err)
	}
	if jobID != "bt-1" {
		t.Errorf("jobID = %q, want bt-1", jobID)
	}

	waitFor(t, "job completion", func() bool {
		j := snap.ActiveJob()
		return j != nil && j.Status == model.JobCompleted
	})
	waitFor(t, "completion cascade", func() bool { return b.jobListCalls.Load() > 0 })
	time.Sleep(100 * time.Millisecond)

	// Exactly three status polls, exactly one cascade.
	if got := b.statusCalls.Load(); got != 3 {
		t.Errorf("status polls = %d, want 3", got)
	}
	if got := b.jobListCalls.Load(); got != 1 {
		t.Errorf("job list refreshes = %d, want 1", got)
	}
	if b.equityCalls.Load() < 1 || b.tradesCalls.Load() < 1 {
		t.Error("cascade skipped equity or trades")
	}

	job := snap.ActiveJob()
	if job.Summary == nil || job.Summary.TradeCount != 12 {
		t.Errorf("Summary = %+v, want 12 trades", job.Summary)
	}
	if len(snap.Jobs()) != 1 {
		t.Error("job list slot not filled by cascade")
	}
	if len(snap.EquityCurve()) != 1 || len(snap.Trades()) != 1 {
		t.Error("cascade slots not filled")
	}

	// The completed job stays visible until cleared.
	svc.ClearActiveJob()
	if snap.ActiveJob() != nil {
		t.Error("active job not cleared")
	}
}

func TestService_ProgressPushUpdatesActiveJob(t *testing.T) {
	b := newMockBackend(t)
	svc := newTestService(t, b)

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer svc.Stop()
	b.waitForPush(t)

	snap := svc.Snapshot()

	// Progress for a job that is not active is dropped.
	b.push(t, TopicBacktestProgress, model.ProgressUpdate{JobID: "other", Progress: 50, TotalBars: 1000})
	time.Sleep(50 * time.Millisecond)
	if snap.ActiveJob() != nil {
		t.Fatal("progress push created an active job")
	}

	snap.SetActiveJob(&model.BacktestJob{JobID: "bt-9", Status: model.JobRunning})

	b.push(t, TopicBacktestProgress, model.ProgressUpdate{JobID: "bt-9", Progress: 40, TotalBars: 5000})
	waitFor(t, "progress update", func() bool {
		j := snap.ActiveJob()
		return j != nil && j.Progress == 40
	})

	if got := snap.ActiveJob().TotalBars; got != 5000 {
		t.Errorf("TotalBars = %d, want 5000", got)
	}
}

func TestService_SetToggleRefreshesToggles(t *testing.T) {
	b := newMockBackend(t)
	svc := newTestService(t, b)

	res, err := svc.SetToggle(context.Background(), "T05", true)
	if err != nil {
		t.Fatalf("SetToggle: %v", err)
	}
	if res.ToggleID != "T05" || !res.Enabled {
		t.Errorf("result = %+v, want T05 enabled", res)
	}
	if len(svc.Snapshot().Toggles()) != 1 {
		t.Error("toggle list not refreshed")
	}
}

func TestService_NuclearFlattenRefreshesBook(t *testing.T) {
	b := newMockBackend(t)
	svc := newTestService(t, b)

	res, err := svc.NuclearFlatten(context.Background())
	if err != nil {
		t.Fatalf("NuclearFlatten: %v", err)
	}
	if res.Status != "flattened" || res.PositionsRemaining != 0 {
		t.Errorf("result = %+v, want flattened/0", res)
	}

	// The refresh picks up the post-flatten equity.
	if got := svc.Snapshot().Dashboard().Equity; got != 99000 {
		t.Errorf("Equity = %v, want 99000", got)
	}
}

func TestService_RefreshAllFillsEverySlot(t *testing.T) {
	b := newMockBackend(t)
	svc := newTestService(t, b)
	snap := svc.Snapshot()

	if err := svc.RefreshAll(context.Background()); err != nil {
		t.Fatalf("RefreshAll: %v", err)
	}

	if snap.Dashboard().State != "active" {
		t.Error("dashboard slot empty")
	}
	if len(snap.Toggles()) == 0 || len(snap.Trades()) == 0 || len(snap.POIs()) == 0 {
		t.Error("list slots empty after refresh")
	}
	if snap.Scoring().GradeDistribution["A+"] != 2 {
		t.Error("scoring slot empty")
	}
	if snap.LastUpdate().IsZero() {
		t.Error("last-update not set")
	}
	if snap.LastError() != nil {
		t.Errorf("LastError = %v, want nil", snap.LastError())
	}
	if snap.Loading() {
		t.Error("loading flag stuck")
	}
}

// recorderSpy counts recorder callbacks.
type recorderSpy struct {
	dashboards atomic.Int32
	progresses atomic.Int32
}

func (r *recorderSpy) RecordDashboard(model.DashboardSummary) { r.dashboards.Add(1) }
func (r *recorderSpy) RecordProgress(model.ProgressUpdate) { r.progresses.Add(1) }

func TestService_RecorderReceivesPushes(t *testing.T) {
	b := newMockBackend(t)

	client := api.NewClient(b.server.URL)
	push := stream.NewClient(stream.DefaultConfig(stream.DeriveURL(b.server.URL)))
	spy := &recorderSpy{}

	cfg := Config{PollInterval: time.Hour, JobPollInterval: 20 * time.Millisecond, RequestTimeout: time.Second}
	svc := New(cfg, client, push, WithRecorder(spy))

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer svc.Stop()
	b.waitForPush(t)

	b.push(t, TopicDashboard, model.DashboardSummary{State: "active"})
	waitFor(t, "recorded dashboard", func() bool { return spy.dashboards.Load() == 1 })

	svc.Snapshot().SetActiveJob(&model.BacktestJob{JobID: "bt-2", Status: model.JobRunning})
	b.push(t, TopicBacktestProgress, model.ProgressUpdate{JobID: "bt-2", Progress: 10})
	waitFor(t, "recorded progress", func() bool { return spy.progresses.Load() == 1 })
}
