package snapshot

import (
	"sync"
	"time"

	"github.com/flofmatrix/console-sync/internal/model"
)

// Snapshot is the single in-process state container both sync channels
// write into. Each slot is replaced wholesale by its setter; the mutex
// makes individual slot writes atomic, but there is no sequencing
// between producers: the last write wins (the push channel,
// the poll schedule, and the job cascade deliberately race).
type Snapshot struct {
	mu sync.RWMutex

	dashboard   model.DashboardSummary
	positions   []model.Position
	trades      []model.TradeRecord
	toggles     []model.Toggle
	equityCurve []model.EquityPoint
	scoring     model.ScoringReport
	risk        model.RiskReport
	pois        []model.POI

	activeJob *model.BacktestJob
	jobs      []model.JobSummary

	lastUpdate  time.Time
	lastErr     error
	activePanel string
	loading     bool
}

// New creates an empty Snapshot.
func New() *Snapshot {
	return &Snapshot{}
}

// Dashboard returns the current dashboard summary.
func (s *Snapshot) Dashboard() model.DashboardSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dashboard
}

// SetDashboard replaces the dashboard slot.
func (s *Snapshot) SetDashboard(d model.DashboardSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dashboard = d
}

// Positions returns the current position list.
func (s *Snapshot) Positions() []model.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.positions
}

// SetPositions replaces the position list slot.
func (s *Snapshot) SetPositions(p []model.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = p
}

// Trades returns the current trade list.
func (s *Snapshot) Trades() []model.TradeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trades
}

// SetTrades replaces the trade list slot.
func (s *Snapshot) SetTrades(t []model.TradeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = t
}

// Toggles returns the current toggle list.
func (s *Snapshot) Toggles() []model.Toggle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.toggles
}

// SetToggles replaces the toggle list slot.
func (s *Snapshot) SetToggles(t []model.Toggle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toggles = t
}

// EquityCurve returns the current equity curve.
func (s *Snapshot) EquityCurve() []model.EquityPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.equityCurve
}

// SetEquityCurve replaces the equity curve slot.
func (s *Snapshot) SetEquityCurve(e []model.EquityPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.equityCurve = e
}

// Scoring returns the current scoring report.
func (s *Snapshot) Scoring() model.ScoringReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scoring
}

// SetScoring replaces the scoring report slot.
func (s *Snapshot) SetScoring(r model.ScoringReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scoring = r
}

// Risk returns the current risk report.
func (s *Snapshot) Risk() model.RiskReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.risk
}

// SetRisk replaces the risk report slot.
func (s *Snapshot) SetRisk(r model.RiskReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.risk = r
}

// POIs returns the current point-of-interest list.
func (s *Snapshot) POIs() []model.POI {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pois
}

// SetPOIs replaces the point-of-interest slot.
func (s *Snapshot) SetPOIs(p []model.POI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pois = p
}

// ActiveJob returns the active backtest job descriptor, or nil when no
// job has been submitted (or the slot was explicitly cleared).
func (s *Snapshot) ActiveJob() *model.BacktestJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeJob
}

// SetActiveJob replaces the active-job slot with the full descriptor.
// The slot is never cleared automatically on completion; pass nil to
// clear it explicitly.
func (s *Snapshot) SetActiveJob(j *model.BacktestJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeJob = j
}

// Jobs returns the current job-list slot.
func (s *Snapshot) Jobs() []model.JobSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs
}

// SetJobs replaces the job-list slot.
func (s *Snapshot) SetJobs(j []model.JobSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = j
}

// LastUpdate returns the timestamp of the most recent successful write.
func (s *Snapshot) LastUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate
}

// SetLastUpdate replaces the last-update timestamp.
func (s *Snapshot) SetLastUpdate(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUpdate = t
}

// LastError returns the most recent pull failure, or nil.
func (s *Snapshot) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// SetLastError replaces the last-error slot. A subsequent successful
// pull may clear it by passing nil.
func (s *Snapshot) SetLastError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

// ActivePanel returns the currently focused console panel.
func (s *Snapshot) ActivePanel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activePanel
}

// SetActivePanel replaces the active-panel slot.
func (s *Snapshot) SetActivePanel(panel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activePanel = panel
}

// Loading returns the loading flag.
func (s *Snapshot) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// SetLoading replaces the loading flag.
func (s *Snapshot) SetLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = v
}
