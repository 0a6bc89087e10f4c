package model

// -----------------------------------------------------------------------------
// Dashboard Types
// -----------------------------------------------------------------------------

// DashboardSummary is the top-level strategy snapshot shown on the console.
// It arrives both over the push channel (topic "dashboard") and from
// GET /api/dashboard; both carry the same shape.
type DashboardSummary struct {
	State          string  `json:"state"` // "idle" or "active"
	Equity         float64 `json:"equity"`
	PeakEquity     float64 `json:"peak_equity"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	CurrentPrice   float64 `json:"current_price"`
	ATR            float64 `json:"atr"`
	TradeCount     int     `json:"trade_count"`
	OpenPositions  int     `json:"open_positions"`
	PredatorState  string  `json:"predator_state"`
	MacroBias      *string `json:"macro_bias"` // nil when the strategy has no bias yet
	Regime         string  `json:"regime"`
	WinRate        float64 `json:"win_rate"`
	ProfitFactor   float64 `json:"profit_factor"`
	TotalPnL       float64 `json:"total_pnl"`
}

// Position is an open position managed by the strategy.
type Position struct {
	PositionID         string  `json:"position_id"`
	Direction          string  `json:"direction"`
	Grade              string  `json:"grade"`
	EntryPrice         float64 `json:"entry_price"`
	StopPrice          float64 `json:"stop_price"`
	TargetPrice        float64 `json:"target_price"`
	TotalContracts     int     `json:"total_contracts"`
	RemainingContracts int     `json:"remaining_contracts"`
	Phase              string  `json:"phase"`
	PartialFilled      bool    `json:"partial_filled"`
	BreakevenSet       bool    `json:"breakeven_set"`
	HighestFavorable   float64 `json:"highest_favorable"`
	EntryTimeNS        int64   `json:"entry_time_ns"`
	PnLDollars         float64 `json:"pnl_dollars"`
	PnLRMultiple       float64 `json:"pnl_r_multiple"`
	PartialPnLDollars  float64 `json:"partial_pnl_dollars"`
}

// TradeRecord is a completed (or partially completed) trade with its
// confluence score breakdown.
type TradeRecord struct {
	PositionID   string  `json:"position_id"`
	Direction    string  `json:"direction"`
	Grade        string  `json:"grade"`
	ScoreTotal   float64 `json:"score_total"`
	ScoreTier1   float64 `json:"score_tier1"`
	ScoreTier2   float64 `json:"score_tier2"`
	ScoreTier3   float64 `json:"score_tier3"`
	EntryPrice   float64 `json:"entry_price"`
	StopPrice    float64 `json:"stop_price"`
	TargetPrice  float64 `json:"target_price"`
	ExitPrice    float64 `json:"exit_price"`
	Contracts    int     `json:"contracts"`
	PnLDollars   float64 `json:"pnl_dollars"`
	PnLRMultiple float64 `json:"pnl_r_multiple"`
	ExitReason   string  `json:"exit_reason"`
	POIType      string  `json:"poi_type"`
	TimestampNS  int64   `json:"timestamp_ns"`
	ExitTimeNS   int64   `json:"exit_time_ns"`
}

// Rejection is a trade setup that was scored but rejected by a gate.
type Rejection struct {
	Reason      string  `json:"reason"`
	Gate        string  `json:"gate"`
	TimestampNS int64   `json:"timestamp_ns"`
	Direction   string  `json:"direction"`
	Score       float64 `json:"score"`
}

// ScoringReport summarizes recent scoring activity.
type ScoringReport struct {
	Trades            []TradeRecord  `json:"trades"`
	Rejections        []Rejection    `json:"rejections"`
	GradeDistribution map[string]int `json:"grade_distribution"`
}

// RiskReport describes the risk overlord's pillars and portfolio gates.
// Pillar/gate payloads are heterogeneous server-side, so they stay as
// generic maps keyed by check ID (e.g. "T27_daily_drawdown").
type RiskReport struct {
	Pillars           map[string]map[string]any `json:"pillars"`
	Gates             map[string]map[string]any `json:"gates"`
	IsFlattened       bool                      `json:"is_flattened"`
	ConsecutiveLosses int                       `json:"consecutive_losses"`
}

// Toggle is a single feature toggle with its dependency chain.
type Toggle struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Enabled  bool     `json:"enabled"`
	RawValue bool     `json:"raw_value"`
	IsSafety bool     `json:"is_safety"`
	Parents  []string `json:"parents"`
	Key      string   `json:"key"`
}

// EquityPoint is one sample of the equity curve.
type EquityPoint struct {
	TimestampNS int64   `json:"timestamp_ns"`
	Equity      float64 `json:"equity"`
}

// POI is a point of interest mapped by the structure engine.
type POI struct {
	Type          string  `json:"type"`
	Price         float64 `json:"price"`
	ZoneHigh      float64 `json:"zone_high"`
	ZoneLow       float64 `json:"zone_low"`
	Timeframe     string  `json:"timeframe"`
	Direction     string  `json:"direction"`
	IsExtreme     bool    `json:"is_extreme"`
	IsDecisional  bool    `json:"is_decisional"`
	IsFlipZone    bool    `json:"is_flip_zone"`
	IsSweepZone   bool    `json:"is_sweep_zone"`
	IsUnicorn     bool    `json:"is_unicorn"`
	HasInducement bool    `json:"has_inducement"`
	IsFresh       bool    `json:"is_fresh"`
}

// -----------------------------------------------------------------------------
// Backtest Job Types
// -----------------------------------------------------------------------------

// JobStatus is a backtest job lifecycle status.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// IsTerminal reports whether the status stops job polling.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// BacktestParams are the parameters for submitting a backtest run.
type BacktestParams struct {
	Instrument string `json:"instrument"`
	Profile    string `json:"profile"`
	FillLevel  int    `json:"fill_level"`
	Engine     string `json:"engine"`
	DataFile   string `json:"data_file"`
}

// Map returns the params in the opaque key/value form the job descriptor
// carries.
func (p BacktestParams) Map() map[string]any {
	return map[string]any{
		"instrument": p.Instrument,
		"profile":    p.Profile,
		"fill_level": p.FillLevel,
		"engine":     p.Engine,
		"data_file":  p.DataFile,
	}
}

// BacktestSummary is the result record attached to a completed job.
type BacktestSummary struct {
	TradeCount     int     `json:"trade_count"`
	TotalPnL       float64 `json:"total_pnl"`
	FinalEquity    float64 `json:"final_equity"`
	WinRate        float64 `json:"win_rate"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
}

// BacktestJob is the full descriptor of a backtest job, as returned by
// GET /api/backtest/status/{job_id}. The whole descriptor is replaced on
// every status poll; fields are never merged individually.
type BacktestJob struct {
	JobID     string           `json:"job_id"`
	Status    JobStatus        `json:"status"`
	Progress  int              `json:"progress"`
	TotalBars int              `json:"total_bars"`
	Params    map[string]any   `json:"params"`
	Summary   *BacktestSummary `json:"summary,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// JobSummary is the abbreviated job record from GET /api/backtest/jobs
// (no summary field).
type JobSummary struct {
	JobID     string         `json:"job_id"`
	Status    JobStatus      `json:"status"`
	Progress  int            `json:"progress"`
	TotalBars int            `json:"total_bars"`
	Params    map[string]any `json:"params"`
}

// ProgressUpdate is the payload of the "backtest_progress" push topic.
type ProgressUpdate struct {
	JobID     string `json:"job_id"`
	Progress  int    `json:"progress"`
	TotalBars int    `json:"total_bars"`
}

// -----------------------------------------------------------------------------
// Action Results
// -----------------------------------------------------------------------------

// RunBacktestResponse is the acknowledgment for POST /api/backtest/run.
type RunBacktestResponse struct {
	JobID  string    `json:"job_id"`
	Status JobStatus `json:"status"`
}

// ToggleResult is the acknowledgment for POST /api/toggles/{id}.
type ToggleResult struct {
	ToggleID string `json:"toggle_id"`
	Enabled  bool   `json:"enabled"`
	RawValue bool   `json:"raw_value"`
}

// FlattenResult is the acknowledgment for POST /api/nuclear-flatten.
type FlattenResult struct {
	Status             string `json:"status"`
	PositionsRemaining int    `json:"positions_remaining"`
}
