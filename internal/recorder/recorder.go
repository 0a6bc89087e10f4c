package recorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flofmatrix/console-sync/internal/model"
)

// Event kinds written to the session_events table.
const (
	KindDashboard = "dashboard"
	KindProgress  = "backtest_progress"
)

// Config holds recorder configuration.
type Config struct {
	BatchSize     int           // Rows per insert batch (default: 500)
	FlushInterval time.Duration // Max time a row waits before flushing (default: 1s)
	BufferSize    int           // Initial queue capacity (default: 10000)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     500,
		FlushInterval: 1 * time.Second,
		BufferSize:    10000,
	}
}

// eventRow is one recorded update.
type eventRow struct {
	SessionID  string
	Kind       string
	RecordedAt time.Time
	Payload    []byte
}

// Metrics counts recorder activity.
type Metrics struct {
	Inserts int64
	Flushes int64
	Errors  int64
	Dropped int64
}

// Recorder persists live console updates to PostgreSQL for session
// replay. Every update becomes one row tagged with a per-process
// session id; rows are batched and flushed on size or interval.
type Recorder struct {
	cfg       Config
	sessionID string
	db        *pgxpool.Pool
	logger    *slog.Logger

	queue *Queue[eventRow]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	batch   []eventRow
	metrics Metrics
}

// New creates a Recorder writing to the given pool.
func New(cfg Config, db *pgxpool.Pool, logger *slog.Logger) *Recorder {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 500
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 10000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		cfg:       cfg,
		sessionID: uuid.NewString(),
		db:        db,
		logger:    logger,
		queue:     NewQueue[eventRow](cfg.BufferSize),
		batch:     make([]eventRow, 0, cfg.BatchSize),
	}
}

// SessionID returns this process's recording session id.
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// RecordDashboard enqueues a dashboard update. Never blocks.
func (r *Recorder) RecordDashboard(d model.DashboardSummary) {
	r.enqueue(KindDashboard, d)
}

// RecordProgress enqueues a backtest progress update. Never blocks.
func (r *Recorder) RecordProgress(p model.ProgressUpdate) {
	r.enqueue(KindProgress, p)
}

func (r *Recorder) enqueue(kind string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		r.mu.Lock()
		r.metrics.Dropped++
		r.mu.Unlock()
		return
	}

	row := eventRow{
		SessionID:  r.sessionID,
		Kind:       kind,
		RecordedAt: time.Now(),
		Payload:    data,
	}
	if !r.queue.Push(row) {
		r.mu.Lock()
		r.metrics.Dropped++
		r.mu.Unlock()
	}
}

// Start begins consuming and flushing.
func (r *Recorder) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(2)
	go r.consumeLoop()
	go r.flushLoop()

	r.logger.Info("session recorder started",
		"session_id", r.sessionID,
		"batch_size", r.cfg.BatchSize,
		"flush_interval", r.cfg.FlushInterval,
	)
	return nil
}

// Stop drains the queue, flushes the final batch, and shuts down.
func (r *Recorder) Stop(ctx context.Context) error {
	r.queue.Close()
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		r.logger.Warn("recorder stop timed out")
	}

	// Anything still queued or batched goes out in one last flush.
	for _, row := range r.queue.Drain(r.cfg.BufferSize) {
		r.mu.Lock()
		r.batch = append(r.batch, row)
		r.mu.Unlock()
	}
	r.flush()

	r.logger.Info("session recorder stopped", "session_id", r.sessionID)
	return nil
}

// Stats returns current metrics.
func (r *Recorder) Stats() Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metrics
}

// consumeLoop moves rows from the queue into the batch.
func (r *Recorder) consumeLoop() {
	defer r.wg.Done()

	for {
		row, ok := r.queue.Pop()
		if !ok {
			return
		}

		r.mu.Lock()
		r.batch = append(r.batch, row)
		shouldFlush := len(r.batch) >= r.cfg.BatchSize
		r.mu.Unlock()

		if shouldFlush {
			r.flush()
		}
	}
}

// flushLoop flushes on the interval.
func (r *Recorder) flushLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.flush()
		}
	}
}

// flush writes the current batch to the database.
func (r *Recorder) flush() {
	r.mu.Lock()
	if len(r.batch) == 0 {
		r.mu.Unlock()
		return
	}
	batch := r.batch
	r.batch = make([]eventRow, 0, r.cfg.BatchSize)
	r.mu.Unlock()

	start := time.Now()
	if err := r.insert(batch); err != nil {
		r.logger.Error("event batch insert failed", "error", err, "count", len(batch))
		r.mu.Lock()
		r.metrics.Errors++
		r.mu.Unlock()
		return
	}

	r.mu.Lock()
	r.metrics.Inserts += int64(len(batch))
	r.metrics.Flushes++
	r.mu.Unlock()

	r.logger.Debug("flushed session events",
		"count", len(batch),
		"duration", time.Since(start),
	)
}

// insert writes rows using pgx.Batch.
func (r *Recorder) insert(rows []eventRow) error {
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO session_events (session_id, kind, recorded_at, payload)
			VALUES ($1, $2, $3, $4)
		`, row.SessionID, row.Kind, row.RecordedAt, row.Payload)
	}

	// The final flush runs after Stop cancelled the loop context.
	ctx := r.ctx
	if ctx == nil || ctx.Err() != nil {
		ctx = context.Background()
	}
	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}
