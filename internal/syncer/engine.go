// Package syncer implements the background telemetry sync engine: it polls
// the monitoring backend on a fixed interval, maintains a bounded deduplicated
// history buffer, persists the buffer through the key-value store, and fans
// out notifications to subscribed views.
package syncer

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iot-dashboard/agent/internal/models"
	"github.com/iot-dashboard/agent/internal/store"
)

// HistoryKey is the persisted-store key holding the serialized history buffer.
const HistoryKey = "telemetry_history"

// Options tunes the engine. Zero values are filled in by NewEngine.
type Options struct {
	TelemetryURL string
	PollInterval time.Duration
	MaxHistory   int
	MaxAge       time.Duration
	HTTPTimeout  time.Duration
}

// Listener receives notification events. Listeners run synchronously on the
// poll goroutine in registration order and must not block for long.
type Listener func(models.Notification)

type subscription struct {
	token string
	fn    Listener
}

// Engine owns the history buffer. It is constructed explicitly and injected
// into consumers; there is no ambient global instance.
type Engine struct {
	opts   Options
	kv     store.KV
	client *resty.Client
	logger *zap.Logger

	mu        sync.Mutex
	buffer    []models.TelemetrySample
	listeners []subscription
	running   bool
	inFlight  bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewEngine builds an engine. The HTTP client carries no retry policy: a
// failed poll is retried by the next scheduled tick, nothing else.
func NewEngine(opts Options, kv store.KV, logger *zap.Logger) *Engine {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = 20
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = time.Hour
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(opts.HTTPTimeout).
		SetHeader("Accept", "application/json")
	return &Engine{
		opts:   opts,
		kv:     kv,
		client: client,
		logger: logger,
	}
}

// Init restores the history buffer from the persisted store, dropping samples
// older than MaxAge. Corrupt or absent storage resets to an empty buffer;
// Init never fails.
func (e *Engine) Init(ctx context.Context) {
	data, err := e.kv.Get(ctx, HistoryKey)
	if err != nil {
		if err != store.ErrNotFound {
			e.logger.Warn("history load failed, starting empty", zap.Error(err))
		}
		return
	}

	var stored []models.TelemetrySample
	if err := json.Unmarshal(data, &stored); err != nil {
		e.logger.Warn("stored history is corrupt, starting empty", zap.Error(err))
		return
	}

	cutoff := time.Now().Add(-e.opts.MaxAge)
	kept := make([]models.TelemetrySample, 0, len(stored))
	for _, s := range stored {
		ts, ok := s.Timestamp()
		if ok && ts.After(cutoff) {
			kept = append(kept, s)
		}
	}

	e.mu.Lock()
	e.buffer = kept
	e.mu.Unlock()

	if len(kept) > 0 {
		e.logger.Info("history restored",
			zap.Int("loaded", len(kept)),
			zap.Int("expired", len(stored)-len(kept)))
	}
}

// Start begins polling: one immediate fetch, then one per poll interval until
// Stop. Calling Start on a running engine is a no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.running = true
	e.cancel = cancel
	e.done = make(chan struct{})
	done := e.done
	e.mu.Unlock()

	e.logger.Info("telemetry sync started",
		zap.String("endpoint", e.opts.TelemetryURL),
		zap.Duration("interval", e.opts.PollInterval))

	go e.run(ctx, done)
}

func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	e.fetchAndUpdate(ctx)

	ticker := time.NewTicker(e.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.fetchAndUpdate(ctx)
		}
	}
}

// Stop cancels the polling loop and waits for it to exit. Idempotent. An
// in-flight request is allowed to finish; its result is discarded.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	cancel := e.cancel
	done := e.done
	e.cancel = nil
	e.done = nil
	e.mu.Unlock()

	cancel()
	<-done
	e.logger.Info("telemetry sync stopped")
}

// Running reports whether the polling loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// fetchAndUpdate performs one poll cycle. Cycles never overlap: if the
// previous request is still in flight this tick is skipped.
func (e *Engine) fetchAndUpdate(ctx context.Context) {
	e.mu.Lock()
	if e.inFlight {
		e.mu.Unlock()
		e.logger.Debug("previous poll still in flight, skipping tick")
		return
	}
	e.inFlight = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.inFlight = false
		e.mu.Unlock()
	}()

	resp, err := e.client.R().SetContext(ctx).Get(e.opts.TelemetryURL)
	if err != nil {
		e.logger.Warn("telemetry fetch failed", zap.Error(err))
		return
	}
	if resp.StatusCode() >= 300 {
		e.logger.Warn("telemetry fetch rejected",
			zap.Int("status", resp.StatusCode()))
		return
	}

	sample, ok := decodeSample(resp.Body(), time.Now())
	if !ok {
		e.logger.Debug("telemetry response carried no record")
		return
	}

	e.apply(ctx, sample)
}

// apply runs the dedup rule and, on append, bounds the buffer, persists it
// and broadcasts a notification.
func (e *Engine) apply(ctx context.Context, sample models.TelemetrySample) {
	e.mu.Lock()
	if n := len(e.buffer); n > 0 {
		last := e.buffer[n-1]
		// Suppress only exact repeats: same timestamp and every value
		// unchanged. A value change on a colliding timestamp still appends.
		if last.Time == sample.Time && last.ValuesEqual(sample) {
			e.mu.Unlock()
			e.logger.Debug("duplicate sample ignored", zap.String("time", sample.Time))
			return
		}
	}

	e.buffer = append(e.buffer, sample)
	if len(e.buffer) > e.opts.MaxHistory {
		e.buffer = e.buffer[1:]
	}

	snapshot := make([]models.TelemetrySample, len(e.buffer))
	copy(snapshot, e.buffer)
	listeners := make([]subscription, len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.Unlock()

	if data, err := json.Marshal(snapshot); err != nil {
		e.logger.Error("history marshal failed", zap.Error(err))
	} else if err := e.kv.Set(ctx, HistoryKey, data); err != nil {
		e.logger.Error("history persist failed", zap.Error(err))
	}

	e.logger.Debug("sample appended",
		zap.String("time", sample.Time),
		zap.Float64("temperature", sample.Temperature),
		zap.Float64("humidity", sample.Humidity),
		zap.Float64("light", sample.Light))

	event := models.Notification{NewSample: sample, Snapshot: snapshot}
	for _, sub := range listeners {
		sub.fn(event)
	}
}

// Subscribe registers a listener and returns its unsubscribe token. Events
// are delivered in registration order; there is no replay for late
// subscribers.
func (e *Engine) Subscribe(fn Listener) string {
	token := uuid.New().String()
	e.mu.Lock()
	e.listeners = append(e.listeners, subscription{token: token, fn: fn})
	e.mu.Unlock()
	return token
}

// Unsubscribe removes the listener registered under token.
func (e *Engine) Unsubscribe(token string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, sub := range e.listeners {
		if sub.token == token {
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
			return
		}
	}
}

// Snapshot returns a defensive copy of the history buffer, oldest first.
func (e *Engine) Snapshot() []models.TelemetrySample {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.TelemetrySample, len(e.buffer))
	copy(out, e.buffer)
	return out
}

// Latest returns the most recently appended sample, if any.
func (e *Engine) Latest() (models.TelemetrySample, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.buffer) == 0 {
		return models.TelemetrySample{}, false
	}
	return e.buffer[len(e.buffer)-1], true
}
