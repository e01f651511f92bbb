// Package device implements the persisted device on/off state registry and
// the control-command round trip to the hardware backend.
package device

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/iot-dashboard/agent/internal/models"
	"github.com/iot-dashboard/agent/internal/store"
)

// StatesKey is the persisted-store key holding the serialized state map.
const StatesKey = "device_states"

// Options configures the registry.
type Options struct {
	ControlURL  string
	KnownIDs    []string
	HTTPTimeout time.Duration
}

// ActionRecorder receives confirmed control actions. The history log
// implements it; a nil recorder is allowed.
type ActionRecorder interface {
	RecordAction(device string, status models.Status, when time.Time)
}

// Registry owns the persisted on/off state per device. Every mutation is
// written through to the store immediately.
type Registry struct {
	opts     Options
	kv       store.KV
	client   *resty.Client
	logger   *zap.Logger
	recorder ActionRecorder

	mu     sync.RWMutex
	states map[string]models.Status
}

// NewRegistry builds a registry with every known device OFF. Control commands
// are never retried automatically, so the client carries no retry policy.
func NewRegistry(opts Options, kv store.KV, logger *zap.Logger) *Registry {
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = 10 * time.Second
	}
	states := make(map[string]models.Status, len(opts.KnownIDs))
	for _, id := range opts.KnownIDs {
		states[id] = models.StatusOff
	}
	client := resty.New().
		SetTimeout(opts.HTTPTimeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Registry{
		opts:   opts,
		kv:     kv,
		client: client,
		logger: logger,
		states: states,
	}
}

// SetRecorder attaches an action recorder for confirmed commands.
func (r *Registry) SetRecorder(rec ActionRecorder) {
	r.recorder = rec
}

// Init merges the persisted map over the all-OFF defaults. Persisted values
// override defaults and unknown persisted ids are retained. Corrupt or absent
// storage keeps the defaults; Init never fails.
func (r *Registry) Init(ctx context.Context) {
	data, err := r.kv.Get(ctx, StatesKey)
	if err != nil {
		if err != store.ErrNotFound {
			r.logger.Warn("device states load failed, keeping defaults", zap.Error(err))
		}
		return
	}

	var stored map[string]models.Status
	if err := json.Unmarshal(data, &stored); err != nil {
		r.logger.Warn("stored device states are corrupt, keeping defaults", zap.Error(err))
		return
	}

	r.mu.Lock()
	for id, status := range stored {
		r.states[id] = status
	}
	r.mu.Unlock()
	r.logger.Info("device states restored", zap.Int("devices", len(stored)))
}

// Get returns the current status, OFF for identifiers never seen.
func (r *Registry) Get(id string) models.Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if status, ok := r.states[id]; ok {
		return status
	}
	return models.StatusOff
}

// States returns a copy of the full state map.
func (r *Registry) States() map[string]models.Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]models.Status, len(r.states))
	for id, status := range r.states {
		out[id] = status
	}
	return out
}

// Set updates a device's status and persists the whole map write-through.
func (r *Registry) Set(ctx context.Context, id string, status models.Status) error {
	r.mu.Lock()
	r.states[id] = status
	data, err := json.Marshal(r.states)
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshaling device states: %w", err)
	}
	if err := r.kv.Set(ctx, StatesKey, data); err != nil {
		return fmt.Errorf("persisting device states: %w", err)
	}
	return nil
}

// SendControlCommand posts {device, status} to the control endpoint and
// reconciles local state with the reply. Two response contracts are
// supported: a rich body with an explicit success flag and the authoritative
// resulting status, or a bare 2xx meaning the requested status took effect.
// On any failure local state is left unchanged and the error is returned;
// retrying is the caller's decision.
func (r *Registry) SendControlCommand(ctx context.Context, id string, desired models.Status) (models.ControlResponse, error) {
	if !desired.Valid() {
		return models.ControlResponse{}, fmt.Errorf("device: invalid status %q", desired)
	}

	req := models.ControlRequest{Device: id, Status: desired}
	resp, err := r.client.R().SetContext(ctx).SetBody(req).Post(r.opts.ControlURL)
	if err != nil {
		r.logger.Warn("control command failed",
			zap.String("device", id),
			zap.String("requested", string(desired)),
			zap.Error(err))
		return models.ControlResponse{}, fmt.Errorf("control command: %w", err)
	}
	if resp.StatusCode() >= 300 {
		r.logger.Warn("control command rejected",
			zap.String("device", id),
			zap.Int("status", resp.StatusCode()))
		return models.ControlResponse{}, fmt.Errorf("control command: backend returned %s", resp.Status())
	}

	// An explicit success flag marks the rich contract; without one any 2xx
	// is taken as confirmation of the requested status.
	confirmed := desired
	var probe struct {
		Success *bool         `json:"success"`
		Status  models.Status `json:"status"`
		Message string        `json:"message"`
	}
	if err := json.Unmarshal(resp.Body(), &probe); err == nil && probe.Success != nil {
		if !*probe.Success {
			msg := probe.Message
			if msg == "" {
				msg = "device did not acknowledge"
			}
			r.logger.Warn("control command unacknowledged",
				zap.String("device", id),
				zap.String("message", msg))
			return models.ControlResponse{
				Success: false,
				Device:  id,
				Status:  probe.Status,
				Message: msg,
			}, fmt.Errorf("control command: %s", msg)
		}
		// The hardware's answer is authoritative; it may differ from what
		// was requested.
		if probe.Status.Valid() {
			confirmed = probe.Status
		}
	}

	when := time.Now()
	if err := r.Set(ctx, id, confirmed); err != nil {
		r.logger.Error("device state persist failed", zap.Error(err))
	}
	if r.recorder != nil {
		r.recorder.RecordAction(id, confirmed, when)
	}
	r.logger.Info("device controlled",
		zap.String("device", id),
		zap.String("status", string(confirmed)))

	return models.ControlResponse{
		Success: true,
		Device:  id,
		Status:  confirmed,
		Time:    when.Format(time.RFC3339),
	}, nil
}
