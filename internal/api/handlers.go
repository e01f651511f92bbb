// Package api exposes the agent's dashboard HTTP surface: live telemetry,
// device control relay, and the paginated sensor/action log views.
package api

import (
	"context"

	"go.uber.org/zap"

	"github.com/iot-dashboard/agent/internal/device"
	"github.com/iot-dashboard/agent/internal/history"
	"github.com/iot-dashboard/agent/internal/models"
	"github.com/iot-dashboard/agent/internal/syncer"
)

// HistoryStore is the slice of the history log the handlers need. Nil means
// the log is disabled by configuration.
type HistoryStore interface {
	SearchReadings(ctx context.Context, q history.ReadingQuery) (models.Page[models.SensorReading], error)
	SearchActions(ctx context.Context, q history.ActionQuery) (models.Page[models.ActionRecord], error)
}

// Handler serves the dashboard API. All state lives in the injected
// components; the handler itself is stateless.
type Handler struct {
	engine  *syncer.Engine
	devices *device.Registry
	hist    HistoryStore
	version string
	logger  *zap.Logger
}

// NewHandler creates the API handler. hist may be nil when the history log is
// disabled; the affected endpoints then answer 503.
func NewHandler(engine *syncer.Engine, devices *device.Registry, hist HistoryStore, version string, logger *zap.Logger) *Handler {
	return &Handler{
		engine:  engine,
		devices: devices,
		hist:    hist,
		version: version,
		logger:  logger,
	}
}
