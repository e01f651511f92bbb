// handlers_telemetry.go - Live telemetry endpoints backed by the sync engine
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/iot-dashboard/agent/internal/models"
)

// HandleChart returns the most recent sample as a one-element array, the
// shape the original dashboard endpoint used. An empty buffer yields an empty
// array rather than an error.
func (h *Handler) HandleChart(c echo.Context) error {
	latest, ok := h.engine.Latest()
	if !ok {
		return c.JSON(http.StatusOK, []models.TelemetrySample{})
	}
	return c.JSON(http.StatusOK, []models.TelemetrySample{latest})
}

// HandleHistory returns the full buffered history, oldest first.
func (h *Handler) HandleHistory(c echo.Context) error {
	return c.JSON(http.StatusOK, h.engine.Snapshot())
}

// HandleHistoryMsgpack returns the buffered history msgpack-encoded, for
// views that poll the whole window frequently.
func (h *Handler) HandleHistoryMsgpack(c echo.Context) error {
	data, err := msgpack.Marshal(h.engine.Snapshot())
	if err != nil {
		return NewInternalError("failed to encode history", err)
	}
	return c.Blob(http.StatusOK, "application/x-msgpack", data)
}
