// routes.go - Route registration helpers
package api

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers all API routes with the Echo instance.
func RegisterRoutes(e *echo.Echo, h *Handler, stream *StreamHandler) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", h.HandleHealth)

	// Live telemetry + device control (original dashboard contract)
	dashGroup := apiGroup.Group("/dashboard")
	dashGroup.GET("/chart", h.HandleChart)
	dashGroup.GET("/history", h.HandleHistory)
	dashGroup.GET("/history/msgpack", h.HandleHistoryMsgpack)
	dashGroup.POST("/control", h.HandleControl)
	dashGroup.GET("/devices", h.HandleDevices)
	dashGroup.GET("/devices/:id", h.HandleDeviceState)

	// Paginated sensor log
	sensorGroup := apiGroup.Group("/datasensor")
	sensorGroup.GET("", h.HandleSensorLog)
	sensorGroup.GET("/search", h.HandleSensorSearch)

	// Paginated action history
	actionGroup := apiGroup.Group("/actionhistory")
	actionGroup.GET("", h.HandleActionLog)
	actionGroup.GET("/search", h.HandleActionSearch)

	// WebSocket telemetry stream
	apiGroup.GET("/ws/telemetry", stream.HandleTelemetryWS)
}
