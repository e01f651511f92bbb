// handlers_device.go - Device state and control relay endpoints
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iot-dashboard/agent/internal/models"
)

// controlFailure mirrors the original dashboard controller's error shape:
// HTTP 200 with success=false, leaving the revert decision to the caller.
type controlFailure struct {
	Success         bool          `json:"success"`
	Message         string        `json:"message"`
	Device          string        `json:"device"`
	RequestedStatus models.Status `json:"requestedStatus"`
}

// HandleControl relays a control command through the device registry.
func (h *Handler) HandleControl(c echo.Context) error {
	var req models.ControlRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid control request body", err)
	}
	if req.Device == "" {
		return NewValidationError("device")
	}
	if !req.Status.Valid() {
		return NewValidationError("status")
	}

	result, err := h.devices.SendControlCommand(c.Request().Context(), req.Device, req.Status)
	if err != nil {
		msg := result.Message
		if msg == "" {
			msg = err.Error()
		}
		return c.JSON(http.StatusOK, controlFailure{
			Success:         false,
			Message:         msg,
			Device:          req.Device,
			RequestedStatus: req.Status,
		})
	}
	return c.JSON(http.StatusOK, result)
}

// HandleDevices returns the full device state map.
func (h *Handler) HandleDevices(c echo.Context) error {
	return c.JSON(http.StatusOK, h.devices.States())
}

// HandleDeviceState returns one device's status. Unknown devices answer OFF,
// matching the registry's defaulting rule.
func (h *Handler) HandleDeviceState(c echo.Context) error {
	id := c.Param("id")
	return c.JSON(http.StatusOK, map[string]interface{}{
		"device": id,
		"status": h.devices.Get(id),
	})
}
