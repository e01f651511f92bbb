// handlers_search.go - Paginated sensor/action log endpoints for the table views
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iot-dashboard/agent/internal/history"
)

func intQuery(c echo.Context, name string, def int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func (h *Handler) historyStore() (HistoryStore, error) {
	if h.hist == nil {
		return nil, NewServiceUnavailableError("history log is disabled")
	}
	return h.hist, nil
}

// HandleSensorLog returns one page of the sensor log without filtering.
func (h *Handler) HandleSensorLog(c echo.Context) error {
	hist, err := h.historyStore()
	if err != nil {
		return err
	}
	page, err := hist.SearchReadings(c.Request().Context(), history.ReadingQuery{
		Page:      intQuery(c, "page", 0),
		Size:      intQuery(c, "size", 0),
		SortBy:    c.QueryParam("sortBy"),
		Direction: c.QueryParam("direction"),
	})
	if err != nil {
		return NewInternalError("sensor log query failed", err)
	}
	return c.JSON(http.StatusOK, page)
}

// HandleSensorSearch returns one page of the sensor log filtered by a keyword,
// optionally narrowed to a single column.
func (h *Handler) HandleSensorSearch(c echo.Context) error {
	hist, err := h.historyStore()
	if err != nil {
		return err
	}
	keyword := c.QueryParam("keyword")
	if keyword == "" {
		return NewValidationError("keyword")
	}
	page, err := hist.SearchReadings(c.Request().Context(), history.ReadingQuery{
		Column:    c.QueryParam("column"),
		Keyword:   keyword,
		Page:      intQuery(c, "page", 0),
		Size:      intQuery(c, "size", 0),
		SortBy:    c.QueryParam("sortBy"),
		Direction: c.QueryParam("direction"),
	})
	if err != nil {
		return NewInternalError("sensor search failed", err)
	}
	return c.JSON(http.StatusOK, page)
}

// HandleActionLog returns one page of the device action log.
func (h *Handler) HandleActionLog(c echo.Context) error {
	hist, err := h.historyStore()
	if err != nil {
		return err
	}
	page, err := hist.SearchActions(c.Request().Context(), history.ActionQuery{
		Page:      intQuery(c, "page", 0),
		Size:      intQuery(c, "size", 0),
		SortBy:    c.QueryParam("sortBy"),
		Direction: c.QueryParam("direction"),
	})
	if err != nil {
		return NewInternalError("action log query failed", err)
	}
	return c.JSON(http.StatusOK, page)
}

// HandleActionSearch returns one page of the action log filtered by device,
// status and keyword. device/status accept "all" to disable the filter.
func (h *Handler) HandleActionSearch(c echo.Context) error {
	hist, err := h.historyStore()
	if err != nil {
		return err
	}
	page, err := hist.SearchActions(c.Request().Context(), history.ActionQuery{
		Device:    c.QueryParam("device"),
		Status:    c.QueryParam("status"),
		Keyword:   c.QueryParam("keyword"),
		Page:      intQuery(c, "page", 0),
		Size:      intQuery(c, "size", 0),
		SortBy:    c.QueryParam("sortBy"),
		Direction: c.QueryParam("direction"),
	})
	if err != nil {
		return NewInternalError("action search failed", err)
	}
	return c.JSON(http.StatusOK, page)
}
