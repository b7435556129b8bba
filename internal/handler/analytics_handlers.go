package handler

import (
	"net/http"

	"sats-terminal/internal/models"

	"github.com/labstack/echo/v4"
)

func (h *APIHandler) track(c echo.Context) error {
	var req trackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body"})
	}
	err := h.analytics.Track(c.Request().Context(), models.AnalyticsEvent{
		SessionID: req.SessionID,
		EventName: req.EventName,
		Source:    req.Source,
	})
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
