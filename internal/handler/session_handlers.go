package handler

import (
	"net/http"

	"sats-terminal/internal/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func parseSessionID(c echo.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	return id, err == nil
}

func (h *APIHandler) createSession(c echo.Context) error {
	var req createSessionRequest
	// Тело опционально
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body"})
		}
	}
	session, err := h.sessions.CreateSession(c.Request().Context(), req.NodeID)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, session)
}

func (h *APIHandler) getSession(c echo.Context) error {
	id, ok := parseSessionID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid session ID format"})
	}
	session, err := h.sessions.GetSession(c.Request().Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

func (h *APIHandler) sessionAction(c echo.Context) error {
	id, ok := parseSessionID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid session ID format"})
	}
	var req sessionActionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body"})
	}
	session, err := h.sessions.ApplyAction(c.Request().Context(), id, models.SessionAction{
		ActionID:   req.ActionID,
		ScoreDelta: req.ScoreDelta,
		NextStepID: req.NextStepID,
	})
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}
