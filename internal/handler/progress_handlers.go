package handler

import (
	"net/http"

	"sats-terminal/internal/models"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func (h *APIHandler) syncUser(c echo.Context) error {
	var req syncUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body"})
	}
	user, err := h.users.SyncUser(c.Request().Context(), req.Token)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, newSyncUserResponse(user))
}

func (h *APIHandler) saveProgress(c echo.Context) error {
	var req saveProgressRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body"})
	}
	err := h.users.SaveProgress(c.Request().Context(), models.ProgressUpdate{
		Token:                req.Token,
		CurrentModuleID:      req.CurrentModuleID,
		CurrentStepIndex:     req.CurrentStepIndex,
		TotalSats:            req.TotalSats,
		IndependenceProgress: req.IndependenceProgress,
	})
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, okResponse{OK: true})
}

func (h *APIHandler) listSkills(c echo.Context) error {
	skills, err := h.skills.ListSkills(c.Request().Context(), c.Param("token"))
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, skills)
}

func (h *APIHandler) grantSkill(c echo.Context) error {
	var req grantSkillRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body"})
	}
	skill, granted, err := h.skills.GrantSkill(c.Request().Context(), req.Token, req.SkillKey)
	if err != nil {
		return handleServiceError(c, err)
	}
	resp := grantSkillResponse{Granted: granted}
	if granted {
		resp.Skill = skill
	} else {
		h.logger.Debug("Skill already owned", zap.String("skillKey", req.SkillKey))
	}
	return c.JSON(http.StatusOK, resp)
}
