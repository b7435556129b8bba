package handler

import (
	"errors"
	"net/http"

	"sats-terminal/internal/models"
	"sats-terminal/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// APIHandler обслуживает HTTP API прогресса.
type APIHandler struct {
	users     service.UserService
	skills    service.SkillService
	sessions  service.SessionService
	analytics service.AnalyticsService
	gatherer  prometheus.Gatherer
	logger    *zap.Logger
}

// NewAPIHandler создает обработчик API. gatherer отдается на /metrics.
func NewAPIHandler(
	users service.UserService,
	skills service.SkillService,
	sessions service.SessionService,
	analytics service.AnalyticsService,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) *APIHandler {
	return &APIHandler{
		users:     users,
		skills:    skills,
		sessions:  sessions,
		analytics: analytics,
		gatherer:  gatherer,
		logger:    logger.Named("APIHandler"),
	}
}

// RegisterRoutes регистрирует маршруты API.
func (h *APIHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))

	api := e.Group("/api")
	api.POST("/sync-user", h.syncUser)
	api.POST("/save-progress", h.saveProgress)

	api.GET("/skills/:token", h.listSkills)
	api.POST("/skills/grant", h.grantSkill)

	api.POST("/sessions", h.createSession)
	api.GET("/sessions/:id", h.getSession)
	api.POST("/sessions/:id/action", h.sessionAction)

	api.POST("/track", h.track)
}

// APIError представляет стандартизированный ответ об ошибке.
type APIError struct {
	Message string `json:"message"`
}

func (h *APIHandler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleServiceError маппит ошибки сервисов на HTTP статусы.
func handleServiceError(c echo.Context, err error) error {
	var statusCode int
	var apiErr APIError

	switch {
	case errors.Is(err, models.ErrInvalidToken),
		errors.Is(err, models.ErrInvalidSkillKey),
		errors.Is(err, models.ErrInvalidAction),
		errors.Is(err, models.ErrInvalidEvent),
		errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, models.ErrBadRequest):
		statusCode = http.StatusBadRequest
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, models.ErrSessionNotFound),
		errors.Is(err, models.ErrUserNotFound),
		errors.Is(err, models.ErrNotFound):
		statusCode = http.StatusNotFound
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, models.ErrSessionCompleted):
		statusCode = http.StatusConflict
		apiErr = APIError{Message: err.Error()}
	default:
		statusCode = http.StatusInternalServerError
		apiErr = APIError{Message: "Internal server error"}
	}
	return c.JSON(statusCode, apiErr)
}
