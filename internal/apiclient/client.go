// Package apiclient talks to the sats-terminal backend over HTTP.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sats-terminal/internal/bridge"
	"sats-terminal/internal/models"
	"sats-terminal/internal/state"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Message)
}

// Client implements bridge.Backend and the quiz session calls.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ bridge.Backend = (*Client)(nil)

// New создает клиента бэкенда.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	u, err := url.ParseRequestURI(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL for backend: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL for backend: unsupported scheme %q", u.Scheme)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("APIClient"),
	}, nil
}

// --- DTO --- //

type syncUserRequest struct {
	Token string `json:"token"`
}

type syncUserResponse struct {
	Level                int    `json:"level"`
	XP                   int    `json:"xp"`
	CurrentModuleID      string `json:"currentModuleId"`
	CurrentStepIndex     int    `json:"currentStepIndex"`
	TotalSats            int    `json:"totalSats"`
	IndependenceProgress int    `json:"independenceProgress"`
}

type saveProgressRequest struct {
	Token                string `json:"token"`
	CurrentModuleID      string `json:"currentModuleId"`
	CurrentStepIndex     int    `json:"currentStepIndex"`
	TotalSats            int    `json:"totalSats"`
	IndependenceProgress int    `json:"independenceProgress"`
}

type grantSkillRequest struct {
	Token    string `json:"token"`
	SkillKey string `json:"skillKey"`
}

type grantSkillResponse struct {
	Granted bool `json:"granted"`
}

type createSessionRequest struct {
	NodeID string `json:"nodeId,omitempty"`
}

type sessionActionRequest struct {
	ActionID   string `json:"actionId"`
	ScoreDelta int    `json:"scoreDelta"`
	NextStepID string `json:"nextStepId"`
}

type trackRequest struct {
	SessionID string `json:"session_id"`
	EventName string `json:"event_name"`
	Source    string `json:"source"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// --- bridge.Backend --- //

func (c *Client) SyncUser(ctx context.Context, token string) (*bridge.UserProgress, error) {
	var resp syncUserResponse
	if err := c.do(ctx, http.MethodPost, "/api/sync-user", syncUserRequest{Token: token}, &resp); err != nil {
		return nil, err
	}
	return &bridge.UserProgress{
		Level:                resp.Level,
		XP:                   resp.XP,
		CurrentModuleID:      resp.CurrentModuleID,
		CurrentStepIndex:     resp.CurrentStepIndex,
		TotalSats:            resp.TotalSats,
		IndependenceProgress: resp.IndependenceProgress,
	}, nil
}

func (c *Client) SaveProgress(ctx context.Context, token string, summary state.Summary) error {
	return c.do(ctx, http.MethodPost, "/api/save-progress", saveProgressRequest{
		Token:                token,
		CurrentModuleID:      summary.ModuleID,
		CurrentStepIndex:     summary.StepIndex,
		TotalSats:            summary.RewardTotal,
		IndependenceProgress: summary.Progress,
	}, nil)
}

func (c *Client) GrantSkill(ctx context.Context, token, skillKey string) (bool, error) {
	var resp grantSkillResponse
	if err := c.do(ctx, http.MethodPost, "/api/skills/grant", grantSkillRequest{Token: token, SkillKey: skillKey}, &resp); err != nil {
		return false, err
	}
	return resp.Granted, nil
}

func (c *Client) Track(ctx context.Context, event bridge.TrackEvent) error {
	return c.do(ctx, http.MethodPost, "/api/track", trackRequest{
		SessionID: event.SessionID,
		EventName: event.EventName,
		Source:    event.Source,
	}, nil)
}

// ListSkills returns the skills already granted to token.
func (c *Client) ListSkills(ctx context.Context, token string) ([]models.UserSkill, error) {
	var skills []models.UserSkill
	if err := c.do(ctx, http.MethodGet, "/api/skills/"+url.PathEscape(token), nil, &skills); err != nil {
		return nil, err
	}
	return skills, nil
}

// --- Остальные методы --- //

// CreateSession opens a quiz session. An empty nodeID lets the backend pick
// its default node.
func (c *Client) CreateSession(ctx context.Context, nodeID string) (*models.Session, error) {
	var session models.Session
	if err := c.do(ctx, http.MethodPost, "/api/sessions", createSessionRequest{NodeID: nodeID}, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	var session models.Session
	if err := c.do(ctx, http.MethodGet, "/api/sessions/"+id.String(), nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) SessionAction(ctx context.Context, id uuid.UUID, action models.SessionAction) (*models.Session, error) {
	var session models.Session
	if err := c.do(ctx, http.MethodPost, "/api/sessions/"+id.String()+"/action", sessionActionRequest{
		ActionID:   action.ActionID,
		ScoreDelta: action.ScoreDelta,
		NextStepID: action.NextStepID,
	}, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// do выполняет запрос и декодирует JSON-ответ в out (если out != nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	fullURL := c.baseURL + path
	log := c.logger.With(zap.String("method", method), zap.String("path", path))

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return fmt.Errorf("internal error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug("Backend request failed", zap.Error(err))
		return fmt.Errorf("failed to communicate with backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr errorResponse
		_ = json.Unmarshal(data, &apiErr)
		log.Debug("Backend returned error status", zap.Int("status", resp.StatusCode), zap.String("message", apiErr.Message))
		return &StatusError{StatusCode: resp.StatusCode, Message: apiErr.Message}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
