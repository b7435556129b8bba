package service

import (
	"context"
	"errors"

	"sats-terminal/internal/models"
	"sats-terminal/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxScoreDelta = 1000

// SessionService ведет сессии вводного квиза.
type SessionService interface {
	CreateSession(ctx context.Context, nodeID string) (*models.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	ApplyAction(ctx context.Context, id uuid.UUID, action models.SessionAction) (*models.Session, error)
}

type sessionServiceImpl struct {
	sessionRepo repository.SessionRepository
	logger      *zap.Logger
}

// NewSessionService создает сервис сессий.
func NewSessionService(sessionRepo repository.SessionRepository, logger *zap.Logger) SessionService {
	return &sessionServiceImpl{
		sessionRepo: sessionRepo,
		logger:      logger.Named("SessionService"),
	}
}

func (s *sessionServiceImpl) CreateSession(ctx context.Context, nodeID string) (*models.Session, error) {
	if nodeID == "" {
		nodeID = models.DefaultSessionNode
	}
	session := &models.Session{
		ID:            uuid.New(),
		NodeID:        nodeID,
		CurrentStepID: nodeID,
		Status:        models.SessionStatusActive,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, models.ErrInternalServer
	}
	s.logger.Info("Session created", zap.Stringer("sessionID", session.ID), zap.String("nodeID", nodeID))
	return session, nil
}

func (s *sessionServiceImpl) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return nil, err
		}
		return nil, models.ErrInternalServer
	}
	return session, nil
}

// ApplyAction применяет переход квиза. Пустой nextStepId завершает сессию.
func (s *sessionServiceImpl) ApplyAction(ctx context.Context, id uuid.UUID, action models.SessionAction) (*models.Session, error) {
	if action.ActionID == "" || action.ScoreDelta > maxScoreDelta || action.ScoreDelta < -maxScoreDelta {
		return nil, models.ErrInvalidAction
	}
	session, err := s.sessionRepo.ApplyAction(ctx, id, action)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrSessionNotFound), errors.Is(err, models.ErrSessionCompleted):
			return nil, err
		default:
			s.logger.Error("Failed to apply session action", zap.Stringer("sessionID", id), zap.Error(err))
			return nil, models.ErrInternalServer
		}
	}
	return session, nil
}
