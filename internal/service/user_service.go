package service

import (
	"context"
	"strings"
	"unicode"

	"sats-terminal/internal/models"
	"sats-terminal/internal/repository"

	"go.uber.org/zap"
)

const maxTokenLength = 128

// UserService - пользователи и зеркало прогресса.
type UserService interface {
	SyncUser(ctx context.Context, token string) (*models.User, error)
	SaveProgress(ctx context.Context, update models.ProgressUpdate) error
}

type userServiceImpl struct {
	userRepo repository.UserRepository
	metrics  *Metrics
	logger   *zap.Logger
}

// NewUserService создает сервис пользователей.
func NewUserService(userRepo repository.UserRepository, metrics *Metrics, logger *zap.Logger) UserService {
	return &userServiceImpl{
		userRepo: userRepo,
		metrics:  metrics,
		logger:   logger.Named("UserService"),
	}
}

// validateToken: токен непрозрачен, но должен быть непустым и без пробелов.
func validateToken(token string) error {
	if token == "" || len(token) > maxTokenLength {
		return models.ErrInvalidToken
	}
	if strings.IndexFunc(token, unicode.IsSpace) >= 0 {
		return models.ErrInvalidToken
	}
	return nil
}

// SyncUser возвращает пользователя по токену, создавая его при первом обращении.
func (s *userServiceImpl) SyncUser(ctx context.Context, token string) (*models.User, error) {
	if err := validateToken(token); err != nil {
		return nil, err
	}
	user, created, err := s.userRepo.GetOrCreate(ctx, token)
	if err != nil {
		s.logger.Error("Failed to sync user", zap.Error(err))
		return nil, models.ErrInternalServer
	}
	if created {
		s.metrics.UsersCreated.Inc()
	}
	return user, nil
}

// SaveProgress сохраняет зеркало прогресса. Значения приводятся к допустимым границам.
func (s *userServiceImpl) SaveProgress(ctx context.Context, update models.ProgressUpdate) error {
	if err := validateToken(update.Token); err != nil {
		return err
	}
	if update.CurrentStepIndex < 0 {
		return models.ErrInvalidInput
	}
	update.TotalSats = max(update.TotalSats, 0)
	update.IndependenceProgress = min(max(update.IndependenceProgress, 0), models.MaxIndependenceProgress)

	xp := update.TotalSats
	if _, err := s.userRepo.UpsertProgress(ctx, update, models.LevelForXP(xp), xp); err != nil {
		s.logger.Error("Failed to save progress", zap.String("module", update.CurrentModuleID), zap.Error(err))
		return models.ErrInternalServer
	}
	s.metrics.ProgressSaves.Inc()
	return nil
}
