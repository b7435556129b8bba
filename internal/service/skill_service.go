package service

import (
	"context"
	"strconv"

	"sats-terminal/internal/models"
	"sats-terminal/internal/repository"

	"go.uber.org/zap"
)

// SkillService - выдача навыков (идемпотентная).
type SkillService interface {
	ListSkills(ctx context.Context, token string) ([]models.UserSkill, error)
	GrantSkill(ctx context.Context, token, skillKey string) (skill *models.UserSkill, granted bool, err error)
}

type skillServiceImpl struct {
	userRepo  repository.UserRepository
	skillRepo repository.SkillRepository
	metrics   *Metrics
	logger    *zap.Logger
}

// NewSkillService создает сервис навыков.
func NewSkillService(userRepo repository.UserRepository, skillRepo repository.SkillRepository, metrics *Metrics, logger *zap.Logger) SkillService {
	return &skillServiceImpl{
		userRepo:  userRepo,
		skillRepo: skillRepo,
		metrics:   metrics,
		logger:    logger.Named("SkillService"),
	}
}

func (s *skillServiceImpl) resolveUser(ctx context.Context, token string) (*models.User, error) {
	if err := validateToken(token); err != nil {
		return nil, err
	}
	user, created, err := s.userRepo.GetOrCreate(ctx, token)
	if err != nil {
		s.logger.Error("Failed to resolve user", zap.Error(err))
		return nil, models.ErrInternalServer
	}
	if created {
		s.metrics.UsersCreated.Inc()
	}
	return user, nil
}

func (s *skillServiceImpl) ListSkills(ctx context.Context, token string) ([]models.UserSkill, error) {
	user, err := s.resolveUser(ctx, token)
	if err != nil {
		return nil, err
	}
	skills, err := s.skillRepo.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, models.ErrInternalServer
	}
	return skills, nil
}

// GrantSkill выдает навык. Повторная выдача - не ошибка, а granted=false.
func (s *skillServiceImpl) GrantSkill(ctx context.Context, token, skillKey string) (*models.UserSkill, bool, error) {
	if !models.ValidSkillKey(skillKey) {
		return nil, false, models.ErrInvalidSkillKey
	}
	user, err := s.resolveUser(ctx, token)
	if err != nil {
		return nil, false, err
	}

	skill, granted, err := s.skillRepo.Grant(ctx, user.ID, skillKey)
	if err != nil {
		s.logger.Error("Failed to grant skill", zap.String("skillKey", skillKey), zap.Error(err))
		return nil, false, models.ErrInternalServer
	}
	s.metrics.SkillGrants.WithLabelValues(strconv.FormatBool(granted)).Inc()
	return skill, granted, nil
}
