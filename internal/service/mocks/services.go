package mocks

import (
	"context"

	"sats-terminal/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock UserService
type UserService struct {
	mock.Mock
}

func (m *UserService) SyncUser(ctx context.Context, token string) (*models.User, error) {
	args := m.Called(ctx, token)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}
func (m *UserService) SaveProgress(ctx context.Context, update models.ProgressUpdate) error {
	args := m.Called(ctx, update)
	return args.Error(0)
}

// Mock SkillService
type SkillService struct {
	mock.Mock
}

func (m *SkillService) ListSkills(ctx context.Context, token string) ([]models.UserSkill, error) {
	args := m.Called(ctx, token)
	skills, _ := args.Get(0).([]models.UserSkill)
	return skills, args.Error(1)
}
func (m *SkillService) GrantSkill(ctx context.Context, token, skillKey string) (*models.UserSkill, bool, error) {
	args := m.Called(ctx, token, skillKey)
	skill, _ := args.Get(0).(*models.UserSkill)
	return skill, args.Bool(1), args.Error(2)
}

// Mock SessionService
type SessionService struct {
	mock.Mock
}

func (m *SessionService) CreateSession(ctx context.Context, nodeID string) (*models.Session, error) {
	args := m.Called(ctx, nodeID)
	session, _ := args.Get(0).(*models.Session)
	return session, args.Error(1)
}
func (m *SessionService) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	args := m.Called(ctx, id)
	session, _ := args.Get(0).(*models.Session)
	return session, args.Error(1)
}
func (m *SessionService) ApplyAction(ctx context.Context, id uuid.UUID, action models.SessionAction) (*models.Session, error) {
	args := m.Called(ctx, id, action)
	session, _ := args.Get(0).(*models.Session)
	return session, args.Error(1)
}

// Mock AnalyticsService
type AnalyticsService struct {
	mock.Mock
}

func (m *AnalyticsService) Track(ctx context.Context, event models.AnalyticsEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
