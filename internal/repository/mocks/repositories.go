package mocks

import (
	"context"

	"sats-terminal/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock UserRepository
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) GetOrCreate(ctx context.Context, token string) (*models.User, bool, error) {
	args := m.Called(ctx, token)
	user, _ := args.Get(0).(*models.User)
	return user, args.Bool(1), args.Error(2)
}
func (m *UserRepository) UpsertProgress(ctx context.Context, update models.ProgressUpdate, level, xp int) (*models.User, error) {
	args := m.Called(ctx, update, level, xp)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

// Mock SkillRepository
type SkillRepository struct {
	mock.Mock
}

func (m *SkillRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.UserSkill, error) {
	args := m.Called(ctx, userID)
	skills, _ := args.Get(0).([]models.UserSkill)
	return skills, args.Error(1)
}
func (m *SkillRepository) Grant(ctx context.Context, userID uuid.UUID, skillKey string) (*models.UserSkill, bool, error) {
	args := m.Called(ctx, userID, skillKey)
	skill, _ := args.Get(0).(*models.UserSkill)
	return skill, args.Bool(1), args.Error(2)
}

// Mock SessionRepository
type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}
func (m *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	args := m.Called(ctx, id)
	session, _ := args.Get(0).(*models.Session)
	return session, args.Error(1)
}
func (m *SessionRepository) ApplyAction(ctx context.Context, id uuid.UUID, action models.SessionAction) (*models.Session, error) {
	args := m.Called(ctx, id, action)
	session, _ := args.Get(0).(*models.Session)
	return session, args.Error(1)
}

// Mock AnalyticsRepository
type AnalyticsRepository struct {
	mock.Mock
}

func (m *AnalyticsRepository) Insert(ctx context.Context, event models.AnalyticsEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// Mock TrackDeduplicator
type TrackDeduplicator struct {
	mock.Mock
}

func (m *TrackDeduplicator) FirstSeen(ctx context.Context, event models.AnalyticsEvent) (bool, error) {
	args := m.Called(ctx, event)
	return args.Bool(0), args.Error(1)
}
