package mocks

import (
	"context"

	"sats-terminal/internal/bridge"
	"sats-terminal/internal/models"
	"sats-terminal/internal/state"

	"github.com/stretchr/testify/mock"
)

// Mock Backend
type Backend struct {
	mock.Mock
}

func (m *Backend) SyncUser(ctx context.Context, token string) (*bridge.UserProgress, error) {
	args := m.Called(ctx, token)
	p, _ := args.Get(0).(*bridge.UserProgress)
	return p, args.Error(1)
}
func (m *Backend) SaveProgress(ctx context.Context, token string, summary state.Summary) error {
	args := m.Called(ctx, token, summary)
	return args.Error(0)
}
func (m *Backend) GrantSkill(ctx context.Context, token, skillKey string) (bool, error) {
	args := m.Called(ctx, token, skillKey)
	return args.Bool(0), args.Error(1)
}
func (m *Backend) Track(ctx context.Context, event bridge.TrackEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
func (m *Backend) ListSkills(ctx context.Context, token string) ([]models.UserSkill, error) {
	args := m.Called(ctx, token)
	skills, _ := args.Get(0).([]models.UserSkill)
	return skills, args.Error(1)
}
