package mocks

import (
	"context"

	"sats-terminal/internal/models"

	"github.com/stretchr/testify/mock"
)

// Mock EventPublisher
type EventPublisher struct {
	mock.Mock
}

func (m *EventPublisher) PublishEvent(ctx context.Context, event models.AnalyticsEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
