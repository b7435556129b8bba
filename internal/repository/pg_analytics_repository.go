package repository

import (
	"context"
	"time"

	"sats-terminal/internal/database"
	"sats-terminal/internal/models"

	"go.uber.org/zap"
)

var _ AnalyticsRepository = (*pgAnalyticsRepository)(nil)

type pgAnalyticsRepository struct {
	db     database.DBTX
	logger *zap.Logger
}

// NewPgAnalyticsRepository создает репозиторий событий аналитики.
func NewPgAnalyticsRepository(db database.DBTX, logger *zap.Logger) AnalyticsRepository {
	return &pgAnalyticsRepository{
		db:     db,
		logger: logger.Named("PgAnalyticsRepo"),
	}
}

const insertAnalyticsEventQuery = `
INSERT INTO analytics_events (session_id, event_name, source, occurred_at)
VALUES ($1, $2, $3, $4)`

func (r *pgAnalyticsRepository) Insert(ctx context.Context, event models.AnalyticsEvent) error {
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	if _, err := r.db.Exec(ctx, insertAnalyticsEventQuery, event.SessionID, event.EventName, event.Source, occurredAt); err != nil {
		r.logger.Error("Failed to insert analytics event", zap.String("event", event.EventName), zap.Error(err))
		return err
	}
	return nil
}
