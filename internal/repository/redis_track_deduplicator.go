package repository

import (
	"context"
	"fmt"
	"time"

	"sats-terminal/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	_ TrackDeduplicator = (*redisTrackDeduplicator)(nil)
	_ TrackDeduplicator = NoopTrackDeduplicator{}
)

type redisTrackDeduplicator struct {
	client *redis.Client
	window time.Duration
	logger *zap.Logger
}

// NewRedisTrackDeduplicator создает дедупликатор событий на Redis (SETNX с TTL окна).
func NewRedisTrackDeduplicator(client *redis.Client, window time.Duration, logger *zap.Logger) TrackDeduplicator {
	return &redisTrackDeduplicator{
		client: client,
		window: window,
		logger: logger.Named("RedisTrackDedup"),
	}
}

func trackKey(event models.AnalyticsEvent) string {
	return fmt.Sprintf("track:%s:%s:%s", event.SessionID, event.EventName, event.Source)
}

func (d *redisTrackDeduplicator) FirstSeen(ctx context.Context, event models.AnalyticsEvent) (bool, error) {
	ok, err := d.client.SetNX(ctx, trackKey(event), 1, d.window).Result()
	if err != nil {
		d.logger.Warn("Dedup check failed", zap.String("event", event.EventName), zap.Error(err))
		return false, err
	}
	return ok, nil
}

// NoopTrackDeduplicator пропускает все события (Redis не настроен).
type NoopTrackDeduplicator struct{}

func (NoopTrackDeduplicator) FirstSeen(context.Context, models.AnalyticsEvent) (bool, error) {
	return true, nil
}
