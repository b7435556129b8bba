package service

import (
	"context"
	"time"

	"sats-terminal/internal/messaging"
	"sats-terminal/internal/models"
	"sats-terminal/internal/repository"

	"go.uber.org/zap"
)

// AnalyticsService принимает события воронки.
type AnalyticsService interface {
	Track(ctx context.Context, event models.AnalyticsEvent) error
}

type analyticsServiceImpl struct {
	repo      repository.AnalyticsRepository
	dedup     repository.TrackDeduplicator
	publisher messaging.EventPublisher // nil, если RabbitMQ не настроен
	metrics   *Metrics
	now       func() time.Time
	logger    *zap.Logger
}

// NewAnalyticsService создает сервис аналитики. publisher может быть nil.
func NewAnalyticsService(
	repo repository.AnalyticsRepository,
	dedup repository.TrackDeduplicator,
	publisher messaging.EventPublisher,
	metrics *Metrics,
	logger *zap.Logger,
) AnalyticsService {
	return &analyticsServiceImpl{
		repo:      repo,
		dedup:     dedup,
		publisher: publisher,
		metrics:   metrics,
		now:       time.Now,
		logger:    logger.Named("AnalyticsService"),
	}
}

// Track: дубликаты в окне отбрасываются молча, иначе событие уходит в очередь
// (или пишется в БД напрямую, если очереди нет или публикация не удалась).
func (s *analyticsServiceImpl) Track(ctx context.Context, event models.AnalyticsEvent) error {
	if event.EventName == "" || len(event.EventName) > models.MaxEventNameLength {
		return models.ErrInvalidEvent
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}

	first, err := s.dedup.FirstSeen(ctx, event)
	if err != nil {
		// Без Redis лучше записать дубль, чем потерять событие
		first = true
	}
	if !first {
		s.metrics.EventsTracked.WithLabelValues("duplicate").Inc()
		return nil
	}

	if s.publisher != nil {
		err := s.publisher.PublishEvent(ctx, event)
		if err == nil {
			s.metrics.EventsTracked.WithLabelValues("queued").Inc()
			return nil
		}
		s.logger.Warn("Publish failed, storing event directly", zap.String("event", event.EventName), zap.Error(err))
	}

	if err := s.repo.Insert(ctx, event); err != nil {
		return models.ErrInternalServer
	}
	s.metrics.EventsTracked.WithLabelValues("stored").Inc()
	return nil
}
