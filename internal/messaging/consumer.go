package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sats-terminal/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// EventStore сохраняет события, прочитанные из очереди.
type EventStore interface {
	Insert(ctx context.Context, event models.AnalyticsEvent) error
}

// ConsumerMetrics - счетчики воркера.
type ConsumerMetrics struct {
	processed *prometheus.CounterVec
}

// NewConsumerMetrics регистрирует метрики воркера в реестре.
func NewConsumerMetrics(reg prometheus.Registerer) *ConsumerMetrics {
	return &ConsumerMetrics{
		processed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "sats_worker_events_processed_total",
			Help: "Analytics events handled by the worker, by outcome.",
		}, []string{"outcome"}),
	}
}

// EventConsumer перекладывает события аналитики из RabbitMQ в Postgres.
type EventConsumer struct {
	conn      *amqp.Connection
	queueName string
	prefetch  int
	store     EventStore
	metrics   *ConsumerMetrics
	logger    *zap.Logger
	done      chan struct{}
	channel   *amqp.Channel
}

// NewEventConsumer создает консьюмер событий.
func NewEventConsumer(conn *amqp.Connection, queueName string, prefetch int, store EventStore, metrics *ConsumerMetrics, logger *zap.Logger) *EventConsumer {
	return &EventConsumer{
		conn:      conn,
		queueName: queueName,
		prefetch:  prefetch,
		store:     store,
		metrics:   metrics,
		logger:    logger.Named("EventConsumer"),
		done:      make(chan struct{}),
	}
}

// Start начинает потребление; обработка идет в отдельной горутине до отмены ctx.
func (c *EventConsumer) Start(ctx context.Context) error {
	var err error
	c.channel, err = c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if err := declareAnalyticsQueue(c.channel, c.queueName); err != nil {
		_ = c.channel.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := c.channel.Qos(c.prefetch, 0, false); err != nil {
		_ = c.channel.Close()
		return fmt.Errorf("failed to set QoS: %w", err)
	}
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack: подтверждаем после записи в БД
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,
	)
	if err != nil {
		_ = c.channel.Close()
		return fmt.Errorf("failed to register consumer: %w", err)
	}
	c.logger.Info("Event consumer started", zap.String("queue", c.queueName))

	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("Panic recovered in event consumer goroutine", zap.Any("panic", r))
			}
			close(c.done)
			_ = c.channel.Close()
		}()

		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Info("Event consumer channel closed")
					return
				}
				c.handleDelivery(ctx, msg)
			case <-ctx.Done():
				c.logger.Info("Context cancelled, stopping event consumer")
				return
			}
		}
	}()
	return nil
}

// Stop ждет завершения горутины консьюмера (не дольше 5 секунд).
func (c *EventConsumer) Stop() {
	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
		c.logger.Warn("Timeout waiting for event consumer to stop")
	}
}

var errMalformedEvent = errors.New("malformed analytics event")

func decodeEvent(body []byte) (models.AnalyticsEvent, error) {
	var event models.AnalyticsEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return event, fmt.Errorf("%w: %v", errMalformedEvent, err)
	}
	if event.EventName == "" {
		return event, fmt.Errorf("%w: empty event_name", errMalformedEvent)
	}
	return event, nil
}

// handleDelivery: битые сообщения отбрасываются, ошибка БД - одна повторная доставка.
func (c *EventConsumer) handleDelivery(ctx context.Context, msg amqp.Delivery) {
	event, err := decodeEvent(msg.Body)
	if err != nil {
		c.logger.Warn("Dropping malformed event", zap.Error(err))
		c.metrics.processed.WithLabelValues("malformed").Inc()
		_ = msg.Nack(false, false)
		return
	}

	if err := c.store.Insert(ctx, event); err != nil {
		requeue := !msg.Redelivered
		c.logger.Error("Failed to store event",
			zap.String("event", event.EventName),
			zap.Bool("requeue", requeue),
			zap.Error(err),
		)
		c.metrics.processed.WithLabelValues("failed").Inc()
		_ = msg.Nack(false, requeue)
		return
	}
	c.metrics.processed.WithLabelValues("stored").Inc()
	_ = msg.Ack(false)
}
