package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sats-terminal/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

// EventPublisher публикует события аналитики в очередь.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event models.AnalyticsEvent) error
}

type rabbitMQPublisher struct {
	channel   *amqp.Channel
	queueName string
}

// NewRabbitMQEventPublisher открывает канал и объявляет очередь событий.
func NewRabbitMQEventPublisher(conn *amqp.Connection, queueName string) (EventPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("event publisher: не удалось открыть канал: %w", err)
	}
	if err := declareAnalyticsQueue(ch, queueName); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("event publisher: не удалось объявить очередь '%s': %w", queueName, err)
	}
	return &rabbitMQPublisher{channel: ch, queueName: queueName}, nil
}

func (p *rabbitMQPublisher) PublishEvent(ctx context.Context, event models.AnalyticsEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("ошибка сериализации события: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err = p.channel.PublishWithContext(ctx,
		"",          // exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("ошибка публикации события '%s': %w", event.EventName, err)
	}
	return nil
}
