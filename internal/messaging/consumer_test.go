package messaging

import (
	"context"
	"errors"
	"testing"

	"sats-terminal/internal/models"
	"sats-terminal/internal/repository/mocks"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// fakeAcknowledger запоминает, как было подтверждено сообщение.
type fakeAcknowledger struct {
	acked   int
	nacked  int
	requeue bool
}

func (f *fakeAcknowledger) Ack(uint64, bool) error { f.acked++; return nil }
func (f *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacked++
	f.requeue = requeue
	return nil
}
func (f *fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	f.nacked++
	f.requeue = requeue
	return nil
}

func newTestConsumer(store EventStore) *EventConsumer {
	return NewEventConsumer(nil, "analytics_events", 1, store, NewConsumerMetrics(prometheus.NewRegistry()), zap.NewNop())
}

func TestHandleDelivery(t *testing.T) {
	t.Run("Stores and acks valid event", func(t *testing.T) {
		store := new(mocks.AnalyticsRepository)
		store.On("Insert", mock.Anything, mock.MatchedBy(func(e models.AnalyticsEvent) bool {
			return e.EventName == "wallet_flow_started" && e.Source == "terminal"
		})).Return(nil).Once()
		c := newTestConsumer(store)
		ack := &fakeAcknowledger{}

		c.handleDelivery(context.Background(), amqp.Delivery{
			Acknowledger: ack,
			Body:         []byte(`{"session_id":"s1","event_name":"wallet_flow_started","source":"terminal"}`),
		})

		assert.Equal(t, 1, ack.acked)
		assert.Equal(t, 0, ack.nacked)
		assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.processed.WithLabelValues("stored")))
		store.AssertExpectations(t)
	})

	t.Run("Drops malformed body without requeue", func(t *testing.T) {
		store := new(mocks.AnalyticsRepository)
		c := newTestConsumer(store)
		ack := &fakeAcknowledger{}

		c.handleDelivery(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte(`{not json`)})

		assert.Equal(t, 1, ack.nacked)
		assert.False(t, ack.requeue)
		store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("Requeues once on store failure", func(t *testing.T) {
		store := new(mocks.AnalyticsRepository)
		store.On("Insert", mock.Anything, mock.Anything).Return(errors.New("db down")).Twice()
		c := newTestConsumer(store)
		body := []byte(`{"event_name":"quiz_completed"}`)

		first := &fakeAcknowledger{}
		c.handleDelivery(context.Background(), amqp.Delivery{Acknowledger: first, Body: body})
		assert.True(t, first.requeue)

		second := &fakeAcknowledger{}
		c.handleDelivery(context.Background(), amqp.Delivery{Acknowledger: second, Body: body, Redelivered: true})
		assert.False(t, second.requeue)
		store.AssertExpectations(t)
	})
}

func TestDecodeEvent_RequiresName(t *testing.T) {
	_, err := decodeEvent([]byte(`{"source":"terminal"}`))
	assert.ErrorIs(t, err, errMalformedEvent)
}
