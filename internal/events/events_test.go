package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs  []kafka.Message
	err   error
	calls int
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.calls++
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func sampleEvent() OrderPlaced {
	return NewOrderPlaced("0123456789", 7, decimal.NewFromInt(250), []OrderPlacedItem{
		{ProductID: 3, Qty: 2, UnitPrice: decimal.NewFromInt(100)},
		{ProductID: 5, Qty: 1, UnitPrice: decimal.NewFromInt(50)},
	}, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
}

func TestKafkaPublisher_WritesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w)

	ev := sampleEvent()
	require.NoError(t, p.PublishOrderPlaced(context.Background(), ev))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "0123456789", string(msg.Key))
	assert.Equal(t, "order.placed", string(msg.Headers[0].Value))

	var decoded OrderPlaced
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, ev.EventID, decoded.EventID)
	assert.True(t, decoded.TotalAmount.Equal(decimal.NewFromInt(250)))
	assert.Len(t, decoded.Items, 2)
}

func TestKafkaPublisher_BreakerOpensAfterFailures(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker unreachable")}
	p := newKafkaPublisher(w)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.Error(t, p.PublishOrderPlaced(ctx, sampleEvent()))
	}
	assert.Equal(t, 3, w.calls)

	err := p.PublishOrderPlaced(ctx, sampleEvent())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, w.calls, "open breaker must not reach the writer")
}

func TestNewOrderPlaced_UniqueIDs(t *testing.T) {
	a, b := sampleEvent(), sampleEvent()
	assert.NotEqual(t, a.EventID, b.EventID)
	assert.Equal(t, OrderPlacedType, a.Type)
}
