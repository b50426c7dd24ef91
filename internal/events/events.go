package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
)

const OrderPlacedType = "order.placed"

type OrderPlacedItem struct {
	ProductID int             `json:"productId"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// OrderPlaced is published once per committed checkout.
type OrderPlaced struct {
	EventID     string            `json:"eventId"`
	Type        string            `json:"type"`
	OrderNumber string            `json:"orderNumber"`
	UserID      int               `json:"userId"`
	TotalAmount decimal.Decimal   `json:"totalAmount"`
	Items       []OrderPlacedItem `json:"items"`
	OccurredAt  time.Time         `json:"occurredAt"`
}

func NewOrderPlaced(orderNumber string, userID int, total decimal.Decimal, items []OrderPlacedItem, at time.Time) OrderPlaced {
	return OrderPlaced{
		EventID:     uuid.NewString(),
		Type:        OrderPlacedType,
		OrderNumber: orderNumber,
		UserID:      userID,
		TotalAmount: total,
		Items:       items,
		OccurredAt:  at.UTC(),
	}
}

type Publisher interface {
	PublishOrderPlaced(ctx context.Context, ev OrderPlaced) error
	Close() error
}

// NopPublisher is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrderPlaced(ctx context.Context, ev OrderPlaced) error { return nil }
func (NopPublisher) Close() error                                                 { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events keyed by order number. The breaker opens after
// three consecutive failed writes and half-opens after 30s.
type KafkaPublisher struct {
	writer  messageWriter
	breaker *gobreaker.CircuitBreaker[struct{}]
	timeout time.Duration
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return newKafkaPublisher(NewKafkaWriter(brokers, topic))
}

func newKafkaPublisher(w messageWriter) *KafkaPublisher {
	st := gobreaker.Settings{
		Name:        "kafka-order-events",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnw("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &KafkaPublisher{
		writer:  w,
		breaker: gobreaker.NewCircuitBreaker[struct{}](st),
		timeout: 5 * time.Second,
	}
}

func (p *KafkaPublisher) PublishOrderPlaced(ctx context.Context, ev OrderPlaced) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.Type, err)
	}

	_, err = p.breaker.Execute(func() (struct{}, error) {
		wctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return struct{}{}, p.writer.WriteMessages(wctx, kafka.Message{
			Key:   []byte(ev.OrderNumber),
			Value: data,
			Time:  ev.OccurredAt,
			Headers: []kafka.Header{
				{Key: "event-type", Value: []byte(ev.Type)},
			},
		})
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
