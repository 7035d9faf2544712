// Package events publishes chat domain events to Kafka for the notification
// pipeline and analytics. Publishing is best effort: the chat service logs
// failures and carries on, and a circuit breaker keeps a dead broker from
// adding latency to every send.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
)

type Envelope struct {
	Type      string    `json:"type"`
	ChatID    string    `json:"chatId"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

type Publisher struct {
	writer  *kafka.Writer
	breaker *gobreaker.CircuitBreaker
}

func NewPublisher(brokers []string, topic string) *Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "kafka-chat-events",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})
	return &Publisher{writer: w, breaker: cb}
}

func (p *Publisher) Publish(ctx context.Context, eventType, chatKey string, payload any) error {
	value, err := json.Marshal(Envelope{
		Type:      eventType,
		ChatID:    chatKey,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		return err
	}
	_, err = p.breaker.Execute(func() (interface{}, error) {
		wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return nil, p.writer.WriteMessages(wctx, kafka.Message{
			Key:   []byte(chatKey),
			Value: value,
			Time:  time.Now(),
		})
	})
	return err
}

func (p *Publisher) Close() error { return p.writer.Close() }
