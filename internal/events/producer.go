package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	TypeSignedUp       = "user_signed_up"
	TypeLoggedIn       = "user_logged_in"
	TypeLoggedOut      = "user_logged_out"
	TypeReplayDetected = "refresh_replay_detected"
)

type AuthEvent struct {
	Type          string    `json:"type"`
	UserID        string    `json:"userID"`
	IP            string    `json:"ip,omitempty"`
	RevokedTokens int64     `json:"revokedTokens,omitempty"`
	At            time.Time `json:"at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer messageWriter
}

// NewProducer writes JSON events to topic. Writes are async: PublishEvent
// only queues the message and delivery errors surface through the writer's
// completion callback.
func NewProducer(brokers []string, topic string, onError func(error)) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		Async:                  true,
		AllowAutoTopicCreation: true,
		Completion: func(_ []kafka.Message, err error) {
			if err != nil && onError != nil {
				onError(err)
			}
		},
	}
	return &Producer{writer: w}
}

func (p *Producer) PublishEvent(ctx context.Context, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write failed: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// Discard drops every event. Used when no brokers are configured.
type Discard struct{}

func (Discard) PublishEvent(context.Context, string, any) error { return nil }

func (Discard) Close() error { return nil }
