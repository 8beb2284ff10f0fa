// Package realtime carries change notifications over Redis pub/sub. Events
// only say that a collection changed; readers re-fetch it.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventType string

const (
	EventMessageCreated      EventType = "message_created"
	EventConversationUpdated EventType = "conversation_updated"
	EventConversationRead    EventType = "conversation_read"
)

// Event is the payload of a change notification.
type Event struct {
	Type           EventType `json:"type"`
	ConversationID uuid.UUID `json:"conversation_id"`
	At             time.Time `json:"at"`
}

// ConversationsTopic carries changes to a user's participant rows.
func ConversationsTopic(userID uuid.UUID) string {
	return "conversations:" + userID.String()
}

// MessagesTopic carries changes to a conversation's messages.
func MessagesTopic(conversationID uuid.UUID) string {
	return "messages:" + conversationID.String()
}

type Broker struct {
	client *redis.Client
	logger *zap.Logger
}

func NewBroker(client *redis.Client, logger *zap.Logger) *Broker {
	return &Broker{client: client, logger: logger}
}

func (b *Broker) Publish(ctx context.Context, topic string, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := b.client.Publish(ctx, topic, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe opens a subscription. The caller must Close it.
func (b *Broker) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	ps := b.client.Subscribe(ctx, topic)
	// Receive waits for the subscribe confirmation so a failure surfaces here.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	sub := &Subscription{ps: ps, events: make(chan Event, 16)}
	go sub.pump(b.logger.With(zap.String("topic", topic)))
	return sub, nil
}

// Subscription is one live stream of events.
type Subscription struct {
	ps     *redis.PubSub
	events chan Event
}

// Events is closed once the subscription is closed.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

func (s *Subscription) Close() error {
	return s.ps.Close()
}

func (s *Subscription) pump(logger *zap.Logger) {
	defer close(s.events)
	for msg := range s.ps.Channel() {
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			logger.Warn("Dropping malformed event", zap.Error(err))
			continue
		}
		select {
		case s.events <- ev:
		default:
			// A pending event already triggers a refetch.
		}
	}
}
