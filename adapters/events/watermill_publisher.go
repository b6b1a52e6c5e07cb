package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/stayflow/gatekeeper/ports"
)

const (
	// LoginTopic carries successful wallet authentications.
	LoginTopic = "auth.login"

	// LogoutTopic carries session terminations.
	LogoutTopic = "auth.logout"
)

// AuthEvent is the payload published for login and logout events.
type AuthEvent struct {
	PublicKey  string    `json:"public_key"`
	OccurredAt time.Time `json:"occurred_at"`
}

// WatermillPublisher implements the EventPublisher port over a Watermill
// message publisher (Redis streams in production).
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a Watermill-backed event publisher.
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishLogin publishes an auth.login event.
func (p *WatermillPublisher) PublishLogin(ctx context.Context, publicKey string) error {
	return p.publish(LoginTopic, publicKey)
}

// PublishLogout publishes an auth.logout event.
func (p *WatermillPublisher) PublishLogout(ctx context.Context, publicKey string) error {
	return p.publish(LogoutTopic, publicKey)
}

func (p *WatermillPublisher) publish(topic, publicKey string) error {
	event := AuthEvent{
		PublicKey:  publicKey,
		OccurredAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", topic, err)
	}

	return nil
}

var _ ports.EventPublisher = (*WatermillPublisher)(nil)
