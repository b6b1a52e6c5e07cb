package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishLogin(t *testing.T) {
	ctx := context.Background()

	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubsub.Close()

	messages, err := pubsub.Subscribe(ctx, LoginTopic)
	require.NoError(t, err)

	publisher := NewWatermillPublisher(pubsub)
	require.NoError(t, publisher.PublishLogin(ctx, "GABCDEF"))

	select {
	case msg := <-messages:
		var event AuthEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, "GABCDEF", event.PublicKey)
		assert.WithinDuration(t, time.Now(), event.OccurredAt, time.Minute)
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("login event was not delivered")
	}
}

func TestPublishLogout(t *testing.T) {
	ctx := context.Background()

	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubsub.Close()

	messages, err := pubsub.Subscribe(ctx, LogoutTopic)
	require.NoError(t, err)

	publisher := NewWatermillPublisher(pubsub)
	require.NoError(t, publisher.PublishLogout(ctx, "GXYZ"))

	select {
	case msg := <-messages:
		var event AuthEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, "GXYZ", event.PublicKey)
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("logout event was not delivered")
	}
}
