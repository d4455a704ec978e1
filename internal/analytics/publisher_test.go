package analytics_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jagaleanoob/fast-limiter/internal/analytics"
)

type mockPublisher struct {
	messages   []*message.Message
	topic      string
	publishErr error
	closeErr   error
}

func (m *mockPublisher) Publish(topic string, msgs ...*message.Message) error {
	if m.publishErr != nil {
		return m.publishErr
	}

	m.topic = topic
	m.messages = append(m.messages, msgs...)

	return nil
}

func (m *mockPublisher) Close() error {
	return m.closeErr
}

func TestPublisher_PublishDenied(t *testing.T) {
	t.Run("publishes event successfully", func(t *testing.T) {
		mock := &mockPublisher{}
		pub := analytics.NewPublisher(mock)

		event := &analytics.DeniedEvent{
			ID:                "evt-1",
			Identifier:        "192.168.1.1/ping",
			Path:              "/ping",
			Method:            "GET",
			ClientIP:          "192.168.1.1",
			Limit:             100,
			WindowSeconds:     60,
			RetryAfterSeconds: 12,
			DeniedAt:          time.Now().UTC(),
		}

		err := pub.PublishDenied(event)

		require.NoError(t, err)
		assert.Equal(t, analytics.TopicDenied, mock.topic)
		require.Len(t, mock.messages, 1)

		var decoded analytics.DeniedEvent
		require.NoError(t, json.Unmarshal(mock.messages[0].Payload, &decoded))
		assert.Equal(t, "192.168.1.1/ping", decoded.Identifier)
		assert.Equal(t, 12, decoded.RetryAfterSeconds)
	})

	t.Run("returns error when publish fails", func(t *testing.T) {
		mock := &mockPublisher{publishErr: errors.New("publish error")}
		pub := analytics.NewPublisher(mock)

		event := &analytics.DeniedEvent{ID: "evt-1"}

		err := pub.PublishDenied(event)

		assert.Error(t, err)
	})
}

func TestPublisher_Shutdown(t *testing.T) {
	t.Run("closes underlying publisher", func(t *testing.T) {
		mock := &mockPublisher{}
		pub := analytics.NewPublisher(mock)

		err := pub.Shutdown()

		require.NoError(t, err)
	})

	t.Run("returns error when close fails", func(t *testing.T) {
		mock := &mockPublisher{closeErr: errors.New("close error")}
		pub := analytics.NewPublisher(mock)

		err := pub.Shutdown()

		assert.Error(t, err)
	})
}
