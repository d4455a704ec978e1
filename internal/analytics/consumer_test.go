package analytics_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jagaleanoob/fast-limiter/internal/analytics"
)

type mockSubscriber struct {
	deniedChan   chan *message.Message
	subscribeErr error
	closeErr     error
	mu           sync.Mutex
	closed       bool
}

func newMockSubscriber() *mockSubscriber {
	return &mockSubscriber{
		deniedChan: make(chan *message.Message, 10),
	}
}

func (m *mockSubscriber) Subscribe(_ context.Context, topic string) (<-chan *message.Message, error) {
	if m.subscribeErr != nil {
		return nil, m.subscribeErr
	}

	if topic != analytics.TopicDenied {
		return nil, errors.New("unknown topic")
	}

	return m.deniedChan, nil
}

func (m *mockSubscriber) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.deniedChan)
	}

	return m.closeErr
}

type mockEventStore struct {
	deniedEvents []*analytics.DeniedEvent
	saveErr      error
	mu           sync.Mutex
}

func (m *mockEventStore) SaveDenied(_ context.Context, event *analytics.DeniedEvent) error {
	if m.saveErr != nil {
		return m.saveErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.deniedEvents = append(m.deniedEvents, event)

	return nil
}

func TestNewConsumer(t *testing.T) {
	sub := newMockSubscriber()
	store := &mockEventStore{}
	logger := zap.NewNop()

	consumer := analytics.NewConsumer(sub, store, logger)

	assert.NotNil(t, consumer)
}

func TestConsumer_Start(t *testing.T) {
	t.Run("starts successfully", func(t *testing.T) {
		sub := newMockSubscriber()
		store := &mockEventStore{}
		consumer := analytics.NewConsumer(sub, store, zap.NewNop())

		err := consumer.Start(context.Background())

		require.NoError(t, err)

		_ = consumer.Shutdown()
	})

	t.Run("returns error when subscription fails", func(t *testing.T) {
		sub := &mockSubscriber{subscribeErr: errors.New("subscribe error")}
		store := &mockEventStore{}
		consumer := analytics.NewConsumer(sub, store, zap.NewNop())

		err := consumer.Start(context.Background())

		assert.Error(t, err)
	})
}

func TestConsumer_ProcessDenied(t *testing.T) {
	t.Run("persists a deny event", func(t *testing.T) {
		sub := newMockSubscriber()
		store := &mockEventStore{}
		consumer := analytics.NewConsumer(sub, store, zap.NewNop())

		err := consumer.Start(context.Background())
		require.NoError(t, err)

		event := &analytics.DeniedEvent{
			ID:                uuid.NewString(),
			Identifier:        "192.168.1.1/ping",
			Path:              "/ping",
			Method:            "GET",
			ClientIP:          "192.168.1.1",
			Limit:             100,
			WindowSeconds:     60,
			RetryAfterSeconds: 5,
			DeniedAt:          time.Now().UTC(),
		}

		payload, _ := json.Marshal(event)
		msg := message.NewMessage(uuid.NewString(), payload)

		sub.deniedChan <- msg

		// Wait for message to be processed
		select {
		case <-msg.Acked():
			// Success
		case <-msg.Nacked():
			t.Fatal("message was nacked")
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for ack")
		}

		store.mu.Lock()
		defer store.mu.Unlock()

		require.Len(t, store.deniedEvents, 1)
		assert.Equal(t, "192.168.1.1/ping", store.deniedEvents[0].Identifier)

		_ = consumer.Shutdown()
	})

	t.Run("nacks on unmarshal error", func(t *testing.T) {
		sub := newMockSubscriber()
		store := &mockEventStore{}
		consumer := analytics.NewConsumer(sub, store, zap.NewNop())

		err := consumer.Start(context.Background())
		require.NoError(t, err)

		msg := message.NewMessage(uuid.NewString(), []byte("invalid json"))

		sub.deniedChan <- msg

		select {
		case <-msg.Nacked():
			// Success - message was nacked
		case <-msg.Acked():
			t.Fatal("message should have been nacked")
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for nack")
		}

		_ = consumer.Shutdown()
	})

	t.Run("nacks on store error", func(t *testing.T) {
		sub := newMockSubscriber()
		store := &mockEventStore{saveErr: errors.New("store error")}
		consumer := analytics.NewConsumer(sub, store, zap.NewNop())

		err := consumer.Start(context.Background())
		require.NoError(t, err)

		event := &analytics.DeniedEvent{ID: uuid.NewString()}
		payload, _ := json.Marshal(event)
		msg := message.NewMessage(uuid.NewString(), payload)

		sub.deniedChan <- msg

		select {
		case <-msg.Nacked():
			// Success - message was nacked
		case <-msg.Acked():
			t.Fatal("message should have been nacked")
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for nack")
		}

		_ = consumer.Shutdown()
	})
}

func TestConsumer_Shutdown(t *testing.T) {
	t.Run("shuts down gracefully", func(t *testing.T) {
		sub := newMockSubscriber()
		store := &mockEventStore{}
		consumer := analytics.NewConsumer(sub, store, zap.NewNop())

		err := consumer.Start(context.Background())
		require.NoError(t, err)

		err = consumer.Shutdown()

		require.NoError(t, err)
	})

	t.Run("returns error when close fails", func(t *testing.T) {
		sub := newMockSubscriber()
		sub.closeErr = errors.New("close error")
		store := &mockEventStore{}
		consumer := analytics.NewConsumer(sub, store, zap.NewNop())

		err := consumer.Start(context.Background())
		require.NoError(t, err)

		err = consumer.Shutdown()

		assert.Error(t, err)
	})
}
