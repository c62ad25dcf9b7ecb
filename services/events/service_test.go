package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/edgeguard/config"
	"github.com/tech-arch1tect/edgeguard/services/logging"
	"github.com/tech-arch1tect/edgeguard/testutils"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return p.err
}

func testEventsConfig() config.EventsConfig {
	return testutils.GetTestConfig().Events
}

func TestService_UserRegistered(t *testing.T) {
	publisher := &recordingPublisher{}
	service := NewService(publisher, testEventsConfig(), nil)
	userID := uuid.New()

	service.UserRegistered(userID, "alice", "alice@example.com")
	service.Wait()

	require.Len(t, publisher.events, 1)
	assert.Equal(t, "user-events", publisher.topics[0])
	event := publisher.events[0]
	assert.Equal(t, TypeUserRegistered, event.Type)
	assert.Equal(t, "auth-service", event.Source)
	assert.Equal(t, userID.String(), event.UserID)
	assert.Equal(t, "alice@example.com", event.Email)
	assert.NotEmpty(t, event.ID)
}

func TestService_UserLogin(t *testing.T) {
	publisher := &recordingPublisher{}
	service := NewService(publisher, testEventsConfig(), nil)

	service.UserLogin(uuid.New(), "alice", "alice@example.com", Client{
		IPAddress: "203.0.113.7",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	})
	service.Wait()

	require.Len(t, publisher.events, 1)
	assert.Equal(t, "auth-events", publisher.topics[0])
	event := publisher.events[0]
	assert.Equal(t, TypeUserLogin, event.Type)
	assert.Equal(t, "203.0.113.7", event.Data["ipAddress"])

	device, ok := event.Data["device"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, device["browser"], "Chrome")
	assert.Equal(t, "Desktop", device["device_type"])
}

func TestService_PublishFailureIsLoggedNotReturned(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	publisher := &recordingPublisher{err: errors.New("broker down")}
	service := NewService(publisher, testEventsConfig(), logging.FromZap(zap.New(core)))

	service.UserRegistered(uuid.New(), "alice", "alice@example.com")
	service.Wait()

	entries := logs.FilterMessage("failed to publish event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "broker down", entries[0].ContextMap()["error"])
}

func TestNewService_NilPublisher(t *testing.T) {
	service := NewService(nil, testEventsConfig(), nil)

	assert.NotPanics(t, func() {
		service.UserRegistered(uuid.New(), "alice", "")
		service.Wait()
	})
}

func TestRedisPublisher_Publish(t *testing.T) {
	_, client := testutils.SetupTestRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, "auth-events")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	event := newEvent(TypeUserLogin, "auth-service", uuid.New(), "alice")
	require.NoError(t, NewRedisPublisher(client).Publish(ctx, "auth-events", event))

	select {
	case msg := <-sub.Channel():
		var got Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, event.ID, got.ID)
		assert.Equal(t, TypeUserLogin, got.Type)
	case <-ctx.Done():
		t.Fatal("event was not delivered")
	}
}

func TestRedisPublisher_Unavailable(t *testing.T) {
	mr, client := testutils.SetupTestRedis(t)
	mr.Close()

	err := NewRedisPublisher(client).Publish(context.Background(), "auth-events", newEvent(TypeUserLogin, "auth-service", uuid.New(), "alice"))
	assert.Error(t, err)
}

func TestNewPublisher(t *testing.T) {
	_, client := testutils.SetupTestRedis(t)

	tests := []struct {
		name   string
		driver config.EventsDriver
		redis  bool
		want   Publisher
	}{
		{name: "redis", driver: config.RedisEventsDriver, redis: true, want: &RedisPublisher{}},
		{name: "redis without client", driver: config.RedisEventsDriver, want: &LogPublisher{}},
		{name: "log", driver: config.LogEventsDriver, want: &LogPublisher{}},
		{name: "none", driver: config.NoEventsDriver, want: NopPublisher{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testutils.GetTestConfig()
			cfg.Events.Driver = tt.driver
			params := PublisherParams{Config: cfg, Logger: logging.NewNop()}
			if tt.redis {
				params.Redis = client
			}

			assert.IsType(t, tt.want, NewPublisher(params))
		})
	}
}

func TestDeviceInfo(t *testing.T) {
	t.Run("empty user agent", func(t *testing.T) {
		info := DeviceInfo("")
		assert.Equal(t, "Unknown Browser", info["browser"])
		assert.Equal(t, "Unknown", info["device_type"])
	})

	t.Run("mobile user agent", func(t *testing.T) {
		info := DeviceInfo("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
		assert.Equal(t, "Mobile", info["device_type"])
		assert.Equal(t, true, info["mobile"])
	})
}
