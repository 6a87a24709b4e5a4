package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"chat-auth/internal/domain"
)

type mockRedisPublisher struct {
	lastChannel string
	lastMessage interface{}
	err         error
}

func (m *mockRedisPublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	m.lastChannel = channel
	m.lastMessage = message
	cmd := redis.NewIntCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	cmd.SetVal(1)
	return cmd
}

func TestRedisStatusPublisher(t *testing.T) {
	t.Run("publishes json event", func(t *testing.T) {
		mock := &mockRedisPublisher{}
		p := &redisStatusPublisher{client: mock, channel: "chat:user-status"}
		at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

		err := p.PublishStatus(context.Background(), StatusEvent{
			Nickname: "Guest-alice",
			Type:     domain.UserTypeGuest,
			Status:   domain.UserStatusOnline,
			At:       at,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if mock.lastChannel != "chat:user-status" {
			t.Fatalf("unexpected channel %s", mock.lastChannel)
		}
		payload, ok := mock.lastMessage.([]byte)
		if !ok {
			t.Fatalf("expected []byte payload, got %T", mock.lastMessage)
		}
		var got StatusEvent
		if err := json.Unmarshal(payload, &got); err != nil {
			t.Fatalf("payload is not json: %v", err)
		}
		if got.Nickname != "Guest-alice" || got.Status != domain.UserStatusOnline || !got.At.Equal(at) {
			t.Fatalf("unexpected event %+v", got)
		}
	})

	t.Run("propagates redis error", func(t *testing.T) {
		p := &redisStatusPublisher{client: &mockRedisPublisher{err: errors.New("redis down")}, channel: "c"}
		if err := p.PublishStatus(context.Background(), StatusEvent{Nickname: "bob"}); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("nil client", func(t *testing.T) {
		if NewRedisStatusPublisher(nil, "") != nil {
			t.Fatalf("expected nil publisher for nil client")
		}
	})
}
