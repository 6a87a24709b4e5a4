package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"chat-auth/internal/domain"
)

// StatusEvent avisa a los clientes del chat de un cambio de presencia.
type StatusEvent struct {
	Nickname string            `json:"nickname"`
	Type     domain.UserType   `json:"user_type"`
	Status   domain.UserStatus `json:"user_status"`
	At       time.Time         `json:"at"`
}

// StatusPublisher difunde cambios de estado de usuarios.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, event StatusEvent) error
}

type noopStatusPublisher struct{}

func NewNoopStatusPublisher() StatusPublisher {
	return noopStatusPublisher{}
}

func (noopStatusPublisher) PublishStatus(context.Context, StatusEvent) error {
	return nil
}

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type redisStatusPublisher struct {
	client  redisPublisher
	channel string
}

func NewRedisStatusPublisher(client *redis.Client, channel string) StatusPublisher {
	if client == nil {
		return nil
	}
	if strings.TrimSpace(channel) == "" {
		channel = "chat:user-status"
	}
	return &redisStatusPublisher{
		client:  client,
		channel: channel,
	}
}

func (p *redisStatusPublisher) PublishStatus(ctx context.Context, event StatusEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return p.client.Publish(ctx, p.channel, payload).Err()
}
