package mq

import (
	"context"
	"fmt"

	"github.com/connectapp/apiserver/config"
)

const (
	BackendNone     = "none"
	BackendRabbitMQ = "rabbitmq"
	BackendPubSub   = "pubsub"
	BackendRedis    = "redis"
)

// Open connects the backend named in cfg. It returns nil, nil when event
// publishing is disabled.
func Open(ctx context.Context, cfg config.MQConfig) (*MQ, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.Backend {
	case "", BackendNone:
		return nil, nil
	case BackendRabbitMQ:
		backend, err = NewRabbitMQClient(cfg.RabbitMQ)
	case BackendPubSub:
		backend, err = NewPubSubClient(ctx, cfg.PubSub)
	case BackendRedis:
		backend, err = NewRedisClient(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported MQ_BACKEND %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Backend, err)
	}
	return New(backend), nil
}
