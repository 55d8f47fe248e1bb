package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/connectapp/apiserver/config"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RedisClient publishes over Redis pub/sub. Redis channels carry a single
// string, so messages are wrapped in a JSON envelope holding the id and
// attributes.
type RedisClient struct {
	client *redis.Client
}

type redisEnvelope struct {
	ID         string            `json:"id"`
	Data       []byte            `json:"data"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// NewRedisClient connects to Redis and verifies the connection with PING.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*RedisClient, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("redis addr is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisClient{client: client}, nil
}

// Publish sends a message to the named Redis channel.
func (r *RedisClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("redis channel is required")
	}

	envelope := redisEnvelope{
		ID:         uuid.NewString(),
		Data:       data,
		Attributes: attrs,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return "", err
	}
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		return "", err
	}
	return envelope.ID, nil
}

// Subscribe consumes messages from the named Redis channel until ctx is
// done. Redis pub/sub has no redelivery, so handler errors drop the message.
func (r *RedisClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("redis channel is required")
	}

	sub := r.client.Subscribe(ctx, channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return errors.New("redis subscription closed")
			}
			var envelope redisEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				continue
			}
			_ = handler(ctx, Message{
				ID:         envelope.ID,
				Data:       envelope.Data,
				Attributes: envelope.Attributes,
			})
		}
	}
}

// Close closes the Redis client.
func (r *RedisClient) Close() error {
	return r.client.Close()
}
