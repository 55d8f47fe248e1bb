package services

import (
	"context"
	"encoding/json"

	"github.com/connectapp/apiserver/types"
	log "github.com/sirupsen/logrus"
)

// Publisher sends raw messages to a named channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// EventPublisher emits domain events after successful mutations. A nil
// *EventPublisher discards events.
type EventPublisher struct {
	publisher Publisher
	channel   string
}

func NewEventPublisher(publisher Publisher, channel string) *EventPublisher {
	if publisher == nil {
		return nil
	}
	return &EventPublisher{publisher: publisher, channel: channel}
}

// Emit publishes the event. Failures are logged and never reach the caller:
// the mutation has already been committed.
func (e *EventPublisher) Emit(ctx context.Context, event types.Event) {
	if e == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).WithField("event", event.Type).Error("encode event")
		return
	}

	id, err := e.publisher.Publish(ctx, e.channel, data, map[string]string{"type": string(event.Type)})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"event":   event.Type,
			"channel": e.channel,
		}).Warn("publish event failed")
		return
	}
	log.WithFields(log.Fields{
		"event":      event.Type,
		"message_id": id,
	}).Debug("event published")
}
