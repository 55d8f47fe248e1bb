package types

import "time"

// EventType names a domain event published after a successful mutation.
type EventType string

const (
	EventUserRegistered EventType = "user.registered"
	EventPostCreated    EventType = "post.created"
	EventPostDeleted    EventType = "post.deleted"
	EventPostLiked      EventType = "post.liked"
	EventPostUnliked    EventType = "post.unliked"
)

// Event is the payload published to the message queue.
type Event struct {
	Type       EventType `json:"type"`
	UserID     int64     `json:"user_id"`
	PostID     int64     `json:"post_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
