package services

import (
	"context"
	"fmt"
	"time"

	"github.com/connectapp/apiserver/types"
)

// LikeRepository defines persistence operations for likes.
type LikeRepository interface {
	Toggle(ctx context.Context, postID, userID int64) (bool, error)
}

// EngagementService encapsulates like toggling.
type EngagementService struct {
	repo   LikeRepository
	events *EventPublisher
}

func NewEngagementService(repo LikeRepository, events *EventPublisher) *EngagementService {
	return &EngagementService{repo: repo, events: events}
}

// ToggleLike flips whether userID likes postID and returns the new state.
func (s *EngagementService) ToggleLike(ctx context.Context, postID, userID int64) (bool, error) {
	if postID < 1 || userID < 1 {
		return false, fmt.Errorf("%w: post id and user id are required", ErrValidation)
	}

	liked, err := s.repo.Toggle(ctx, postID, userID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	eventType := types.EventPostUnliked
	if liked {
		eventType = types.EventPostLiked
	}
	s.events.Emit(ctx, types.Event{
		Type:       eventType,
		UserID:     userID,
		PostID:     postID,
		OccurredAt: time.Now().UTC(),
	})
	return liked, nil
}
