package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/connectapp/apiserver/internal/store"
	"github.com/connectapp/apiserver/types"
)

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	Create(ctx context.Context, post types.Post) (types.Post, error)
	ListFeed(ctx context.Context, viewerID int64) ([]types.FeedPost, error)
	DeleteOwned(ctx context.Context, postID, userID int64) error
}

// ContentService encapsulates post use-cases.
type ContentService struct {
	repo   PostRepository
	events *EventPublisher
}

func NewContentService(repo PostRepository, events *EventPublisher) *ContentService {
	return &ContentService{repo: repo, events: events}
}

func (s *ContentService) CreatePost(ctx context.Context, userID int64, content string) (types.Post, error) {
	content = strings.TrimSpace(content)
	if userID < 1 || content == "" {
		return types.Post{}, fmt.Errorf("%w: user id and content are required", ErrValidation)
	}

	post, err := s.repo.Create(ctx, types.Post{UserID: userID, Content: content})
	if err != nil {
		return types.Post{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.events.Emit(ctx, types.Event{
		Type:       types.EventPostCreated,
		UserID:     userID,
		PostID:     post.ID,
		OccurredAt: post.CreatedAt,
	})
	return post, nil
}

// ListPosts returns the whole feed, newest first. viewerID may be zero.
func (s *ContentService) ListPosts(ctx context.Context, viewerID int64) ([]types.FeedPost, error) {
	if viewerID < 0 {
		viewerID = 0
	}
	posts, err := s.repo.ListFeed(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return posts, nil
}

// DeletePost removes a post owned by requesterID. The ownership check is
// part of the delete statement itself.
func (s *ContentService) DeletePost(ctx context.Context, postID, requesterID int64) error {
	if postID < 1 || requesterID < 1 {
		return fmt.Errorf("%w: post id and user id are required", ErrValidation)
	}

	if err := s.repo.DeleteOwned(ctx, postID, requesterID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrForbiddenOrNotFound
		}
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.events.Emit(ctx, types.Event{
		Type:       types.EventPostDeleted,
		UserID:     requesterID,
		PostID:     postID,
		OccurredAt: time.Now().UTC(),
	})
	return nil
}
