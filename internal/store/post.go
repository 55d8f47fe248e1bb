package store

import (
	"context"
	"fmt"
	"time"

	"github.com/connectapp/apiserver/internal/db"
	"github.com/connectapp/apiserver/types"
)

// PostRepository handles persistence for posts and the feed read model.
type PostRepository struct {
	db *db.DB
}

func NewPostRepository(db *db.DB) *PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Create(ctx context.Context, post types.Post) (types.Post, error) {
	post.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	const query = `
		INSERT INTO posts (user_id, content, created_at)
		VALUES (?, ?, ?)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		r.db.Rebind(query),
		post.UserID,
		post.Content,
		post.CreatedAt,
	).Scan(&post.ID); err != nil {
		return types.Post{}, fmt.Errorf("insert post: %w", err)
	}
	return post, nil
}

// ListFeed returns every post, newest first, with its author and like data.
// IsLiked is evaluated for viewerID; a zero viewerID likes nothing.
func (r *PostRepository) ListFeed(ctx context.Context, viewerID int64) ([]types.FeedPost, error) {
	const query = `
		SELECT
			p.id, p.user_id, p.content, p.created_at,
			u.name, COALESCE(u.job_title, ''),
			(SELECT COUNT(1) FROM post_likes l WHERE l.post_id = p.id) AS like_count,
			EXISTS (SELECT 1 FROM post_likes l WHERE l.post_id = p.id AND l.user_id = ?) AS is_liked
		FROM posts p
		JOIN users u ON u.id = p.user_id
		ORDER BY p.created_at DESC, p.id DESC`
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), viewerID)
	if err != nil {
		return nil, fmt.Errorf("query feed: %w", err)
	}
	defer rows.Close()

	posts := make([]types.FeedPost, 0)
	for rows.Next() {
		var post types.FeedPost
		if err := rows.Scan(
			&post.ID,
			&post.UserID,
			&post.Content,
			&post.CreatedAt,
			&post.UserName,
			&post.JobTitle,
			&post.LikeCount,
			&post.IsLiked,
		); err != nil {
			return nil, fmt.Errorf("scan feed post: %w", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feed: %w", err)
	}
	return posts, nil
}

// DeleteOwned removes the post only when userID owns it. Missing and
// foreign-owned posts both yield ErrNotFound.
func (r *PostRepository) DeleteOwned(ctx context.Context, postID, userID int64) error {
	const query = `DELETE FROM posts WHERE id = ? AND user_id = ?`
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), postID, userID)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
