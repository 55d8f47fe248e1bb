package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/connectapp/apiserver/internal/db"
	"github.com/connectapp/apiserver/types"
)

// SnapshotRepository reads consistent exports of all content.
type SnapshotRepository struct {
	db *db.DB
}

func NewSnapshotRepository(db *db.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Snapshot reads users, posts and likes inside a single read-only
// transaction.
func (r *SnapshotRepository) Snapshot(ctx context.Context) (types.Snapshot, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: r.db.Dialect == db.DialectPostgres})
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	snapshot := types.Snapshot{
		GeneratedAt: time.Now().UTC(),
		Users:       make([]types.User, 0),
		Posts:       make([]types.Post, 0),
		Likes:       make([]types.Like, 0),
	}

	userRows, err := tx.QueryContext(ctx, `SELECT id, name, email, COALESCE(job_title, '') FROM users ORDER BY id`)
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("query users: %w", err)
	}
	for userRows.Next() {
		var user types.User
		if err := userRows.Scan(&user.ID, &user.Name, &user.Email, &user.JobTitle); err != nil {
			userRows.Close()
			return types.Snapshot{}, fmt.Errorf("scan user: %w", err)
		}
		snapshot.Users = append(snapshot.Users, user)
	}
	userRows.Close()
	if err := userRows.Err(); err != nil {
		return types.Snapshot{}, fmt.Errorf("iterate users: %w", err)
	}

	postRows, err := tx.QueryContext(ctx, `SELECT id, user_id, content, created_at FROM posts ORDER BY id`)
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("query posts: %w", err)
	}
	for postRows.Next() {
		var post types.Post
		if err := postRows.Scan(&post.ID, &post.UserID, &post.Content, &post.CreatedAt); err != nil {
			postRows.Close()
			return types.Snapshot{}, fmt.Errorf("scan post: %w", err)
		}
		snapshot.Posts = append(snapshot.Posts, post)
	}
	postRows.Close()
	if err := postRows.Err(); err != nil {
		return types.Snapshot{}, fmt.Errorf("iterate posts: %w", err)
	}

	likeRows, err := tx.QueryContext(ctx, `SELECT user_id, post_id FROM post_likes ORDER BY post_id, user_id`)
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("query likes: %w", err)
	}
	for likeRows.Next() {
		var like types.Like
		if err := likeRows.Scan(&like.UserID, &like.PostID); err != nil {
			likeRows.Close()
			return types.Snapshot{}, fmt.Errorf("scan like: %w", err)
		}
		snapshot.Likes = append(snapshot.Likes, like)
	}
	likeRows.Close()
	if err := likeRows.Err(); err != nil {
		return types.Snapshot{}, fmt.Errorf("iterate likes: %w", err)
	}

	return snapshot, nil
}
