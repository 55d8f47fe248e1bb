package store

import (
	"context"
	"fmt"

	"github.com/connectapp/apiserver/internal/db"
)

// LikeRepository handles persistence for post likes.
type LikeRepository struct {
	db *db.DB
}

func NewLikeRepository(db *db.DB) *LikeRepository {
	return &LikeRepository{db: db}
}

// Toggle flips the (userID, postID) membership in one transaction and
// reports whether the pair is liked afterwards.
func (r *LikeRepository) Toggle(ctx context.Context, postID, userID int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin toggle: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const insertQuery = `
		INSERT INTO post_likes (user_id, post_id)
		VALUES (?, ?)
		ON CONFLICT (user_id, post_id) DO NOTHING`
	result, err := tx.ExecContext(ctx, r.db.Rebind(insertQuery), userID, postID)
	if err != nil {
		return false, fmt.Errorf("insert like: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert like: %w", err)
	}

	liked := inserted > 0
	if !liked {
		const deleteQuery = `DELETE FROM post_likes WHERE user_id = ? AND post_id = ?`
		if _, err := tx.ExecContext(ctx, r.db.Rebind(deleteQuery), userID, postID); err != nil {
			return false, fmt.Errorf("delete like: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit toggle: %w", err)
	}
	return liked, nil
}
