package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/connectapp/apiserver/internal/db"
	"github.com/connectapp/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *db.DB
}

func NewUserRepository(db *db.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts the user and returns it with its assigned ID. A duplicate
// email yields ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	const query = `
		INSERT INTO users (name, email, password_hash, job_title)
		VALUES (?, ?, ?, ?)
		RETURNING id`
	err := r.db.QueryRowContext(
		ctx,
		r.db.Rebind(query),
		user.Name,
		user.Email,
		user.PasswordHash,
		user.JobTitle,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return types.User{}, ErrConflict
		}
		return types.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT id, name, email, password_hash, COALESCE(job_title, '')
		FROM users
		WHERE email = ?`
	var user types.User
	err := r.db.QueryRowContext(ctx, r.db.Rebind(query), email).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.JobTitle,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}
