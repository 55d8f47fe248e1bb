package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/connectapp/apiserver/internal/store"
	"github.com/connectapp/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user types.User) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
}

// AccountService encapsulates registration and credential checks.
type AccountService struct {
	repo       UserRepository
	bcryptCost int
	events     *EventPublisher
}

func NewAccountService(repo UserRepository, bcryptCost int, events *EventPublisher) *AccountService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AccountService{repo: repo, bcryptCost: bcryptCost, events: events}
}

// RegisterInput carries the signup fields as received.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	JobTitle string
}

// Register creates a new account. Emails are compared case-insensitively;
// the storage uniqueness constraint decides duplicates.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (types.User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" || email == "" || strings.TrimSpace(in.Password) == "" {
		return types.User{}, fmt.Errorf("%w: name, email and password are required", ErrValidation)
	}

	jobTitle := strings.TrimSpace(in.JobTitle)
	if jobTitle == "" {
		jobTitle = types.DefaultJobTitle
	}

	hashed, err := bcrypt.GenerateFromPassword(bcryptInput(in.Password), s.bcryptCost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashed),
		JobTitle:     jobTitle,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, ErrDuplicateEmail
		}
		return types.User{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.events.Emit(ctx, types.Event{
		Type:       types.EventUserRegistered,
		UserID:     user.ID,
		OccurredAt: time.Now().UTC(),
	})
	return user, nil
}

// Login verifies the credentials and returns the matching user.
func (s *AccountService) Login(ctx context.Context, email, password string) (types.User, error) {
	email = normalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return types.User{}, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), bcryptInput(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// bcryptMaxPasswordBytes is the longest input bcrypt reads.
const bcryptMaxPasswordBytes = 72

// bcryptInput truncates the password to the bytes bcrypt reads, so long
// passwords hash and verify the same way digests from the legacy store do.
func bcryptInput(password string) []byte {
	input := []byte(password)
	if len(input) > bcryptMaxPasswordBytes {
		input = input[:bcryptMaxPasswordBytes]
	}
	return input
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
