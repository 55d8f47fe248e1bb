package services

import "errors"

var (
	// ErrValidation reports a missing or empty required field.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateEmail reports a signup with an email that is already
	// registered.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidCredentials is the single login failure. It never tells an
	// unknown email apart from a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrForbiddenOrNotFound reports a delete of a post that does not exist
	// or is owned by someone else.
	ErrForbiddenOrNotFound = errors.New("post not found or not owned")

	// ErrStorage wraps any other persistence failure.
	ErrStorage = errors.New("storage failure")
)
