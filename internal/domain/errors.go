package domain

import "errors"

var (
	ErrValidation        = errors.New("validation error")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("invalid credentials")
	ErrNotPublished      = errors.New("profile is not published")
	ErrInactive          = errors.New("profile is inactive")
	ErrUnavailable       = errors.New("storage unavailable")
	ErrConflict          = errors.New("profile was modified concurrently")
)
