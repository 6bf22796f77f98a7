package auth

import "errors"

var (
	ErrNotFound        = errors.New("auth: not found")
	ErrConflict        = errors.New("auth: already exists")
	ErrUnauthorized    = errors.New("auth: unauthorized")
	ErrAccountDisabled = errors.New("auth: account disabled")
	ErrInvalidToken    = errors.New("auth: invalid token")
	ErrTokenExpired    = errors.New("auth: token expired")
	ErrInvalidInput    = errors.New("auth: invalid input")
)
