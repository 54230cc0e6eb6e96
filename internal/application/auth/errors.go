package auth

import "errors"

var (
	ErrEmailRequired    = errors.New("Email is required")
	ErrInvalidEmail     = errors.New("Invalid Email")
	ErrTokenRequired    = errors.New("Email and token are required")
	ErrInvalidToken     = errors.New("Token has expired or is invalid")
	ErrNotAuthenticated = errors.New("Not authenticated")
)
