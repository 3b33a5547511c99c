package domain

import "errors"

var (
	ErrMissingToken          = errors.New("missing token")
	ErrInvalidToken          = errors.New("invalid token")
	ErrIdentityNotConfigured = errors.New("identity provider not configured")
	ErrIdentityUnavailable   = errors.New("identity provider unavailable")
)
