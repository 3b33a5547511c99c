package domain

import "context"

type Service interface {
	// Verify exchanges a bearer token for the identity that owns it.
	Verify(ctx context.Context, token string) (*Identity, error)
	Configured() bool
}
