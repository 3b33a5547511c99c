package authorization

import (
	"context"
	"errors"

	accountdomain "github.com/smallbiznis/dreamforge/internal/account/domain"
)

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)

type Service interface {
	// Authorize returns ErrForbidden unless the account's role grants action on object.
	Authorize(ctx context.Context, account *accountdomain.Account, object string, action string) error
}
