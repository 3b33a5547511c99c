package domain

import "errors"

var (
	ErrNotFound         = errors.New("account_not_found")
	ErrInvalidAccountID = errors.New("invalid_account_id")
)
