package domain

import "errors"

var (
	ErrInvalidAccount      = errors.New("invalid_account")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidReference    = errors.New("invalid_reference")
	ErrInvalidAdjustment   = errors.New("invalid_adjustment")
	ErrAccountNotFound     = errors.New("account_not_found")
	ErrAccountSuspended    = errors.New("account_suspended")
	ErrInsufficientCredits = errors.New("insufficient_credits")
	ErrAlreadyApplied      = errors.New("transaction_already_applied")
	ErrConcurrentUpdate    = errors.New("concurrent_balance_update")
)
