package vault

import "errors"

// Error kinds returned by the state machine. Every failure is reported before
// any balance is touched, so callers may retry against the same state.
var (
	ErrVaultLocked         = errors.New("vault locked")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrOverflow            = errors.New("balance overflow")
	ErrUnauthorized        = errors.New("caller is not the vault authority")
	ErrInvalidAmount       = errors.New("amount must be positive")
)
