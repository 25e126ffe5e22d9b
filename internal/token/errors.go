package token

import "errors"

var (
	// ErrInvalidAmount is returned when an amount is nil or negative.
	ErrInvalidAmount = errors.New("amount must be non-nil and non-negative")
	// ErrZeroAddress is returned when the zero address is used as a party.
	ErrZeroAddress = errors.New("zero address")
	// ErrInsufficientBalance is returned when a transfer exceeds the sender's balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInsufficientAllowance is returned when transferFrom exceeds the spender's allowance.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)
