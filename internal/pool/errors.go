package pool

import "errors"

var (
	// ErrNotInitialized is returned when a state operation hits an
	// uninitialized instance, including the factory template.
	ErrNotInitialized = errors.New("pool not initialized")
	// ErrAlreadyInitialized is returned on a second Initialize call.
	ErrAlreadyInitialized = errors.New("pool already initialized")
	// ErrUnauthorized is returned when the caller lacks the required capability.
	ErrUnauthorized = errors.New("caller lacks required capability")
	// ErrInvalidToken is returned when a token is not part of the pool's pair.
	ErrInvalidToken = errors.New("token not in pair")
	// ErrInvalidPair is returned when swap tokens are equal or outside the pair.
	ErrInvalidPair = errors.New("invalid swap pair")
	// ErrInvalidAmount is returned when an amount is nil or non-positive.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInsufficientBalance is returned when a deposit exceeds the caller's balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInsufficientAllowance is returned when the holder has not approved enough input.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	// ErrInsufficientReserve is returned when a withdrawal exceeds the tracked reserve.
	ErrInsufficientReserve = errors.New("insufficient reserve")
	// ErrInsufficientLiquidity is returned when reserves cannot support the swap.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrInsufficientOutput is returned when the net output falls below the minimum.
	ErrInsufficientOutput = errors.New("output below minimum")
	// ErrTransferFailed wraps a failed external token transfer.
	ErrTransferFailed = errors.New("token transfer failed")
)
