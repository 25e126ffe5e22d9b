package factory

import "errors"

var (
	// ErrIdenticalPair is returned when both tokens of a pair are the same.
	ErrIdenticalPair = errors.New("identical tokens in pair")
	// ErrInvalidToken is returned when a token identifier is the zero address.
	ErrInvalidToken = errors.New("invalid token identifier")
	// ErrPairExists is returned when the unordered pair already has a pool.
	ErrPairExists = errors.New("pair already exists")
	// ErrAddressInUse is returned when a derived pool address collides with
	// an existing instance (salt reuse).
	ErrAddressInUse = errors.New("pool address already in use")
)
