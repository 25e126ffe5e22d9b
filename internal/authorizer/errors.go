package authorizer

import "errors"

var (
	// ErrInvalidSignature is returned when the recovered signer does not
	// match the request sender.
	ErrInvalidSignature = errors.New("invalid request signature")
	// ErrExpiredRequest is returned when the request deadline has passed.
	ErrExpiredRequest = errors.New("request deadline expired")
	// ErrInvalidNonce is returned when the request nonce does not match the
	// sender's next expected nonce.
	ErrInvalidNonce = errors.New("invalid request nonce")
	// ErrUnknownPool is returned when the target pool is not registered.
	ErrUnknownPool = errors.New("unknown target pool")
)
