package core

import "errors"

var (
	ErrMissingField     = errors.New("missing required field")
	ErrInvalidPublicKey = errors.New("invalid public key")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrChallengeExpired = errors.New("challenge has expired")
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token has expired")
	ErrStoreUnavailable = errors.New("store unavailable")
)
