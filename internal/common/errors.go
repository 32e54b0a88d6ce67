package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Identity errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrAnonymous    = errors.New("no authenticated owner")

	// Audit trail errors.
	ErrChainBroken = errors.New("audit chain broken")
)
