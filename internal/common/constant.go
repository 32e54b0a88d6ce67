// Package common contains constants, sentinel errors and small helpers shared
// by the stegkeeper packages.
package common

const (
	// AuthorizationHeader carries the optional bearer credential.
	AuthorizationHeader = "Authorization"

	// BearerPrefix precedes the token in AuthorizationHeader.
	BearerPrefix = "Bearer "

	// MaxDecodeAttempts is the retry budget granted to a fresh decode context.
	MaxDecodeAttempts = 3

	// TokenMetadataKey is the metadata row holding the saved bearer token.
	TokenMetadataKey = "bearer_token"
)
