// Package auth provides the identity behind a session: a bearer token whose
// claims name the owner of the audit trail.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/stegkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims accepts both the "user_id" claim of Firebase-style ID tokens and the
// standard "sub".
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
}

// Identity is an authenticated owner.
type Identity struct {
	OwnerID   string
	Email     string
	ExpiresAt time.Time
	Token     string
}

// GenerateToken issues an HS256 token for userID.
func GenerateToken(userID string, secretKey []byte, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
		},
		UserID: userID,
	})
	return token.SignedString(secretKey)
}

// ParseToken reads the owner out of a bearer token. With a secret the HS256
// signature is verified; without one the claims are read as-is, since the
// issuing identity provider's keys are not available to the client and the
// service verifies the token on its side anyway.
func ParseToken(raw string, secret []byte, now time.Time) (Identity, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), common.BearerPrefix))
	if raw == "" {
		return Identity{}, common.ErrInvalidToken
	}

	claims := &Claims{}
	if len(secret) > 0 {
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return secret, nil
		}, jwt.WithTimeFunc(func() time.Time { return now }))
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return Identity{}, common.ErrTokenExpired
			}
			return Identity{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
		}
		if !token.Valid {
			return Identity{}, common.ErrInvalidToken
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
			return Identity{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
		}
		if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
			return Identity{}, common.ErrTokenExpired
		}
	}

	owner := claims.UserID
	if owner == "" {
		owner = claims.Subject
	}
	if owner == "" {
		return Identity{}, fmt.Errorf("%w: no user_id or sub claim", common.ErrInvalidToken)
	}

	id := Identity{OwnerID: owner, Email: claims.Email, Token: raw}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}
