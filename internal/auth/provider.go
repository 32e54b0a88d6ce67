package auth

import (
	"context"
	"sync"
	"time"
)

// Provider resolves the identity of the current session. ok=false means
// anonymous.
type Provider interface {
	Current(ctx context.Context) (Identity, bool)
}

// Anonymous never has an identity.
type Anonymous struct{}

func (Anonymous) Current(context.Context) (Identity, bool)   { return Identity{}, false }
func (Anonymous) BearerToken(context.Context) (string, bool) { return "", false }

// TokenProvider holds the operator's bearer token. A token that expires
// while held silently turns the session anonymous.
type TokenProvider struct {
	mu     sync.RWMutex
	token  string
	secret []byte
	now    func() time.Time
}

// NewTokenProvider creates an empty provider. secret enables signature
// verification (see ParseToken) and may be nil.
func NewTokenProvider(secret []byte) *TokenProvider {
	return &TokenProvider{secret: secret, now: time.Now}
}

// SetToken validates and stores token.
func (p *TokenProvider) SetToken(token string) (Identity, error) {
	id, err := ParseToken(token, p.secret, p.now())
	if err != nil {
		return Identity{}, err
	}
	p.mu.Lock()
	p.token = id.Token
	p.mu.Unlock()
	return id, nil
}

// Clear forgets the token.
func (p *TokenProvider) Clear() {
	p.mu.Lock()
	p.token = ""
	p.mu.Unlock()
}

func (p *TokenProvider) Current(context.Context) (Identity, bool) {
	p.mu.RLock()
	token := p.token
	p.mu.RUnlock()
	if token == "" {
		return Identity{}, false
	}
	id, err := ParseToken(token, p.secret, p.now())
	if err != nil {
		return Identity{}, false
	}
	return id, true
}

// BearerToken lets the provider act as the transport's token source.
func (p *TokenProvider) BearerToken(ctx context.Context) (string, bool) {
	id, ok := p.Current(ctx)
	if !ok {
		return "", false
	}
	return id.Token, true
}
