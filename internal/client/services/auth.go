// Package services contains the application services of the stegkeeper
// client: submission execution, the audit trail, key generation and the
// saved identity.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/stegkeeper/internal/auth"
	"github.com/dmitrijs2005/stegkeeper/internal/client/client"
	"github.com/dmitrijs2005/stegkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/stegkeeper/internal/common"
	"github.com/dmitrijs2005/stegkeeper/internal/logging"
)

// AuthService manages the bearer token the client presents to the service.
//
// Contract:
//   - Login: validate a token, remember it locally and make it current.
//   - Logout: forget the token; later sessions are anonymous.
//   - Restore: load a remembered token at startup.
//   - Ping: check service liveness.
type AuthService interface {
	Login(ctx context.Context, token string) (auth.Identity, error)
	Logout(ctx context.Context) error
	Restore(ctx context.Context) (auth.Identity, bool)
	Ping(ctx context.Context) error
}

type authService struct {
	client   client.Client
	meta     metadata.Repository
	provider *auth.TokenProvider
	log      logging.Logger
}

func NewAuthService(c client.Client, meta metadata.Repository, provider *auth.TokenProvider, log logging.Logger) AuthService {
	return &authService{client: c, meta: meta, provider: provider, log: log}
}

// Login rejects malformed and expired tokens before anything is stored.
func (a *authService) Login(ctx context.Context, token string) (auth.Identity, error) {
	id, err := a.provider.SetToken(token)
	if err != nil {
		return auth.Identity{}, err
	}
	if err := a.meta.Set(ctx, common.TokenMetadataKey, []byte(id.Token)); err != nil {
		a.provider.Clear()
		return auth.Identity{}, fmt.Errorf("token saving error: %w", err)
	}
	a.log.Info(ctx, "logged in", "owner", id.OwnerID)
	return id, nil
}

func (a *authService) Logout(ctx context.Context) error {
	a.provider.Clear()
	if err := a.meta.Delete(ctx, common.TokenMetadataKey); err != nil {
		return err
	}
	a.log.Info(ctx, "logged out")
	return nil
}

// Restore makes the saved token current. A missing, malformed or expired
// token leaves the client anonymous.
func (a *authService) Restore(ctx context.Context) (auth.Identity, bool) {
	token, err := a.meta.Get(ctx, common.TokenMetadataKey)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			a.log.Warn(ctx, "cannot read saved token", "error", err)
		}
		return auth.Identity{}, false
	}
	id, err := a.provider.SetToken(string(token))
	if err != nil {
		a.log.Info(ctx, "saved token not usable, continuing anonymously", "error", err)
		return auth.Identity{}, false
	}
	return id, true
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}
