// Package identity resolves bearer tokens against the external identity
// provider. Session management and role claims live entirely in the
// provider; this package only consumes its verification endpoint.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"shopfront/internal/config"
	"shopfront/internal/model"

	"github.com/rs/zerolog"
)

// Role values returned by the identity provider.
const (
	RoleCustomer = "customer"
	RoleSeller   = "seller"
)

// Identity is the authenticated caller resolved from a bearer token.
type Identity struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// IsSeller reports whether the identity carries the seller role.
func (i Identity) IsSeller() bool {
	return i.Role == RoleSeller
}

// Authenticator verifies bearer tokens.
type Authenticator interface {
	// Verify resolves a bearer token to an identity. An invalid or
	// expired token maps to model.ErrUnauthorized.
	Verify(ctx context.Context, token string) (Identity, error)
}

// httpAuthenticator calls the provider's token verification endpoint.
type httpAuthenticator struct {
	verifyURL string
	client    *http.Client
	logger    zerolog.Logger
}

// NewHTTPAuthenticator creates an authenticator backed by the identity
// provider's verify endpoint.
func NewHTTPAuthenticator(cfg config.AuthConfig, logger zerolog.Logger) Authenticator {
	return &httpAuthenticator{
		verifyURL: cfg.VerifyURL,
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		logger: logger.With().Str("component", "authenticator").Logger(),
	}
}

// Verify resolves a bearer token to an identity.
func (a *httpAuthenticator) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, model.ErrUnauthorized
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.verifyURL, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Error().Err(err).Msg("identity provider unreachable")
		return Identity{}, fmt.Errorf("identity provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var id Identity
		if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
			return Identity{}, fmt.Errorf("failed to decode identity response: %w", err)
		}
		if id.UserID == "" {
			return Identity{}, model.ErrUnauthorized
		}
		return id, nil

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Identity{}, model.ErrUnauthorized

	default:
		a.logger.Error().Int("status", resp.StatusCode).Msg("unexpected identity provider response")
		return Identity{}, fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}
}

type contextKey struct{}

// WithIdentity stores the identity on the request context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext retrieves the identity stored by the auth middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
