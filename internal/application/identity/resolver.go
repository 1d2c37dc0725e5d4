package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/scaregistry/backend/internal/domain/identity"
	"github.com/scaregistry/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Resolver maps an authenticated principal to its staff profile. Profiles are
// read on every call so that role and active changes apply immediately.
type Resolver struct {
	users            identity.UserRepository
	offlineBootstrap bool
	logger           *zap.Logger
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver)

// WithOfflineBootstrap resolves principals without a profile to a read-only
// user instead of failing. Intended for first-run setup only.
func WithOfflineBootstrap(enabled bool) ResolverOption {
	return func(r *Resolver) {
		r.offlineBootstrap = enabled
	}
}

// NewResolver creates a new Resolver
func NewResolver(users identity.UserRepository, logger *zap.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{users: users, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the profile for principalID.
//
// A missing profile yields shared.ErrProfileNotFound (UNAUTHENTICATED). Store
// failures are returned as STORE_UNAVAILABLE.
func (r *Resolver) Resolve(ctx context.Context, principalID string) (*identity.User, error) {
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return nil, shared.ErrUnauthenticated
	}

	user, err := r.users.FindByPrincipal(ctx, principalID)
	if err == nil {
		return user, nil
	}
	if errors.Is(err, shared.ErrNotFound) {
		if r.offlineBootstrap {
			r.logger.Warn("No profile for principal, using offline bootstrap identity",
				zap.String("principal_id", principalID))
			return identity.BootstrapUser(principalID), nil
		}
		return nil, shared.ErrProfileNotFound
	}

	var de *shared.DomainError
	if errors.As(err, &de) {
		return nil, err
	}
	r.logger.Error("Failed to resolve principal", zap.String("principal_id", principalID), zap.Error(err))
	return nil, shared.NewStoreUnavailableError(err)
}
