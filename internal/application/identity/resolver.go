package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Resolver turns an authenticated user id into a Principal. It runs on
// every request so suspensions, blocks and team switches apply without
// waiting for tokens to expire.
type Resolver struct {
	userRepo   identity.UserRepository
	memberRepo identity.MemberRepository
}

// NewResolver creates a new Resolver
func NewResolver(userRepo identity.UserRepository, memberRepo identity.MemberRepository) *Resolver {
	return &Resolver{userRepo: userRepo, memberRepo: memberRepo}
}

// ErrUnknownPrincipal is returned when the token's user no longer exists
var ErrUnknownPrincipal = shared.NewDomainError("UNAUTHORIZED", "User no longer exists")

// Resolve loads the user and, for resellers, their active membership
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID) (identity.Principal, error) {
	user, err := r.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return identity.Principal{}, ErrUnknownPrincipal
		}
		return identity.Principal{}, fmt.Errorf("failed to load user: %w", err)
	}

	var membership *identity.Membership
	if user.PrimaryRole == identity.PrimaryRoleReseller {
		membership, err = r.memberRepo.FindActiveByUser(ctx, userID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return identity.Principal{}, fmt.Errorf("failed to load membership: %w", err)
		}
	}

	role, err := identity.ResolveRole(user, membership)
	if err != nil {
		return identity.Principal{}, err
	}
	return identity.NewPrincipal(user.ID, role), nil
}
