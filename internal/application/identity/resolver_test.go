package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	reseller := newTestUser(t, "reseller@example.com", identity.PrimaryRoleReseller)
	teamID := uuid.New()

	t.Run("owner skips membership lookup", func(t *testing.T) {
		users := new(MockUserRepository)
		members := new(MockMemberRepository)
		owner := newTestUser(t, "owner@example.com", identity.PrimaryRoleOwner)
		users.On("FindByID", ctx, owner.ID).Return(owner, nil)

		p, err := NewResolver(users, members).Resolve(ctx, owner.ID)
		require.NoError(t, err)
		assert.True(t, p.IsOwner())
		members.AssertNotCalled(t, "FindActiveByUser", mock.Anything, mock.Anything)
	})

	t.Run("active admin", func(t *testing.T) {
		users := new(MockUserRepository)
		members := new(MockMemberRepository)
		users.On("FindByID", ctx, reseller.ID).Return(reseller, nil)
		members.On("FindActiveByUser", ctx, reseller.ID).
			Return(identity.NewFoundingAdmin(teamID, reseller.ID, uuid.New()), nil)

		p, err := NewResolver(users, members).Resolve(ctx, reseller.ID)
		require.NoError(t, err)
		assert.True(t, p.IsAdminOf(teamID))
		assert.Equal(t, identity.RoleKindResellerAdmin, p.Role.Kind())
	})

	t.Run("suspended admin loses authority", func(t *testing.T) {
		users := new(MockUserRepository)
		members := new(MockMemberRepository)
		m := identity.NewFoundingAdmin(teamID, reseller.ID, uuid.New())
		require.NoError(t, m.Suspend(uuid.New()))
		users.On("FindByID", ctx, reseller.ID).Return(reseller, nil)
		members.On("FindActiveByUser", ctx, reseller.ID).Return(m, nil)

		p, err := NewResolver(users, members).Resolve(ctx, reseller.ID)
		require.NoError(t, err)
		assert.False(t, p.IsAdminOf(teamID))
		assert.Equal(t, identity.RoleKindUnaffiliated, p.Role.Kind())
	})

	t.Run("reseller without membership", func(t *testing.T) {
		users := new(MockUserRepository)
		members := new(MockMemberRepository)
		users.On("FindByID", ctx, reseller.ID).Return(reseller, nil)
		members.On("FindActiveByUser", ctx, reseller.ID).Return(nil, shared.ErrNotFound)

		p, err := NewResolver(users, members).Resolve(ctx, reseller.ID)
		require.NoError(t, err)
		assert.Equal(t, identity.RoleKindUnaffiliated, p.Role.Kind())
	})

	t.Run("unknown user", func(t *testing.T) {
		users := new(MockUserRepository)
		id := uuid.New()
		users.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

		_, err := NewResolver(users, new(MockMemberRepository)).Resolve(ctx, id)
		assert.Equal(t, "UNAUTHORIZED", shared.CodeOf(err))
	})

	t.Run("inactive user", func(t *testing.T) {
		users := new(MockUserRepository)
		staff := newTestUser(t, "staff@example.com", identity.PrimaryRoleStaff)
		require.NoError(t, staff.Deactivate())
		users.On("FindByID", ctx, staff.ID).Return(staff, nil)

		_, err := NewResolver(users, new(MockMemberRepository)).Resolve(ctx, staff.ID)
		assert.Equal(t, "USER_INACTIVE", shared.CodeOf(err))
	})

	t.Run("storage failure is wrapped", func(t *testing.T) {
		users := new(MockUserRepository)
		members := new(MockMemberRepository)
		dbErr := errors.New("connection refused")
		users.On("FindByID", ctx, reseller.ID).Return(reseller, nil)
		members.On("FindActiveByUser", ctx, reseller.ID).Return(nil, dbErr)

		_, err := NewResolver(users, members).Resolve(ctx, reseller.ID)
		assert.ErrorIs(t, err, dbErr)
	})
}
