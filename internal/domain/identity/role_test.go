package identity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUser(t *testing.T, role PrimaryRole) *User {
	t.Helper()
	u, err := NewUser(uuid.NewString()[:8]+"@example.com", "Test User", "password123", role)
	require.NoError(t, err)
	return u
}

func TestResolveRole(t *testing.T) {
	teamID := uuid.New()

	t.Run("owner and staff ignore memberships", func(t *testing.T) {
		owner := newTestUser(t, PrimaryRoleOwner)
		role, err := ResolveRole(owner, nil)
		require.NoError(t, err)
		assert.Equal(t, RoleKindOwner, role.Kind())

		staff := newTestUser(t, PrimaryRoleStaff)
		role, err = ResolveRole(staff, nil)
		require.NoError(t, err)
		assert.Equal(t, RoleKindStaff, role.Kind())
	})

	t.Run("inactive user is rejected", func(t *testing.T) {
		u := newTestUser(t, PrimaryRoleStaff)
		require.NoError(t, u.Deactivate())
		_, err := ResolveRole(u, nil)
		require.Error(t, err)
	})

	tests := []struct {
		name     string
		mutate   func(m *Membership)
		wantKind RoleKind
	}{
		{"active admin", func(m *Membership) {}, RoleKindResellerAdmin},
		{"active member", func(m *Membership) { m.Role = MemberRoleMember }, RoleKindResellerMember},
		{"default member", func(m *Membership) { m.Status = MemberStatusDefault }, RoleKindResellerDefault},
		{"blocked admin", func(m *Membership) { m.IsBlocked = true }, RoleKindUnaffiliated},
		{"inactive admin", func(m *Membership) { m.IsActive = false }, RoleKindUnaffiliated},
		{"suspended admin", func(m *Membership) { m.Status = MemberStatusSuspended }, RoleKindUnaffiliated},
		{"pending invitation", func(m *Membership) { m.Status = MemberStatusPendingInvitation }, RoleKindUnaffiliated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := newTestUser(t, PrimaryRoleReseller)
			m := NewFoundingAdmin(teamID, u.ID, uuid.New())
			tt.mutate(m)

			role, err := ResolveRole(u, m)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, role.Kind())
		})
	}

	t.Run("membership of another user is ignored", func(t *testing.T) {
		u := newTestUser(t, PrimaryRoleReseller)
		m := NewFoundingAdmin(teamID, uuid.New(), uuid.New())
		role, err := ResolveRole(u, m)
		require.NoError(t, err)
		assert.Equal(t, RoleKindUnaffiliated, role.Kind())
	})
}

func TestPrincipal_Checks(t *testing.T) {
	team := uuid.New()
	other := uuid.New()

	owner := NewPrincipal(uuid.New(), Owner{})
	staff := NewPrincipal(uuid.New(), Staff{})
	admin := NewPrincipal(uuid.New(), ResellerAdmin{Team: team})
	member := NewPrincipal(uuid.New(), ResellerMember{Team: team})
	def := NewPrincipal(uuid.New(), ResellerDefault{Team: team})
	none := NewPrincipal(uuid.New(), Unaffiliated{})

	assert.True(t, owner.IsOwner())
	assert.False(t, staff.IsOwner())
	assert.True(t, staff.IsStaff())
	assert.False(t, admin.IsStaff())

	assert.True(t, admin.IsAdminOf(team))
	assert.False(t, admin.IsAdminOf(other))
	assert.False(t, member.IsAdminOf(team))
	assert.False(t, def.IsAdminOf(team))
	assert.False(t, owner.IsAdminOf(team))

	assert.True(t, admin.IsMemberOf(team))
	assert.True(t, member.IsMemberOf(team))
	assert.True(t, def.IsMemberOf(team))
	assert.False(t, member.IsMemberOf(other))
	assert.False(t, none.IsMemberOf(team))
	assert.False(t, staff.IsMemberOf(team))
}

func TestRole_TeamID(t *testing.T) {
	team := uuid.New()
	id, ok := ResellerMember{Team: team}.TeamID()
	assert.True(t, ok)
	assert.Equal(t, team, id)

	_, ok = Owner{}.TeamID()
	assert.False(t, ok)
}

func TestMatch_NilRole(t *testing.T) {
	assert.False(t, Match(nil, ownerCheck{}))
	assert.False(t, Principal{UserID: uuid.New()}.IsOwner())
}
