package identity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInvitation(t *testing.T) {
	teamID, userID, admin := uuid.New(), uuid.New(), uuid.New()

	m, err := NewInvitation(teamID, userID, MemberRoleMember, admin)
	require.NoError(t, err)
	assert.Equal(t, MemberStatusPendingInvitation, m.Status)
	assert.False(t, m.IsActive)
	assert.False(t, m.IsUsable())
	require.Len(t, m.GetDomainEvents(), 1)
	assert.Equal(t, MemberEventInvited, m.GetDomainEvents()[0].EventType())

	_, err = NewInvitation(teamID, userID, MemberRole("owner"), admin)
	require.Error(t, err)
	_, err = NewInvitation(uuid.Nil, userID, MemberRoleAdmin, admin)
	require.Error(t, err)
}

func TestMembership_Accept(t *testing.T) {
	userID := uuid.New()
	m, err := NewInvitation(uuid.New(), userID, MemberRoleAdmin, uuid.New())
	require.NoError(t, err)

	err = m.Accept(uuid.New())
	require.Error(t, err, "only the invitee can accept")

	require.NoError(t, m.Accept(userID))
	assert.Equal(t, MemberStatusActive, m.Status)
	assert.True(t, m.IsActive)
	assert.NotNil(t, m.JoinedAt)
	assert.True(t, m.IsActiveAdmin())

	err = m.Accept(userID)
	require.Error(t, err, "second accept must fail")
}

func TestMembership_SuspendReinstate(t *testing.T) {
	m := NewFoundingAdmin(uuid.New(), uuid.New(), uuid.New())
	actor := uuid.New()

	require.NoError(t, m.Suspend(actor))
	assert.Equal(t, MemberStatusSuspended, m.Status)
	assert.False(t, m.IsUsable())
	assert.False(t, m.IsActiveAdmin())
	require.Error(t, m.Suspend(actor))

	require.NoError(t, m.Reinstate(actor))
	assert.True(t, m.IsActiveAdmin())
	require.Error(t, m.Reinstate(actor))
}

func TestMembership_BlockUnblock(t *testing.T) {
	m := NewFoundingAdmin(uuid.New(), uuid.New(), uuid.New())
	actor := uuid.New()

	require.NoError(t, m.Block(actor))
	assert.False(t, m.IsUsable())
	require.Error(t, m.Block(actor))

	require.NoError(t, m.Unblock(actor))
	assert.True(t, m.IsUsable())
	require.Error(t, m.Unblock(actor))
}

func TestMembership_ChangeRole(t *testing.T) {
	m := NewFoundingAdmin(uuid.New(), uuid.New(), uuid.New())
	m.ClearDomainEvents()
	version := m.Version

	require.NoError(t, m.ChangeRole(MemberRoleMember, uuid.New()))
	assert.Equal(t, MemberRoleMember, m.Role)
	assert.False(t, m.IsActiveAdmin())
	assert.Equal(t, version, m.Version, "version is managed by the repository")
	require.Len(t, m.GetDomainEvents(), 1)
	assert.Equal(t, "admin", m.GetDomainEvents()[0].Metadata()["from"])

	require.Error(t, m.ChangeRole(MemberRoleMember, uuid.New()))
}

func TestMemberStatus_IsValid(t *testing.T) {
	assert.True(t, MemberStatusActive.IsValid())
	assert.True(t, MemberStatusDefault.IsValid())
	assert.False(t, MemberStatus("team_joined").IsValid())
}

func TestMembership_Deactivate(t *testing.T) {
	m := NewFoundingAdmin(uuid.New(), uuid.New(), uuid.New())
	m.ClearDomainEvents()

	m.Deactivate(uuid.New())
	assert.False(t, m.IsActive)
	assert.Len(t, m.GetDomainEvents(), 1)

	m.Deactivate(uuid.New())
	assert.Len(t, m.GetDomainEvents(), 1, "deactivating twice records nothing")
}
