package identity

import (
	"fmt"
	"time"

	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MemberRole is the sub-role a reseller holds inside a team
type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
)

// IsValid checks if the member role is valid
func (r MemberRole) IsValid() bool {
	return r == MemberRoleAdmin || r == MemberRoleMember
}

// MemberStatus is the lifecycle status of a team membership.
// Only these four values are stored; legacy clients that send "team_joined"
// are rejected by IsValid.
type MemberStatus string

const (
	MemberStatusPendingInvitation MemberStatus = "pending_invitation"
	MemberStatusActive            MemberStatus = "active_member"
	MemberStatusSuspended         MemberStatus = "suspended_member"
	MemberStatusDefault           MemberStatus = "default_member"
)

// IsValid checks if the member status is valid
func (s MemberStatus) IsValid() bool {
	switch s {
	case MemberStatusPendingInvitation, MemberStatusActive, MemberStatusSuspended, MemberStatusDefault:
		return true
	default:
		return false
	}
}

// Membership links a reseller user to a team
type Membership struct {
	shared.BaseAggregateRoot
	TeamID          uuid.UUID
	UserID          uuid.UUID
	Role            MemberRole
	Status          MemberStatus
	IsActive        bool
	IsBlocked       bool
	InvitedByUserID *uuid.UUID
	JoinedAt        *time.Time
}

// NewInvitation creates a pending membership that the invitee must accept
func NewInvitation(teamID, userID uuid.UUID, role MemberRole, invitedBy uuid.UUID) (*Membership, error) {
	if teamID == uuid.Nil || userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Team and user are required")
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_MEMBER_ROLE", "Member role must be admin or member")
	}
	m := &Membership{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		TeamID:            teamID,
		UserID:            userID,
		Role:              role,
		Status:            MemberStatusPendingInvitation,
		InvitedByUserID:   &invitedBy,
	}
	m.addEvent(MemberEventInvited, &invitedBy, map[string]any{"role": string(role)})
	return m, nil
}

// NewFoundingAdmin creates the first, already active, admin of a new team
func NewFoundingAdmin(teamID, userID, createdBy uuid.UUID) *Membership {
	now := time.Now().UTC()
	m := &Membership{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		TeamID:            teamID,
		UserID:            userID,
		Role:              MemberRoleAdmin,
		Status:            MemberStatusActive,
		IsActive:          true,
		InvitedByUserID:   &createdBy,
		JoinedAt:          &now,
	}
	m.addEvent(MemberEventJoined, &createdBy, map[string]any{"role": string(MemberRoleAdmin)})
	return m
}

// NewDefaultMembership places a reseller into their personal default team
func NewDefaultMembership(teamID, userID uuid.UUID) *Membership {
	now := time.Now().UTC()
	m := &Membership{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		TeamID:            teamID,
		UserID:            userID,
		Role:              MemberRoleMember,
		Status:            MemberStatusDefault,
		IsActive:          true,
		JoinedAt:          &now,
	}
	m.addEvent(MemberEventJoined, &userID, map[string]any{"role": string(MemberRoleMember), "default": true})
	return m
}

// Accept activates a pending invitation. The caller must deactivate the
// user's other memberships in the same transaction.
func (m *Membership) Accept(actor uuid.UUID) error {
	if actor != m.UserID {
		return shared.NewDomainError("FORBIDDEN", "Only the invited user can accept an invitation")
	}
	if m.Status != MemberStatusPendingInvitation {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot accept invitation in %s status", m.Status))
	}
	if m.IsBlocked {
		return shared.NewDomainError("MEMBER_BLOCKED", "Blocked members cannot join the team")
	}
	now := time.Now().UTC()
	m.Status = MemberStatusActive
	m.IsActive = true
	m.JoinedAt = &now
	m.touch()
	m.addEvent(MemberEventJoined, &actor, map[string]any{"role": string(m.Role)})
	return nil
}

// Deactivate clears the active flag, used when the user switches teams
func (m *Membership) Deactivate(actor uuid.UUID) {
	if !m.IsActive {
		return
	}
	m.IsActive = false
	m.touch()
	m.addEvent(MemberEventDeactivated, &actor, nil)
}

// Suspend removes the member's team authority without deleting the record
func (m *Membership) Suspend(actor uuid.UUID) error {
	if m.Status != MemberStatusActive {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot suspend member in %s status", m.Status))
	}
	m.Status = MemberStatusSuspended
	m.touch()
	m.addEvent(MemberEventSuspended, &actor, nil)
	return nil
}

// Reinstate returns a suspended member to active status
func (m *Membership) Reinstate(actor uuid.UUID) error {
	if m.Status != MemberStatusSuspended {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reinstate member in %s status", m.Status))
	}
	m.Status = MemberStatusActive
	m.touch()
	m.addEvent(MemberEventReinstated, &actor, nil)
	return nil
}

// Block sets the blocked flag
func (m *Membership) Block(actor uuid.UUID) error {
	if m.IsBlocked {
		return shared.NewDomainError("ALREADY_BLOCKED", "Member is already blocked")
	}
	m.IsBlocked = true
	m.touch()
	m.addEvent(MemberEventBlocked, &actor, nil)
	return nil
}

// Unblock clears the blocked flag
func (m *Membership) Unblock(actor uuid.UUID) error {
	if !m.IsBlocked {
		return shared.NewDomainError("NOT_BLOCKED", "Member is not blocked")
	}
	m.IsBlocked = false
	m.touch()
	m.addEvent(MemberEventUnblocked, &actor, nil)
	return nil
}

// ChangeRole switches between admin and member
func (m *Membership) ChangeRole(role MemberRole, actor uuid.UUID) error {
	if !role.IsValid() {
		return shared.NewDomainError("INVALID_MEMBER_ROLE", "Member role must be admin or member")
	}
	if role == m.Role {
		return shared.NewDomainError("ROLE_UNCHANGED", "Member already has this role")
	}
	old := m.Role
	m.Role = role
	m.touch()
	m.addEvent(MemberEventRoleChanged, &actor, map[string]any{"from": string(old), "to": string(role)})
	return nil
}

// IsUsable reports whether the membership grants any team authority
func (m *Membership) IsUsable() bool {
	if m == nil || !m.IsActive || m.IsBlocked {
		return false
	}
	return m.Status == MemberStatusActive || m.Status == MemberStatusDefault
}

// IsActiveAdmin reports whether the membership carries admin authority
func (m *Membership) IsActiveAdmin() bool {
	return m != nil && m.IsActive && !m.IsBlocked &&
		m.Status == MemberStatusActive && m.Role == MemberRoleAdmin
}

func (m *Membership) touch() {
	m.Touch(time.Now().UTC())
}

func (m *Membership) addEvent(eventType string, actor *uuid.UUID, meta map[string]any) {
	e := shared.NewBaseDomainEvent(eventType, AggregateTypeMember, m.ID, actor, m.UpdatedAt)
	e.Meta["team_id"] = m.TeamID.String()
	e.Meta["user_id"] = m.UserID.String()
	for k, v := range meta {
		e.Meta[k] = v
	}
	m.AddDomainEvent(&e)
}

// AggregateTypeMember is the audit entity name for memberships
const AggregateTypeMember = "reseller_member"

// Membership event types
const (
	MemberEventInvited     = "member_invited"
	MemberEventJoined      = "member_joined"
	MemberEventDeactivated = "member_deactivated"
	MemberEventSuspended   = "member_suspended"
	MemberEventReinstated  = "member_reinstated"
	MemberEventBlocked     = "member_blocked"
	MemberEventUnblocked   = "member_unblocked"
	MemberEventRoleChanged = "member_role_changed"
)
