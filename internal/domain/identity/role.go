package identity

import (
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// RoleKind names a Role variant for logs, tokens and API responses
type RoleKind string

const (
	RoleKindOwner           RoleKind = "owner"
	RoleKindStaff           RoleKind = "staff"
	RoleKindResellerAdmin   RoleKind = "reseller_admin"
	RoleKindResellerMember  RoleKind = "reseller_member"
	RoleKindResellerDefault RoleKind = "reseller_default"
	RoleKindUnaffiliated    RoleKind = "unaffiliated"
)

// Role is the effective role of a principal. It is a closed set: the only
// implementations are the variant types in this file.
//
// Authorization code inspects a Role through Match with a RoleMatcher, which
// must handle every variant. Adding a variant adds a method to RoleMatcher
// and every check stops compiling until it decides what the new role may do.
type Role interface {
	Kind() RoleKind
	// TeamID returns the team the role is scoped to, if any
	TeamID() (uuid.UUID, bool)
	match(m RoleMatcher) bool
}

// RoleMatcher has one case per Role variant
type RoleMatcher interface {
	Owner() bool
	Staff() bool
	ResellerAdmin(teamID uuid.UUID) bool
	ResellerMember(teamID uuid.UUID) bool
	ResellerDefault(teamID uuid.UUID) bool
	Unaffiliated() bool
}

// Match dispatches r to the matching case of m
func Match(r Role, m RoleMatcher) bool {
	if r == nil {
		return false
	}
	return r.match(m)
}

// Owner administers the whole system
type Owner struct{}

// Staff picks and fulfils orders from the shared queue
type Staff struct{}

// ResellerAdmin is an active, unblocked admin of Team
type ResellerAdmin struct{ Team uuid.UUID }

// ResellerMember is an active, unblocked non-admin member of Team
type ResellerMember struct{ Team uuid.UUID }

// ResellerDefault is a reseller placed in their personal default team
type ResellerDefault struct{ Team uuid.UUID }

// Unaffiliated is a reseller with no usable membership. They keep access to
// orders they created and to orders that list them explicitly.
type Unaffiliated struct{}

func (Owner) Kind() RoleKind           { return RoleKindOwner }
func (Staff) Kind() RoleKind           { return RoleKindStaff }
func (ResellerAdmin) Kind() RoleKind   { return RoleKindResellerAdmin }
func (ResellerMember) Kind() RoleKind  { return RoleKindResellerMember }
func (ResellerDefault) Kind() RoleKind { return RoleKindResellerDefault }
func (Unaffiliated) Kind() RoleKind    { return RoleKindUnaffiliated }

func (Owner) TeamID() (uuid.UUID, bool)             { return uuid.Nil, false }
func (Staff) TeamID() (uuid.UUID, bool)             { return uuid.Nil, false }
func (r ResellerAdmin) TeamID() (uuid.UUID, bool)   { return r.Team, true }
func (r ResellerMember) TeamID() (uuid.UUID, bool)  { return r.Team, true }
func (r ResellerDefault) TeamID() (uuid.UUID, bool) { return r.Team, true }
func (Unaffiliated) TeamID() (uuid.UUID, bool)      { return uuid.Nil, false }

func (Owner) match(m RoleMatcher) bool             { return m.Owner() }
func (Staff) match(m RoleMatcher) bool             { return m.Staff() }
func (r ResellerAdmin) match(m RoleMatcher) bool   { return m.ResellerAdmin(r.Team) }
func (r ResellerMember) match(m RoleMatcher) bool  { return m.ResellerMember(r.Team) }
func (r ResellerDefault) match(m RoleMatcher) bool { return m.ResellerDefault(r.Team) }
func (Unaffiliated) match(m RoleMatcher) bool      { return m.Unaffiliated() }

// ResolveRole derives the effective role from the account and the user's
// active membership (nil when the user has none).
func ResolveRole(user *User, membership *Membership) (Role, error) {
	if user == nil {
		return nil, shared.ErrNotFound
	}
	if !user.Active {
		return nil, shared.NewDomainError("USER_INACTIVE", "User account is inactive")
	}
	switch user.PrimaryRole {
	case PrimaryRoleOwner:
		return Owner{}, nil
	case PrimaryRoleStaff:
		return Staff{}, nil
	case PrimaryRoleReseller:
		if membership == nil || membership.UserID != user.ID || !membership.IsUsable() {
			return Unaffiliated{}, nil
		}
		if membership.Status == MemberStatusDefault {
			return ResellerDefault{Team: membership.TeamID}, nil
		}
		if membership.Role == MemberRoleAdmin {
			return ResellerAdmin{Team: membership.TeamID}, nil
		}
		return ResellerMember{Team: membership.TeamID}, nil
	default:
		return nil, shared.NewDomainError("INVALID_ROLE", "Unknown primary role")
	}
}

// Principal is an authenticated user together with their resolved role
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

// NewPrincipal builds a principal
func NewPrincipal(userID uuid.UUID, role Role) Principal {
	return Principal{UserID: userID, Role: role}
}

// IsOwner reports whether the principal is an owner
func (p Principal) IsOwner() bool {
	return Match(p.Role, ownerCheck{})
}

// IsStaff reports whether the principal is a staff member
func (p Principal) IsStaff() bool {
	return Match(p.Role, staffCheck{})
}

// IsAdminOf reports whether the principal holds admin authority in teamID
func (p Principal) IsAdminOf(teamID uuid.UUID) bool {
	return Match(p.Role, adminOfCheck{team: teamID})
}

// IsMemberOf reports whether the principal may act for teamID at all
func (p Principal) IsMemberOf(teamID uuid.UUID) bool {
	return Match(p.Role, memberOfCheck{team: teamID})
}

type ownerCheck struct{}

func (ownerCheck) Owner() bool                    { return true }
func (ownerCheck) Staff() bool                    { return false }
func (ownerCheck) ResellerAdmin(uuid.UUID) bool   { return false }
func (ownerCheck) ResellerMember(uuid.UUID) bool  { return false }
func (ownerCheck) ResellerDefault(uuid.UUID) bool { return false }
func (ownerCheck) Unaffiliated() bool             { return false }

type staffCheck struct{}

func (staffCheck) Owner() bool                    { return false }
func (staffCheck) Staff() bool                    { return true }
func (staffCheck) ResellerAdmin(uuid.UUID) bool   { return false }
func (staffCheck) ResellerMember(uuid.UUID) bool  { return false }
func (staffCheck) ResellerDefault(uuid.UUID) bool { return false }
func (staffCheck) Unaffiliated() bool             { return false }

type adminOfCheck struct{ team uuid.UUID }

func (adminOfCheck) Owner() bool                      { return false }
func (adminOfCheck) Staff() bool                      { return false }
func (c adminOfCheck) ResellerAdmin(t uuid.UUID) bool { return t == c.team }
func (adminOfCheck) ResellerMember(uuid.UUID) bool    { return false }
func (adminOfCheck) ResellerDefault(uuid.UUID) bool   { return false }
func (adminOfCheck) Unaffiliated() bool               { return false }

type memberOfCheck struct{ team uuid.UUID }

func (memberOfCheck) Owner() bool                        { return false }
func (memberOfCheck) Staff() bool                        { return false }
func (c memberOfCheck) ResellerAdmin(t uuid.UUID) bool   { return t == c.team }
func (c memberOfCheck) ResellerMember(t uuid.UUID) bool  { return t == c.team }
func (c memberOfCheck) ResellerDefault(t uuid.UUID) bool { return t == c.team }
func (memberOfCheck) Unaffiliated() bool                 { return false }
