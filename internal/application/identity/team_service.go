package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TeamService manages reseller teams and their memberships.
//
// A user holds at most one active membership. Every operation that
// activates a membership deactivates the user's others in the same
// transaction; the database backs this with a partial unique index.
type TeamService struct {
	teamRepo   identity.TeamRepository
	memberRepo identity.MemberRepository
	userRepo   identity.UserRepository
	txManager  shared.TxManager
	logger     *zap.Logger
}

// NewTeamService creates a new TeamService
func NewTeamService(
	teamRepo identity.TeamRepository,
	memberRepo identity.MemberRepository,
	userRepo identity.UserRepository,
	txManager shared.TxManager,
	logger *zap.Logger,
) *TeamService {
	return &TeamService{
		teamRepo:   teamRepo,
		memberRepo: memberRepo,
		userRepo:   userRepo,
		txManager:  txManager,
		logger:     logger,
	}
}

// Create sets up a team with its founding admin. The admin leaves their
// current team, if any.
func (s *TeamService) Create(ctx context.Context, p identity.Principal, req CreateTeamRequest) (*TeamResponse, error) {
	if !p.IsOwner() {
		return nil, shared.NewDomainError("FORBIDDEN", "Only owners can create teams")
	}
	if _, err := s.activeReseller(ctx, req.AdminUserID); err != nil {
		return nil, err
	}

	team, err := identity.NewTeam(req.Name, p.UserID)
	if err != nil {
		return nil, err
	}
	admin := identity.NewFoundingAdmin(team.ID, req.AdminUserID, p.UserID)

	err = s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.teamRepo.Create(ctx, team); err != nil {
			return err
		}
		if err := s.deactivateOthers(ctx, req.AdminUserID, admin.ID, p.UserID); err != nil {
			return err
		}
		return s.memberRepo.Create(ctx, admin)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	s.logger.Info("Team created",
		zap.String("team_id", team.ID.String()),
		zap.String("admin_user_id", req.AdminUserID.String()))

	resp := ToTeamResponse(team)
	return &resp, nil
}

// Get returns a team to owners and to its members
func (s *TeamService) Get(ctx context.Context, p identity.Principal, id uuid.UUID) (*TeamResponse, error) {
	if !p.IsOwner() && !p.IsMemberOf(id) {
		return nil, shared.NewDomainError("FORBIDDEN", "You are not a member of this team")
	}
	team, err := s.teamRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToTeamResponse(team)
	return &resp, nil
}

// List returns all teams. Owners only.
func (s *TeamService) List(ctx context.Context, p identity.Principal, filter shared.Filter) ([]TeamResponse, int64, error) {
	if !p.IsOwner() {
		return nil, 0, shared.NewDomainError("FORBIDDEN", "Only owners can list teams")
	}
	teams, total, err := s.teamRepo.FindAll(ctx, filter.Normalize())
	if err != nil {
		return nil, 0, err
	}
	out := make([]TeamResponse, 0, len(teams))
	for i := range teams {
		out = append(out, ToTeamResponse(&teams[i]))
	}
	return out, total, nil
}

// Rename changes a team's name. Owners and team admins.
func (s *TeamService) Rename(ctx context.Context, p identity.Principal, id uuid.UUID, req RenameTeamRequest) (*TeamResponse, error) {
	if !canManageTeam(p, id) {
		return nil, shared.NewDomainError("FORBIDDEN", "Only owners and team admins can rename a team")
	}
	team, err := s.teamRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := team.Rename(req.Name); err != nil {
		return nil, err
	}
	if err := s.teamRepo.Update(ctx, team); err != nil {
		return nil, err
	}
	resp := ToTeamResponse(team)
	return &resp, nil
}

// Invite creates a pending membership for a reseller
func (s *TeamService) Invite(ctx context.Context, p identity.Principal, teamID uuid.UUID, req InviteMemberRequest) (*MemberResponse, error) {
	if !canManageTeam(p, teamID) {
		return nil, shared.NewDomainError("FORBIDDEN", "Only owners and team admins can invite members")
	}
	team, err := s.teamRepo.FindByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !team.Active {
		return nil, shared.NewDomainError("TEAM_INACTIVE", "Team is inactive")
	}
	if _, err := s.activeReseller(ctx, req.UserID); err != nil {
		return nil, err
	}

	existing, err := s.memberRepo.FindByTeamAndUser(ctx, teamID, req.UserID)
	switch {
	case err == nil:
		if existing.IsBlocked {
			return nil, shared.NewDomainError("MEMBER_BLOCKED", "User is blocked from this team")
		}
		return nil, shared.NewDomainError("MEMBERSHIP_EXISTS", "User already has a membership in this team")
	case !errors.Is(err, shared.ErrNotFound):
		return nil, err
	}

	m, err := identity.NewInvitation(teamID, req.UserID, identity.MemberRole(req.Role), p.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.memberRepo.Create(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Info("Member invited",
		zap.String("team_id", teamID.String()),
		zap.String("user_id", req.UserID.String()),
		zap.String("invited_by", p.UserID.String()))

	resp := ToMemberResponse(m)
	return &resp, nil
}

// Accept activates the caller's pending invitation and deactivates every
// other membership they hold, in one transaction.
func (s *TeamService) Accept(ctx context.Context, p identity.Principal, membershipID uuid.UUID) (*MemberResponse, error) {
	m, err := s.memberRepo.FindByID(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if err := m.Accept(p.UserID); err != nil {
		return nil, err
	}

	err = s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.deactivateOthers(ctx, p.UserID, m.ID, p.UserID); err != nil {
			return err
		}
		return s.memberRepo.SaveWithLock(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Invitation accepted",
		zap.String("team_id", m.TeamID.String()),
		zap.String("user_id", p.UserID.String()))

	resp := ToMemberResponse(m)
	return &resp, nil
}

// Suspend removes a member's team authority
func (s *TeamService) Suspend(ctx context.Context, p identity.Principal, membershipID uuid.UUID) (*MemberResponse, error) {
	return s.manage(ctx, p, membershipID, "suspend", func(m *identity.Membership) error {
		return m.Suspend(p.UserID)
	})
}

// Reinstate returns a suspended member to active status
func (s *TeamService) Reinstate(ctx context.Context, p identity.Principal, membershipID uuid.UUID) (*MemberResponse, error) {
	return s.manage(ctx, p, membershipID, "reinstate", func(m *identity.Membership) error {
		return m.Reinstate(p.UserID)
	})
}

// Block bars a member; a blocked membership grants nothing
func (s *TeamService) Block(ctx context.Context, p identity.Principal, membershipID uuid.UUID) (*MemberResponse, error) {
	return s.manage(ctx, p, membershipID, "block", func(m *identity.Membership) error {
		return m.Block(p.UserID)
	})
}

// Unblock lifts a block
func (s *TeamService) Unblock(ctx context.Context, p identity.Principal, membershipID uuid.UUID) (*MemberResponse, error) {
	return s.manage(ctx, p, membershipID, "unblock", func(m *identity.Membership) error {
		return m.Unblock(p.UserID)
	})
}

// ChangeRole switches a member between admin and member
func (s *TeamService) ChangeRole(ctx context.Context, p identity.Principal, membershipID uuid.UUID, req ChangeMemberRoleRequest) (*MemberResponse, error) {
	return s.manage(ctx, p, membershipID, "change_role", func(m *identity.Membership) error {
		return m.ChangeRole(identity.MemberRole(req.Role), p.UserID)
	})
}

// ListMembers returns a team's memberships to owners and team members
func (s *TeamService) ListMembers(ctx context.Context, p identity.Principal, teamID uuid.UUID, f MemberListFilter) ([]MemberResponse, int64, error) {
	if !p.IsOwner() && !p.IsMemberOf(teamID) {
		return nil, 0, shared.NewDomainError("FORBIDDEN", "You are not a member of this team")
	}
	filter := shared.DefaultFilter()
	filter.Page = f.Page
	filter.PageSize = f.PageSize
	filter = filter.Normalize()
	if f.Status != "" {
		filter.Filters["status"] = f.Status
	}

	members, total, err := s.memberRepo.FindByTeam(ctx, teamID, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]MemberResponse, 0, len(members))
	for i := range members {
		out = append(out, ToMemberResponse(&members[i]))
	}
	return out, total, nil
}

// MyMemberships lists every membership of the caller, including pending
// invitations
func (s *TeamService) MyMemberships(ctx context.Context, p identity.Principal) ([]MemberResponse, error) {
	members, err := s.memberRepo.FindByUser(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]MemberResponse, 0, len(members))
	for i := range members {
		out = append(out, ToMemberResponse(&members[i]))
	}
	return out, nil
}

// manage applies an admin action to a membership. Admins cannot act on
// their own membership, so a team cannot lose its last admin by accident.
func (s *TeamService) manage(ctx context.Context, p identity.Principal, membershipID uuid.UUID, action string, apply func(*identity.Membership) error) (*MemberResponse, error) {
	m, err := s.memberRepo.FindByID(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if !canManageTeam(p, m.TeamID) {
		return nil, shared.NewDomainError("FORBIDDEN", "Only owners and team admins can manage members")
	}
	if m.UserID == p.UserID {
		return nil, shared.NewDomainError("CANNOT_MODIFY_SELF", "You cannot change your own membership")
	}
	if err := apply(m); err != nil {
		return nil, err
	}
	if err := s.memberRepo.SaveWithLock(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Info("Membership updated",
		zap.String("action", action),
		zap.String("membership_id", m.ID.String()),
		zap.String("team_id", m.TeamID.String()),
		zap.String("actor", p.UserID.String()))

	resp := ToMemberResponse(m)
	return &resp, nil
}

// deactivateOthers clears the active flag on every membership of userID
// except keep. It must run inside the caller's transaction.
func (s *TeamService) deactivateOthers(ctx context.Context, userID, keep, actor uuid.UUID) error {
	memberships, err := s.memberRepo.FindByUser(ctx, userID)
	if err != nil {
		return err
	}
	for i := range memberships {
		other := &memberships[i]
		if other.ID == keep || !other.IsActive {
			continue
		}
		other.Deactivate(actor)
		if err := s.memberRepo.SaveWithLock(ctx, other); err != nil {
			return err
		}
	}
	return nil
}

func (s *TeamService) activeReseller(ctx context.Context, userID uuid.UUID) (*identity.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
		}
		return nil, err
	}
	if user.PrimaryRole != identity.PrimaryRoleReseller {
		return nil, shared.NewDomainError("NOT_RESELLER", "Only reseller accounts can join teams")
	}
	if !user.Active {
		return nil, shared.NewDomainError("USER_INACTIVE", "User account is inactive")
	}
	return user, nil
}

func canManageTeam(p identity.Principal, teamID uuid.UUID) bool {
	return p.IsOwner() || p.IsAdminOf(teamID)
}
