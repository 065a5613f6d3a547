package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/fulfildesk/backend/internal/infrastructure/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserServiceConfig holds configuration for the user service
type UserServiceConfig struct {
	// SessionRevokeTTL bounds how long a deactivation cut-off is kept; it
	// should match the refresh token lifetime
	SessionRevokeTTL time.Duration
}

// DefaultUserServiceConfig returns the default configuration
func DefaultUserServiceConfig() UserServiceConfig {
	return UserServiceConfig{SessionRevokeTTL: 7 * 24 * time.Hour}
}

// UserService manages accounts. Only owners create, list or deactivate
// users; everyone may read their own account and change their password.
type UserService struct {
	userRepo    identity.UserRepository
	teamRepo    identity.TeamRepository
	memberRepo  identity.MemberRepository
	txManager   shared.TxManager
	revocations auth.RevocationList
	config      UserServiceConfig
	logger      *zap.Logger
}

// NewUserService creates a new UserService
func NewUserService(
	userRepo identity.UserRepository,
	teamRepo identity.TeamRepository,
	memberRepo identity.MemberRepository,
	txManager shared.TxManager,
	revocations auth.RevocationList,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		teamRepo:    teamRepo,
		memberRepo:  memberRepo,
		txManager:   txManager,
		revocations: revocations,
		config:      DefaultUserServiceConfig(),
		logger:      logger,
	}
}

// SetConfig sets the service configuration
func (s *UserService) SetConfig(config UserServiceConfig) {
	s.config = config
}

// Create registers an account. A reseller created with a team starts as a
// default member of that team; without one they are unaffiliated until they
// accept an invitation.
func (s *UserService) Create(ctx context.Context, p identity.Principal, req CreateUserRequest) (*UserResponse, error) {
	if !p.IsOwner() {
		return nil, shared.NewDomainError("FORBIDDEN", "Only owners can create users")
	}
	role := identity.PrimaryRole(req.PrimaryRole)
	if req.TeamID != nil && role != identity.PrimaryRoleReseller {
		return nil, shared.NewDomainError("INVALID_INPUT", "Only resellers can be placed in a team")
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("EMAIL_EXISTS", "A user with this email already exists")
	}

	user, err := identity.NewUser(req.Email, req.DisplayName, req.Password, role)
	if err != nil {
		return nil, err
	}

	if req.TeamID != nil {
		team, err := s.teamRepo.FindByID(ctx, *req.TeamID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainError("TEAM_NOT_FOUND", "Team not found")
			}
			return nil, err
		}
		if !team.Active {
			return nil, shared.NewDomainError("TEAM_INACTIVE", "Team is inactive")
		}
	}

	err = s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.userRepo.Create(ctx, user); err != nil {
			return err
		}
		if req.TeamID == nil {
			return nil
		}
		return s.memberRepo.Create(ctx, identity.NewDefaultMembership(*req.TeamID, user.ID))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User created",
		zap.String("user_id", user.ID.String()),
		zap.String("primary_role", string(user.PrimaryRole)),
		zap.String("created_by", p.UserID.String()))

	resp := ToUserResponse(user)
	return &resp, nil
}

// Get returns an account to an owner or to the account holder
func (s *UserService) Get(ctx context.Context, p identity.Principal, id uuid.UUID) (*UserResponse, error) {
	if !p.IsOwner() && p.UserID != id {
		return nil, shared.NewDomainError("FORBIDDEN", "You can only view your own account")
	}
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToUserResponse(user)
	return &resp, nil
}

// List returns accounts, optionally by primary role
func (s *UserService) List(ctx context.Context, p identity.Principal, f UserListFilter) ([]UserResponse, int64, error) {
	if !p.IsOwner() {
		return nil, 0, shared.NewDomainError("FORBIDDEN", "Only owners can list users")
	}
	filter := shared.DefaultFilter()
	filter.Search = f.Search
	filter.Page = f.Page
	filter.PageSize = f.PageSize
	filter = filter.Normalize()
	if f.PrimaryRole != "" {
		filter.Filters["primary_role"] = f.PrimaryRole
	}

	users, total, err := s.userRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, ToUserResponse(&users[i]))
	}
	return out, total, nil
}

// Deactivate disables an account. The user's outstanding tokens are
// revoked; the resolver also rejects inactive users on every request, so a
// failed revocation only delays the cut-off until the next lookup.
func (s *UserService) Deactivate(ctx context.Context, p identity.Principal, id uuid.UUID) (*UserResponse, error) {
	if !p.IsOwner() {
		return nil, shared.NewDomainError("FORBIDDEN", "Only owners can deactivate users")
	}
	if p.UserID == id {
		return nil, shared.NewDomainError("CANNOT_DEACTIVATE_SELF", "You cannot deactivate your own account")
	}
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := user.Deactivate(); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to deactivate user: %w", err)
	}

	if err := s.revocations.RevokeUser(ctx, id.String(), s.config.SessionRevokeTTL); err != nil {
		s.logger.Warn("Failed to revoke tokens of deactivated user",
			zap.String("user_id", id.String()),
			zap.Error(err))
	}

	s.logger.Info("User deactivated",
		zap.String("user_id", id.String()),
		zap.String("deactivated_by", p.UserID.String()))

	resp := ToUserResponse(user)
	return &resp, nil
}

// Activate re-enables a deactivated account
func (s *UserService) Activate(ctx context.Context, p identity.Principal, id uuid.UUID) (*UserResponse, error) {
	if !p.IsOwner() {
		return nil, shared.NewDomainError("FORBIDDEN", "Only owners can activate users")
	}
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := user.Activate(); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to activate user: %w", err)
	}
	resp := ToUserResponse(user)
	return &resp, nil
}

// ChangePassword replaces the caller's password after checking the current one
func (s *UserService) ChangePassword(ctx context.Context, p identity.Principal, req ChangePasswordRequest) error {
	user, err := s.userRepo.FindByID(ctx, p.UserID)
	if err != nil {
		return err
	}
	if !user.VerifyPassword(req.CurrentPassword) {
		return shared.NewDomainError("INVALID_CREDENTIALS", "Current password is incorrect")
	}
	if err := user.SetPassword(req.NewPassword); err != nil {
		return err
	}
	return s.userRepo.Update(ctx, user)
}
