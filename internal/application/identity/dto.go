package identity

import (
	"time"

	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// LoginRequest contains the credentials for sign-in
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=200"`
	Password string `json:"password" binding:"required,min=1,max=72"`
}

// RefreshRequest carries a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest optionally carries the refresh token to revoke with the
// access token
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse is returned by login and refresh
type TokenResponse struct {
	AccessToken           string        `json:"access_token"`
	RefreshToken          string        `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time     `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time     `json:"refresh_token_expires_at"`
	TokenType             string        `json:"token_type"`
	User                  *UserResponse `json:"user,omitempty"`
}

// CreateUserRequest creates an account. TeamID places a reseller into the
// team as a default member.
type CreateUserRequest struct {
	Email       string     `json:"email" binding:"required,email,max=200"`
	DisplayName string     `json:"display_name" binding:"required,min=1,max=100"`
	Password    string     `json:"password" binding:"required,min=8,max=72"`
	PrimaryRole string     `json:"primary_role" binding:"required,oneof=owner staff reseller"`
	TeamID      *uuid.UUID `json:"team_id"`
}

// ChangePasswordRequest replaces the caller's password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
}

// UserListFilter narrows the owner's user listing
type UserListFilter struct {
	Search      string `form:"search" binding:"omitempty,max=100"`
	PrimaryRole string `form:"primary_role" binding:"omitempty,oneof=owner staff reseller"`
	Page        int    `form:"page" binding:"omitempty,min=1"`
	PageSize    int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	PrimaryRole string     `json:"primary_role"`
	Active      bool       `json:"active"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// MeResponse describes the caller and their resolved role
type MeResponse struct {
	User   UserResponse `json:"user"`
	Role   string       `json:"role"`
	TeamID *uuid.UUID   `json:"team_id"`
}

// CreateTeamRequest creates a team with its first admin
type CreateTeamRequest struct {
	Name        string    `json:"name" binding:"required,min=1,max=120"`
	AdminUserID uuid.UUID `json:"admin_user_id" binding:"required"`
}

// RenameTeamRequest changes a team's name
type RenameTeamRequest struct {
	Name string `json:"name" binding:"required,min=1,max=120"`
}

// TeamResponse represents a team in API responses
type TeamResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	CreatedByUserID uuid.UUID `json:"created_by_user_id"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
}

// InviteMemberRequest invites a reseller into a team
type InviteMemberRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	Role   string    `json:"role" binding:"required,oneof=admin member"`
}

// ChangeMemberRoleRequest switches a member between admin and member
type ChangeMemberRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin member"`
}

// MemberListFilter narrows a team's member listing
type MemberListFilter struct {
	Status   string `form:"status" binding:"omitempty,oneof=pending_invitation active_member suspended_member default_member"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// MemberResponse represents a membership in API responses
type MemberResponse struct {
	ID              uuid.UUID  `json:"id"`
	TeamID          uuid.UUID  `json:"team_id"`
	UserID          uuid.UUID  `json:"user_id"`
	Role            string     `json:"role"`
	Status          string     `json:"status"`
	IsActive        bool       `json:"is_active"`
	IsBlocked       bool       `json:"is_blocked"`
	InvitedByUserID *uuid.UUID `json:"invited_by_user_id"`
	JoinedAt        *time.Time `json:"joined_at"`
	CreatedAt       time.Time  `json:"created_at"`
	Version         int        `json:"version"`
}

// ToUserResponse converts a domain user; the password hash never leaves
// the service layer
func ToUserResponse(u *identity.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		PrimaryRole: string(u.PrimaryRole),
		Active:      u.Active,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// ToTeamResponse converts a domain team
func ToTeamResponse(t *identity.Team) TeamResponse {
	return TeamResponse{
		ID:              t.ID,
		Name:            t.Name,
		CreatedByUserID: t.CreatedByUserID,
		Active:          t.Active,
		CreatedAt:       t.CreatedAt,
	}
}

// ToMemberResponse converts a domain membership
func ToMemberResponse(m *identity.Membership) MemberResponse {
	return MemberResponse{
		ID:              m.ID,
		TeamID:          m.TeamID,
		UserID:          m.UserID,
		Role:            string(m.Role),
		Status:          string(m.Status),
		IsActive:        m.IsActive,
		IsBlocked:       m.IsBlocked,
		InvitedByUserID: m.InvitedByUserID,
		JoinedAt:        m.JoinedAt,
		CreatedAt:       m.CreatedAt,
		Version:         m.Version,
	}
}
