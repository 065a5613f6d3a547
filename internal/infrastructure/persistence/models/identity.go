package models

import (
	"time"

	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// UserModel is the persistence model for the User domain entity.
type UserModel struct {
	AggregateModel
	Email        string               `gorm:"type:varchar(200);not null;uniqueIndex"`
	DisplayName  string               `gorm:"type:varchar(200);not null"`
	PasswordHash string               `gorm:"type:varchar(255);not null"`
	PrimaryRole  identity.PrimaryRole `gorm:"type:varchar(20);not null;index"`
	Active       bool                 `gorm:"not null;default:true"`
	LastLoginAt  *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User entity.
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Email:             m.Email,
		DisplayName:       m.DisplayName,
		PasswordHash:      m.PasswordHash,
		PrimaryRole:       m.PrimaryRole,
		Active:            m.Active,
		LastLoginAt:       m.LastLoginAt,
	}
}

// UserModelFromDomain creates a persistence model from a domain User entity.
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		PasswordHash: u.PasswordHash,
		PrimaryRole:  u.PrimaryRole,
		Active:       u.Active,
		LastLoginAt:  u.LastLoginAt,
	}
	m.FromDomainAggregateRoot(u.BaseAggregateRoot)
	return m
}

// TeamModel is the persistence model for reseller teams
type TeamModel struct {
	AggregateModel
	Name            string    `gorm:"type:varchar(200);not null"`
	CreatedByUserID uuid.UUID `gorm:"type:uuid;not null"`
	Active          bool      `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (TeamModel) TableName() string {
	return "teams"
}

// ToDomain converts the persistence model to a domain Team
func (m *TeamModel) ToDomain() *identity.Team {
	return &identity.Team{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Name:              m.Name,
		CreatedByUserID:   m.CreatedByUserID,
		Active:            m.Active,
	}
}

// TeamModelFromDomain creates a persistence model from a domain Team
func TeamModelFromDomain(t *identity.Team) *TeamModel {
	m := &TeamModel{
		Name:            t.Name,
		CreatedByUserID: t.CreatedByUserID,
		Active:          t.Active,
	}
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	return m
}

// MembershipModel is the persistence model for reseller team memberships.
// The migration adds a partial unique index so a user has at most one
// membership with is_active set.
type MembershipModel struct {
	AggregateModel
	TeamID          uuid.UUID             `gorm:"type:uuid;not null;index;uniqueIndex:idx_member_team_user,priority:1"`
	UserID          uuid.UUID             `gorm:"type:uuid;not null;index;uniqueIndex:idx_member_team_user,priority:2"`
	Role            identity.MemberRole   `gorm:"type:varchar(20);not null"`
	Status          identity.MemberStatus `gorm:"type:varchar(30);not null"`
	IsActive        bool                  `gorm:"not null;default:false"`
	IsBlocked       bool                  `gorm:"not null;default:false"`
	InvitedByUserID *uuid.UUID            `gorm:"type:uuid"`
	JoinedAt        *time.Time
}

// TableName returns the table name for GORM
func (MembershipModel) TableName() string {
	return "reseller_members"
}

// ToDomain converts the persistence model to a domain Membership
func (m *MembershipModel) ToDomain() *identity.Membership {
	return &identity.Membership{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		TeamID:            m.TeamID,
		UserID:            m.UserID,
		Role:              m.Role,
		Status:            m.Status,
		IsActive:          m.IsActive,
		IsBlocked:         m.IsBlocked,
		InvitedByUserID:   m.InvitedByUserID,
		JoinedAt:          m.JoinedAt,
	}
}

// MembershipModelFromDomain creates a persistence model from a domain Membership
func MembershipModelFromDomain(mb *identity.Membership) *MembershipModel {
	m := &MembershipModel{
		TeamID:          mb.TeamID,
		UserID:          mb.UserID,
		Role:            mb.Role,
		Status:          mb.Status,
		IsActive:        mb.IsActive,
		IsBlocked:       mb.IsBlocked,
		InvitedByUserID: mb.InvitedByUserID,
		JoinedAt:        mb.JoinedAt,
	}
	m.FromDomainAggregateRoot(mb.BaseAggregateRoot)
	return m
}
