package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/fulfildesk/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// PrimaryRole is the role a user account is created with. It does not change
// in normal operation.
type PrimaryRole string

const (
	PrimaryRoleOwner    PrimaryRole = "owner"
	PrimaryRoleStaff    PrimaryRole = "staff"
	PrimaryRoleReseller PrimaryRole = "reseller"
)

// IsValid checks if the primary role is known
func (r PrimaryRole) IsValid() bool {
	switch r {
	case PrimaryRoleOwner, PrimaryRoleStaff, PrimaryRoleReseller:
		return true
	default:
		return false
	}
}

// Password cost for bcrypt
const bcryptCost = 12

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// User is an account that can sign in
type User struct {
	shared.BaseAggregateRoot
	Email        string
	DisplayName  string
	PasswordHash string
	PrimaryRole  PrimaryRole
	Active       bool
	LastLoginAt  *time.Time
}

// NewUser creates an active user with a hashed password
func NewUser(email, displayName, password string, role PrimaryRole) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Role must be one of owner, staff, reseller")
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, shared.NewDomainError("INVALID_DISPLAY_NAME", "Display name cannot be empty")
	}
	if len(displayName) > 100 {
		return nil, shared.NewDomainError("INVALID_DISPLAY_NAME", "Display name cannot exceed 100 characters")
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	return &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Email:             email,
		DisplayName:       displayName,
		PasswordHash:      hash,
		PrimaryRole:       role,
		Active:            true,
	}, nil
}

// VerifyPassword checks a plaintext password against the stored hash
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// SetPassword replaces the password hash
func (u *User) SetPassword(password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	u.PasswordHash = hash
	u.Touch(time.Now().UTC())
	return nil
}

// Deactivate disables sign-in and every role-derived permission
func (u *User) Deactivate() error {
	if !u.Active {
		return shared.NewDomainError("ALREADY_INACTIVE", "User is already inactive")
	}
	u.Active = false
	u.Touch(time.Now().UTC())
	return nil
}

// Activate re-enables a deactivated user
func (u *User) Activate() error {
	if u.Active {
		return shared.NewDomainError("ALREADY_ACTIVE", "User is already active")
	}
	u.Active = true
	u.Touch(time.Now().UTC())
	return nil
}

// RecordLogin stamps the last successful sign-in
func (u *User) RecordLogin(at time.Time) {
	u.LastLoginAt = &at
}

func validateEmail(email string) error {
	if email == "" {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot be empty")
	}
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
