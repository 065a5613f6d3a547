package identity

import (
	"context"

	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// Create inserts a new user
	Create(ctx context.Context, user *User) error

	// Update persists changes to an existing user
	Update(ctx context.Context, user *User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindByEmail finds a user by normalized email
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindAll lists users, optionally filtered by "primary_role"
	FindAll(ctx context.Context, filter shared.Filter) ([]User, int64, error)

	// ExistsByEmail checks if an email is already registered
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// TeamRepository defines the interface for team persistence
type TeamRepository interface {
	Create(ctx context.Context, team *Team) error
	Update(ctx context.Context, team *Team) error
	FindByID(ctx context.Context, id uuid.UUID) (*Team, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Team, int64, error)
}

// MemberRepository defines the interface for reseller membership persistence.
// Save and Create write the aggregate's pending events to the audit log in
// the same transaction.
type MemberRepository interface {
	// Create inserts a membership
	Create(ctx context.Context, member *Membership) error

	// SaveWithLock updates a membership using optimistic locking
	SaveWithLock(ctx context.Context, member *Membership) error

	// FindByID finds a membership by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Membership, error)

	// FindActiveByUser returns the user's single active membership, or
	// shared.ErrNotFound when there is none
	FindActiveByUser(ctx context.Context, userID uuid.UUID) (*Membership, error)

	// FindByTeamAndUser finds the membership of a user in a team
	FindByTeamAndUser(ctx context.Context, teamID, userID uuid.UUID) (*Membership, error)

	// FindByTeam lists the memberships of a team
	FindByTeam(ctx context.Context, teamID uuid.UUID, filter shared.Filter) ([]Membership, int64, error)

	// FindByUser lists every membership of a user, newest first
	FindByUser(ctx context.Context, userID uuid.UUID) ([]Membership, error)
}
