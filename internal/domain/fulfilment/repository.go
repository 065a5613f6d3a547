package fulfilment

import (
	"context"
	"time"

	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderQuery narrows order listings. Zero values mean "no restriction".
type OrderQuery struct {
	Statuses   []OrderStatus
	TeamID     *uuid.UUID
	CategoryID *uuid.UUID
	CreatedBy  *uuid.UUID
	PickedBy   *uuid.UUID
	// Unpicked restricts to orders with no picking staff member
	Unpicked bool
	// NotPassedBy hides orders the given staff member declined
	NotPassedBy *uuid.UUID
	// VisibleTo matches orders where the user is the creator or is on either
	// explicit access list
	VisibleTo *uuid.UUID
	// VisibleTeamID widens VisibleTo to every order of the team
	VisibleTeamID *uuid.UUID
	Filter        shared.Filter
}

// OrderRepository defines the interface for order persistence.
// Create and SaveWithLock write the order's pending domain events to the
// audit log in the same transaction as the order row.
type OrderRepository interface {
	// FindByID finds an order by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindAll lists orders matching q, newest first by default
	FindAll(ctx context.Context, q OrderQuery) ([]Order, int64, error)

	// FindStaleSubmitted returns unpicked submitted orders created before cutoff
	FindStaleSubmitted(ctx context.Context, cutoff time.Time, limit int) ([]Order, error)

	// CountByStatus counts orders per status
	CountByStatus(ctx context.Context) (map[OrderStatus]int64, error)

	// Create inserts a new order
	Create(ctx context.Context, order *Order) error

	// SaveWithLock updates the order only if its stored version still equals
	// the version it was loaded with. A lost race yields
	// shared.ErrConcurrencyConflict and nothing is written.
	SaveWithLock(ctx context.Context, order *Order) error
}

// DisputeRepository defines the interface for dispute persistence
type DisputeRepository interface {
	// Create inserts a new dispute
	Create(ctx context.Context, d *Dispute) error

	// SaveWithLock updates a dispute using optimistic locking
	SaveWithLock(ctx context.Context, d *Dispute) error

	// FindByID finds a dispute by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Dispute, error)

	// FindByOrder lists the disputes of an order, oldest first
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]Dispute, error)

	// FindAll lists disputes; filters "status" and "team_id" narrow the result
	FindAll(ctx context.Context, filter shared.Filter) ([]Dispute, int64, error)

	// CountOpenByOrder counts open disputes of an order
	CountOpenByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
}

// ChatRepository defines the interface for chat message persistence
type ChatRepository interface {
	// Create inserts a message
	Create(ctx context.Context, m *ChatMessage) error

	// FindByOrder lists an order's thread, oldest first
	FindByOrder(ctx context.Context, orderID uuid.UUID, filter shared.Filter) ([]ChatMessage, int64, error)

	// DeleteOlderThan removes up to limit messages created before cutoff and
	// returns the number removed
	DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}
