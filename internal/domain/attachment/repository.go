package attachment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for attachment metadata persistence
type Repository interface {
	// Create inserts a new attachment
	Create(ctx context.Context, a *Attachment) error

	// Save updates an attachment using optimistic locking
	Save(ctx context.Context, a *Attachment) error

	// FindByID finds an attachment by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Attachment, error)

	// FindByIDs returns the attachments with the given IDs; missing IDs are
	// simply absent from the result
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Attachment, error)

	// FindByOrder lists linked attachments of an order
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]Attachment, error)

	// FindOrphans returns unlinked attachments created before cutoff
	FindOrphans(ctx context.Context, cutoff time.Time, limit int) ([]Attachment, error)
}
