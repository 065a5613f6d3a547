// Package audit holds the append-only log of state transitions and other
// significant events. Rows are written by repositories in the transaction
// that changes the audited record and are never updated or deleted.
package audit

import (
	"context"
	"time"

	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Order lifecycle actions
const (
	ActionOrderCreated         = "order_created"
	ActionOrderPicked          = "order_picked"
	ActionOrderPassed          = "order_passed"
	ActionOrderInProgress      = "order_in_progress"
	ActionOrderHold            = "order_hold"
	ActionOrderResume          = "order_resume"
	ActionOrderFulfilSubmitted = "order_fulfil_submitted"
	ActionOrderCompleted       = "order_completed"
	ActionOrderDisputed        = "order_disputed"
	ActionOrderDisputeResolved = "order_dispute_resolved"
	ActionOrderAutoCancelled   = "order_auto_cancelled"
	ActionOrderAccessChanged   = "order_access_changed"
)

// Entry is one audit log row
type Entry struct {
	ID          uuid.UUID
	ActorUserID *uuid.UUID
	Entity      string
	EntityID    uuid.UUID
	Action      string
	Metadata    map[string]any
	OrderID     *uuid.UUID
	CreatedAt   time.Time
}

// FromEvent converts a domain event into an audit entry
func FromEvent(e shared.DomainEvent) Entry {
	entry := Entry{
		ID:          e.EventID(),
		ActorUserID: e.ActorID(),
		Entity:      e.AggregateType(),
		EntityID:    e.AggregateID(),
		Action:      e.EventType(),
		Metadata:    e.Metadata(),
		CreatedAt:   e.OccurredAt(),
	}
	if entry.Metadata == nil {
		entry.Metadata = map[string]any{}
	}
	if e.AggregateType() == "order" {
		id := e.AggregateID()
		entry.OrderID = &id
	} else if raw, ok := entry.Metadata["order_id"].(string); ok {
		if id, err := uuid.Parse(raw); err == nil {
			entry.OrderID = &id
		}
	}
	return entry
}

// FromEvents converts a batch of domain events
func FromEvents(events []shared.DomainEvent) []Entry {
	entries := make([]Entry, 0, len(events))
	for _, e := range events {
		entries = append(entries, FromEvent(e))
	}
	return entries
}

// Repository reads and appends audit entries. There is no update or delete.
type Repository interface {
	// Append inserts entries, joining the transaction carried by ctx if any
	Append(ctx context.Context, entries ...Entry) error

	// FindByOrder returns the history of one order, oldest first
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]Entry, error)

	// FindAll lists entries newest first; filters "action", "order_id",
	// "actor_user_id" and "entity" narrow the result
	FindAll(ctx context.Context, filter shared.Filter) ([]Entry, int64, error)
}
