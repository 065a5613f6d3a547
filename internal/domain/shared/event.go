package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent represents an event that occurred in the domain.
// Events raised by an aggregate are turned into audit log rows by the
// repository in the same transaction that persists the aggregate.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	// ActorID is the user that triggered the event, nil for system actions
	ActorID() *uuid.UUID
	// Metadata is free-form context stored alongside the audit row
	Metadata() map[string]any
}

// BaseDomainEvent provides common fields for all domain events
type BaseDomainEvent struct {
	ID        uuid.UUID      `json:"id"`
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	AggID     uuid.UUID      `json:"aggregate_id"`
	AggType   string         `json:"aggregate_type"`
	Actor     *uuid.UUID     `json:"actor_id,omitempty"`
	Meta      map[string]any `json:"metadata,omitempty"`
}

// EventID returns the unique event identifier
func (e *BaseDomainEvent) EventID() uuid.UUID {
	return e.ID
}

// EventType returns the type of the event
func (e *BaseDomainEvent) EventType() string {
	return e.Type
}

// OccurredAt returns when the event occurred
func (e *BaseDomainEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID returns the ID of the aggregate that produced this event
func (e *BaseDomainEvent) AggregateID() uuid.UUID {
	return e.AggID
}

// AggregateType returns the type of the aggregate
func (e *BaseDomainEvent) AggregateType() string {
	return e.AggType
}

// ActorID returns the acting user, nil for system-triggered events
func (e *BaseDomainEvent) ActorID() *uuid.UUID {
	return e.Actor
}

// Metadata returns the event metadata
func (e *BaseDomainEvent) Metadata() map[string]any {
	return e.Meta
}

// NewBaseDomainEvent creates a new base domain event
func NewBaseDomainEvent(eventType, aggType string, aggID uuid.UUID, actor *uuid.UUID, at time.Time) BaseDomainEvent {
	return BaseDomainEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: at,
		AggID:     aggID,
		AggType:   aggType,
		Actor:     actor,
		Meta:      make(map[string]any),
	}
}
