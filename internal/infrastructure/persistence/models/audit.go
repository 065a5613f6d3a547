package models

import (
	"time"

	"github.com/fulfildesk/backend/internal/domain/audit"
	"github.com/google/uuid"
)

// AuditLogModel is one row of the append-only audit log.
// Rows are only ever inserted; no repository method updates or deletes them.
type AuditLogModel struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey"`
	ActorUserID *uuid.UUID     `gorm:"type:uuid;index"`
	Entity      string         `gorm:"type:varchar(50);not null"`
	EntityID    uuid.UUID      `gorm:"type:uuid;not null"`
	Action      string         `gorm:"type:varchar(50);not null;index"`
	Metadata    map[string]any `gorm:"serializer:json;type:jsonb"`
	OrderID     *uuid.UUID     `gorm:"type:uuid;index:idx_audit_order_created,priority:1"`
	CreatedAt   time.Time      `gorm:"not null;index:idx_audit_order_created,priority:2"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// ToDomain converts the persistence model to a domain audit entry
func (m *AuditLogModel) ToDomain() audit.Entry {
	meta := m.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	return audit.Entry{
		ID:          m.ID,
		ActorUserID: m.ActorUserID,
		Entity:      m.Entity,
		EntityID:    m.EntityID,
		Action:      m.Action,
		Metadata:    meta,
		OrderID:     m.OrderID,
		CreatedAt:   m.CreatedAt,
	}
}

// AuditLogModelFromDomain creates a persistence model from a domain audit entry
func AuditLogModelFromDomain(e audit.Entry) *AuditLogModel {
	id := e.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return &AuditLogModel{
		ID:          id,
		ActorUserID: e.ActorUserID,
		Entity:      e.Entity,
		EntityID:    e.EntityID,
		Action:      e.Action,
		Metadata:    e.Metadata,
		OrderID:     e.OrderID,
		CreatedAt:   createdAt.UTC(),
	}
}
