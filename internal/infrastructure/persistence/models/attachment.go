package models

import (
	"time"

	"github.com/fulfildesk/backend/internal/domain/attachment"
	"github.com/google/uuid"
)

// AttachmentModel is the persistence model for uploaded files
type AttachmentModel struct {
	AggregateModel
	UploadedByUserID uuid.UUID             `gorm:"type:uuid;not null;index"`
	FileName         string                `gorm:"type:varchar(255);not null"`
	ContentType      string                `gorm:"type:varchar(100);not null"`
	SizeBytes        int64                 `gorm:"not null"`
	StorageKey       string                `gorm:"type:varchar(500);not null;uniqueIndex"`
	Status           attachment.Status     `gorm:"type:varchar(20);not null;index"`
	EntityType       attachment.EntityType `gorm:"type:varchar(20)"`
	EntityID         *uuid.UUID            `gorm:"type:uuid"`
	OrderID          *uuid.UUID            `gorm:"type:uuid;index"`
	LinkedAt         *time.Time
}

// TableName returns the table name for GORM
func (AttachmentModel) TableName() string {
	return "attachments"
}

// ToDomain converts the persistence model to a domain Attachment
func (m *AttachmentModel) ToDomain() *attachment.Attachment {
	return &attachment.Attachment{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		UploadedByUserID:  m.UploadedByUserID,
		FileName:          m.FileName,
		ContentType:       m.ContentType,
		SizeBytes:         m.SizeBytes,
		StorageKey:        m.StorageKey,
		Status:            m.Status,
		EntityType:        m.EntityType,
		EntityID:          m.EntityID,
		OrderID:           m.OrderID,
		LinkedAt:          m.LinkedAt,
	}
}

// AttachmentModelFromDomain creates a persistence model from a domain Attachment
func AttachmentModelFromDomain(a *attachment.Attachment) *AttachmentModel {
	m := &AttachmentModel{
		UploadedByUserID: a.UploadedByUserID,
		FileName:         a.FileName,
		ContentType:      a.ContentType,
		SizeBytes:        a.SizeBytes,
		StorageKey:       a.StorageKey,
		Status:           a.Status,
		EntityType:       a.EntityType,
		EntityID:         a.EntityID,
		OrderID:          a.OrderID,
		LinkedAt:         a.LinkedAt,
	}
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	return m
}
