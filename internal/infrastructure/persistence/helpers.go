package persistence

import (
	"errors"
	"strings"

	"github.com/fulfildesk/backend/internal/domain/audit"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/fulfildesk/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// isUniqueViolation reports whether err is a unique constraint failure.
// Databases opened with TranslateError return gorm.ErrDuplicatedKey; the
// string checks cover connections opened without it.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}

// eventSource is an aggregate whose pending events become audit rows
type eventSource interface {
	GetDomainEvents() []shared.DomainEvent
	ClearDomainEvents()
}

// writeAudit inserts one audit row per pending event of agg on tx, then
// clears the events so a retried save cannot log them twice.
func writeAudit(tx *gorm.DB, agg eventSource) error {
	events := agg.GetDomainEvents()
	if len(events) == 0 {
		return nil
	}
	if err := insertAudit(tx, audit.FromEvents(events)); err != nil {
		return err
	}
	agg.ClearDomainEvents()
	return nil
}

func insertAudit(tx *gorm.DB, entries []audit.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]*models.AuditLogModel, len(entries))
	for i, e := range entries {
		rows[i] = models.AuditLogModelFromDomain(e)
	}
	return tx.Create(rows).Error
}
