package persistence

import (
	"context"

	"github.com/fulfildesk/backend/internal/domain/audit"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/fulfildesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAuditRepository implements audit.Repository using GORM.
// It only inserts and reads; audit rows are never changed once written.
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Append inserts entries, joining the transaction carried by ctx if any
func (r *GormAuditRepository) Append(ctx context.Context, entries ...audit.Entry) error {
	return insertAudit(conn(ctx, r.db), entries)
}

// FindByOrder returns the history of one order, oldest first
func (r *GormAuditRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]audit.Entry, error) {
	var rows []models.AuditLogModel
	if err := conn(ctx, r.db).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toEntries(rows), nil
}

// FindAll lists entries newest first
func (r *GormAuditRepository) FindAll(ctx context.Context, filter shared.Filter) ([]audit.Entry, int64, error) {
	filter = filter.Normalize()
	query := conn(ctx, r.db).Model(&models.AuditLogModel{})
	for key, value := range filter.Filters {
		switch key {
		case "action":
			query = query.Where("action = ?", value)
		case "order_id":
			query = query.Where("order_id = ?", value)
		case "actor_user_id":
			query = query.Where("actor_user_id = ?", value)
		case "entity":
			query = query.Where("entity = ?", value)
		case "from":
			query = query.Where("created_at >= ?", value)
		case "to":
			query = query.Where("created_at < ?", value)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.AuditLogModel
	if err := paginate(query, filter, AuditSortFields).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toEntries(rows), total, nil
}

func toEntries(rows []models.AuditLogModel) []audit.Entry {
	out := make([]audit.Entry, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

var _ audit.Repository = (*GormAuditRepository)(nil)
