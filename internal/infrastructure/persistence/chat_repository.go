package persistence

import (
	"context"
	"time"

	"github.com/fulfildesk/backend/internal/domain/fulfilment"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/fulfildesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormChatRepository implements fulfilment.ChatRepository using GORM
type GormChatRepository struct {
	db *gorm.DB
}

// NewGormChatRepository creates a new GormChatRepository
func NewGormChatRepository(db *gorm.DB) *GormChatRepository {
	return &GormChatRepository{db: db}
}

// Create inserts a message
func (r *GormChatRepository) Create(ctx context.Context, m *fulfilment.ChatMessage) error {
	return conn(ctx, r.db).Create(models.ChatMessageModelFromDomain(m)).Error
}

// FindByOrder lists an order's thread, oldest first
func (r *GormChatRepository) FindByOrder(ctx context.Context, orderID uuid.UUID, filter shared.Filter) ([]fulfilment.ChatMessage, int64, error) {
	filter = filter.Normalize()
	query := conn(ctx, r.db).Model(&models.ChatMessageModel{}).Where("order_id = ?", orderID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.ChatMessageModel
	if err := query.
		Order("created_at ASC").Order("id ASC").
		Offset(filter.Offset()).Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]fulfilment.ChatMessage, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, total, nil
}

// DeleteOlderThan removes up to limit messages created before cutoff
func (r *GormChatRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	if limit <= 0 {
		limit = 500
	}
	db := conn(ctx, r.db)
	sub := db.Model(&models.ChatMessageModel{}).
		Select("id").
		Where("created_at < ?", cutoff.UTC()).
		Order("created_at ASC").
		Limit(limit)
	result := db.Where("id IN (?)", sub).Delete(&models.ChatMessageModel{})
	return result.RowsAffected, result.Error
}

var _ fulfilment.ChatRepository = (*GormChatRepository)(nil)
