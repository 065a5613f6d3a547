package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/fulfildesk/backend/internal/domain/attachment"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/fulfildesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAttachmentRepository implements attachment.Repository using GORM
type GormAttachmentRepository struct {
	db *gorm.DB
}

// NewGormAttachmentRepository creates a new GormAttachmentRepository
func NewGormAttachmentRepository(db *gorm.DB) *GormAttachmentRepository {
	return &GormAttachmentRepository{db: db}
}

// Create inserts a new attachment record
func (r *GormAttachmentRepository) Create(ctx context.Context, a *attachment.Attachment) error {
	return conn(ctx, r.db).Create(models.AttachmentModelFromDomain(a)).Error
}

// Save updates an attachment using optimistic locking
func (r *GormAttachmentRepository) Save(ctx context.Context, a *attachment.Attachment) error {
	expected := a.Version
	a.Version++
	model := models.AttachmentModelFromDomain(a)
	result := conn(ctx, r.db).Model(model).
		Where("version = ?", expected).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		a.Version = expected
		return result.Error
	}
	if result.RowsAffected == 0 {
		a.Version = expected
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID finds an attachment by ID
func (r *GormAttachmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*attachment.Attachment, error) {
	var model models.AttachmentModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs returns the attachments with the given IDs
func (r *GormAttachmentRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]attachment.Attachment, error) {
	if len(ids) == 0 {
		return []attachment.Attachment{}, nil
	}
	var rows []models.AttachmentModel
	if err := conn(ctx, r.db).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toAttachments(rows), nil
}

// FindByOrder lists linked attachments of an order
func (r *GormAttachmentRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]attachment.Attachment, error) {
	var rows []models.AttachmentModel
	if err := conn(ctx, r.db).
		Where("order_id = ? AND status = ?", orderID, attachment.StatusLinked).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toAttachments(rows), nil
}

// FindOrphans returns unlinked attachments created before cutoff, oldest first
func (r *GormAttachmentRepository) FindOrphans(ctx context.Context, cutoff time.Time, limit int) ([]attachment.Attachment, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.AttachmentModel
	if err := conn(ctx, r.db).
		Where("status = ? AND created_at < ?", attachment.StatusUnlinked, cutoff.UTC()).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toAttachments(rows), nil
}

func toAttachments(rows []models.AttachmentModel) []attachment.Attachment {
	out := make([]attachment.Attachment, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

var _ attachment.Repository = (*GormAttachmentRepository)(nil)
