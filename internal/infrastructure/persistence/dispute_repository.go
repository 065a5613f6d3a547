package persistence

import (
	"context"
	"errors"

	"github.com/fulfildesk/backend/internal/domain/fulfilment"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/fulfildesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDisputeRepository implements fulfilment.DisputeRepository using GORM
type GormDisputeRepository struct {
	db *gorm.DB
}

// NewGormDisputeRepository creates a new GormDisputeRepository
func NewGormDisputeRepository(db *gorm.DB) *GormDisputeRepository {
	return &GormDisputeRepository{db: db}
}

// Create inserts a new dispute
func (r *GormDisputeRepository) Create(ctx context.Context, d *fulfilment.Dispute) error {
	return conn(ctx, r.db).Create(models.DisputeModelFromDomain(d)).Error
}

// SaveWithLock updates a dispute using optimistic locking
func (r *GormDisputeRepository) SaveWithLock(ctx context.Context, d *fulfilment.Dispute) error {
	expected := d.Version
	d.Version++
	model := models.DisputeModelFromDomain(d)
	result := conn(ctx, r.db).Model(model).
		Where("version = ?", expected).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		d.Version = expected
		return result.Error
	}
	if result.RowsAffected == 0 {
		d.Version = expected
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID finds a dispute by ID
func (r *GormDisputeRepository) FindByID(ctx context.Context, id uuid.UUID) (*fulfilment.Dispute, error) {
	var model models.DisputeModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOrder lists the disputes of an order, oldest first
func (r *GormDisputeRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]fulfilment.Dispute, error) {
	var rows []models.DisputeModel
	if err := conn(ctx, r.db).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDisputes(rows), nil
}

// FindAll lists disputes; filters "status", "team_id" and "order_id" narrow the result
func (r *GormDisputeRepository) FindAll(ctx context.Context, filter shared.Filter) ([]fulfilment.Dispute, int64, error) {
	filter = filter.Normalize()
	query := conn(ctx, r.db).Model(&models.DisputeModel{})
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "team_id":
			query = query.Where("team_id = ?", value)
		case "order_id":
			query = query.Where("order_id = ?", value)
		case "raised_by_user_id":
			query = query.Where("raised_by_user_id = ?", value)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.DisputeModel
	if err := paginate(query, filter, DisputeSortFields).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toDisputes(rows), total, nil
}

// CountOpenByOrder counts open disputes of an order
func (r *GormDisputeRepository) CountOpenByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.DisputeModel{}).
		Where("order_id = ? AND status = ?", orderID, fulfilment.DisputeStatusOpen).
		Count(&count).Error
	return count, err
}

func toDisputes(rows []models.DisputeModel) []fulfilment.Dispute {
	out := make([]fulfilment.Dispute, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

var _ fulfilment.DisputeRepository = (*GormDisputeRepository)(nil)
