package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/fulfildesk/backend/internal/domain/category"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/fulfildesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCategoryRepository implements category.Repository using GORM
type GormCategoryRepository struct {
	db *gorm.DB
}

// NewGormCategoryRepository creates a new GormCategoryRepository
func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

// Create inserts a new category
func (r *GormCategoryRepository) Create(ctx context.Context, c *category.Category) error {
	if err := conn(ctx, r.db).Create(models.CategoryModelFromDomain(c)).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError("CATEGORY_EXISTS", "A category with this name already exists")
		}
		return err
	}
	return nil
}

// Update saves a category using optimistic locking
func (r *GormCategoryRepository) Update(ctx context.Context, c *category.Category) error {
	expected := c.Version
	c.Version++
	model := models.CategoryModelFromDomain(c)
	result := conn(ctx, r.db).Model(model).
		Where("version = ?", expected).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		c.Version = expected
		if isUniqueViolation(result.Error) {
			return shared.NewDomainError("CATEGORY_EXISTS", "A category with this name already exists")
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		c.Version = expected
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID finds a category by ID
func (r *GormCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*category.Category, error) {
	var model models.CategoryModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists categories matching the filter
func (r *GormCategoryRepository) FindAll(ctx context.Context, filter shared.Filter) ([]category.Category, int64, error) {
	filter = filter.Normalize()
	query := conn(ctx, r.db).Model(&models.CategoryModel{})
	if filter.Search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}
	if v, ok := filter.Filters["active"]; ok {
		query = query.Where("active = ?", v)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "name"
		filter.OrderDir = "asc"
	}
	var rows []models.CategoryModel
	if err := paginate(query, filter, CategorySortFields).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]category.Category, len(rows))
	for i, m := range rows {
		out[i] = *m.ToDomain()
	}
	return out, total, nil
}

// ExistsByName checks whether a category with the name exists, ignoring case
func (r *GormCategoryRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&models.CategoryModel{}).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

var _ category.Repository = (*GormCategoryRepository)(nil)
