package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/fulfildesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormUserRepository implements identity.UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *identity.User) error {
	model := models.UserModelFromDomain(user)
	if err := conn(ctx, r.db).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError("EMAIL_EXISTS", "Email is already registered")
		}
		return err
	}
	return nil
}

// Update updates an existing user using optimistic locking
func (r *GormUserRepository) Update(ctx context.Context, user *identity.User) error {
	expected := user.Version
	user.Version++
	model := models.UserModelFromDomain(user)
	result := conn(ctx, r.db).
		Model(model).
		Where("version = ?", expected).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		user.Version = expected
		return result.Error
	}
	if result.RowsAffected == 0 {
		user.Version = expected
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	var model models.UserModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByEmail finds a user by email, case-insensitively
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	var model models.UserModel
	if err := conn(ctx, r.db).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists users matching the filter
func (r *GormUserRepository) FindAll(ctx context.Context, filter shared.Filter) ([]identity.User, int64, error) {
	filter = filter.Normalize()
	query := conn(ctx, r.db).Model(&models.UserModel{})
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(display_name) LIKE ?", pattern, pattern)
	}
	for key, value := range filter.Filters {
		switch key {
		case "primary_role":
			query = query.Where("primary_role = ?", value)
		case "active":
			query = query.Where("active = ?", value)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var userModels []models.UserModel
	if err := paginate(query, filter, UserSortFields).Find(&userModels).Error; err != nil {
		return nil, 0, err
	}
	users := make([]identity.User, len(userModels))
	for i, m := range userModels {
		users[i] = *m.ToDomain()
	}
	return users, total, nil
}

// ExistsByEmail checks if an email is already registered
func (r *GormUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&models.UserModel{}).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

var _ identity.UserRepository = (*GormUserRepository)(nil)
