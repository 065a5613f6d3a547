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

// GormTeamRepository implements identity.TeamRepository using GORM
type GormTeamRepository struct {
	db *gorm.DB
}

// NewGormTeamRepository creates a new GormTeamRepository
func NewGormTeamRepository(db *gorm.DB) *GormTeamRepository {
	return &GormTeamRepository{db: db}
}

// Create inserts a new team
func (r *GormTeamRepository) Create(ctx context.Context, team *identity.Team) error {
	return conn(ctx, r.db).Create(models.TeamModelFromDomain(team)).Error
}

// Update saves a team using optimistic locking
func (r *GormTeamRepository) Update(ctx context.Context, team *identity.Team) error {
	expected := team.Version
	team.Version++
	model := models.TeamModelFromDomain(team)
	result := conn(ctx, r.db).Model(model).
		Where("version = ?", expected).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil || result.RowsAffected == 0 {
		team.Version = expected
		if result.Error != nil {
			return result.Error
		}
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID finds a team by ID
func (r *GormTeamRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Team, error) {
	var model models.TeamModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists teams; filter "active" narrows the result
func (r *GormTeamRepository) FindAll(ctx context.Context, filter shared.Filter) ([]identity.Team, int64, error) {
	filter = filter.Normalize()
	query := conn(ctx, r.db).Model(&models.TeamModel{})
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
	var rows []models.TeamModel
	if err := paginate(query, filter, TeamSortFields).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	teams := make([]identity.Team, len(rows))
	for i, m := range rows {
		teams[i] = *m.ToDomain()
	}
	return teams, total, nil
}

var _ identity.TeamRepository = (*GormTeamRepository)(nil)
