package persistence

import (
	"context"
	"errors"

	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/fulfildesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMemberRepository implements identity.MemberRepository using GORM
type GormMemberRepository struct {
	db *gorm.DB
}

// NewGormMemberRepository creates a new GormMemberRepository
func NewGormMemberRepository(db *gorm.DB) *GormMemberRepository {
	return &GormMemberRepository{db: db}
}

// Create inserts a membership together with its audit rows
func (r *GormMemberRepository) Create(ctx context.Context, member *identity.Membership) error {
	return inTx(ctx, r.db, func(tx *gorm.DB) error {
		if err := tx.Create(models.MembershipModelFromDomain(member)).Error; err != nil {
			if isUniqueViolation(err) {
				return shared.NewDomainError("MEMBERSHIP_EXISTS", "User already has a membership in this team or another active membership")
			}
			return err
		}
		return writeAudit(tx, member)
	})
}

// SaveWithLock updates a membership if its version is unchanged since load
func (r *GormMemberRepository) SaveWithLock(ctx context.Context, member *identity.Membership) error {
	expected := member.Version
	member.Version++
	err := inTx(ctx, r.db, func(tx *gorm.DB) error {
		model := models.MembershipModelFromDomain(member)
		result := tx.Model(model).
			Where("version = ?", expected).
			Select("*").Omit("id", "created_at").
			Updates(model)
		if result.Error != nil {
			if isUniqueViolation(result.Error) {
				return shared.NewDomainError("MEMBERSHIP_EXISTS", "User already has another active membership")
			}
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		return writeAudit(tx, member)
	})
	if err != nil {
		member.Version = expected
	}
	return err
}

// FindByID finds a membership by ID
func (r *GormMemberRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Membership, error) {
	return r.first(conn(ctx, r.db).Where("id = ?", id))
}

// FindActiveByUser returns the user's active membership
func (r *GormMemberRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*identity.Membership, error) {
	return r.first(conn(ctx, r.db).Where("user_id = ? AND is_active = ?", userID, true))
}

// FindByTeamAndUser finds the membership of a user in a team
func (r *GormMemberRepository) FindByTeamAndUser(ctx context.Context, teamID, userID uuid.UUID) (*identity.Membership, error) {
	return r.first(conn(ctx, r.db).Where("team_id = ? AND user_id = ?", teamID, userID))
}

// FindByTeam lists the memberships of a team; filter "status" narrows the result
func (r *GormMemberRepository) FindByTeam(ctx context.Context, teamID uuid.UUID, filter shared.Filter) ([]identity.Membership, int64, error) {
	filter = filter.Normalize()
	query := conn(ctx, r.db).Model(&models.MembershipModel{}).Where("team_id = ?", teamID)
	if v, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", v)
	}
	if v, ok := filter.Filters["is_active"]; ok {
		query = query.Where("is_active = ?", v)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.MembershipModel
	if err := paginate(query, filter, MemberSortFields).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toMemberships(rows), total, nil
}

// FindByUser lists every membership of a user, newest first
func (r *GormMemberRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]identity.Membership, error) {
	var rows []models.MembershipModel
	if err := conn(ctx, r.db).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toMemberships(rows), nil
}

func (r *GormMemberRepository) first(query *gorm.DB) (*identity.Membership, error) {
	var model models.MembershipModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

func toMemberships(rows []models.MembershipModel) []identity.Membership {
	out := make([]identity.Membership, len(rows))
	for i, m := range rows {
		out[i] = *m.ToDomain()
	}
	return out
}

var _ identity.MemberRepository = (*GormMemberRepository)(nil)
