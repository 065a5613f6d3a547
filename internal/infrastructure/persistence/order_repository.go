package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fulfildesk/backend/internal/domain/fulfilment"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/fulfildesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements fulfilment.OrderRepository using GORM.
//
// Every write runs in one transaction: the order row, its pass and access
// child rows and the audit rows for the order's pending events either all
// commit or none do.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order by ID with its passes and access lists
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*fulfilment.Order, error) {
	var model models.OrderModel
	if err := r.preload(conn(ctx, r.db)).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists orders matching q
func (r *GormOrderRepository) FindAll(ctx context.Context, q fulfilment.OrderQuery) ([]fulfilment.Order, int64, error) {
	filter := q.Filter.Normalize()
	query := r.applyQuery(conn(ctx, r.db).Model(&models.OrderModel{}), q)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.OrderModel
	if err := r.preload(paginate(query, filter, OrderSortFields)).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toOrders(rows), total, nil
}

// FindStaleSubmitted returns unpicked submitted orders created before cutoff,
// oldest first
func (r *GormOrderRepository) FindStaleSubmitted(ctx context.Context, cutoff time.Time, limit int) ([]fulfilment.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.OrderModel
	if err := r.preload(conn(ctx, r.db)).
		Where("status = ? AND picked_by_staff_user_id IS NULL AND created_at < ?",
			fulfilment.OrderStatusSubmitted, cutoff.UTC()).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toOrders(rows), nil
}

// CountByStatus counts orders per status
func (r *GormOrderRepository) CountByStatus(ctx context.Context) (map[fulfilment.OrderStatus]int64, error) {
	var rows []struct {
		Status fulfilment.OrderStatus
		Count  int64
	}
	if err := conn(ctx, r.db).Model(&models.OrderModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[fulfilment.OrderStatus]int64, len(fulfilment.AllOrderStatuses))
	for _, s := range fulfilment.AllOrderStatuses {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Create inserts a new order
func (r *GormOrderRepository) Create(ctx context.Context, order *fulfilment.Order) error {
	return inTx(ctx, r.db, func(tx *gorm.DB) error {
		model := models.OrderModelFromDomain(order)
		if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
			return err
		}
		if err := r.syncChildren(tx, model); err != nil {
			return err
		}
		return writeAudit(tx, order)
	})
}

// SaveWithLock writes the order if nobody else saved it since it was loaded.
// The version check and the write are one UPDATE statement, so of two
// concurrent transitions on the same order exactly one succeeds.
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, order *fulfilment.Order) error {
	expected := order.Version
	order.Version++
	err := inTx(ctx, r.db, func(tx *gorm.DB) error {
		model := models.OrderModelFromDomain(order)
		result := tx.Model(model).
			Where("version = ?", expected).
			Select("*").Omit("id", "created_at", clause.Associations).
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		if err := r.syncChildren(tx, model); err != nil {
			return err
		}
		return writeAudit(tx, order)
	})
	if err != nil {
		order.Version = expected
	}
	return err
}

// syncChildren brings order_passes and order_access in line with the model.
// Passes are append-only, so existing rows are kept; the access lists are
// small and rewritten wholesale.
func (r *GormOrderRepository) syncChildren(tx *gorm.DB, model *models.OrderModel) error {
	if len(model.Passes) > 0 {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.Passes).Error; err != nil {
			return err
		}
	}
	if err := tx.Where("order_id = ?", model.ID).Delete(&models.OrderAccessModel{}).Error; err != nil {
		return err
	}
	if len(model.Access) > 0 {
		if err := tx.Create(&model.Access).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *GormOrderRepository) preload(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Passes", func(db *gorm.DB) *gorm.DB { return db.Order("passed_at ASC") }).
		Preload("Access")
}

func (r *GormOrderRepository) applyQuery(query *gorm.DB, q fulfilment.OrderQuery) *gorm.DB {
	if len(q.Statuses) > 0 {
		query = query.Where("status IN ?", q.Statuses)
	}
	if q.TeamID != nil {
		query = query.Where("team_id = ?", *q.TeamID)
	}
	if q.CategoryID != nil {
		query = query.Where("category_id = ?", *q.CategoryID)
	}
	if q.CreatedBy != nil {
		query = query.Where("created_by_user_id = ?", *q.CreatedBy)
	}
	if q.PickedBy != nil {
		query = query.Where("picked_by_staff_user_id = ?", *q.PickedBy)
	}
	if q.Unpicked {
		query = query.Where("picked_by_staff_user_id IS NULL")
	}
	if q.NotPassedBy != nil {
		query = query.Where(
			"NOT EXISTS (SELECT 1 FROM order_passes p WHERE p.order_id = orders.id AND p.user_id = ?)",
			*q.NotPassedBy)
	}
	if q.VisibleTo != nil {
		visible := r.db.
			Where("orders.created_by_user_id = ?", *q.VisibleTo).
			Or("EXISTS (SELECT 1 FROM order_access a WHERE a.order_id = orders.id AND a.user_id = ?)", *q.VisibleTo)
		if q.VisibleTeamID != nil {
			visible = visible.Or("orders.team_id = ?", *q.VisibleTeamID)
		}
		query = query.Where(visible)
	}
	if s := strings.TrimSpace(q.Filter.Search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		query = query.Where("(LOWER(merchant) LIKE ? OR LOWER(customer_name) LIKE ? OR LOWER(items_summary) LIKE ?)",
			pattern, pattern, pattern)
	}
	return query
}

func toOrders(rows []models.OrderModel) []fulfilment.Order {
	out := make([]fulfilment.Order, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

var _ fulfilment.OrderRepository = (*GormOrderRepository)(nil)
