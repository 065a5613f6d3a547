package persistence

import (
	"testing"
	"time"

	"github.com/fulfildesk/backend/internal/domain/fulfilment"
	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/fulfildesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens an in-memory SQLite database with every table migrated.
// A single connection keeps the in-memory database alive across queries.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(models.All()...)
	require.NoError(t, err)
	return db
}

func newTestOrder(t *testing.T, team uuid.UUID) (*fulfilment.Order, identity.Principal) {
	t.Helper()
	creator := identity.NewPrincipal(uuid.New(), identity.ResellerMember{Team: team})
	o, err := fulfilment.NewOrder(creator, fulfilment.NewOrderInput{
		TeamID:       team,
		CategoryID:   uuid.New(),
		SLA:          fulfilment.SLAAsap,
		CartValueUSD: decimal.RequireFromString("49.90"),
		Details: fulfilment.OrderDetails{
			Merchant:     "Corner Shop",
			CustomerName: "Alex Smith",
			ItemsSummary: "1x charger",
		},
		AttachmentIDs: []uuid.UUID{uuid.New()},
	})
	require.NoError(t, err)
	return o, creator
}

func staffPrincipal() identity.Principal {
	return identity.NewPrincipal(uuid.New(), identity.Staff{})
}

func countAudit(t *testing.T, db *gorm.DB, orderID uuid.UUID, action string) int64 {
	t.Helper()
	var n int64
	q := db.Model(&models.AuditLogModel{}).Where("order_id = ?", orderID)
	if action != "" {
		q = q.Where("action = ?", action)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func ago(d time.Duration) time.Time {
	return time.Now().UTC().Add(-d)
}
