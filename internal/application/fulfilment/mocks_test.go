package fulfilment

import (
	"context"
	"testing"
	"time"

	"github.com/fulfildesk/backend/internal/domain/attachment"
	"github.com/fulfildesk/backend/internal/domain/audit"
	"github.com/fulfildesk/backend/internal/domain/category"
	"github.com/fulfildesk/backend/internal/domain/fulfilment"
	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Mocks
// ============================================================================

// MockOrderRepository is a mock implementation of fulfilment.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*fulfilment.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fulfilment.Order), args.Error(1)
}

func (m *MockOrderRepository) FindAll(ctx context.Context, q fulfilment.OrderQuery) ([]fulfilment.Order, int64, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]fulfilment.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) FindStaleSubmitted(ctx context.Context, cutoff time.Time, limit int) ([]fulfilment.Order, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fulfilment.Order), args.Error(1)
}

func (m *MockOrderRepository) CountByStatus(ctx context.Context) (map[fulfilment.OrderStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[fulfilment.OrderStatus]int64), args.Error(1)
}

func (m *MockOrderRepository) Create(ctx context.Context, order *fulfilment.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) SaveWithLock(ctx context.Context, order *fulfilment.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

var _ fulfilment.OrderRepository = (*MockOrderRepository)(nil)

// MockDisputeRepository is a mock implementation of fulfilment.DisputeRepository
type MockDisputeRepository struct {
	mock.Mock
}

func (m *MockDisputeRepository) Create(ctx context.Context, d *fulfilment.Dispute) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDisputeRepository) SaveWithLock(ctx context.Context, d *fulfilment.Dispute) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDisputeRepository) FindByID(ctx context.Context, id uuid.UUID) (*fulfilment.Dispute, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fulfilment.Dispute), args.Error(1)
}

func (m *MockDisputeRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]fulfilment.Dispute, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fulfilment.Dispute), args.Error(1)
}

func (m *MockDisputeRepository) FindAll(ctx context.Context, filter shared.Filter) ([]fulfilment.Dispute, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]fulfilment.Dispute), args.Get(1).(int64), args.Error(2)
}

func (m *MockDisputeRepository) CountOpenByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(int64), args.Error(1)
}

var _ fulfilment.DisputeRepository = (*MockDisputeRepository)(nil)

// MockChatRepository is a mock implementation of fulfilment.ChatRepository
type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Create(ctx context.Context, msg *fulfilment.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockChatRepository) FindByOrder(ctx context.Context, orderID uuid.UUID, filter shared.Filter) ([]fulfilment.ChatMessage, int64, error) {
	args := m.Called(ctx, orderID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]fulfilment.ChatMessage), args.Get(1).(int64), args.Error(2)
}

func (m *MockChatRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	args := m.Called(ctx, cutoff, limit)
	return args.Get(0).(int64), args.Error(1)
}

var _ fulfilment.ChatRepository = (*MockChatRepository)(nil)

// MockCategoryRepository is a mock implementation of category.Repository
type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) Create(ctx context.Context, c *category.Category) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCategoryRepository) Update(ctx context.Context, c *category.Category) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*category.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*category.Category), args.Error(1)
}

func (m *MockCategoryRepository) FindAll(ctx context.Context, filter shared.Filter) ([]category.Category, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]category.Category), args.Get(1).(int64), args.Error(2)
}

func (m *MockCategoryRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

var _ category.Repository = (*MockCategoryRepository)(nil)

// MockAttachmentRepository is a mock implementation of attachment.Repository
type MockAttachmentRepository struct {
	mock.Mock
}

func (m *MockAttachmentRepository) Create(ctx context.Context, a *attachment.Attachment) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAttachmentRepository) Save(ctx context.Context, a *attachment.Attachment) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAttachmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*attachment.Attachment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*attachment.Attachment), args.Error(1)
}

func (m *MockAttachmentRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]attachment.Attachment, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]attachment.Attachment), args.Error(1)
}

func (m *MockAttachmentRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]attachment.Attachment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]attachment.Attachment), args.Error(1)
}

func (m *MockAttachmentRepository) FindOrphans(ctx context.Context, cutoff time.Time, limit int) ([]attachment.Attachment, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]attachment.Attachment), args.Error(1)
}

var _ attachment.Repository = (*MockAttachmentRepository)(nil)

// MockAuditRepository is a mock implementation of audit.Repository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Append(ctx context.Context, entries ...audit.Entry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockAuditRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]audit.Entry, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]audit.Entry), args.Error(1)
}

func (m *MockAuditRepository) FindAll(ctx context.Context, filter shared.Filter) ([]audit.Entry, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]audit.Entry), args.Get(1).(int64), args.Error(2)
}

var _ audit.Repository = (*MockAuditRepository)(nil)

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Complete(ctx context.Context, key, result string, ttl time.Duration) error {
	args := m.Called(ctx, key, result, ttl)
	return args.Error(0)
}

func (m *MockIdempotencyStore) Result(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockObjectStorage is a mock implementation of ObjectStorage
type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, storageKey, contentType, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockObjectStorage) GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, storageKey, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockObjectStorage) DeleteObject(ctx context.Context, storageKey string) error {
	args := m.Called(ctx, storageKey)
	return args.Error(0)
}

func (m *MockObjectStorage) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	args := m.Called(ctx, storageKey)
	return args.Bool(0), args.Error(1)
}

var _ ObjectStorage = (*MockObjectStorage)(nil)

// passThroughTx runs fn directly; the mocks have no transaction to join
type passThroughTx struct {
	calls int
}

func (p *passThroughTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}

// ============================================================================
// Fixtures
// ============================================================================

var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

type actors struct {
	teamID  uuid.UUID
	owner   identity.Principal
	staff   identity.Principal
	staff2  identity.Principal
	admin   identity.Principal
	creator identity.Principal
	member  identity.Principal
}

func newActors() actors {
	team := uuid.New()
	return actors{
		teamID:  team,
		owner:   identity.NewPrincipal(uuid.New(), identity.Owner{}),
		staff:   identity.NewPrincipal(uuid.New(), identity.Staff{}),
		staff2:  identity.NewPrincipal(uuid.New(), identity.Staff{}),
		admin:   identity.NewPrincipal(uuid.New(), identity.ResellerAdmin{Team: team}),
		creator: identity.NewPrincipal(uuid.New(), identity.ResellerMember{Team: team}),
		member:  identity.NewPrincipal(uuid.New(), identity.ResellerMember{Team: team}),
	}
}

// submittedOrder builds a fresh order with no pending events
func submittedOrder(t *testing.T, a actors) *fulfilment.Order {
	t.Helper()
	o, err := fulfilment.NewOrder(a.creator, fulfilment.NewOrderInput{
		TeamID:       a.teamID,
		CategoryID:   uuid.New(),
		SLA:          fulfilment.SLAToday,
		CartValueUSD: decimal.NewFromInt(120),
		Details:      fulfilment.OrderDetails{Merchant: "Corner Shop", ItemsSummary: "3x coffee beans"},
	})
	require.NoError(t, err)
	o.CreatedAt = testNow.Add(-time.Minute)
	o.UpdatedAt = o.CreatedAt
	o.ClearDomainEvents()
	return o
}

// pickedOrder builds an order picked by a.staff
func pickedOrder(t *testing.T, a actors) *fulfilment.Order {
	t.Helper()
	o := submittedOrder(t, a)
	require.NoError(t, o.Pick(a.staff, testNow.Add(-30*time.Second)))
	o.ClearDomainEvents()
	return o
}

// completedOrder builds an order that went through the whole happy path
func completedOrder(t *testing.T, a actors) *fulfilment.Order {
	t.Helper()
	o := pickedOrder(t, a)
	at := testNow.Add(-20 * time.Second)
	require.NoError(t, o.Start(a.staff, at))
	require.NoError(t, o.SubmitFulfilment(a.staff, fulfilment.FulfilmentInput{
		MerchantLink:  "https://shop.example.com/orders/1",
		NameOnOrder:   "J. Doe",
		FinalValueUSD: decimal.NewFromInt(118),
	}, at))
	require.NoError(t, o.Complete(a.creator, at))
	o.ClearDomainEvents()
	return o
}

func activeCategory(id uuid.UUID) *category.Category {
	c, _ := category.NewCategory("Groceries", "")
	c.ID = id
	return c
}
