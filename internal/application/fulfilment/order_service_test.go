package fulfilment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fulfildesk/backend/internal/domain/attachment"
	"github.com/fulfildesk/backend/internal/domain/fulfilment"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type orderServiceFixture struct {
	svc         *OrderService
	orders      *MockOrderRepository
	disputes    *MockDisputeRepository
	categories  *MockCategoryRepository
	attachments *MockAttachmentRepository
	idem        *MockIdempotencyStore
	tx          *passThroughTx
}

func newOrderServiceFixture() *orderServiceFixture {
	f := &orderServiceFixture{
		orders:      new(MockOrderRepository),
		disputes:    new(MockDisputeRepository),
		categories:  new(MockCategoryRepository),
		attachments: new(MockAttachmentRepository),
		idem:        new(MockIdempotencyStore),
		tx:          &passThroughTx{},
	}
	f.svc = NewOrderService(f.orders, f.disputes, f.categories, f.attachments, f.tx, f.idem, zap.NewNop())
	f.svc.now = func() time.Time { return testNow }
	return f
}

func createRequest(a actors, categoryID uuid.UUID) CreateOrderRequest {
	return CreateOrderRequest{
		TeamID:       a.teamID,
		CategoryID:   categoryID,
		SLA:          "asap",
		CartValueUSD: decimal.RequireFromString("49.90"),
		Merchant:     "Corner Shop",
		ItemsSummary: "1x kettle",
	}
}

func TestOrderService_Create(t *testing.T) {
	a := newActors()
	ctx := context.Background()

	t.Run("submits order and links attachments", func(t *testing.T) {
		f := newOrderServiceFixture()
		catID := uuid.New()
		file, err := attachment.NewAttachment(a.creator.UserID, "cart.png", "image/png", 2048)
		require.NoError(t, err)

		req := createRequest(a, catID)
		req.AttachmentIDs = []uuid.UUID{file.ID}

		f.categories.On("FindByID", mock.Anything, catID).Return(activeCategory(catID), nil)
		f.orders.On("Create", mock.Anything, mock.AnythingOfType("*fulfilment.Order")).Return(nil)
		f.attachments.On("FindByIDs", mock.Anything, []uuid.UUID{file.ID}).Return([]attachment.Attachment{*file}, nil)
		f.attachments.On("Save", mock.Anything, mock.MatchedBy(func(x *attachment.Attachment) bool {
			return x.ID == file.ID && x.Status == attachment.StatusLinked && x.EntityType == attachment.EntityOrder
		})).Return(nil)

		resp, err := f.svc.Create(ctx, a.creator, req, "")
		require.NoError(t, err)
		assert.Equal(t, string(fulfilment.OrderStatusSubmitted), resp.Status)
		assert.Equal(t, a.creator.UserID, resp.CreatedByUserID)
		assert.Equal(t, []uuid.UUID{file.ID}, resp.AttachmentIDs)
		assert.True(t, resp.CanWrite)
		assert.Equal(t, 1, f.tx.calls)
		f.attachments.AssertExpectations(t)
	})

	t.Run("rejects inactive category", func(t *testing.T) {
		f := newOrderServiceFixture()
		catID := uuid.New()
		cat := activeCategory(catID)
		require.NoError(t, cat.Deactivate())
		f.categories.On("FindByID", mock.Anything, catID).Return(cat, nil)

		_, err := f.svc.Create(ctx, a.creator, createRequest(a, catID), "")
		assert.Equal(t, "CATEGORY_INACTIVE", shared.CodeOf(err))
		f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects user outside the team", func(t *testing.T) {
		f := newOrderServiceFixture()
		catID := uuid.New()
		f.categories.On("FindByID", mock.Anything, catID).Return(activeCategory(catID), nil)

		_, err := f.svc.Create(ctx, a.staff, createRequest(a, catID), "")
		assert.Equal(t, "NOT_TEAM_MEMBER", shared.CodeOf(err))
	})

	t.Run("foreign attachment rolls back the create", func(t *testing.T) {
		f := newOrderServiceFixture()
		catID := uuid.New()
		file, err := attachment.NewAttachment(a.member.UserID, "cart.png", "image/png", 2048)
		require.NoError(t, err)
		req := createRequest(a, catID)
		req.AttachmentIDs = []uuid.UUID{file.ID}

		f.categories.On("FindByID", mock.Anything, catID).Return(activeCategory(catID), nil)
		f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.attachments.On("FindByIDs", mock.Anything, mock.Anything).Return([]attachment.Attachment{*file}, nil)

		_, err = f.svc.Create(ctx, a.creator, req, "")
		assert.Equal(t, "ATTACHMENT_NOT_OWNED", shared.CodeOf(err))
	})

	t.Run("idempotency key stores the result", func(t *testing.T) {
		f := newOrderServiceFixture()
		catID := uuid.New()
		key := "order:create:" + a.creator.UserID.String() + ":abc"

		f.idem.On("Reserve", mock.Anything, key, 24*time.Hour).Return(true, nil)
		f.categories.On("FindByID", mock.Anything, catID).Return(activeCategory(catID), nil)
		f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.idem.On("Complete", mock.Anything, key, mock.AnythingOfType("string"), 24*time.Hour).Return(nil)

		resp, err := f.svc.Create(ctx, a.creator, createRequest(a, catID), "abc")
		require.NoError(t, err)
		f.idem.AssertCalled(t, "Complete", mock.Anything, key, resp.ID.String(), 24*time.Hour)
	})

	t.Run("idempotency key replays the first order", func(t *testing.T) {
		f := newOrderServiceFixture()
		existing := submittedOrder(t, a)
		key := "order:create:" + a.creator.UserID.String() + ":abc"

		f.idem.On("Reserve", mock.Anything, key, 24*time.Hour).Return(false, nil)
		f.idem.On("Result", mock.Anything, key).Return(existing.ID.String(), nil)
		f.orders.On("FindByID", mock.Anything, existing.ID).Return(existing, nil)

		resp, err := f.svc.Create(ctx, a.creator, createRequest(a, uuid.New()), "abc")
		require.NoError(t, err)
		assert.Equal(t, existing.ID, resp.ID)
		f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("idempotency key still in flight", func(t *testing.T) {
		f := newOrderServiceFixture()
		f.idem.On("Reserve", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
		f.idem.On("Result", mock.Anything, mock.Anything).Return(shared.IdempotencyPending, nil)

		_, err := f.svc.Create(ctx, a.creator, createRequest(a, uuid.New()), "abc")
		assert.Equal(t, "REQUEST_IN_PROGRESS", shared.CodeOf(err))
	})

	t.Run("failed create releases the key", func(t *testing.T) {
		f := newOrderServiceFixture()
		catID := uuid.New()
		f.idem.On("Reserve", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
		f.categories.On("FindByID", mock.Anything, catID).Return(nil, shared.ErrNotFound)
		f.idem.On("Release", mock.Anything, mock.Anything).Return(nil)

		_, err := f.svc.Create(ctx, a.creator, createRequest(a, catID), "abc")
		assert.Equal(t, "CATEGORY_NOT_FOUND", shared.CodeOf(err))
		f.idem.AssertCalled(t, "Release", mock.Anything, mock.Anything)
		f.idem.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestOrderService_Pick(t *testing.T) {
	a := newActors()
	ctx := context.Background()

	t.Run("staff picks submitted order", func(t *testing.T) {
		f := newOrderServiceFixture()
		o := submittedOrder(t, a)
		f.orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)
		f.orders.On("SaveWithLock", mock.Anything, o).Return(nil)

		resp, err := f.svc.Pick(ctx, a.staff, o.ID)
		require.NoError(t, err)
		assert.Equal(t, string(fulfilment.OrderStatusPicked), resp.Status)
		assert.Equal(t, &a.staff.UserID, resp.PickedByStaffUserID)
		assert.NotNil(t, resp.AcceptedAt)
		assert.True(t, resp.CanWrite)
	})

	t.Run("loser of a race sees ALREADY_PICKED", func(t *testing.T) {
		f := newOrderServiceFixture()
		stale := submittedOrder(t, a)
		fresh := *stale
		winner := a.staff2.UserID
		fresh.PickedByStaffUserID = &winner
		fresh.Status = fulfilment.OrderStatusPicked

		f.orders.On("FindByID", mock.Anything, stale.ID).Return(stale, nil).Once()
		f.orders.On("SaveWithLock", mock.Anything, stale).Return(shared.ErrConcurrencyConflict).Once()
		f.orders.On("FindByID", mock.Anything, stale.ID).Return(&fresh, nil).Once()

		_, err := f.svc.Pick(ctx, a.staff, stale.ID)
		assert.Equal(t, "ALREADY_PICKED", shared.CodeOf(err))
		f.orders.AssertNumberOfCalls(t, "SaveWithLock", 1)
	})

	t.Run("gives up after repeated conflicts", func(t *testing.T) {
		f := newOrderServiceFixture()
		f.svc.SetConfig(OrderServiceConfig{MaxConflictRetries: 2, IdempotencyTTL: time.Hour})
		id := uuid.New()
		for i := 0; i < 3; i++ {
			o := submittedOrder(t, a)
			o.ID = id
			f.orders.On("FindByID", mock.Anything, id).Return(o, nil).Once()
		}
		f.orders.On("SaveWithLock", mock.Anything, mock.Anything).Return(shared.ErrConcurrencyConflict)

		_, err := f.svc.Pick(ctx, a.staff, id)
		assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))
		f.orders.AssertNumberOfCalls(t, "SaveWithLock", 3)
	})

	t.Run("reseller cannot pick", func(t *testing.T) {
		f := newOrderServiceFixture()
		o := submittedOrder(t, a)
		f.orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)

		_, err := f.svc.Pick(ctx, a.admin, o.ID)
		assert.Equal(t, "FORBIDDEN", shared.CodeOf(err))
		f.orders.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})
}

func TestOrderService_Pass(t *testing.T) {
	a := newActors()
	ctx := context.Background()
	f := newOrderServiceFixture()
	o := submittedOrder(t, a)
	f.orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)
	f.orders.On("SaveWithLock", mock.Anything, o).Return(nil).Once()

	_, err := f.svc.Pass(ctx, a.staff, o.ID, PassOrderRequest{Reason: "out of area"})
	require.NoError(t, err)
	_, err = f.svc.Pass(ctx, a.staff, o.ID, PassOrderRequest{Reason: "again"})
	require.NoError(t, err)

	f.orders.AssertNumberOfCalls(t, "SaveWithLock", 1)
	require.Len(t, o.Passes, 1)
	assert.Equal(t, "out of area", o.Passes[0].Reason)
}

func TestOrderService_WorkflowGuards(t *testing.T) {
	a := newActors()
	ctx := context.Background()

	t.Run("other staff cannot start", func(t *testing.T) {
		f := newOrderServiceFixture()
		o := pickedOrder(t, a)
		f.orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)

		_, err := f.svc.Start(ctx, a.staff2, o.ID)
		assert.Equal(t, "FORBIDDEN", shared.CodeOf(err))
	})

	t.Run("owner can read but is not the picker", func(t *testing.T) {
		f := newOrderServiceFixture()
		o := pickedOrder(t, a)
		f.orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)

		_, err := f.svc.Hold(ctx, a.owner, o.ID, HoldOrderRequest{Reason: "waiting"})
		assert.Equal(t, "NOT_PICKER", shared.CodeOf(err))
	})

	t.Run("picker holds, resumes and submits", func(t *testing.T) {
		f := newOrderServiceFixture()
		o := pickedOrder(t, a)
		proof, err := attachment.NewAttachment(a.staff.UserID, "receipt.pdf", "application/pdf", 4096)
		require.NoError(t, err)

		f.orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)
		f.orders.On("SaveWithLock", mock.Anything, o).Return(nil)
		f.attachments.On("FindByIDs", mock.Anything, []uuid.UUID{proof.ID}).Return([]attachment.Attachment{*proof}, nil)
		f.attachments.On("Save", mock.Anything, mock.MatchedBy(func(x *attachment.Attachment) bool {
			return x.EntityType == attachment.EntityFulfilment && *x.OrderID == o.ID
		})).Return(nil)

		_, err = f.svc.Hold(ctx, a.staff, o.ID, HoldOrderRequest{Reason: "merchant closed"})
		require.NoError(t, err)
		assert.Equal(t, fulfilment.OrderStatusOnHold, o.Status)

		_, err = f.svc.Resume(ctx, a.staff, o.ID)
		require.NoError(t, err)
		assert.Equal(t, fulfilment.OrderStatusInProgress, o.Status)

		resp, err := f.svc.SubmitFulfilment(ctx, a.staff, o.ID, SubmitFulfilmentRequest{
			MerchantLink:  "https://shop.example.com/o/9",
			NameOnOrder:   "J. Doe",
			FinalValueUSD: decimal.RequireFromString("47.5"),
			ProofFileIDs:  []uuid.UUID{proof.ID},
		})
		require.NoError(t, err)
		assert.Equal(t, string(fulfilment.OrderStatusFulfilSubmitted), resp.Status)
		require.NotNil(t, resp.Fulfilment)
		assert.Equal(t, "47.50", resp.Fulfilment.FinalValueUSD.StringFixed(2))
		f.attachments.AssertExpectations(t)
	})

	t.Run("plain member cannot complete another member's order", func(t *testing.T) {
		f := newOrderServiceFixture()
		o := pickedOrder(t, a)
		require.NoError(t, o.Start(a.staff, testNow))
		require.NoError(t, o.SubmitFulfilment(a.staff, fulfilment.FulfilmentInput{
			MerchantLink: "https://shop.example.com/o/1", NameOnOrder: "X",
		}, testNow))
		o.ClearDomainEvents()
		f.orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)

		_, err := f.svc.Complete(ctx, a.member, o.ID)
		assert.Equal(t, "FORBIDDEN", shared.CodeOf(err))
		assert.Equal(t, fulfilment.OrderStatusFulfilSubmitted, o.Status)
	})

	t.Run("team admin completes", func(t *testing.T) {
		f := newOrderServiceFixture()
		o := pickedOrder(t, a)
		require.NoError(t, o.Start(a.staff, testNow))
		require.NoError(t, o.SubmitFulfilment(a.staff, fulfilment.FulfilmentInput{
			MerchantLink: "https://shop.example.com/o/1", NameOnOrder: "X",
		}, testNow))
		o.ClearDomainEvents()
		f.orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)
		f.orders.On("SaveWithLock", mock.Anything, o).Return(nil)

		resp, err := f.svc.Complete(ctx, a.admin, o.ID)
		require.NoError(t, err)
		assert.Equal(t, string(fulfilment.OrderStatusCompleted), resp.Status)
		assert.NotNil(t, resp.CompletedAt)
	})

	t.Run("missing order", func(t *testing.T) {
		f := newOrderServiceFixture()
		id := uuid.New()
		f.orders.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

		_, err := f.svc.Start(ctx, a.staff, id)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

func TestOrderService_AccessChanges(t *testing.T) {
	a := newActors()
	ctx := context.Background()
	viewer := uuid.New()

	t.Run("admin grants read access", func(t *testing.T) {
		f := newOrderServiceFixture()
		o := submittedOrder(t, a)
		f.orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)
		f.orders.On("SaveWithLock", mock.Anything, o).Return(nil).Once()

		resp, err := f.svc.GrantAccess(ctx, a.admin, o.ID, AccessChangeRequest{UserID: viewer, Level: "read"})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{viewer}, resp.ReadAccessUserIDs)

		// granting again changes nothing
		_, err = f.svc.GrantAccess(ctx, a.admin, o.ID, AccessChangeRequest{UserID: viewer, Level: "read"})
		require.NoError(t, err)
		f.orders.AssertNumberOfCalls(t, "SaveWithLock", 1)
	})

	t.Run("creator cannot manage access", func(t *testing.T) {
		f := newOrderServiceFixture()
		o := submittedOrder(t, a)
		f.orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)

		_, err := f.svc.GrantAccess(ctx, a.creator, o.ID, AccessChangeRequest{UserID: viewer, Level: "write"})
		assert.Equal(t, "FORBIDDEN", shared.CodeOf(err))
	})
}

func TestOrderService_Get(t *testing.T) {
	a := newActors()
	ctx := context.Background()
	f := newOrderServiceFixture()
	o := submittedOrder(t, a)
	f.orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)

	resp, err := f.svc.Get(ctx, a.staff, o.ID)
	require.NoError(t, err, "queued order is visible to staff")
	assert.False(t, resp.CanWrite)

	_, err = f.svc.Get(ctx, a.member, o.ID)
	assert.Equal(t, "FORBIDDEN", shared.CodeOf(err))

	resp, err = f.svc.Get(ctx, a.admin, o.ID)
	require.NoError(t, err)
	assert.True(t, resp.CanWrite)
}

func TestOrderService_Listings(t *testing.T) {
	a := newActors()
	ctx := context.Background()

	t.Run("queue hides passed orders", func(t *testing.T) {
		f := newOrderServiceFixture()
		open := submittedOrder(t, a)
		passed := submittedOrder(t, a)
		_, err := passed.Pass(a.staff, "", testNow)
		require.NoError(t, err)

		f.orders.On("FindAll", mock.Anything, mock.MatchedBy(func(q fulfilment.OrderQuery) bool {
			return q.Unpicked && *q.NotPassedBy == a.staff.UserID &&
				len(q.Statuses) == 1 && q.Statuses[0] == fulfilment.OrderStatusSubmitted
		})).Return([]fulfilment.Order{*open, *passed}, int64(2), nil)

		out, _, err := f.svc.Queue(ctx, a.staff, OrderListFilter{})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, open.ID, out[0].ID)
	})

	t.Run("queue is staff only", func(t *testing.T) {
		f := newOrderServiceFixture()
		_, _, err := f.svc.Queue(ctx, a.owner, OrderListFilter{})
		assert.Equal(t, "FORBIDDEN", shared.CodeOf(err))
	})

	t.Run("admin sees the team", func(t *testing.T) {
		f := newOrderServiceFixture()
		o := submittedOrder(t, a)
		f.orders.On("FindAll", mock.Anything, mock.MatchedBy(func(q fulfilment.OrderQuery) bool {
			return *q.VisibleTo == a.admin.UserID && *q.VisibleTeamID == a.teamID && q.PickedBy == nil
		})).Return([]fulfilment.Order{*o}, int64(1), nil)

		out, total, err := f.svc.List(ctx, a.admin, OrderListFilter{})
		require.NoError(t, err)
		assert.Len(t, out, 1)
		assert.Equal(t, int64(1), total)
	})

	t.Run("member sees own and shared orders", func(t *testing.T) {
		f := newOrderServiceFixture()
		f.orders.On("FindAll", mock.Anything, mock.MatchedBy(func(q fulfilment.OrderQuery) bool {
			return *q.VisibleTo == a.member.UserID && q.VisibleTeamID == nil
		})).Return([]fulfilment.Order{}, int64(0), nil)

		_, _, err := f.svc.List(ctx, a.member, OrderListFilter{})
		require.NoError(t, err)
		f.orders.AssertExpectations(t)
	})

	t.Run("staff sees picked orders", func(t *testing.T) {
		f := newOrderServiceFixture()
		mine := pickedOrder(t, a)
		f.orders.On("FindAll", mock.Anything, mock.MatchedBy(func(q fulfilment.OrderQuery) bool {
			return *q.PickedBy == a.staff.UserID
		})).Return([]fulfilment.Order{*mine}, int64(1), nil)

		out, _, err := f.svc.List(ctx, a.staff, OrderListFilter{})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.True(t, out[0].CanWrite)
	})

	t.Run("owner filters by team and status", func(t *testing.T) {
		f := newOrderServiceFixture()
		f.orders.On("FindAll", mock.Anything, mock.MatchedBy(func(q fulfilment.OrderQuery) bool {
			return *q.TeamID == a.teamID && q.Statuses[0] == fulfilment.OrderStatusCompleted && q.VisibleTo == nil
		})).Return([]fulfilment.Order{}, int64(0), nil)

		_, _, err := f.svc.List(ctx, a.owner, OrderListFilter{TeamID: &a.teamID, Status: "completed"})
		require.NoError(t, err)
		f.orders.AssertExpectations(t)
	})

	t.Run("unknown status", func(t *testing.T) {
		f := newOrderServiceFixture()
		_, _, err := f.svc.List(ctx, a.owner, OrderListFilter{Status: "shipped"})
		assert.Equal(t, "INVALID_STATUS", shared.CodeOf(err))
	})
}
