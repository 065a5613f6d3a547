package fulfilment

import (
	"testing"
	"time"

	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==================== Test helpers ====================

var testTeamID = uuid.New()

func memberOf(team uuid.UUID) identity.Principal {
	return identity.NewPrincipal(uuid.New(), identity.ResellerMember{Team: team})
}

func adminOf(team uuid.UUID) identity.Principal {
	return identity.NewPrincipal(uuid.New(), identity.ResellerAdmin{Team: team})
}

func staff() identity.Principal {
	return identity.NewPrincipal(uuid.New(), identity.Staff{})
}

func owner() identity.Principal {
	return identity.NewPrincipal(uuid.New(), identity.Owner{})
}

func validInput() NewOrderInput {
	return NewOrderInput{
		TeamID:       testTeamID,
		CategoryID:   uuid.New(),
		SLA:          SLAToday,
		CartValueUSD: decimal.NewFromFloat(129.99),
		Details: OrderDetails{
			Merchant:     "Acme Store",
			CustomerName: "Jane Doe",
			Country:      "US",
			City:         "Austin",
			ItemsSummary: "2x headphones",
		},
	}
}

func createTestOrder(t *testing.T) (*Order, identity.Principal) {
	t.Helper()
	creator := memberOf(testTeamID)
	o, err := NewOrder(creator, validInput())
	require.NoError(t, err)
	o.ClearDomainEvents()
	return o, creator
}

// pickedOrder returns an order picked by the returned staff member
func pickedOrder(t *testing.T) (*Order, identity.Principal, identity.Principal) {
	t.Helper()
	o, creator := createTestOrder(t)
	s := staff()
	require.NoError(t, o.Pick(s, time.Now()))
	o.ClearDomainEvents()
	return o, creator, s
}

func fulfilledOrder(t *testing.T) (*Order, identity.Principal, identity.Principal) {
	t.Helper()
	o, creator, s := pickedOrder(t)
	require.NoError(t, o.Start(s, time.Now()))
	require.NoError(t, o.SubmitFulfilment(s, validFulfilment(), time.Now()))
	o.ClearDomainEvents()
	return o, creator, s
}

func completedOrder(t *testing.T) (*Order, identity.Principal, identity.Principal) {
	t.Helper()
	o, creator, s := fulfilledOrder(t)
	require.NoError(t, o.Complete(creator, time.Now()))
	o.ClearDomainEvents()
	return o, creator, s
}

func validFulfilment() FulfilmentInput {
	return FulfilmentInput{
		MerchantLink:  "https://acme.example/orders/42",
		NameOnOrder:   "Jane Doe",
		FinalValueUSD: decimal.NewFromFloat(120.5),
		ProofFileIDs:  []uuid.UUID{uuid.New()},
	}
}

func assertSingleEvent(t *testing.T, o *Order, action string) {
	t.Helper()
	events := o.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, action, events[0].EventType())
	assert.Equal(t, o.ID, events[0].AggregateID())
	assert.Equal(t, AggregateTypeOrder, events[0].AggregateType())
}

// ==================== Creation ====================

func TestNewOrder(t *testing.T) {
	t.Run("member of the team creates a submitted order", func(t *testing.T) {
		creator := memberOf(testTeamID)
		o, err := NewOrder(creator, validInput())
		require.NoError(t, err)

		assert.Equal(t, OrderStatusSubmitted, o.Status)
		assert.Equal(t, creator.UserID, o.CreatedByUserID)
		assert.Nil(t, o.PickedByStaffUserID)
		assert.True(t, o.CartValueUSD.Equal(decimal.NewFromFloat(129.99)))
		assertSingleEvent(t, o, ActionCreated)
		assert.Equal(t, creator.UserID, *o.GetDomainEvents()[0].ActorID())
	})

	t.Run("default team membership may create", func(t *testing.T) {
		p := identity.NewPrincipal(uuid.New(), identity.ResellerDefault{Team: testTeamID})
		_, err := NewOrder(p, validInput())
		require.NoError(t, err)
	})

	tests := []struct {
		name     string
		actor    identity.Principal
		mutate   func(in *NewOrderInput)
		wantCode string
	}{
		{"member of another team", memberOf(uuid.New()), func(in *NewOrderInput) {}, "NOT_TEAM_MEMBER"},
		{"staff", staff(), func(in *NewOrderInput) {}, "NOT_TEAM_MEMBER"},
		{"owner", owner(), func(in *NewOrderInput) {}, "NOT_TEAM_MEMBER"},
		{"unaffiliated reseller", identity.NewPrincipal(uuid.New(), identity.Unaffiliated{}), func(in *NewOrderInput) {}, "NOT_TEAM_MEMBER"},
		{"missing team", memberOf(testTeamID), func(in *NewOrderInput) { in.TeamID = uuid.Nil }, "INVALID_TEAM_ID"},
		{"missing category", memberOf(testTeamID), func(in *NewOrderInput) { in.CategoryID = uuid.Nil }, "INVALID_CATEGORY_ID"},
		{"bad sla", memberOf(testTeamID), func(in *NewOrderInput) { in.SLA = "tomorrow" }, "INVALID_SLA"},
		{"negative cart", memberOf(testTeamID), func(in *NewOrderInput) { in.CartValueUSD = decimal.NewFromInt(-1) }, "INVALID_CART_VALUE"},
		{"missing merchant", memberOf(testTeamID), func(in *NewOrderInput) { in.Details.Merchant = " " }, "INVALID_INPUT"},
		{"missing items", memberOf(testTeamID), func(in *NewOrderInput) { in.Details.ItemsSummary = "" }, "INVALID_INPUT"},
		{"bad currency", memberOf(testTeamID), func(in *NewOrderInput) { in.CurrencyOverride = "EURO" }, "INVALID_CURRENCY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := NewOrder(tt.actor, in)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, shared.CodeOf(err))
		})
	}

	t.Run("attachment ids are de-duplicated", func(t *testing.T) {
		id := uuid.New()
		in := validInput()
		in.AttachmentIDs = []uuid.UUID{id, id, uuid.Nil}
		o, err := NewOrder(memberOf(testTeamID), in)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{id}, o.AttachmentIDs)
	})
}

// ==================== Pick / Pass ====================

func TestOrder_Pick(t *testing.T) {
	t.Run("second pick is rejected", func(t *testing.T) {
		o, _ := createTestOrder(t)
		s1, s2 := staff(), staff()

		require.NoError(t, o.Pick(s1, time.Now()))
		assert.Equal(t, OrderStatusPicked, o.Status)
		assert.True(t, o.IsPickedBy(s1.UserID))
		assert.NotNil(t, o.AcceptedAt)
		assertSingleEvent(t, o, ActionPicked)

		o.ClearDomainEvents()
		err := o.Pick(s2, time.Now())
		require.Error(t, err)
		assert.Equal(t, "ALREADY_PICKED", shared.CodeOf(err))
		assert.Equal(t, "Order already picked", err.Error())
		assert.True(t, o.IsPickedBy(s1.UserID))
		assert.Empty(t, o.GetDomainEvents())
	})

	t.Run("non-staff cannot pick", func(t *testing.T) {
		o, creator := createTestOrder(t)
		for _, p := range []identity.Principal{creator, owner(), adminOf(testTeamID)} {
			err := o.Pick(p, time.Now())
			assert.Equal(t, "FORBIDDEN", shared.CodeOf(err))
		}
		assert.Equal(t, OrderStatusSubmitted, o.Status)
	})

	t.Run("cancelled order cannot be picked", func(t *testing.T) {
		o, _ := createTestOrder(t)
		require.NoError(t, o.AutoCancel(o.CreatedAt.Add(11*time.Minute), 10*time.Minute))

		err := o.Pick(staff(), time.Now())
		assert.Equal(t, "INVALID_STATE", shared.CodeOf(err))
		assert.Nil(t, o.PickedByStaffUserID)
	})
}

func TestOrder_Pass(t *testing.T) {
	t.Run("pass is idempotent per staff member", func(t *testing.T) {
		o, _ := createTestOrder(t)
		s := staff()

		changed, err := o.Pass(s, "too far", time.Now())
		require.NoError(t, err)
		assert.True(t, changed)
		assertSingleEvent(t, o, ActionPassed)

		o.ClearDomainEvents()
		changed, err = o.Pass(s, "again", time.Now())
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Empty(t, o.GetDomainEvents())
		require.Len(t, o.Passes, 1)
		assert.Equal(t, "too far", o.Passes[0].Reason)
		assert.Equal(t, OrderStatusSubmitted, o.Status)
	})

	t.Run("different staff members each pass once", func(t *testing.T) {
		o, _ := createTestOrder(t)
		for i := 0; i < 3; i++ {
			_, err := o.Pass(staff(), "", time.Now())
			require.NoError(t, err)
		}
		assert.Len(t, o.Passes, 3)
	})

	t.Run("picked order cannot be passed", func(t *testing.T) {
		o, _, _ := pickedOrder(t)
		_, err := o.Pass(staff(), "", time.Now())
		assert.Equal(t, "ALREADY_PICKED", shared.CodeOf(err))
	})

	t.Run("non-staff cannot pass", func(t *testing.T) {
		o, creator := createTestOrder(t)
		_, err := o.Pass(creator, "", time.Now())
		assert.Equal(t, "FORBIDDEN", shared.CodeOf(err))
	})
}

// ==================== Work in progress ====================

func TestOrder_StartHoldResume(t *testing.T) {
	o, _, s := pickedOrder(t)

	require.NoError(t, o.Hold(s, "waiting for stock", time.Now()))
	assert.Equal(t, OrderStatusOnHold, o.Status)
	assert.Equal(t, "waiting for stock", o.HoldReason)
	assertSingleEvent(t, o, ActionHold)
	o.ClearDomainEvents()

	require.NoError(t, o.Resume(s, time.Now()))
	assert.Equal(t, OrderStatusInProgress, o.Status)
	assert.Empty(t, o.HoldReason)
	assertSingleEvent(t, o, ActionResume)
	o.ClearDomainEvents()

	require.NoError(t, o.Hold(s, "customer unreachable", time.Now()))
	o.ClearDomainEvents()

	require.NoError(t, o.Start(s, time.Now()))
	assert.Equal(t, OrderStatusInProgress, o.Status)
	assert.Empty(t, o.HoldReason)
	assertSingleEvent(t, o, ActionInProgress)
}

func TestOrder_HoldByOtherStaffRejected(t *testing.T) {
	o, _, _ := pickedOrder(t)
	other := staff()

	err := o.Hold(other, "mine now", time.Now())
	require.Error(t, err)
	assert.Equal(t, "NOT_PICKER", shared.CodeOf(err))
	assert.Equal(t, OrderStatusPicked, o.Status)
	assert.Empty(t, o.GetDomainEvents())
}

func TestOrder_HoldRequiresReason(t *testing.T) {
	o, _, s := pickedOrder(t)
	err := o.Hold(s, "  ", time.Now())
	assert.Equal(t, "INVALID_REASON", shared.CodeOf(err))
	assert.Equal(t, OrderStatusPicked, o.Status)
}

func TestOrder_SubmitFulfilment(t *testing.T) {
	t.Run("from in progress", func(t *testing.T) {
		o, _, s := pickedOrder(t)
		require.NoError(t, o.Start(s, time.Now()))
		o.ClearDomainEvents()

		require.NoError(t, o.SubmitFulfilment(s, validFulfilment(), time.Now()))
		assert.Equal(t, OrderStatusFulfilSubmitted, o.Status)
		require.NotNil(t, o.Fulfilment)
		assert.Equal(t, "Jane Doe", o.Fulfilment.NameOnOrder)
		assert.True(t, o.Fulfilment.FinalValueUSD.Equal(decimal.RequireFromString("120.50")))
		assertSingleEvent(t, o, ActionFulfilSubmitted)
	})

	t.Run("from on hold clears hold reason", func(t *testing.T) {
		o, _, s := pickedOrder(t)
		require.NoError(t, o.Hold(s, "paused", time.Now()))
		require.NoError(t, o.SubmitFulfilment(s, validFulfilment(), time.Now()))
		assert.Empty(t, o.HoldReason)
	})

	t.Run("from picked is rejected", func(t *testing.T) {
		o, _, s := pickedOrder(t)
		err := o.SubmitFulfilment(s, validFulfilment(), time.Now())
		assert.Equal(t, "INVALID_STATE", shared.CodeOf(err))
		assert.Nil(t, o.Fulfilment)
	})

	t.Run("only once", func(t *testing.T) {
		o, _, s := fulfilledOrder(t)
		err := o.SubmitFulfilment(s, validFulfilment(), time.Now())
		assert.Equal(t, "FULFILMENT_ALREADY_SUBMITTED", shared.CodeOf(err))
	})

	t.Run("validation", func(t *testing.T) {
		o, _, s := pickedOrder(t)
		require.NoError(t, o.Start(s, time.Now()))

		in := validFulfilment()
		in.MerchantLink = ""
		assert.Equal(t, "INVALID_MERCHANT_LINK", shared.CodeOf(o.SubmitFulfilment(s, in, time.Now())))

		in = validFulfilment()
		in.NameOnOrder = ""
		assert.Equal(t, "INVALID_NAME_ON_ORDER", shared.CodeOf(o.SubmitFulfilment(s, in, time.Now())))

		in = validFulfilment()
		in.FinalValueUSD = decimal.NewFromInt(-5)
		assert.Equal(t, "INVALID_FINAL_VALUE", shared.CodeOf(o.SubmitFulfilment(s, in, time.Now())))

		assert.Equal(t, OrderStatusInProgress, o.Status)
	})
}

// ==================== Completion ====================

func TestOrder_Complete(t *testing.T) {
	t.Run("team admin completes", func(t *testing.T) {
		o, _, _ := fulfilledOrder(t)
		require.NoError(t, o.Complete(adminOf(testTeamID), time.Now()))
		assert.Equal(t, OrderStatusCompleted, o.Status)
		assert.NotNil(t, o.CompletedAt)
		assertSingleEvent(t, o, ActionCompleted)
	})

	t.Run("creator completes", func(t *testing.T) {
		o, creator, _ := fulfilledOrder(t)
		require.NoError(t, o.Complete(creator, time.Now()))
	})

	t.Run("non-admin member who did not create is rejected", func(t *testing.T) {
		o, _, _ := fulfilledOrder(t)
		err := o.Complete(memberOf(testTeamID), time.Now())
		assert.Equal(t, "FORBIDDEN", shared.CodeOf(err))
		assert.Equal(t, OrderStatusFulfilSubmitted, o.Status)
	})

	t.Run("admin of another team is rejected", func(t *testing.T) {
		o, _, _ := fulfilledOrder(t)
		err := o.Complete(adminOf(uuid.New()), time.Now())
		assert.Equal(t, "FORBIDDEN", shared.CodeOf(err))
	})

	t.Run("staff cannot complete", func(t *testing.T) {
		o, _, s := fulfilledOrder(t)
		err := o.Complete(s, time.Now())
		assert.Equal(t, "FORBIDDEN", shared.CodeOf(err))
	})

	t.Run("wrong status", func(t *testing.T) {
		o, creator, _ := pickedOrder(t)
		err := o.Complete(creator, time.Now())
		assert.Equal(t, "INVALID_STATE", shared.CodeOf(err))
	})
}

// ==================== Disputes ====================

func TestOrder_RaiseDispute(t *testing.T) {
	t.Run("creator raises dispute", func(t *testing.T) {
		o, creator, _ := completedOrder(t)
		proof := uuid.New()

		d, err := o.RaiseDispute(creator, "item arrived broken", []uuid.UUID{proof}, time.Now())
		require.NoError(t, err)
		assert.Equal(t, OrderStatusDisputed, o.Status)
		assert.Equal(t, DisputeStatusOpen, d.Status)
		assert.Equal(t, o.ID, d.OrderID)
		assert.Equal(t, o.TeamID, d.TeamID)
		assert.Equal(t, []uuid.UUID{proof}, d.AttachmentFileIDs)
		assertSingleEvent(t, o, ActionDisputed)
		assert.Equal(t, d.ID.String(), o.GetDomainEvents()[0].Metadata()["dispute_id"])
	})

	t.Run("requires completed order", func(t *testing.T) {
		o, creator, _ := fulfilledOrder(t)
		_, err := o.RaiseDispute(creator, "late", nil, time.Now())
		assert.Equal(t, "INVALID_STATE", shared.CodeOf(err))
	})

	t.Run("disputed order cannot take another dispute", func(t *testing.T) {
		o, creator, _ := completedOrder(t)
		_, err := o.RaiseDispute(creator, "first", nil, time.Now())
		require.NoError(t, err)
		_, err = o.RaiseDispute(creator, "second", nil, time.Now())
		assert.Equal(t, "INVALID_STATE", shared.CodeOf(err))
	})

	t.Run("unauthorized", func(t *testing.T) {
		o, _, s := completedOrder(t)
		for _, p := range []identity.Principal{s, memberOf(testTeamID), owner()} {
			_, err := o.RaiseDispute(p, "nope", nil, time.Now())
			assert.Equal(t, "FORBIDDEN", shared.CodeOf(err))
		}
		assert.Equal(t, OrderStatusCompleted, o.Status)
	})

	t.Run("reason required", func(t *testing.T) {
		o, creator, _ := completedOrder(t)
		_, err := o.RaiseDispute(creator, "", nil, time.Now())
		assert.Equal(t, "INVALID_REASON", shared.CodeOf(err))
		assert.Equal(t, OrderStatusCompleted, o.Status)
		assert.Empty(t, o.GetDomainEvents())
	})
}

func TestOrder_ResolveDispute(t *testing.T) {
	o, creator, _ := completedOrder(t)
	d, err := o.RaiseDispute(creator, "missing item", nil, time.Now())
	require.NoError(t, err)
	o.ClearDomainEvents()

	t.Run("only owners", func(t *testing.T) {
		err := o.ResolveDispute(adminOf(testTeamID), d, DisputeResolution{Outcome: DisputeStatusResolved}, 0, time.Now())
		assert.Equal(t, "FORBIDDEN", shared.CodeOf(err))
	})

	t.Run("partial refund needs an amount", func(t *testing.T) {
		err := o.ResolveDispute(owner(), d, DisputeResolution{Outcome: DisputeStatusPartialRefund}, 0, time.Now())
		assert.Equal(t, "INVALID_ADJUSTMENT", shared.CodeOf(err))
		assert.True(t, d.IsOpen())
		assert.Equal(t, OrderStatusDisputed, o.Status)
	})

	t.Run("open is not an outcome", func(t *testing.T) {
		err := o.ResolveDispute(owner(), d, DisputeResolution{Outcome: DisputeStatusOpen}, 0, time.Now())
		assert.Equal(t, "INVALID_OUTCOME", shared.CodeOf(err))
	})

	t.Run("resolves and returns order to completed", func(t *testing.T) {
		amount := decimal.NewFromFloat(12.345)
		ow := owner()
		err := o.ResolveDispute(ow, d, DisputeResolution{
			Outcome:             DisputeStatusPartialRefund,
			Notes:               "refund one item",
			AdjustmentAmountUSD: &amount,
		}, 0, time.Now())
		require.NoError(t, err)

		assert.Equal(t, DisputeStatusPartialRefund, d.Status)
		assert.Equal(t, "12.35", d.AdjustmentAmountUSD.StringFixed(2))
		assert.Equal(t, ow.UserID, *d.ResolvedByUserID)
		assert.Equal(t, OrderStatusCompleted, o.Status)
		assertSingleEvent(t, o, ActionDisputeResolved)
	})

	t.Run("already resolved", func(t *testing.T) {
		_, err := o.RaiseDispute(creator, "another", nil, time.Now())
		require.NoError(t, err)
		err = o.ResolveDispute(owner(), d, DisputeResolution{Outcome: DisputeStatusResolved}, 0, time.Now())
		assert.Equal(t, "INVALID_STATE", shared.CodeOf(err))
	})
}

func TestOrder_ResolveDispute_KeepsDisputedWhileOthersOpen(t *testing.T) {
	o, creator, _ := completedOrder(t)
	d, err := o.RaiseDispute(creator, "missing item", nil, time.Now())
	require.NoError(t, err)

	require.NoError(t, o.ResolveDispute(owner(), d, DisputeResolution{Outcome: DisputeStatusDeclined}, 1, time.Now()))
	assert.Equal(t, OrderStatusDisputed, o.Status)
}

// ==================== Auto-cancel ====================

func TestOrder_AutoCancel(t *testing.T) {
	threshold := 10 * time.Minute

	t.Run("stale unpicked order is cancelled", func(t *testing.T) {
		o, _ := createTestOrder(t)
		now := o.CreatedAt.Add(11 * time.Minute)

		require.True(t, o.IsStale(now, threshold))
		require.NoError(t, o.AutoCancel(now, threshold))
		assert.Equal(t, OrderStatusCancelled, o.Status)
		require.NotNil(t, o.AutoCancelAt)
		assertSingleEvent(t, o, ActionAutoCancelled)
		assert.Nil(t, o.GetDomainEvents()[0].ActorID())
	})

	t.Run("second run is rejected without change", func(t *testing.T) {
		o, _ := createTestOrder(t)
		now := o.CreatedAt.Add(11 * time.Minute)
		require.NoError(t, o.AutoCancel(now, threshold))
		stamp := *o.AutoCancelAt
		o.ClearDomainEvents()

		assert.False(t, o.IsStale(now, threshold))
		err := o.AutoCancel(now.Add(time.Minute), threshold)
		assert.Equal(t, "INVALID_STATE", shared.CodeOf(err))
		assert.Equal(t, stamp, *o.AutoCancelAt)
		assert.Empty(t, o.GetDomainEvents())
	})

	t.Run("fresh order is kept", func(t *testing.T) {
		o, _ := createTestOrder(t)
		err := o.AutoCancel(o.CreatedAt.Add(5*time.Minute), threshold)
		assert.Equal(t, "NOT_STALE", shared.CodeOf(err))
		assert.Equal(t, OrderStatusSubmitted, o.Status)
	})

	t.Run("picked order is never cancelled", func(t *testing.T) {
		o, _, _ := pickedOrder(t)
		err := o.AutoCancel(o.CreatedAt.Add(time.Hour), threshold)
		assert.Equal(t, "ALREADY_PICKED", shared.CodeOf(err))
		assert.Equal(t, OrderStatusPicked, o.Status)
	})
}

// ==================== Access lists ====================

func TestOrder_GrantRevokeAccess(t *testing.T) {
	o, _ := createTestOrder(t)
	admin := adminOf(testTeamID)
	u := uuid.New()

	changed, err := o.GrantAccess(admin, u, AccessRead, time.Now())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, o.ReadAccessUserIDs, u)
	assertSingleEvent(t, o, ActionAccessChanged)

	o.ClearDomainEvents()
	changed, err = o.GrantAccess(admin, u, AccessRead, time.Now())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, o.GetDomainEvents())

	_, err = o.GrantAccess(memberOf(testTeamID), uuid.New(), AccessWrite, time.Now())
	assert.Equal(t, "FORBIDDEN", shared.CodeOf(err))

	_, err = o.GrantAccess(owner(), uuid.New(), AccessLevel("admin"), time.Now())
	assert.Equal(t, "INVALID_ACCESS_LEVEL", shared.CodeOf(err))

	changed, err = o.RevokeAccess(owner(), u, AccessRead, time.Now())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NotContains(t, o.ReadAccessUserIDs, u)

	changed, err = o.RevokeAccess(owner(), u, AccessRead, time.Now())
	require.NoError(t, err)
	assert.False(t, changed)
}

// ==================== State machine ====================

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	allowed := map[OrderStatus][]OrderStatus{
		OrderStatusSubmitted:       {OrderStatusPicked, OrderStatusCancelled},
		OrderStatusPicked:          {OrderStatusInProgress, OrderStatusOnHold},
		OrderStatusInProgress:      {OrderStatusOnHold, OrderStatusFulfilSubmitted},
		OrderStatusOnHold:          {OrderStatusInProgress, OrderStatusFulfilSubmitted},
		OrderStatusFulfilSubmitted: {OrderStatusCompleted},
		OrderStatusCompleted:       {OrderStatusDisputed},
		OrderStatusDisputed:        {OrderStatusCompleted},
		OrderStatusCancelled:       {},
	}
	for _, from := range AllOrderStatuses {
		for _, to := range AllOrderStatuses {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatus("team_joined").IsValid())
}

// Every operation attempted from a status outside its precondition must be
// rejected and leave the order untouched.
func TestOrder_RejectsTransitionsOutsideTable(t *testing.T) {
	type op struct {
		name    string
		allowed []OrderStatus
		run     func(o *Order, creator, picker identity.Principal) error
	}
	ops := []op{
		{"start", []OrderStatus{OrderStatusPicked, OrderStatusOnHold}, func(o *Order, _, p identity.Principal) error {
			return o.Start(p, time.Now())
		}},
		{"hold", []OrderStatus{OrderStatusPicked, OrderStatusInProgress}, func(o *Order, _, p identity.Principal) error {
			return o.Hold(p, "reason", time.Now())
		}},
		{"resume", []OrderStatus{OrderStatusOnHold}, func(o *Order, _, p identity.Principal) error {
			return o.Resume(p, time.Now())
		}},
		{"complete", []OrderStatus{OrderStatusFulfilSubmitted}, func(o *Order, c, _ identity.Principal) error {
			return o.Complete(c, time.Now())
		}},
		{"dispute", []OrderStatus{OrderStatusCompleted}, func(o *Order, c, _ identity.Principal) error {
			_, err := o.RaiseDispute(c, "reason", nil, time.Now())
			return err
		}},
	}

	for _, operation := range ops {
		for _, status := range AllOrderStatuses {
			allowed := false
			for _, a := range operation.allowed {
				if a == status {
					allowed = true
				}
			}
			if allowed {
				continue
			}
			t.Run(operation.name+"_from_"+string(status), func(t *testing.T) {
				o, creator, picker := pickedOrder(t)
				o.Status = status
				if status == OrderStatusFulfilSubmitted || status == OrderStatusCompleted || status == OrderStatusDisputed {
					o.Fulfilment = &Fulfilment{}
				}
				before := *o

				err := operation.run(o, creator, picker)
				require.Error(t, err)
				assert.Equal(t, before.Status, o.Status)
				assert.Equal(t, before.UpdatedAt, o.UpdatedAt)
				assert.Empty(t, o.GetDomainEvents())
			})
		}
	}
}

func TestOrder_UpdatedAtNeverMovesBackwards(t *testing.T) {
	o, _, s := pickedOrder(t)
	before := o.UpdatedAt

	require.NoError(t, o.Start(s, before.Add(-time.Hour)))
	assert.False(t, o.UpdatedAt.Before(before))
	assert.False(t, o.GetDomainEvents()[0].OccurredAt().Before(before))
}
