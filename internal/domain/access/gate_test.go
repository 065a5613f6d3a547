package access

import (
	"testing"

	"github.com/fulfildesk/backend/internal/domain/fulfilment"
	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func testOrder() *fulfilment.Order {
	picker := uuid.New()
	return &fulfilment.Order{
		BaseAggregateRoot:   shared.NewBaseAggregateRoot(),
		TeamID:              uuid.New(),
		CreatedByUserID:     uuid.New(),
		PickedByStaffUserID: &picker,
		Status:              fulfilment.OrderStatusInProgress,
	}
}

func TestCanReadCanWrite(t *testing.T) {
	o := testOrder()
	otherTeam := uuid.New()

	tests := []struct {
		name      string
		principal identity.Principal
		wantRead  bool
		wantWrite bool
	}{
		{"owner", identity.NewPrincipal(uuid.New(), identity.Owner{}), true, true},
		{"creator", identity.NewPrincipal(o.CreatedByUserID, identity.ResellerMember{Team: o.TeamID}), true, true},
		{"creator who left the team", identity.NewPrincipal(o.CreatedByUserID, identity.Unaffiliated{}), true, true},
		{"picking staff", identity.NewPrincipal(*o.PickedByStaffUserID, identity.Staff{}), true, true},
		{"other staff", identity.NewPrincipal(uuid.New(), identity.Staff{}), false, false},
		{"team admin", identity.NewPrincipal(uuid.New(), identity.ResellerAdmin{Team: o.TeamID}), true, true},
		{"admin of other team", identity.NewPrincipal(uuid.New(), identity.ResellerAdmin{Team: otherTeam}), false, false},
		{"plain team member", identity.NewPrincipal(uuid.New(), identity.ResellerMember{Team: o.TeamID}), false, false},
		{"default member", identity.NewPrincipal(uuid.New(), identity.ResellerDefault{Team: o.TeamID}), false, false},
		{"unaffiliated", identity.NewPrincipal(uuid.New(), identity.Unaffiliated{}), false, false},
		{"no role", identity.NewPrincipal(uuid.New(), nil), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantRead, CanRead(tt.principal, o))
			assert.Equal(t, tt.wantWrite, CanWrite(tt.principal, o))
		})
	}
}

func TestExplicitAccessLists(t *testing.T) {
	o := testOrder()
	u := uuid.New()
	p := identity.NewPrincipal(u, identity.Unaffiliated{})

	assert.False(t, CanRead(p, o))

	o.ReadAccessUserIDs = []uuid.UUID{u}
	assert.True(t, CanRead(p, o))
	assert.False(t, CanWrite(p, o))
	assert.Equal(t, ErrWriteDenied, AuthorizeWrite(p, o))

	o.WriteAccessUserIDs = []uuid.UUID{u}
	assert.True(t, CanWrite(p, o))
	assert.NoError(t, AuthorizeWrite(p, o))

	o.ReadAccessUserIDs = nil
	assert.True(t, CanRead(p, o), "write list implies read")
}

func TestWriteImpliesRead(t *testing.T) {
	orders := []*fulfilment.Order{testOrder(), testOrder(), testOrder()}
	orders[1].PickedByStaffUserID = nil
	orders[2].WriteAccessUserIDs = []uuid.UUID{uuid.New()}

	var principals []identity.Principal
	for _, o := range orders {
		ids := []uuid.UUID{uuid.New(), o.CreatedByUserID}
		if o.PickedByStaffUserID != nil {
			ids = append(ids, *o.PickedByStaffUserID)
		}
		ids = append(ids, o.WriteAccessUserIDs...)
		for _, id := range ids {
			principals = append(principals,
				identity.NewPrincipal(id, identity.Owner{}),
				identity.NewPrincipal(id, identity.Staff{}),
				identity.NewPrincipal(id, identity.ResellerAdmin{Team: o.TeamID}),
				identity.NewPrincipal(id, identity.ResellerMember{Team: o.TeamID}),
				identity.NewPrincipal(id, identity.ResellerDefault{Team: o.TeamID}),
				identity.NewPrincipal(id, identity.Unaffiliated{}),
			)
		}
	}

	for _, o := range orders {
		for _, p := range principals {
			if CanWrite(p, o) {
				assert.True(t, CanRead(p, o))
			}
		}
	}
}

func TestAuthorize(t *testing.T) {
	o := testOrder()
	stranger := identity.NewPrincipal(uuid.New(), identity.Staff{})

	err := AuthorizeRead(stranger, o)
	assert.Equal(t, "FORBIDDEN", shared.CodeOf(err))
	assert.Equal(t, ErrReadDenied, AuthorizeWrite(stranger, o))
	assert.NoError(t, AuthorizeRead(identity.NewPrincipal(uuid.New(), identity.Owner{}), o))
	assert.False(t, CanRead(stranger, nil))
}

func TestInQueue(t *testing.T) {
	o := testOrder()
	o.PickedByStaffUserID = nil
	o.Status = fulfilment.OrderStatusSubmitted
	s := identity.NewPrincipal(uuid.New(), identity.Staff{})

	assert.True(t, InQueue(s, o))
	assert.False(t, CanRead(s, o), "queue visibility does not grant read access")
	assert.False(t, InQueue(identity.NewPrincipal(uuid.New(), identity.Owner{}), o))

	o.Passes = []fulfilment.OrderPass{{UserID: s.UserID}}
	assert.False(t, InQueue(s, o))

	o.Passes = nil
	o.Status = fulfilment.OrderStatusCancelled
	assert.False(t, InQueue(s, o))
}

func TestCanManageAccess(t *testing.T) {
	o := testOrder()
	assert.True(t, CanManageAccess(identity.NewPrincipal(uuid.New(), identity.Owner{}), o))
	assert.True(t, CanManageAccess(identity.NewPrincipal(uuid.New(), identity.ResellerAdmin{Team: o.TeamID}), o))
	assert.False(t, CanManageAccess(identity.NewPrincipal(o.CreatedByUserID, identity.ResellerMember{Team: o.TeamID}), o))
	assert.False(t, CanManageAccess(identity.NewPrincipal(*o.PickedByStaffUserID, identity.Staff{}), o))
}
