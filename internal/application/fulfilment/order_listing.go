package fulfilment

import (
	"context"

	"github.com/fulfildesk/backend/internal/domain/access"
	"github.com/fulfildesk/backend/internal/domain/fulfilment"
	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Queue lists the orders offered to a staff member: submitted, unpicked and
// not yet passed by them, newest first.
func (s *OrderService) Queue(ctx context.Context, p identity.Principal, filter OrderListFilter) ([]OrderResponse, int64, error) {
	if !p.IsStaff() {
		return nil, 0, shared.NewDomainError("FORBIDDEN", "Only staff can view the pick queue")
	}
	q := fulfilment.OrderQuery{
		Statuses:    []fulfilment.OrderStatus{fulfilment.OrderStatusSubmitted},
		Unpicked:    true,
		NotPassedBy: &p.UserID,
		CategoryID:  filter.CategoryID,
		Filter:      pageOf(filter),
	}
	orders, total, err := s.orderRepo.FindAll(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		if access.InQueue(p, &orders[i]) {
			out = append(out, ToOrderResponse(&orders[i], false))
		}
	}
	return out, total, nil
}

// List returns the orders the caller works with:
//   - owners see every order and may filter by status, team and category
//   - staff see the orders they picked
//   - team admins see all orders of their team, other resellers the orders
//     they created; both also see orders shared with them
func (s *OrderService) List(ctx context.Context, p identity.Principal, filter OrderListFilter) ([]OrderResponse, int64, error) {
	q := fulfilment.OrderQuery{
		CategoryID: filter.CategoryID,
		Filter:     pageOf(filter),
	}
	if filter.Status != "" {
		status := fulfilment.OrderStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_STATUS", "Unknown order status")
		}
		q.Statuses = []fulfilment.OrderStatus{status}
	}

	if !identity.Match(p.Role, &listScope{principal: p, query: &q, teamFilter: filter.TeamID}) {
		return []OrderResponse{}, 0, nil
	}

	orders, total, err := s.orderRepo.FindAll(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		if access.CanRead(p, &orders[i]) {
			out = append(out, ToOrderResponse(&orders[i], access.CanWrite(p, &orders[i])))
		}
	}
	return out, total, nil
}

// listScope narrows an order query to what the role works with
type listScope struct {
	principal  identity.Principal
	query      *fulfilment.OrderQuery
	teamFilter *uuid.UUID
}

func (l *listScope) Owner() bool {
	l.query.TeamID = l.teamFilter
	return true
}

func (l *listScope) Staff() bool {
	l.query.PickedBy = &l.principal.UserID
	return true
}

func (l *listScope) ResellerAdmin(teamID uuid.UUID) bool {
	l.query.VisibleTo = &l.principal.UserID
	l.query.VisibleTeamID = &teamID
	return true
}

func (l *listScope) ResellerMember(uuid.UUID) bool { return l.Unaffiliated() }

func (l *listScope) ResellerDefault(uuid.UUID) bool { return l.Unaffiliated() }

func (l *listScope) Unaffiliated() bool {
	l.query.VisibleTo = &l.principal.UserID
	return true
}

func pageOf(f OrderListFilter) shared.Filter {
	filter := shared.DefaultFilter()
	if f.Page > 0 {
		filter.Page = f.Page
	}
	if f.PageSize > 0 {
		filter.PageSize = f.PageSize
	}
	if f.OrderDir != "" {
		filter.OrderDir = f.OrderDir
	}
	return filter.Normalize()
}
