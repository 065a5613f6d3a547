package fulfilment

import (
	"context"

	"github.com/fulfildesk/backend/internal/domain/access"
	"github.com/fulfildesk/backend/internal/domain/audit"
	"github.com/fulfildesk/backend/internal/domain/fulfilment"
	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AuditService reads the audit log. Writing happens only in repositories.
type AuditService struct {
	auditRepo audit.Repository
	orderRepo fulfilment.OrderRepository
}

// NewAuditService creates a new AuditService
func NewAuditService(auditRepo audit.Repository, orderRepo fulfilment.OrderRepository) *AuditService {
	return &AuditService{auditRepo: auditRepo, orderRepo: orderRepo}
}

// OrderHistory returns the transitions of one order, oldest first
func (s *AuditService) OrderHistory(ctx context.Context, p identity.Principal, orderID uuid.UUID) ([]AuditEntryResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := access.AuthorizeRead(p, order); err != nil {
		return nil, err
	}
	entries, err := s.auditRepo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ToAuditEntryResponse(e))
	}
	return out, nil
}

// List returns the whole log, newest first. Owners only.
func (s *AuditService) List(ctx context.Context, p identity.Principal, f AuditListFilter) ([]AuditEntryResponse, int64, error) {
	if !p.IsOwner() {
		return nil, 0, shared.NewDomainError("FORBIDDEN", "Only owners can view the audit log")
	}
	filter := shared.DefaultFilter()
	filter.Page = f.Page
	filter.PageSize = f.PageSize
	filter = filter.Normalize()
	if f.Action != "" {
		filter.Filters["action"] = f.Action
	}
	if f.Entity != "" {
		filter.Filters["entity"] = f.Entity
	}
	if f.OrderID != nil {
		filter.Filters["order_id"] = *f.OrderID
	}
	if f.ActorUserID != nil {
		filter.Filters["actor_user_id"] = *f.ActorUserID
	}

	entries, total, err := s.auditRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ToAuditEntryResponse(e))
	}
	return out, total, nil
}
