package fulfilment

import (
	"context"
	"fmt"
	"time"

	"github.com/fulfildesk/backend/internal/domain/access"
	"github.com/fulfildesk/backend/internal/domain/attachment"
	"github.com/fulfildesk/backend/internal/domain/fulfilment"
	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// RaiseDispute opens a dispute on a completed order. The dispute row, the
// order status change and its audit row commit together.
func (s *OrderService) RaiseDispute(ctx context.Context, p identity.Principal, orderID uuid.UUID, req RaiseDisputeRequest) (*DisputeResponse, error) {
	var dispute *fulfilment.Dispute
	_, err := s.transition(ctx, p, orderID, fulfilment.ActionDisputed,
		func(_ context.Context, o *fulfilment.Order, now time.Time) (bool, error) {
			if err := access.AuthorizeWrite(p, o); err != nil {
				return false, err
			}
			d, err := o.RaiseDispute(p, req.Reason, req.AttachmentIDs, now)
			if err != nil {
				return false, err
			}
			dispute = d
			return true, nil
		},
		func(ctx context.Context, o *fulfilment.Order) error {
			if err := s.disputeRepo.Create(ctx, dispute); err != nil {
				return fmt.Errorf("failed to create dispute: %w", err)
			}
			return linkAttachments(ctx, s.attachmentRepo, dispute.AttachmentFileIDs,
				attachment.EntityDispute, dispute.ID, o.ID, p.UserID)
		})
	if err != nil {
		return nil, err
	}
	resp := ToDisputeResponse(dispute)
	return &resp, nil
}

// ResolveDispute records the owner's decision. The order goes back to
// completed once no other dispute on it is open.
func (s *OrderService) ResolveDispute(ctx context.Context, p identity.Principal, disputeID uuid.UUID, req ResolveDisputeRequest) (*DisputeResponse, error) {
	if !p.IsOwner() {
		return nil, shared.NewDomainError("FORBIDDEN", "Only owners can resolve disputes")
	}
	initial, err := s.disputeRepo.FindByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}

	var dispute *fulfilment.Dispute
	_, err = s.transition(ctx, p, initial.OrderID, fulfilment.ActionDisputeResolved,
		func(ctx context.Context, o *fulfilment.Order, now time.Time) (bool, error) {
			if err := access.AuthorizeRead(p, o); err != nil {
				return false, err
			}
			d, err := s.disputeRepo.FindByID(ctx, disputeID)
			if err != nil {
				return false, err
			}
			open, err := s.disputeRepo.CountOpenByOrder(ctx, o.ID)
			if err != nil {
				return false, fmt.Errorf("failed to count open disputes: %w", err)
			}
			stillOpen := int(open)
			if d.IsOpen() && stillOpen > 0 {
				stillOpen--
			}
			if err := o.ResolveDispute(p, d, fulfilment.DisputeResolution{
				Outcome:             fulfilment.DisputeStatus(req.Outcome),
				Notes:               req.Notes,
				AdjustmentAmountUSD: req.AdjustmentAmountUSD,
			}, stillOpen, now); err != nil {
				return false, err
			}
			dispute = d
			return true, nil
		},
		func(ctx context.Context, _ *fulfilment.Order) error {
			return s.disputeRepo.SaveWithLock(ctx, dispute)
		})
	if err != nil {
		return nil, err
	}
	resp := ToDisputeResponse(dispute)
	return &resp, nil
}

// GetDispute returns one dispute to anyone who can read its order
func (s *OrderService) GetDispute(ctx context.Context, p identity.Principal, id uuid.UUID) (*DisputeResponse, error) {
	d, err := s.disputeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	order, err := s.orderRepo.FindByID(ctx, d.OrderID)
	if err != nil {
		return nil, err
	}
	if err := access.AuthorizeRead(p, order); err != nil {
		return nil, err
	}
	resp := ToDisputeResponse(d)
	return &resp, nil
}

// ListOrderDisputes lists the disputes of an order, oldest first
func (s *OrderService) ListOrderDisputes(ctx context.Context, p identity.Principal, orderID uuid.UUID) ([]DisputeResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := access.AuthorizeRead(p, order); err != nil {
		return nil, err
	}
	disputes, err := s.disputeRepo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	out := make([]DisputeResponse, 0, len(disputes))
	for i := range disputes {
		out = append(out, ToDisputeResponse(&disputes[i]))
	}
	return out, nil
}

// ListOpenDisputes is the owner's review queue
func (s *OrderService) ListOpenDisputes(ctx context.Context, p identity.Principal, filter shared.Filter) ([]DisputeResponse, int64, error) {
	if !p.IsOwner() {
		return nil, 0, shared.NewDomainError("FORBIDDEN", "Only owners can review disputes")
	}
	filter = filter.Normalize()
	filter.Filters["status"] = string(fulfilment.DisputeStatusOpen)
	disputes, total, err := s.disputeRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]DisputeResponse, 0, len(disputes))
	for i := range disputes {
		out = append(out, ToDisputeResponse(&disputes[i]))
	}
	return out, total, nil
}
