package fulfilment

import (
	"fmt"
	"strings"
	"time"

	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DisputeStatus represents the status of a dispute
type DisputeStatus string

const (
	DisputeStatusOpen          DisputeStatus = "open"
	DisputeStatusApproved      DisputeStatus = "approved"
	DisputeStatusDeclined      DisputeStatus = "declined"
	DisputeStatusPartialRefund DisputeStatus = "partial_refund"
	DisputeStatusResolved      DisputeStatus = "resolved"
)

// IsValid checks if the dispute status is valid
func (s DisputeStatus) IsValid() bool {
	switch s {
	case DisputeStatusOpen, DisputeStatusApproved, DisputeStatusDeclined,
		DisputeStatusPartialRefund, DisputeStatusResolved:
		return true
	default:
		return false
	}
}

// IsOutcome reports whether the status closes a dispute
func (s DisputeStatus) IsOutcome() bool {
	return s.IsValid() && s != DisputeStatusOpen
}

// Dispute is a complaint raised by the reseller side against a completed
// order. Disputes are created through Order.RaiseDispute and closed through
// Order.ResolveDispute so the order status and audit trail stay in step.
type Dispute struct {
	shared.BaseAggregateRoot
	OrderID             uuid.UUID
	TeamID              uuid.UUID
	RaisedByUserID      uuid.UUID
	Reason              string
	AttachmentFileIDs   []uuid.UUID
	Status              DisputeStatus
	ResolutionNotes     string
	AdjustmentAmountUSD *decimal.Decimal
	ResolvedByUserID    *uuid.UUID
	ResolvedAt          *time.Time
}

// DisputeResolution is the owner's decision on a dispute
type DisputeResolution struct {
	Outcome             DisputeStatus
	Notes               string
	AdjustmentAmountUSD *decimal.Decimal
}

func newDispute(o *Order, raisedBy uuid.UUID, reason string, attachmentIDs []uuid.UUID, now time.Time) (*Dispute, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, shared.NewDomainError("INVALID_REASON", "Dispute reason is required")
	}
	if len(reason) > 2000 {
		return nil, shared.NewDomainError("INVALID_REASON", "Dispute reason cannot exceed 2000 characters")
	}
	d := &Dispute{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderID:           o.ID,
		TeamID:            o.TeamID,
		RaisedByUserID:    raisedBy,
		Reason:            reason,
		AttachmentFileIDs: dedupe(attachmentIDs),
		Status:            DisputeStatusOpen,
	}
	d.CreatedAt = now.UTC()
	d.UpdatedAt = d.CreatedAt
	return d, nil
}

// IsOpen reports whether the dispute awaits a decision
func (d *Dispute) IsOpen() bool {
	return d.Status == DisputeStatusOpen
}

func (d *Dispute) resolve(actor uuid.UUID, in DisputeResolution, at time.Time) error {
	if !d.IsOpen() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot resolve dispute in %s status", d.Status))
	}
	if !in.Outcome.IsOutcome() {
		return shared.NewDomainError("INVALID_OUTCOME", "Outcome must be one of approved, declined, partial_refund, resolved")
	}
	notes := strings.TrimSpace(in.Notes)
	if len(notes) > 2000 {
		return shared.NewDomainError("INVALID_NOTES", "Resolution notes cannot exceed 2000 characters")
	}
	var adjustment *decimal.Decimal
	if in.AdjustmentAmountUSD != nil {
		if !in.AdjustmentAmountUSD.IsPositive() {
			return shared.NewDomainError("INVALID_ADJUSTMENT", "Adjustment amount must be greater than zero")
		}
		rounded := in.AdjustmentAmountUSD.Round(2)
		adjustment = &rounded
	}
	if in.Outcome == DisputeStatusPartialRefund && adjustment == nil {
		return shared.NewDomainError("INVALID_ADJUSTMENT", "Partial refunds require an adjustment amount")
	}
	if in.Outcome == DisputeStatusDeclined && adjustment != nil {
		return shared.NewDomainError("INVALID_ADJUSTMENT", "Declined disputes cannot carry an adjustment")
	}

	d.Status = in.Outcome
	d.ResolutionNotes = notes
	d.AdjustmentAmountUSD = adjustment
	d.ResolvedByUserID = &actor
	d.ResolvedAt = &at
	d.Touch(at)
	return nil
}
