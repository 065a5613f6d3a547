package fulfilment

import "github.com/fulfildesk/backend/internal/domain/audit"

// Order event types. Each one is stored verbatim as the audit action.
const (
	ActionCreated         = audit.ActionOrderCreated
	ActionPicked          = audit.ActionOrderPicked
	ActionPassed          = audit.ActionOrderPassed
	ActionInProgress      = audit.ActionOrderInProgress
	ActionHold            = audit.ActionOrderHold
	ActionResume          = audit.ActionOrderResume
	ActionFulfilSubmitted = audit.ActionOrderFulfilSubmitted
	ActionCompleted       = audit.ActionOrderCompleted
	ActionDisputed        = audit.ActionOrderDisputed
	ActionDisputeResolved = audit.ActionOrderDisputeResolved
	ActionAutoCancelled   = audit.ActionOrderAutoCancelled
	ActionAccessChanged   = audit.ActionOrderAccessChanged
)
