package fulfilment

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeOrder is the aggregate type name for orders
const AggregateTypeOrder = "order"

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderStatusSubmitted       OrderStatus = "submitted"
	OrderStatusPicked          OrderStatus = "picked"
	OrderStatusInProgress      OrderStatus = "in_progress"
	OrderStatusOnHold          OrderStatus = "on_hold"
	OrderStatusFulfilSubmitted OrderStatus = "fulfil_submitted"
	OrderStatusCompleted       OrderStatus = "completed"
	OrderStatusDisputed        OrderStatus = "disputed"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

// AllOrderStatuses lists every order status
var AllOrderStatuses = []OrderStatus{
	OrderStatusSubmitted,
	OrderStatusPicked,
	OrderStatusInProgress,
	OrderStatusOnHold,
	OrderStatusFulfilSubmitted,
	OrderStatusCompleted,
	OrderStatusDisputed,
	OrderStatusCancelled,
}

// IsValid checks if the status is a valid order status
func (s OrderStatus) IsValid() bool {
	return slices.Contains(AllOrderStatuses, s)
}

// String returns the string representation of the status
func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no transition leaves this status
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusSubmitted:
		return target == OrderStatusPicked || target == OrderStatusCancelled
	case OrderStatusPicked:
		return target == OrderStatusInProgress || target == OrderStatusOnHold
	case OrderStatusInProgress:
		return target == OrderStatusOnHold || target == OrderStatusFulfilSubmitted
	case OrderStatusOnHold:
		return target == OrderStatusInProgress || target == OrderStatusFulfilSubmitted
	case OrderStatusFulfilSubmitted:
		return target == OrderStatusCompleted
	case OrderStatusCompleted:
		return target == OrderStatusDisputed
	case OrderStatusDisputed:
		return target == OrderStatusCompleted
	default:
		return false
	}
}

// SLA is the requested turnaround of an order
type SLA string

const (
	SLAAsap    SLA = "asap"
	SLAToday   SLA = "today"
	SLA24Hours SLA = "24h"
)

// IsValid checks if the SLA is known
func (s SLA) IsValid() bool {
	return s == SLAAsap || s == SLAToday || s == SLA24Hours
}

// OrderDetails holds the descriptive free-text fields of an order
type OrderDetails struct {
	Merchant        string
	CustomerName    string
	Country         string
	City            string
	Contact         string
	PickupAddress   string
	DeliveryAddress string
	TimeWindow      string
	ItemsSummary    string
}

// OrderPass records a staff member declining an unpicked order
type OrderPass struct {
	UserID   uuid.UUID
	PassedAt time.Time
	Reason   string
}

// Fulfilment is the proof of purchase submitted by the picking staff member
type Fulfilment struct {
	MerchantLink  string
	NameOnOrder   string
	FinalValueUSD decimal.Decimal
	ProofFileIDs  []uuid.UUID
	SubmittedAt   time.Time
}

// AccessLevel selects one of the explicit ACL lists
type AccessLevel string

const (
	AccessRead  AccessLevel = "read"
	AccessWrite AccessLevel = "write"
)

// IsValid checks if the access level is valid
func (l AccessLevel) IsValid() bool {
	return l == AccessRead || l == AccessWrite
}

// Order is a purchase order submitted by a reseller team and fulfilled by
// staff. All status changes go through the methods below; each successful
// change raises exactly one domain event that becomes an audit row.
type Order struct {
	shared.BaseAggregateRoot
	TeamID              uuid.UUID
	CreatedByUserID     uuid.UUID
	PickedByStaffUserID *uuid.UUID
	CategoryID          uuid.UUID
	SLA                 SLA
	CartValueUSD        decimal.Decimal
	CurrencyOverride    string
	Details             OrderDetails
	AttachmentIDs       []uuid.UUID
	Status              OrderStatus
	Passes              []OrderPass
	HoldReason          string
	Fulfilment          *Fulfilment
	ReadAccessUserIDs   []uuid.UUID
	WriteAccessUserIDs  []uuid.UUID
	AcceptedAt          *time.Time
	CompletedAt         *time.Time
	AutoCancelAt        *time.Time
}

// NewOrderInput carries the caller-supplied fields of a new order
type NewOrderInput struct {
	TeamID           uuid.UUID
	CategoryID       uuid.UUID
	SLA              SLA
	CartValueUSD     decimal.Decimal
	CurrencyOverride string
	Details          OrderDetails
	AttachmentIDs    []uuid.UUID
}

// NewOrder creates a submitted order on behalf of a member of the target team
func NewOrder(actor identity.Principal, in NewOrderInput) (*Order, error) {
	if in.TeamID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TEAM_ID", "Team ID cannot be empty")
	}
	if !actor.IsMemberOf(in.TeamID) {
		return nil, shared.NewDomainError("NOT_TEAM_MEMBER", "Only active members of the team can submit orders")
	}
	if in.CategoryID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CATEGORY_ID", "Category ID cannot be empty")
	}
	if !in.SLA.IsValid() {
		return nil, shared.NewDomainError("INVALID_SLA", "SLA must be one of asap, today, 24h")
	}
	if in.CartValueUSD.IsNegative() {
		return nil, shared.NewDomainError("INVALID_CART_VALUE", "Cart value cannot be negative")
	}
	if len(in.CurrencyOverride) > 3 {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Currency override must be an ISO 4217 code")
	}
	details, err := normalizeDetails(in.Details)
	if err != nil {
		return nil, err
	}

	order := &Order{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(),
		TeamID:             in.TeamID,
		CreatedByUserID:    actor.UserID,
		CategoryID:         in.CategoryID,
		SLA:                in.SLA,
		CartValueUSD:       in.CartValueUSD.Round(2),
		CurrencyOverride:   strings.ToUpper(strings.TrimSpace(in.CurrencyOverride)),
		Details:            details,
		AttachmentIDs:      dedupe(in.AttachmentIDs),
		Status:             OrderStatusSubmitted,
		Passes:             make([]OrderPass, 0),
		ReadAccessUserIDs:  make([]uuid.UUID, 0),
		WriteAccessUserIDs: make([]uuid.UUID, 0),
	}

	order.record(ActionCreated, &actor.UserID, map[string]any{
		"team_id":     order.TeamID.String(),
		"category_id": order.CategoryID.String(),
		"sla":         string(order.SLA),
	})

	return order, nil
}

// IsPicked reports whether a staff member holds the order
func (o *Order) IsPicked() bool {
	return o.PickedByStaffUserID != nil
}

// IsPickedBy reports whether userID is the picking staff member
func (o *Order) IsPickedBy(userID uuid.UUID) bool {
	return o.PickedByStaffUserID != nil && *o.PickedByStaffUserID == userID
}

// HasPassed reports whether userID already declined the order
func (o *Order) HasPassed(userID uuid.UUID) bool {
	for _, p := range o.Passes {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// Pick claims a submitted order for the acting staff member
func (o *Order) Pick(actor identity.Principal, now time.Time) error {
	if !actor.IsStaff() {
		return shared.NewDomainError("FORBIDDEN", "Only staff can pick orders")
	}
	if o.IsPicked() {
		return shared.NewDomainError("ALREADY_PICKED", "Order already picked")
	}
	if o.Status != OrderStatusSubmitted {
		return invalidState("pick", o.Status)
	}

	staffID := actor.UserID
	o.PickedByStaffUserID = &staffID
	o.Status = OrderStatusPicked
	o.touch(now)
	accepted := o.UpdatedAt
	o.AcceptedAt = &accepted

	o.record(ActionPicked, &staffID, nil)
	return nil
}

// Pass declines an unpicked order for the acting staff member. A repeated
// pass by the same staff member changes nothing and returns false.
func (o *Order) Pass(actor identity.Principal, reason string, now time.Time) (bool, error) {
	if !actor.IsStaff() {
		return false, shared.NewDomainError("FORBIDDEN", "Only staff can pass orders")
	}
	if o.IsPicked() {
		return false, shared.NewDomainError("ALREADY_PICKED", "Order already picked")
	}
	if o.Status != OrderStatusSubmitted {
		return false, invalidState("pass", o.Status)
	}
	reason = strings.TrimSpace(reason)
	if len(reason) > 500 {
		return false, shared.NewDomainError("INVALID_REASON", "Reason cannot exceed 500 characters")
	}
	if o.HasPassed(actor.UserID) {
		return false, nil
	}

	o.touch(now)
	o.Passes = append(o.Passes, OrderPass{UserID: actor.UserID, PassedAt: o.UpdatedAt, Reason: reason})

	o.record(ActionPassed, &actor.UserID, map[string]any{"reason": reason})
	return true, nil
}

// Start moves a picked or held order into progress
func (o *Order) Start(actor identity.Principal, now time.Time) error {
	if err := o.requirePicker(actor); err != nil {
		return err
	}
	if o.Status != OrderStatusPicked && o.Status != OrderStatusOnHold {
		return invalidState("start", o.Status)
	}

	from := o.Status
	o.Status = OrderStatusInProgress
	o.HoldReason = ""
	o.touch(now)

	o.record(ActionInProgress, &actor.UserID, map[string]any{"from": string(from)})
	return nil
}

// Hold pauses a picked or in-progress order
func (o *Order) Hold(actor identity.Principal, reason string, now time.Time) error {
	if err := o.requirePicker(actor); err != nil {
		return err
	}
	if o.Status != OrderStatusPicked && o.Status != OrderStatusInProgress {
		return invalidState("hold", o.Status)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Hold reason is required")
	}
	if len(reason) > 500 {
		return shared.NewDomainError("INVALID_REASON", "Reason cannot exceed 500 characters")
	}

	from := o.Status
	o.Status = OrderStatusOnHold
	o.HoldReason = reason
	o.touch(now)

	o.record(ActionHold, &actor.UserID, map[string]any{"from": string(from), "reason": reason})
	return nil
}

// Resume continues a held order
func (o *Order) Resume(actor identity.Principal, now time.Time) error {
	if err := o.requirePicker(actor); err != nil {
		return err
	}
	if o.Status != OrderStatusOnHold {
		return invalidState("resume", o.Status)
	}

	o.Status = OrderStatusInProgress
	o.HoldReason = ""
	o.touch(now)

	o.record(ActionResume, &actor.UserID, nil)
	return nil
}

// FulfilmentInput carries the proof of purchase
type FulfilmentInput struct {
	MerchantLink  string
	NameOnOrder   string
	FinalValueUSD decimal.Decimal
	ProofFileIDs  []uuid.UUID
}

// SubmitFulfilment records the proof of purchase. It can happen only once.
func (o *Order) SubmitFulfilment(actor identity.Principal, in FulfilmentInput, now time.Time) error {
	if err := o.requirePicker(actor); err != nil {
		return err
	}
	if o.Fulfilment != nil {
		return shared.NewDomainError("FULFILMENT_ALREADY_SUBMITTED", "Fulfilment has already been submitted")
	}
	if o.Status != OrderStatusInProgress && o.Status != OrderStatusOnHold {
		return invalidState("submit fulfilment for", o.Status)
	}
	link := strings.TrimSpace(in.MerchantLink)
	if link == "" || len(link) > 2048 {
		return shared.NewDomainError("INVALID_MERCHANT_LINK", "Merchant link is required and cannot exceed 2048 characters")
	}
	name := strings.TrimSpace(in.NameOnOrder)
	if name == "" || len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME_ON_ORDER", "Name on order is required and cannot exceed 200 characters")
	}
	if in.FinalValueUSD.IsNegative() {
		return shared.NewDomainError("INVALID_FINAL_VALUE", "Final value cannot be negative")
	}

	from := o.Status
	o.Status = OrderStatusFulfilSubmitted
	o.HoldReason = ""
	o.touch(now)
	o.Fulfilment = &Fulfilment{
		MerchantLink:  link,
		NameOnOrder:   name,
		FinalValueUSD: in.FinalValueUSD.Round(2),
		ProofFileIDs:  dedupe(in.ProofFileIDs),
		SubmittedAt:   o.UpdatedAt,
	}

	o.record(ActionFulfilSubmitted, &actor.UserID, map[string]any{
		"from":            string(from),
		"final_value_usd": o.Fulfilment.FinalValueUSD.StringFixed(2),
	})
	return nil
}

// Complete accepts the fulfilment on behalf of the reseller side
func (o *Order) Complete(actor identity.Principal, now time.Time) error {
	if o.Status != OrderStatusFulfilSubmitted {
		return invalidState("complete", o.Status)
	}
	if !o.isResellerAuthority(actor) {
		return shared.NewDomainError("FORBIDDEN", "Only the order creator or a team admin can complete the order")
	}

	o.Status = OrderStatusCompleted
	o.touch(now)
	completed := o.UpdatedAt
	o.CompletedAt = &completed

	o.record(ActionCompleted, &actor.UserID, nil)
	return nil
}

// RaiseDispute opens a dispute against a completed order and marks the order
// disputed until every open dispute is resolved.
func (o *Order) RaiseDispute(actor identity.Principal, reason string, attachmentIDs []uuid.UUID, now time.Time) (*Dispute, error) {
	if o.Status != OrderStatusCompleted {
		return nil, invalidState("raise a dispute on", o.Status)
	}
	if !o.isResellerAuthority(actor) {
		return nil, shared.NewDomainError("FORBIDDEN", "Only the order creator or a team admin can raise a dispute")
	}
	d, err := newDispute(o, actor.UserID, reason, attachmentIDs, now)
	if err != nil {
		return nil, err
	}

	o.Status = OrderStatusDisputed
	o.touch(now)
	d.CreatedAt = o.UpdatedAt
	d.UpdatedAt = o.UpdatedAt

	o.record(ActionDisputed, &actor.UserID, map[string]any{
		"dispute_id": d.ID.String(),
		"reason":     d.Reason,
	})
	return d, nil
}

// ResolveDispute closes one of the order's disputes. stillOpen is the number
// of other open disputes on the order; the order returns to completed when it
// is zero.
func (o *Order) ResolveDispute(actor identity.Principal, d *Dispute, in DisputeResolution, stillOpen int, now time.Time) error {
	if !actor.IsOwner() {
		return shared.NewDomainError("FORBIDDEN", "Only owners can resolve disputes")
	}
	if d.OrderID != o.ID {
		return shared.NewDomainError("DISPUTE_ORDER_MISMATCH", "Dispute does not belong to this order")
	}
	if o.Status != OrderStatusDisputed {
		return invalidState("resolve a dispute on", o.Status)
	}
	at := now.UTC()
	if at.Before(o.UpdatedAt) {
		at = o.UpdatedAt
	}
	if err := d.resolve(actor.UserID, in, at); err != nil {
		return err
	}
	o.touch(at)
	if stillOpen == 0 {
		o.Status = OrderStatusCompleted
	}

	meta := map[string]any{
		"dispute_id":     d.ID.String(),
		"outcome":        string(d.Status),
		"remaining_open": stillOpen,
	}
	if d.AdjustmentAmountUSD != nil {
		meta["adjustment_usd"] = d.AdjustmentAmountUSD.StringFixed(2)
	}
	o.record(ActionDisputeResolved, &actor.UserID, meta)
	return nil
}

// IsStale reports whether the order waited in the queue longer than threshold
func (o *Order) IsStale(now time.Time, threshold time.Duration) bool {
	return o.Status == OrderStatusSubmitted && !o.IsPicked() && now.Sub(o.CreatedAt) > threshold
}

// AutoCancel cancels an order nobody picked within threshold. It is
// triggered by the system, so the audit row has no actor.
func (o *Order) AutoCancel(now time.Time, threshold time.Duration) error {
	if o.IsPicked() {
		return shared.NewDomainError("ALREADY_PICKED", "Order already picked")
	}
	if o.Status != OrderStatusSubmitted {
		return invalidState("auto-cancel", o.Status)
	}
	if !o.IsStale(now, threshold) {
		return shared.NewDomainError("NOT_STALE", "Order is younger than the auto-cancel threshold")
	}

	o.Status = OrderStatusCancelled
	o.touch(now)
	cancelled := o.UpdatedAt
	o.AutoCancelAt = &cancelled

	o.record(ActionAutoCancelled, nil, map[string]any{"threshold": threshold.String()})
	return nil
}

// GrantAccess adds userID to one of the explicit ACL lists. Granting an
// existing entry changes nothing and returns false.
func (o *Order) GrantAccess(actor identity.Principal, userID uuid.UUID, level AccessLevel, now time.Time) (bool, error) {
	if err := o.requireAccessManager(actor, userID, level); err != nil {
		return false, err
	}
	list := o.accessList(level)
	if slices.Contains(*list, userID) {
		return false, nil
	}
	*list = append(*list, userID)
	o.touch(now)

	o.record(ActionAccessChanged, &actor.UserID, map[string]any{
		"user_id": userID.String(),
		"level":   string(level),
		"change":  "granted",
	})
	return true, nil
}

// RevokeAccess removes userID from one of the explicit ACL lists
func (o *Order) RevokeAccess(actor identity.Principal, userID uuid.UUID, level AccessLevel, now time.Time) (bool, error) {
	if err := o.requireAccessManager(actor, userID, level); err != nil {
		return false, err
	}
	list := o.accessList(level)
	idx := slices.Index(*list, userID)
	if idx < 0 {
		return false, nil
	}
	*list = slices.Delete(*list, idx, idx+1)
	o.touch(now)

	o.record(ActionAccessChanged, &actor.UserID, map[string]any{
		"user_id": userID.String(),
		"level":   string(level),
		"change":  "revoked",
	})
	return true, nil
}

func (o *Order) requireAccessManager(actor identity.Principal, userID uuid.UUID, level AccessLevel) error {
	if !level.IsValid() {
		return shared.NewDomainError("INVALID_ACCESS_LEVEL", "Access level must be read or write")
	}
	if userID == uuid.Nil {
		return shared.NewDomainError("INVALID_USER_ID", "User ID cannot be empty")
	}
	if !actor.IsOwner() && !actor.IsAdminOf(o.TeamID) {
		return shared.NewDomainError("FORBIDDEN", "Only owners and team admins can manage order access")
	}
	return nil
}

func (o *Order) accessList(level AccessLevel) *[]uuid.UUID {
	if level == AccessWrite {
		return &o.WriteAccessUserIDs
	}
	return &o.ReadAccessUserIDs
}

func (o *Order) requirePicker(actor identity.Principal) error {
	if !o.IsPickedBy(actor.UserID) {
		return shared.NewDomainError("NOT_PICKER", "Only the staff member who picked the order can do this")
	}
	return nil
}

// isResellerAuthority is true for the creator and for active admins of the team
func (o *Order) isResellerAuthority(actor identity.Principal) bool {
	return actor.UserID == o.CreatedByUserID || actor.IsAdminOf(o.TeamID)
}

func (o *Order) touch(now time.Time) {
	o.Touch(now.UTC())
}

func (o *Order) record(action string, actor *uuid.UUID, meta map[string]any) {
	e := shared.NewBaseDomainEvent(action, AggregateTypeOrder, o.ID, actor, o.UpdatedAt)
	e.Meta["status"] = string(o.Status)
	for k, v := range meta {
		e.Meta[k] = v
	}
	o.AddDomainEvent(&e)
}

func invalidState(op string, status OrderStatus) error {
	return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot %s order in %s status", op, status))
}

func normalizeDetails(d OrderDetails) (OrderDetails, error) {
	fields := []struct {
		name  string
		value *string
		max   int
	}{
		{"merchant", &d.Merchant, 200},
		{"customer name", &d.CustomerName, 200},
		{"country", &d.Country, 100},
		{"city", &d.City, 100},
		{"contact", &d.Contact, 200},
		{"pickup address", &d.PickupAddress, 500},
		{"delivery address", &d.DeliveryAddress, 500},
		{"time window", &d.TimeWindow, 100},
		{"items summary", &d.ItemsSummary, 4000},
	}
	for _, f := range fields {
		*f.value = strings.TrimSpace(*f.value)
		if len(*f.value) > f.max {
			return d, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("%s cannot exceed %d characters", f.name, f.max))
		}
	}
	if d.Merchant == "" {
		return d, shared.NewDomainError("INVALID_INPUT", "merchant is required")
	}
	if d.ItemsSummary == "" {
		return d, shared.NewDomainError("INVALID_INPUT", "items summary is required")
	}
	return d, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != uuid.Nil && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
