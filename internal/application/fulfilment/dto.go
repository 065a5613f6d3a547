package fulfilment

import (
	"time"

	"github.com/fulfildesk/backend/internal/domain/attachment"
	"github.com/fulfildesk/backend/internal/domain/audit"
	"github.com/fulfildesk/backend/internal/domain/fulfilment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateOrderRequest represents a request to submit a new order
type CreateOrderRequest struct {
	TeamID           uuid.UUID       `json:"team_id" binding:"required"`
	CategoryID       uuid.UUID       `json:"category_id" binding:"required"`
	SLA              string          `json:"sla" binding:"required,sla"`
	CartValueUSD     decimal.Decimal `json:"cart_value_usd"`
	CurrencyOverride string          `json:"currency_override" binding:"omitempty,len=3"`
	Merchant         string          `json:"merchant" binding:"required,max=200"`
	CustomerName     string          `json:"customer_name" binding:"max=200"`
	Country          string          `json:"country" binding:"max=100"`
	City             string          `json:"city" binding:"max=100"`
	Contact          string          `json:"contact" binding:"max=200"`
	PickupAddress    string          `json:"pickup_address" binding:"max=500"`
	DeliveryAddress  string          `json:"delivery_address" binding:"max=500"`
	TimeWindow       string          `json:"time_window" binding:"max=100"`
	ItemsSummary     string          `json:"items_summary" binding:"required,max=4000"`
	AttachmentIDs    []uuid.UUID     `json:"attachment_ids" binding:"max=20"`
}

// PassOrderRequest carries the optional reason for declining an order
type PassOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// HoldOrderRequest carries the reason for pausing an order
type HoldOrderRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// SubmitFulfilmentRequest carries the proof of purchase
type SubmitFulfilmentRequest struct {
	MerchantLink  string          `json:"merchant_link" binding:"required,url,max=2048"`
	NameOnOrder   string          `json:"name_on_order" binding:"required,max=200"`
	FinalValueUSD decimal.Decimal `json:"final_value_usd"`
	ProofFileIDs  []uuid.UUID     `json:"proof_file_ids" binding:"max=20"`
}

// RaiseDisputeRequest opens a dispute on a completed order
type RaiseDisputeRequest struct {
	Reason        string      `json:"reason" binding:"required,max=2000"`
	AttachmentIDs []uuid.UUID `json:"attachment_ids" binding:"max=20"`
}

// ResolveDisputeRequest is the owner's decision on a dispute
type ResolveDisputeRequest struct {
	Outcome             string           `json:"outcome" binding:"required,oneof=approved declined partial_refund resolved"`
	Notes               string           `json:"notes" binding:"max=2000"`
	AdjustmentAmountUSD *decimal.Decimal `json:"adjustment_amount_usd"`
}

// AccessChangeRequest adds or removes a user on an order's ACL
type AccessChangeRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	Level  string    `json:"level" binding:"required,oneof=read write"`
}

// OrderListFilter narrows order listings
type OrderListFilter struct {
	Status     string     `form:"status" binding:"omitempty"`
	TeamID     *uuid.UUID `form:"-"`
	CategoryID *uuid.UUID `form:"-"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// OrderDetailsResponse is the descriptive part of an order
type OrderDetailsResponse struct {
	Merchant        string `json:"merchant"`
	CustomerName    string `json:"customer_name"`
	Country         string `json:"country"`
	City            string `json:"city"`
	Contact         string `json:"contact"`
	PickupAddress   string `json:"pickup_address"`
	DeliveryAddress string `json:"delivery_address"`
	TimeWindow      string `json:"time_window"`
	ItemsSummary    string `json:"items_summary"`
}

// PassResponse is one staff member declining the order
type PassResponse struct {
	UserID   uuid.UUID `json:"user_id"`
	PassedAt time.Time `json:"passed_at"`
	Reason   string    `json:"reason,omitempty"`
}

// FulfilmentResponse is the proof of purchase
type FulfilmentResponse struct {
	MerchantLink  string          `json:"merchant_link"`
	NameOnOrder   string          `json:"name_on_order"`
	FinalValueUSD decimal.Decimal `json:"final_value_usd"`
	ProofFileIDs  []uuid.UUID     `json:"proof_file_ids"`
	SubmittedAt   time.Time       `json:"submitted_at"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID                  uuid.UUID            `json:"id"`
	TeamID              uuid.UUID            `json:"team_id"`
	CreatedByUserID     uuid.UUID            `json:"created_by_user_id"`
	PickedByStaffUserID *uuid.UUID           `json:"picked_by_staff_user_id"`
	CategoryID          uuid.UUID            `json:"category_id"`
	SLA                 string               `json:"sla"`
	CartValueUSD        decimal.Decimal      `json:"cart_value_usd"`
	CurrencyOverride    string               `json:"currency_override,omitempty"`
	Details             OrderDetailsResponse `json:"details"`
	AttachmentIDs       []uuid.UUID          `json:"attachment_ids"`
	Status              string               `json:"status"`
	Passes              []PassResponse       `json:"passes"`
	HoldReason          string               `json:"hold_reason,omitempty"`
	Fulfilment          *FulfilmentResponse  `json:"fulfilment"`
	ReadAccessUserIDs   []uuid.UUID          `json:"read_access_user_ids"`
	WriteAccessUserIDs  []uuid.UUID          `json:"write_access_user_ids"`
	CanWrite            bool                 `json:"can_write"`
	AcceptedAt          *time.Time           `json:"accepted_at"`
	CompletedAt         *time.Time           `json:"completed_at"`
	AutoCancelAt        *time.Time           `json:"auto_cancel_at"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
	Version             int                  `json:"version"`
}

// DisputeResponse represents a dispute in API responses
type DisputeResponse struct {
	ID                  uuid.UUID        `json:"id"`
	OrderID             uuid.UUID        `json:"order_id"`
	TeamID              uuid.UUID        `json:"team_id"`
	RaisedByUserID      uuid.UUID        `json:"raised_by_user_id"`
	Reason              string           `json:"reason"`
	AttachmentFileIDs   []uuid.UUID      `json:"attachment_file_ids"`
	Status              string           `json:"status"`
	ResolutionNotes     string           `json:"resolution_notes,omitempty"`
	AdjustmentAmountUSD *decimal.Decimal `json:"adjustment_amount_usd"`
	ResolvedByUserID    *uuid.UUID       `json:"resolved_by_user_id"`
	ResolvedAt          *time.Time       `json:"resolved_at"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// PostChatMessageRequest represents a new chat message
type PostChatMessageRequest struct {
	Body          string      `json:"body" binding:"max=4000"`
	AttachmentIDs []uuid.UUID `json:"attachment_ids" binding:"max=10"`
}

// ChatMessageResponse represents a chat message in API responses
type ChatMessageResponse struct {
	ID            uuid.UUID   `json:"id"`
	OrderID       uuid.UUID   `json:"order_id"`
	SenderUserID  uuid.UUID   `json:"sender_user_id"`
	Body          string      `json:"body"`
	AttachmentIDs []uuid.UUID `json:"attachment_ids"`
	CreatedAt     time.Time   `json:"created_at"`
}

// RequestUploadRequest announces a file the client is about to upload
type RequestUploadRequest struct {
	FileName    string `json:"file_name" binding:"required,min=1,max=255"`
	ContentType string `json:"content_type" binding:"required,min=1,max=100"`
	SizeBytes   int64  `json:"size_bytes" binding:"required,min=1"`
}

// RequestUploadResponse carries the presigned upload URL
type RequestUploadResponse struct {
	AttachmentID uuid.UUID `json:"attachment_id"`
	UploadURL    string    `json:"upload_url"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// DownloadURLResponse carries a presigned download URL
type DownloadURLResponse struct {
	AttachmentID uuid.UUID `json:"attachment_id"`
	FileName     string    `json:"file_name"`
	ContentType  string    `json:"content_type"`
	DownloadURL  string    `json:"download_url"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AttachmentResponse represents attachment metadata in API responses
type AttachmentResponse struct {
	ID               uuid.UUID  `json:"id"`
	UploadedByUserID uuid.UUID  `json:"uploaded_by_user_id"`
	FileName         string     `json:"file_name"`
	ContentType      string     `json:"content_type"`
	SizeBytes        int64      `json:"size_bytes"`
	Status           string     `json:"status"`
	EntityType       string     `json:"entity_type,omitempty"`
	EntityID         *uuid.UUID `json:"entity_id"`
	OrderID          *uuid.UUID `json:"order_id"`
	LinkedAt         *time.Time `json:"linked_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

// AuditEntryResponse represents one audit row in API responses
type AuditEntryResponse struct {
	ID          uuid.UUID      `json:"id"`
	ActorUserID *uuid.UUID     `json:"actor_user_id"`
	Entity      string         `json:"entity"`
	EntityID    uuid.UUID      `json:"entity_id"`
	Action      string         `json:"action"`
	Metadata    map[string]any `json:"metadata"`
	OrderID     *uuid.UUID     `json:"order_id"`
	CreatedAt   time.Time      `json:"created_at"`
}

// AuditListFilter narrows the owner's audit listing
type AuditListFilter struct {
	Action      string     `form:"action"`
	OrderID     *uuid.UUID `form:"-"`
	ActorUserID *uuid.UUID `form:"-"`
	Entity      string     `form:"entity"`
	Page        int        `form:"page" binding:"omitempty,min=1"`
	PageSize    int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ToOrderResponse converts a domain order. canWrite is the caller's write
// permission, so clients can decide which actions to offer.
func ToOrderResponse(o *fulfilment.Order, canWrite bool) OrderResponse {
	resp := OrderResponse{
		ID:                  o.ID,
		TeamID:              o.TeamID,
		CreatedByUserID:     o.CreatedByUserID,
		PickedByStaffUserID: o.PickedByStaffUserID,
		CategoryID:          o.CategoryID,
		SLA:                 string(o.SLA),
		CartValueUSD:        o.CartValueUSD,
		CurrencyOverride:    o.CurrencyOverride,
		Details: OrderDetailsResponse{
			Merchant:        o.Details.Merchant,
			CustomerName:    o.Details.CustomerName,
			Country:         o.Details.Country,
			City:            o.Details.City,
			Contact:         o.Details.Contact,
			PickupAddress:   o.Details.PickupAddress,
			DeliveryAddress: o.Details.DeliveryAddress,
			TimeWindow:      o.Details.TimeWindow,
			ItemsSummary:    o.Details.ItemsSummary,
		},
		AttachmentIDs:      nonNil(o.AttachmentIDs),
		Status:             string(o.Status),
		Passes:             make([]PassResponse, 0, len(o.Passes)),
		HoldReason:         o.HoldReason,
		ReadAccessUserIDs:  nonNil(o.ReadAccessUserIDs),
		WriteAccessUserIDs: nonNil(o.WriteAccessUserIDs),
		CanWrite:           canWrite,
		AcceptedAt:         o.AcceptedAt,
		CompletedAt:        o.CompletedAt,
		AutoCancelAt:       o.AutoCancelAt,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
		Version:            o.Version,
	}
	for _, p := range o.Passes {
		resp.Passes = append(resp.Passes, PassResponse{UserID: p.UserID, PassedAt: p.PassedAt, Reason: p.Reason})
	}
	if f := o.Fulfilment; f != nil {
		resp.Fulfilment = &FulfilmentResponse{
			MerchantLink:  f.MerchantLink,
			NameOnOrder:   f.NameOnOrder,
			FinalValueUSD: f.FinalValueUSD,
			ProofFileIDs:  nonNil(f.ProofFileIDs),
			SubmittedAt:   f.SubmittedAt,
		}
	}
	return resp
}

// ToDisputeResponse converts a domain dispute
func ToDisputeResponse(d *fulfilment.Dispute) DisputeResponse {
	return DisputeResponse{
		ID:                  d.ID,
		OrderID:             d.OrderID,
		TeamID:              d.TeamID,
		RaisedByUserID:      d.RaisedByUserID,
		Reason:              d.Reason,
		AttachmentFileIDs:   nonNil(d.AttachmentFileIDs),
		Status:              string(d.Status),
		ResolutionNotes:     d.ResolutionNotes,
		AdjustmentAmountUSD: d.AdjustmentAmountUSD,
		ResolvedByUserID:    d.ResolvedByUserID,
		ResolvedAt:          d.ResolvedAt,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
}

// ToChatMessageResponse converts a domain chat message
func ToChatMessageResponse(m *fulfilment.ChatMessage) ChatMessageResponse {
	return ChatMessageResponse{
		ID:            m.ID,
		OrderID:       m.OrderID,
		SenderUserID:  m.SenderUserID,
		Body:          m.Body,
		AttachmentIDs: nonNil(m.AttachmentIDs),
		CreatedAt:     m.CreatedAt,
	}
}

// ToAttachmentResponse converts attachment metadata
func ToAttachmentResponse(a *attachment.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:               a.ID,
		UploadedByUserID: a.UploadedByUserID,
		FileName:         a.FileName,
		ContentType:      a.ContentType,
		SizeBytes:        a.SizeBytes,
		Status:           string(a.Status),
		EntityType:       string(a.EntityType),
		EntityID:         a.EntityID,
		OrderID:          a.OrderID,
		LinkedAt:         a.LinkedAt,
		CreatedAt:        a.CreatedAt,
	}
}

// ToAuditEntryResponse converts an audit entry
func ToAuditEntryResponse(e audit.Entry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:          e.ID,
		ActorUserID: e.ActorUserID,
		Entity:      e.Entity,
		EntityID:    e.EntityID,
		Action:      e.Action,
		Metadata:    e.Metadata,
		OrderID:     e.OrderID,
		CreatedAt:   e.CreatedAt,
	}
}

func nonNil(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
