package models

import (
	"time"

	"github.com/fulfildesk/backend/internal/domain/fulfilment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the Order aggregate.
// Passes and explicit access entries live in child tables so that queue and
// visibility filters can be expressed as indexed subqueries.
type OrderModel struct {
	AggregateModel
	TeamID              uuid.UUID              `gorm:"type:uuid;not null;index:idx_orders_team_created,priority:1"`
	CreatedByUserID     uuid.UUID              `gorm:"type:uuid;not null;index"`
	PickedByStaffUserID *uuid.UUID             `gorm:"type:uuid;index"`
	CategoryID          uuid.UUID              `gorm:"type:uuid;not null;index"`
	SLA                 fulfilment.SLA         `gorm:"column:sla;type:varchar(10);not null"`
	CartValueUSD        decimal.Decimal        `gorm:"column:cart_value_usd;type:decimal(18,2);not null;default:0"`
	CurrencyOverride    string                 `gorm:"type:varchar(3)"`
	Merchant            string                 `gorm:"type:varchar(200);not null"`
	CustomerName        string                 `gorm:"type:varchar(200)"`
	Country             string                 `gorm:"type:varchar(100)"`
	City                string                 `gorm:"type:varchar(100)"`
	Contact             string                 `gorm:"type:varchar(200)"`
	PickupAddress       string                 `gorm:"type:varchar(500)"`
	DeliveryAddress     string                 `gorm:"type:varchar(500)"`
	TimeWindow          string                 `gorm:"type:varchar(100)"`
	ItemsSummary        string                 `gorm:"type:text;not null"`
	AttachmentIDs       []uuid.UUID            `gorm:"serializer:json;type:jsonb"`
	Status              fulfilment.OrderStatus `gorm:"type:varchar(20);not null;index:idx_orders_status_created,priority:1"`
	HoldReason          string                 `gorm:"type:varchar(500)"`

	FulfilmentMerchantLink  string              `gorm:"type:varchar(2048)"`
	FulfilmentNameOnOrder   string              `gorm:"type:varchar(200)"`
	FulfilmentFinalValueUSD decimal.NullDecimal `gorm:"column:fulfilment_final_value_usd;type:decimal(18,2)"`
	FulfilmentProofFileIDs  []uuid.UUID         `gorm:"serializer:json;type:jsonb"`
	FulfilmentSubmittedAt   *time.Time

	AcceptedAt   *time.Time
	CompletedAt  *time.Time
	AutoCancelAt *time.Time

	Passes []OrderPassModel   `gorm:"foreignKey:OrderID"`
	Access []OrderAccessModel `gorm:"foreignKey:OrderID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// OrderPassModel records one staff member declining an order
type OrderPassModel struct {
	OrderID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID   uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	PassedAt time.Time `gorm:"not null"`
	Reason   string    `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (OrderPassModel) TableName() string {
	return "order_passes"
}

// OrderAccessModel is one entry of an order's explicit read or write list
type OrderAccessModel struct {
	OrderID uuid.UUID              `gorm:"type:uuid;primaryKey"`
	UserID  uuid.UUID              `gorm:"type:uuid;primaryKey;index"`
	Level   fulfilment.AccessLevel `gorm:"type:varchar(10);primaryKey"`
}

// TableName returns the table name for GORM
func (OrderAccessModel) TableName() string {
	return "order_access"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() *fulfilment.Order {
	o := &fulfilment.Order{
		BaseAggregateRoot:   m.ToDomainAggregateRoot(),
		TeamID:              m.TeamID,
		CreatedByUserID:     m.CreatedByUserID,
		PickedByStaffUserID: m.PickedByStaffUserID,
		CategoryID:          m.CategoryID,
		SLA:                 m.SLA,
		CartValueUSD:        m.CartValueUSD,
		CurrencyOverride:    m.CurrencyOverride,
		Details: fulfilment.OrderDetails{
			Merchant:        m.Merchant,
			CustomerName:    m.CustomerName,
			Country:         m.Country,
			City:            m.City,
			Contact:         m.Contact,
			PickupAddress:   m.PickupAddress,
			DeliveryAddress: m.DeliveryAddress,
			TimeWindow:      m.TimeWindow,
			ItemsSummary:    m.ItemsSummary,
		},
		AttachmentIDs:      nonNilIDs(m.AttachmentIDs),
		Status:             m.Status,
		Passes:             make([]fulfilment.OrderPass, 0, len(m.Passes)),
		HoldReason:         m.HoldReason,
		ReadAccessUserIDs:  make([]uuid.UUID, 0),
		WriteAccessUserIDs: make([]uuid.UUID, 0),
		AcceptedAt:         m.AcceptedAt,
		CompletedAt:        m.CompletedAt,
		AutoCancelAt:       m.AutoCancelAt,
	}
	for _, p := range m.Passes {
		o.Passes = append(o.Passes, fulfilment.OrderPass{UserID: p.UserID, PassedAt: p.PassedAt, Reason: p.Reason})
	}
	for _, a := range m.Access {
		if a.Level == fulfilment.AccessWrite {
			o.WriteAccessUserIDs = append(o.WriteAccessUserIDs, a.UserID)
		} else {
			o.ReadAccessUserIDs = append(o.ReadAccessUserIDs, a.UserID)
		}
	}
	if m.FulfilmentSubmittedAt != nil {
		o.Fulfilment = &fulfilment.Fulfilment{
			MerchantLink:  m.FulfilmentMerchantLink,
			NameOnOrder:   m.FulfilmentNameOnOrder,
			FinalValueUSD: m.FulfilmentFinalValueUSD.Decimal,
			ProofFileIDs:  nonNilIDs(m.FulfilmentProofFileIDs),
			SubmittedAt:   *m.FulfilmentSubmittedAt,
		}
	}
	return o
}

// OrderModelFromDomain creates a persistence model from a domain Order,
// including its pass and access child rows.
func OrderModelFromDomain(o *fulfilment.Order) *OrderModel {
	m := &OrderModel{
		TeamID:              o.TeamID,
		CreatedByUserID:     o.CreatedByUserID,
		PickedByStaffUserID: o.PickedByStaffUserID,
		CategoryID:          o.CategoryID,
		SLA:                 o.SLA,
		CartValueUSD:        o.CartValueUSD,
		CurrencyOverride:    o.CurrencyOverride,
		Merchant:            o.Details.Merchant,
		CustomerName:        o.Details.CustomerName,
		Country:             o.Details.Country,
		City:                o.Details.City,
		Contact:             o.Details.Contact,
		PickupAddress:       o.Details.PickupAddress,
		DeliveryAddress:     o.Details.DeliveryAddress,
		TimeWindow:          o.Details.TimeWindow,
		ItemsSummary:        o.Details.ItemsSummary,
		AttachmentIDs:       nonNilIDs(o.AttachmentIDs),
		Status:              o.Status,
		HoldReason:          o.HoldReason,
		AcceptedAt:          o.AcceptedAt,
		CompletedAt:         o.CompletedAt,
		AutoCancelAt:        o.AutoCancelAt,
	}
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	if f := o.Fulfilment; f != nil {
		submitted := f.SubmittedAt
		m.FulfilmentMerchantLink = f.MerchantLink
		m.FulfilmentNameOnOrder = f.NameOnOrder
		m.FulfilmentFinalValueUSD = decimal.NewNullDecimal(f.FinalValueUSD)
		m.FulfilmentProofFileIDs = nonNilIDs(f.ProofFileIDs)
		m.FulfilmentSubmittedAt = &submitted
	}
	for _, p := range o.Passes {
		m.Passes = append(m.Passes, OrderPassModel{OrderID: o.ID, UserID: p.UserID, PassedAt: p.PassedAt, Reason: p.Reason})
	}
	for _, id := range o.ReadAccessUserIDs {
		m.Access = append(m.Access, OrderAccessModel{OrderID: o.ID, UserID: id, Level: fulfilment.AccessRead})
	}
	for _, id := range o.WriteAccessUserIDs {
		m.Access = append(m.Access, OrderAccessModel{OrderID: o.ID, UserID: id, Level: fulfilment.AccessWrite})
	}
	return m
}

// DisputeModel is the persistence model for disputes
type DisputeModel struct {
	AggregateModel
	OrderID             uuid.UUID                `gorm:"type:uuid;not null;index"`
	TeamID              uuid.UUID                `gorm:"type:uuid;not null;index"`
	RaisedByUserID      uuid.UUID                `gorm:"type:uuid;not null"`
	Reason              string                   `gorm:"type:text;not null"`
	AttachmentFileIDs   []uuid.UUID              `gorm:"serializer:json;type:jsonb"`
	Status              fulfilment.DisputeStatus `gorm:"type:varchar(20);not null;index"`
	ResolutionNotes     string                   `gorm:"type:text"`
	AdjustmentAmountUSD decimal.NullDecimal      `gorm:"column:adjustment_amount_usd;type:decimal(18,2)"`
	ResolvedByUserID    *uuid.UUID               `gorm:"type:uuid"`
	ResolvedAt          *time.Time
}

// TableName returns the table name for GORM
func (DisputeModel) TableName() string {
	return "disputes"
}

// ToDomain converts the persistence model to a domain Dispute
func (m *DisputeModel) ToDomain() *fulfilment.Dispute {
	d := &fulfilment.Dispute{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		OrderID:           m.OrderID,
		TeamID:            m.TeamID,
		RaisedByUserID:    m.RaisedByUserID,
		Reason:            m.Reason,
		AttachmentFileIDs: nonNilIDs(m.AttachmentFileIDs),
		Status:            m.Status,
		ResolutionNotes:   m.ResolutionNotes,
		ResolvedByUserID:  m.ResolvedByUserID,
		ResolvedAt:        m.ResolvedAt,
	}
	if m.AdjustmentAmountUSD.Valid {
		amount := m.AdjustmentAmountUSD.Decimal
		d.AdjustmentAmountUSD = &amount
	}
	return d
}

// DisputeModelFromDomain creates a persistence model from a domain Dispute
func DisputeModelFromDomain(d *fulfilment.Dispute) *DisputeModel {
	m := &DisputeModel{
		OrderID:           d.OrderID,
		TeamID:            d.TeamID,
		RaisedByUserID:    d.RaisedByUserID,
		Reason:            d.Reason,
		AttachmentFileIDs: nonNilIDs(d.AttachmentFileIDs),
		Status:            d.Status,
		ResolutionNotes:   d.ResolutionNotes,
		ResolvedByUserID:  d.ResolvedByUserID,
		ResolvedAt:        d.ResolvedAt,
	}
	if d.AdjustmentAmountUSD != nil {
		m.AdjustmentAmountUSD = decimal.NewNullDecimal(*d.AdjustmentAmountUSD)
	}
	m.FromDomainAggregateRoot(d.BaseAggregateRoot)
	return m
}

// ChatMessageModel is the persistence model for order chat messages
type ChatMessageModel struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey"`
	OrderID       uuid.UUID   `gorm:"type:uuid;not null;index:idx_chat_order_created,priority:1"`
	SenderUserID  uuid.UUID   `gorm:"type:uuid;not null"`
	Body          string      `gorm:"type:text"`
	AttachmentIDs []uuid.UUID `gorm:"serializer:json;type:jsonb"`
	CreatedAt     time.Time   `gorm:"not null;index;index:idx_chat_order_created,priority:2"`
}

// TableName returns the table name for GORM
func (ChatMessageModel) TableName() string {
	return "chat_messages"
}

// ToDomain converts the persistence model to a domain ChatMessage
func (m *ChatMessageModel) ToDomain() *fulfilment.ChatMessage {
	return &fulfilment.ChatMessage{
		ID:            m.ID,
		OrderID:       m.OrderID,
		SenderUserID:  m.SenderUserID,
		Body:          m.Body,
		AttachmentIDs: nonNilIDs(m.AttachmentIDs),
		CreatedAt:     m.CreatedAt,
	}
}

// ChatMessageModelFromDomain creates a persistence model from a domain ChatMessage
func ChatMessageModelFromDomain(c *fulfilment.ChatMessage) *ChatMessageModel {
	return &ChatMessageModel{
		ID:            c.ID,
		OrderID:       c.OrderID,
		SenderUserID:  c.SenderUserID,
		Body:          c.Body,
		AttachmentIDs: nonNilIDs(c.AttachmentIDs),
		CreatedAt:     c.CreatedAt,
	}
}

func nonNilIDs(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return make([]uuid.UUID, 0)
	}
	return ids
}
