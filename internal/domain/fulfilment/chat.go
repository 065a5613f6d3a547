package fulfilment

import (
	"strings"
	"time"

	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MaxChatMessageLength is the longest accepted chat message body
const MaxChatMessageLength = 4000

// ChatMessage is one entry of the coordination thread attached to an order
type ChatMessage struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	SenderUserID  uuid.UUID
	Body          string
	AttachmentIDs []uuid.UUID
	CreatedAt     time.Time
}

// NewChatMessage validates and creates a chat message
func NewChatMessage(orderID, sender uuid.UUID, body string, attachmentIDs []uuid.UUID) (*ChatMessage, error) {
	body = strings.TrimSpace(body)
	attachmentIDs = dedupe(attachmentIDs)
	if body == "" && len(attachmentIDs) == 0 {
		return nil, shared.NewDomainError("INVALID_MESSAGE", "Message must have text or attachments")
	}
	if len(body) > MaxChatMessageLength {
		return nil, shared.NewDomainError("INVALID_MESSAGE", "Message cannot exceed 4000 characters")
	}
	return &ChatMessage{
		ID:            uuid.New(),
		OrderID:       orderID,
		SenderUserID:  sender,
		Body:          body,
		AttachmentIDs: attachmentIDs,
		CreatedAt:     time.Now().UTC(),
	}, nil
}
