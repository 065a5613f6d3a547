package fulfilment

import (
	"context"

	"github.com/fulfildesk/backend/internal/domain/access"
	"github.com/fulfildesk/backend/internal/domain/attachment"
	"github.com/fulfildesk/backend/internal/domain/fulfilment"
	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChatService handles the coordination thread of an order
type ChatService struct {
	chatRepo       fulfilment.ChatRepository
	orderRepo      fulfilment.OrderRepository
	attachmentRepo attachment.Repository
	txManager      shared.TxManager
	logger         *zap.Logger
}

// NewChatService creates a new ChatService
func NewChatService(
	chatRepo fulfilment.ChatRepository,
	orderRepo fulfilment.OrderRepository,
	attachmentRepo attachment.Repository,
	txManager shared.TxManager,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		chatRepo:       chatRepo,
		orderRepo:      orderRepo,
		attachmentRepo: attachmentRepo,
		txManager:      txManager,
		logger:         logger,
	}
}

// Post adds a message to the thread. Posting needs write access to the order.
func (s *ChatService) Post(ctx context.Context, p identity.Principal, orderID uuid.UUID, req PostChatMessageRequest) (*ChatMessageResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := access.AuthorizeWrite(p, order); err != nil {
		return nil, err
	}

	msg, err := fulfilment.NewChatMessage(order.ID, p.UserID, req.Body, req.AttachmentIDs)
	if err != nil {
		return nil, err
	}

	err = s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.chatRepo.Create(ctx, msg); err != nil {
			return err
		}
		return linkAttachments(ctx, s.attachmentRepo, msg.AttachmentIDs,
			attachment.EntityChat, msg.ID, order.ID, p.UserID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Chat message posted",
		zap.String("order_id", order.ID.String()),
		zap.String("message_id", msg.ID.String()))

	resp := ToChatMessageResponse(msg)
	return &resp, nil
}

// List returns the thread oldest first to anyone who can read the order
func (s *ChatService) List(ctx context.Context, p identity.Principal, orderID uuid.UUID, filter shared.Filter) ([]ChatMessageResponse, int64, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, 0, err
	}
	if err := access.AuthorizeRead(p, order); err != nil {
		return nil, 0, err
	}

	messages, total, err := s.chatRepo.FindByOrder(ctx, orderID, filter.Normalize())
	if err != nil {
		return nil, 0, err
	}
	out := make([]ChatMessageResponse, 0, len(messages))
	for i := range messages {
		out = append(out, ToChatMessageResponse(&messages[i]))
	}
	return out, total, nil
}
