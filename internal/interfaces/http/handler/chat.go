package handler

import (
	fulfilmentapp "github.com/fulfildesk/backend/internal/application/fulfilment"
	"github.com/fulfildesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// ChatHandler handles an order's chat thread
type ChatHandler struct {
	BaseHandler
	chatService *fulfilmentapp.ChatService
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(chatService *fulfilmentapp.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// Post godoc
// @Summary      Post a chat message
// @Description  Requires write access to the order. A message needs a body or at least one attachment.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body fulfilmentapp.PostChatMessageRequest true "Message"
// @Success      201 {object} dto.Response{data=fulfilmentapp.ChatMessageResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/messages [post]
func (h *ChatHandler) Post(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req fulfilmentapp.PostChatMessageRequest
	if !h.bindJSON(c, &req) {
		return
	}

	msg, err := h.chatService.Post(c.Request.Context(), p, orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, msg)
}

// List godoc
// @Summary      Read a chat thread
// @Description  Oldest message first
// @Tags         chat
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]fulfilmentapp.ChatMessageResponse,meta=dto.Meta}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/messages [get]
func (h *ChatHandler) List(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	req := dto.DefaultListRequest()
	req.OrderDir = "asc"
	if !h.bindQuery(c, &req) {
		return
	}
	filter := req.ToFilter()

	messages, total, err := h.chatService.List(c.Request.Context(), p, orderID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, messages, total, filter.Page, filter.PageSize)
}
