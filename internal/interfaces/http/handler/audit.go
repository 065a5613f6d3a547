package handler

import (
	fulfilmentapp "github.com/fulfildesk/backend/internal/application/fulfilment"
	"github.com/gin-gonic/gin"
)

// AuditHandler exposes the audit log
type AuditHandler struct {
	BaseHandler
	auditService *fulfilmentapp.AuditService
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(auditService *fulfilmentapp.AuditService) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
	}
}

// OrderHistory godoc
// @Summary      Order history
// @Description  Audit entries of one order, oldest first. Requires read access to the order.
// @Tags         audit
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]fulfilmentapp.AuditEntryResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/history [get]
func (h *AuditHandler) OrderHistory(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	entries, err := h.auditService.OrderHistory(c.Request.Context(), p, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}

// List godoc
// @Summary      Search the audit log
// @Tags         audit
// @Produce      json
// @Param        action query string false "Action, e.g. order_picked"
// @Param        entity query string false "Entity type"
// @Param        order_id query string false "Order ID" format(uuid)
// @Param        actor_user_id query string false "Actor ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]fulfilmentapp.AuditEntryResponse,meta=dto.Meta}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var filter fulfilmentapp.AuditListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	if filter.OrderID, ok = h.uuidQuery(c, "order_id"); !ok {
		return
	}
	if filter.ActorUserID, ok = h.uuidQuery(c, "actor_user_id"); !ok {
		return
	}

	entries, total, err := h.auditService.List(c.Request.Context(), p, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := pageArgs(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, entries, total, page, pageSize)
}
