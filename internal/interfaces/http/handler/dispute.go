package handler

import (
	fulfilmentapp "github.com/fulfildesk/backend/internal/application/fulfilment"
	"github.com/fulfildesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// DisputeHandler handles dispute endpoints. Disputes live on the order
// aggregate, so the handler talks to the order service.
type DisputeHandler struct {
	BaseHandler
	orderService *fulfilmentapp.OrderService
}

// NewDisputeHandler creates a new DisputeHandler
func NewDisputeHandler(orderService *fulfilmentapp.OrderService) *DisputeHandler {
	return &DisputeHandler{
		orderService: orderService,
	}
}

// Raise godoc
// @Summary      Raise a dispute
// @Description  The creator or an active team admin disputes a completed order
// @Tags         disputes
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body fulfilmentapp.RaiseDisputeRequest true "Dispute"
// @Success      201 {object} dto.Response{data=fulfilmentapp.DisputeResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/disputes [post]
func (h *DisputeHandler) Raise(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req fulfilmentapp.RaiseDisputeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	dispute, err := h.orderService.RaiseDispute(c.Request.Context(), p, orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dispute)
}

// ListByOrder godoc
// @Summary      List an order's disputes
// @Tags         disputes
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]fulfilmentapp.DisputeResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/disputes [get]
func (h *DisputeHandler) ListByOrder(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	disputes, err := h.orderService.ListOrderDisputes(c.Request.Context(), p, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, disputes)
}

// ListOpen godoc
// @Summary      List open disputes
// @Description  Owners review the open disputes across all teams, oldest first
// @Tags         disputes
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]fulfilmentapp.DisputeResponse,meta=dto.Meta}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /disputes [get]
func (h *DisputeHandler) ListOpen(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	req := dto.DefaultListRequest()
	if !h.bindQuery(c, &req) {
		return
	}
	filter := req.ToFilter()

	disputes, total, err := h.orderService.ListOpenDisputes(c.Request.Context(), p, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, disputes, total, filter.Page, filter.PageSize)
}

// Get godoc
// @Summary      Get a dispute
// @Tags         disputes
// @Produce      json
// @Param        id path string true "Dispute ID" format(uuid)
// @Success      200 {object} dto.Response{data=fulfilmentapp.DisputeResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /disputes/{id} [get]
func (h *DisputeHandler) Get(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	dispute, err := h.orderService.GetDispute(c.Request.Context(), p, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dispute)
}

// Resolve godoc
// @Summary      Resolve a dispute
// @Description  Owners close a dispute. The order returns to completed once no open dispute remains.
// @Tags         disputes
// @Accept       json
// @Produce      json
// @Param        id path string true "Dispute ID" format(uuid)
// @Param        request body fulfilmentapp.ResolveDisputeRequest true "Decision"
// @Success      200 {object} dto.Response{data=fulfilmentapp.DisputeResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /disputes/{id}/resolve [post]
func (h *DisputeHandler) Resolve(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req fulfilmentapp.ResolveDisputeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	dispute, err := h.orderService.ResolveDispute(c.Request.Context(), p, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dispute)
}
