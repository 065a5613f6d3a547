package handler

import (
	"context"

	fulfilmentapp "github.com/fulfildesk/backend/internal/application/fulfilment"
	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/fulfildesk/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderHandler handles the order lifecycle endpoints
type OrderHandler struct {
	BaseHandler
	orderService *fulfilmentapp.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService *fulfilmentapp.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// Create godoc
// @Summary      Submit an order
// @Description  Resellers submit an order for their team. A repeated Idempotency-Key returns the order created by the first request.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Client-chosen key, valid for 24h"
// @Param        request body fulfilmentapp.CreateOrderRequest true "Order"
// @Success      201 {object} dto.Response{data=fulfilmentapp.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders [post]
func (h *OrderHandler) Create(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req fulfilmentapp.CreateOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.Create(c.Request.Context(), p, req, c.GetHeader(middleware.IdempotencyKeyHeader))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// Get godoc
// @Summary      Get an order
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=fulfilmentapp.OrderResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	h.act(c, h.orderService.Get)
}

// Queue godoc
// @Summary      Staff queue
// @Description  Submitted, unpicked orders the caller has not passed on, newest first
// @Tags         orders
// @Produce      json
// @Param        category_id query string false "Category filter" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]fulfilmentapp.OrderResponse,meta=dto.Meta}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/queue [get]
func (h *OrderHandler) Queue(c *gin.Context) {
	h.list(c, h.orderService.Queue)
}

// List godoc
// @Summary      List orders
// @Description  Owners see every order, staff their picked work, resellers their team's or their own orders plus shared ones
// @Tags         orders
// @Produce      json
// @Param        status query string false "Order status"
// @Param        team_id query string false "Team filter" format(uuid)
// @Param        category_id query string false "Category filter" format(uuid)
// @Param        order_dir query string false "asc or desc" default(desc)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]fulfilmentapp.OrderResponse,meta=dto.Meta}
// @Security     BearerAuth
// @Router       /orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	h.list(c, h.orderService.List)
}

// Pick godoc
// @Summary      Pick an order
// @Description  Staff claim a submitted order. Exactly one concurrent picker wins.
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=fulfilmentapp.OrderResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/pick [post]
func (h *OrderHandler) Pick(c *gin.Context) {
	h.act(c, h.orderService.Pick)
}

// Pass godoc
// @Summary      Pass on an order
// @Description  Hide a submitted order from the caller's queue. Passing twice is a no-op.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body fulfilmentapp.PassOrderRequest false "Optional reason"
// @Success      200 {object} dto.Response{data=fulfilmentapp.OrderResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/pass [post]
func (h *OrderHandler) Pass(c *gin.Context) {
	var req fulfilmentapp.PassOrderRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	h.act(c, func(ctx context.Context, p identity.Principal, id uuid.UUID) (*fulfilmentapp.OrderResponse, error) {
		return h.orderService.Pass(ctx, p, id, req)
	})
}

// Start godoc
// @Summary      Start work on an order
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=fulfilmentapp.OrderResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/start [post]
func (h *OrderHandler) Start(c *gin.Context) {
	h.act(c, h.orderService.Start)
}

// Hold godoc
// @Summary      Put an order on hold
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body fulfilmentapp.HoldOrderRequest true "Hold reason"
// @Success      200 {object} dto.Response{data=fulfilmentapp.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/hold [post]
func (h *OrderHandler) Hold(c *gin.Context) {
	var req fulfilmentapp.HoldOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.act(c, func(ctx context.Context, p identity.Principal, id uuid.UUID) (*fulfilmentapp.OrderResponse, error) {
		return h.orderService.Hold(ctx, p, id, req)
	})
}

// Resume godoc
// @Summary      Resume an order on hold
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=fulfilmentapp.OrderResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/resume [post]
func (h *OrderHandler) Resume(c *gin.Context) {
	h.act(c, h.orderService.Resume)
}

// SubmitFulfilment godoc
// @Summary      Submit proof of purchase
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body fulfilmentapp.SubmitFulfilmentRequest true "Fulfilment"
// @Success      200 {object} dto.Response{data=fulfilmentapp.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/fulfilment [post]
func (h *OrderHandler) SubmitFulfilment(c *gin.Context) {
	var req fulfilmentapp.SubmitFulfilmentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.act(c, func(ctx context.Context, p identity.Principal, id uuid.UUID) (*fulfilmentapp.OrderResponse, error) {
		return h.orderService.SubmitFulfilment(ctx, p, id, req)
	})
}

// Complete godoc
// @Summary      Confirm a fulfilled order
// @Description  The creator or an active team admin accepts the fulfilment
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=fulfilmentapp.OrderResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/complete [post]
func (h *OrderHandler) Complete(c *gin.Context) {
	h.act(c, h.orderService.Complete)
}

// GrantAccess godoc
// @Summary      Share an order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body fulfilmentapp.AccessChangeRequest true "User and level"
// @Success      200 {object} dto.Response{data=fulfilmentapp.OrderResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/access [post]
func (h *OrderHandler) GrantAccess(c *gin.Context) {
	var req fulfilmentapp.AccessChangeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.act(c, func(ctx context.Context, p identity.Principal, id uuid.UUID) (*fulfilmentapp.OrderResponse, error) {
		return h.orderService.GrantAccess(ctx, p, id, req)
	})
}

// RevokeAccess godoc
// @Summary      Stop sharing an order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body fulfilmentapp.AccessChangeRequest true "User and level"
// @Success      200 {object} dto.Response{data=fulfilmentapp.OrderResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/access/revoke [post]
func (h *OrderHandler) RevokeAccess(c *gin.Context) {
	var req fulfilmentapp.AccessChangeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.act(c, func(ctx context.Context, p identity.Principal, id uuid.UUID) (*fulfilmentapp.OrderResponse, error) {
		return h.orderService.RevokeAccess(ctx, p, id, req)
	})
}

type orderAction func(ctx context.Context, p identity.Principal, id uuid.UUID) (*fulfilmentapp.OrderResponse, error)

// act runs a single-order operation addressed by the :id path parameter
func (h *OrderHandler) act(c *gin.Context, action orderAction) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	order, err := action(c.Request.Context(), p, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

type orderListing func(ctx context.Context, p identity.Principal, filter fulfilmentapp.OrderListFilter) ([]fulfilmentapp.OrderResponse, int64, error)

func (h *OrderHandler) list(c *gin.Context, listing orderListing) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var filter fulfilmentapp.OrderListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	if filter.TeamID, ok = h.uuidQuery(c, "team_id"); !ok {
		return
	}
	if filter.CategoryID, ok = h.uuidQuery(c, "category_id"); !ok {
		return
	}

	orders, total, err := listing(c.Request.Context(), p, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := pageArgs(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, orders, total, page, pageSize)
}
