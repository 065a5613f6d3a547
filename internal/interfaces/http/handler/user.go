package handler

import (
	identityapp "github.com/fulfildesk/backend/internal/application/identity"
	"github.com/gin-gonic/gin"
)

// UserHandler handles user account endpoints
type UserHandler struct {
	BaseHandler
	userService *identityapp.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService *identityapp.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// Create godoc
// @Summary      Create a user
// @Description  Owners create owner, staff and reseller accounts. A team_id places a reseller into that team as a default member.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body identityapp.CreateUserRequest true "User creation request"
// @Success      201 {object} dto.Response{data=identityapp.UserResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req identityapp.CreateUserRequest
	if !h.bindJSON(c, &req) {
		return
	}

	user, err := h.userService.Create(c.Request.Context(), p, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, user)
}

// Get godoc
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Success      200 {object} dto.Response{data=identityapp.UserResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.Get(c.Request.Context(), p, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// List godoc
// @Summary      List users
// @Tags         users
// @Produce      json
// @Param        search query string false "Email or display name"
// @Param        primary_role query string false "owner, staff or reseller"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]identityapp.UserResponse,meta=dto.Meta}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /users [get]
func (h *UserHandler) List(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var filter identityapp.UserListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	users, total, err := h.userService.List(c.Request.Context(), p, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := pageArgs(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, users, total, page, pageSize)
}

// Deactivate godoc
// @Summary      Deactivate a user
// @Description  Blocks sign-in and invalidates every session issued so far
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Success      200 {object} dto.Response{data=identityapp.UserResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /users/{id}/deactivate [post]
func (h *UserHandler) Deactivate(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.Deactivate(c.Request.Context(), p, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// Activate godoc
// @Summary      Reactivate a user
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Success      200 {object} dto.Response{data=identityapp.UserResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /users/{id}/activate [post]
func (h *UserHandler) Activate(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.Activate(c.Request.Context(), p, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// ChangePassword godoc
// @Summary      Change own password
// @Tags         users
// @Accept       json
// @Param        request body identityapp.ChangePasswordRequest true "Current and new password"
// @Success      204
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /users/me/password [put]
func (h *UserHandler) ChangePassword(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req identityapp.ChangePasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.userService.ChangePassword(c.Request.Context(), p, req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
