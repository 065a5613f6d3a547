package handler

import (
	catalogapp "github.com/fulfildesk/backend/internal/application/catalog"
	"github.com/gin-gonic/gin"
)

// CategoryHandler handles category-related API endpoints
type CategoryHandler struct {
	BaseHandler
	categoryService *catalogapp.CategoryService
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService *catalogapp.CategoryService) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
	}
}

// Create godoc
// @Summary      Create a new category
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        request body catalogapp.CreateCategoryRequest true "Category creation request"
// @Success      201 {object} dto.Response{data=catalogapp.CategoryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req catalogapp.CreateCategoryRequest
	if !h.bindJSON(c, &req) {
		return
	}

	category, err := h.categoryService.Create(c.Request.Context(), p, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, category)
}

// GetByID godoc
// @Summary      Get category by ID
// @Tags         categories
// @Produce      json
// @Param        id path string true "Category ID" format(uuid)
// @Success      200 {object} dto.Response{data=catalogapp.CategoryResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /categories/{id} [get]
func (h *CategoryHandler) GetByID(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	category, err := h.categoryService.GetByID(c.Request.Context(), p, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, category)
}

// List godoc
// @Summary      List categories
// @Description  Everyone sees active categories; owners may include inactive ones
// @Tags         categories
// @Produce      json
// @Param        search query string false "Name contains"
// @Param        include_inactive query bool false "Owners only"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        sort_by query string false "name, created_at or updated_at"
// @Param        sort_desc query bool false "Descending order"
// @Success      200 {object} dto.Response{data=[]catalogapp.CategoryResponse,meta=dto.Meta}
// @Security     BearerAuth
// @Router       /categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var filter catalogapp.CategoryListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	categories, total, err := h.categoryService.List(c.Request.Context(), p, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := pageArgs(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, categories, total, page, pageSize)
}

// Update godoc
// @Summary      Update a category
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        id path string true "Category ID" format(uuid)
// @Param        request body catalogapp.UpdateCategoryRequest true "Category update request"
// @Success      200 {object} dto.Response{data=catalogapp.CategoryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req catalogapp.UpdateCategoryRequest
	if !h.bindJSON(c, &req) {
		return
	}

	category, err := h.categoryService.Update(c.Request.Context(), p, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, category)
}

// Activate godoc
// @Summary      Activate a category
// @Tags         categories
// @Produce      json
// @Param        id path string true "Category ID" format(uuid)
// @Success      200 {object} dto.Response{data=catalogapp.CategoryResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /categories/{id}/activate [post]
func (h *CategoryHandler) Activate(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	category, err := h.categoryService.Activate(c.Request.Context(), p, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, category)
}

// Deactivate godoc
// @Summary      Deactivate a category
// @Description  Inactive categories cannot receive new orders
// @Tags         categories
// @Produce      json
// @Param        id path string true "Category ID" format(uuid)
// @Success      200 {object} dto.Response{data=catalogapp.CategoryResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /categories/{id}/deactivate [post]
func (h *CategoryHandler) Deactivate(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	category, err := h.categoryService.Deactivate(c.Request.Context(), p, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, category)
}
