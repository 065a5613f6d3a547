package catalog

import (
	"time"

	"github.com/fulfildesk/backend/internal/domain/category"
	"github.com/google/uuid"
)

// CreateCategoryRequest represents a request to create a new category
type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"max=500"`
}

// UpdateCategoryRequest represents a request to update a category.
// Empty fields keep their current value.
type UpdateCategoryRequest struct {
	Name        string  `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
}

// CategoryListFilter represents filter options for the category list
type CategoryListFilter struct {
	Search          string `form:"search" binding:"omitempty,max=100"`
	IncludeInactive bool   `form:"include_inactive"`
	Page            int    `form:"page" binding:"omitempty,min=1"`
	PageSize        int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	SortBy          string `form:"sort_by" binding:"omitempty,oneof=name created_at updated_at"`
	SortDesc        bool   `form:"sort_desc"`
}

// CategoryResponse represents a category in API responses
type CategoryResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int       `json:"version"`
}

// ToCategoryResponse converts a domain Category to CategoryResponse
func ToCategoryResponse(c *category.Category) *CategoryResponse {
	return &CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Active:      c.Active,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		Version:     c.Version,
	}
}
