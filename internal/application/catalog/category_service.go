package catalog

import (
	"context"
	"strings"

	"github.com/fulfildesk/backend/internal/domain/category"
	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CategoryService handles order category operations. Owners manage the
// list; every authenticated user may read the active categories.
type CategoryService struct {
	categoryRepo category.Repository
	logger       *zap.Logger
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(categoryRepo category.Repository, logger *zap.Logger) *CategoryService {
	return &CategoryService{
		categoryRepo: categoryRepo,
		logger:       logger,
	}
}

var errOwnersOnly = shared.NewDomainError("FORBIDDEN", "Only owners can manage categories")

// Create creates a new category
func (s *CategoryService) Create(ctx context.Context, p identity.Principal, req CreateCategoryRequest) (*CategoryResponse, error) {
	if !p.IsOwner() {
		return nil, errOwnersOnly
	}
	c, err := category.NewCategory(req.Name, req.Description)
	if err != nil {
		return nil, err
	}

	exists, err := s.categoryRepo.ExistsByName(ctx, c.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Category with this name already exists")
	}

	if err := s.categoryRepo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("Category created",
		zap.String("category_id", c.ID.String()),
		zap.String("name", c.Name))
	return ToCategoryResponse(c), nil
}

// GetByID retrieves a category. Inactive categories are visible to owners only.
func (s *CategoryService) GetByID(ctx context.Context, p identity.Principal, id uuid.UUID) (*CategoryResponse, error) {
	c, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Active && !p.IsOwner() {
		return nil, shared.ErrNotFound
	}
	return ToCategoryResponse(c), nil
}

// List retrieves categories. Only owners may ask for inactive ones.
func (s *CategoryService) List(ctx context.Context, p identity.Principal, f CategoryListFilter) ([]CategoryResponse, int64, error) {
	filter := shared.Filter{
		Search:   f.Search,
		Page:     f.Page,
		PageSize: f.PageSize,
		OrderBy:  "name",
		OrderDir: "asc",
	}
	if f.SortBy != "" {
		filter.OrderBy = f.SortBy
		if f.SortDesc {
			filter.OrderDir = "desc"
		}
	}
	filter = filter.Normalize()
	if !f.IncludeInactive || !p.IsOwner() {
		filter.Filters["active"] = true
	}

	categories, total, err := s.categoryRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]CategoryResponse, len(categories))
	for i := range categories {
		responses[i] = *ToCategoryResponse(&categories[i])
	}
	return responses, total, nil
}

// Update changes name and description
func (s *CategoryService) Update(ctx context.Context, p identity.Principal, id uuid.UUID, req UpdateCategoryRequest) (*CategoryResponse, error) {
	if !p.IsOwner() {
		return nil, errOwnersOnly
	}
	c, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name := c.Name
	if req.Name != "" {
		name = req.Name
	}
	description := c.Description
	if req.Description != nil {
		description = *req.Description
	}
	if !strings.EqualFold(strings.TrimSpace(name), c.Name) {
		exists, err := s.categoryRepo.ExistsByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "Category with this name already exists")
		}
	}
	if err := c.Update(name, description); err != nil {
		return nil, err
	}

	if err := s.categoryRepo.Update(ctx, c); err != nil {
		return nil, err
	}
	return ToCategoryResponse(c), nil
}

// Activate makes a category selectable for new orders
func (s *CategoryService) Activate(ctx context.Context, p identity.Principal, id uuid.UUID) (*CategoryResponse, error) {
	return s.toggle(ctx, p, id, (*category.Category).Activate)
}

// Deactivate hides a category from new orders. Existing orders keep it.
func (s *CategoryService) Deactivate(ctx context.Context, p identity.Principal, id uuid.UUID) (*CategoryResponse, error) {
	return s.toggle(ctx, p, id, (*category.Category).Deactivate)
}

func (s *CategoryService) toggle(ctx context.Context, p identity.Principal, id uuid.UUID, apply func(*category.Category) error) (*CategoryResponse, error) {
	if !p.IsOwner() {
		return nil, errOwnersOnly
	}
	c, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(c); err != nil {
		return nil, err
	}
	if err := s.categoryRepo.Update(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("Category status changed",
		zap.String("category_id", c.ID.String()),
		zap.Bool("active", c.Active))
	return ToCategoryResponse(c), nil
}
