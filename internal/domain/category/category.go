package category

import (
	"context"
	"strings"
	"time"

	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Category classifies orders (for example "electronics" or "groceries")
type Category struct {
	shared.BaseAggregateRoot
	Name        string
	Description string
	Active      bool
}

// NewCategory creates an active category
func NewCategory(name, description string) (*Category, error) {
	c := &Category{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Active:            true,
	}
	if err := c.Update(name, description); err != nil {
		return nil, err
	}
	return c, nil
}

// Update changes name and description
func (c *Category) Update(name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_CATEGORY_NAME", "Category name cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewDomainError("INVALID_CATEGORY_NAME", "Category name cannot exceed 100 characters")
	}
	if len(description) > 500 {
		return shared.NewDomainError("INVALID_DESCRIPTION", "Description cannot exceed 500 characters")
	}
	c.Name = name
	c.Description = strings.TrimSpace(description)
	c.Touch(time.Now().UTC())
	return nil
}

// Deactivate hides the category from new orders
func (c *Category) Deactivate() error {
	if !c.Active {
		return shared.NewDomainError("ALREADY_INACTIVE", "Category is already inactive")
	}
	c.Active = false
	c.Touch(time.Now().UTC())
	return nil
}

// Activate makes the category selectable again
func (c *Category) Activate() error {
	if c.Active {
		return shared.NewDomainError("ALREADY_ACTIVE", "Category is already active")
	}
	c.Active = true
	c.Touch(time.Now().UTC())
	return nil
}

// Repository defines the interface for category persistence
type Repository interface {
	Create(ctx context.Context, c *Category) error
	Update(ctx context.Context, c *Category) error
	FindByID(ctx context.Context, id uuid.UUID) (*Category, error)
	// FindAll lists categories; filter "active" (bool) narrows the result
	FindAll(ctx context.Context, filter shared.Filter) ([]Category, int64, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
}
