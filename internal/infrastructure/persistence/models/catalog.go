package models

import "github.com/fulfildesk/backend/internal/domain/category"

// CategoryModel is the persistence model for order categories
type CategoryModel struct {
	AggregateModel
	Name        string `gorm:"type:varchar(100);not null;uniqueIndex"`
	Description string `gorm:"type:text"`
	Active      bool   `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (CategoryModel) TableName() string {
	return "categories"
}

// ToDomain converts the persistence model to a domain Category
func (m *CategoryModel) ToDomain() *category.Category {
	return &category.Category{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Name:              m.Name,
		Description:       m.Description,
		Active:            m.Active,
	}
}

// CategoryModelFromDomain creates a persistence model from a domain Category
func CategoryModelFromDomain(c *category.Category) *CategoryModel {
	m := &CategoryModel{
		Name:        c.Name,
		Description: c.Description,
		Active:      c.Active,
	}
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	return m
}
