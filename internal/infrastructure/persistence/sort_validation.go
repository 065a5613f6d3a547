package persistence

import (
	"strings"

	"github.com/fulfildesk/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// paginate applies a whitelisted ORDER BY plus OFFSET/LIMIT. The id column
// breaks ties so pages stay stable when timestamps collide.
func paginate(query *gorm.DB, filter shared.Filter, allowed map[string]bool) *gorm.DB {
	filter = filter.Normalize()
	field := ValidateSortField(filter.OrderBy, allowed, "created_at")
	dir := ValidateSortOrder(filter.OrderDir)
	return query.
		Order(field + " " + dir).
		Order("id " + dir).
		Offset(filter.Offset()).
		Limit(filter.PageSize)
}

// CommonSortFields contains fields common to every table
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// UserSortFields contains allowed sort fields for users
var UserSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"email":         true,
	"display_name":  true,
	"primary_role":  true,
	"last_login_at": true,
}

// TeamSortFields contains allowed sort fields for teams
var TeamSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
}

// MemberSortFields contains allowed sort fields for reseller memberships
var MemberSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"status":     true,
	"role":       true,
	"joined_at":  true,
}

// CategorySortFields contains allowed sort fields for categories
var CategorySortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"active":     true,
}

// OrderSortFields contains allowed sort fields for orders
var OrderSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"status":         true,
	"sla":            true,
	"cart_value_usd": true,
	"accepted_at":    true,
	"completed_at":   true,
}

// DisputeSortFields contains allowed sort fields for disputes
var DisputeSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"status":      true,
	"resolved_at": true,
}

// AuditSortFields contains allowed sort fields for the audit log
var AuditSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"action":     true,
	"entity":     true,
}
