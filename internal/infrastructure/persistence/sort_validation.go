package persistence

import (
	"strings"

	"github.com/scaregistry/backend/internal/domain/shared"
)

// ValidateSortOrder normalizes the sort order to ASC or DESC, defaulting to DESC
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField when it is whitelisted, else defaultField
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed != "" && allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// UserSortFields contains allowed sort fields for users
var UserSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"principal_id": true,
	"email":        true,
	"display_name": true,
	"role":         true,
	"is_active":    true,
}

// orderClause builds a safe ORDER BY clause from a list filter
func orderClause(f shared.Filter, allowed map[string]bool) string {
	return ValidateSortField(f.OrderBy, allowed, "created_at") + " " + ValidateSortOrder(f.OrderDir)
}
