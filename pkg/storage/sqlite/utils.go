package sqlite

import (
	"github.com/lifemate/lifemate-go/pkg/storage"
)

// buildCategoryClause builds a WHERE clause restricting categories.
func buildCategoryClause(categories []string) (string, []interface{}) {
	if len(categories) == 0 {
		return "", nil
	}

	args := make([]interface{}, len(categories))
	for i, category := range categories {
		args[i] = category
	}
	return "WHERE category IN (" + storage.Placeholders(len(categories)) + ")", args
}
