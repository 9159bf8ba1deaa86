package postgres

import (
	"fmt"
	"strings"
)

// buildCategoryClause builds a WHERE clause restricting categories, numbering
// placeholders from startIndex.
func buildCategoryClause(categories []string, startIndex int) (string, []interface{}) {
	if len(categories) == 0 {
		return "", nil
	}

	placeholders := make([]string, len(categories))
	args := make([]interface{}, len(categories))
	for i, category := range categories {
		placeholders[i] = fmt.Sprintf("$%d", startIndex+i)
		args[i] = category
	}
	return "WHERE category IN (" + strings.Join(placeholders, ", ") + ")", args
}
