package repo

import (
	"fmt"
	"strings"
)

// FormatLimitOffset returns a LIMIT/OFFSET clause for the given values,
// omitting whichever is zero.
func FormatLimitOffset(limit, offset int) string {
	parts := make([]string, 0, 2)
	if limit > 0 {
		parts = append(parts, fmt.Sprintf("LIMIT %d", limit))
	}
	if offset > 0 {
		parts = append(parts, fmt.Sprintf("OFFSET %d", offset))
	}
	return strings.Join(parts, " ")
}
