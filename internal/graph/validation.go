package graph

import "fmt"

// Query protection limits.
const (
	DefaultMaxPageSize    = 100
	DefaultMaxNestedItems = 100
	DefaultMaxQueryDepth  = 10
	DefaultMaxComplexity  = 5000
)

// ValidateLimit checks a list limit against the page-size cap. A limit of 0 is valid
// and selects an empty page.
func ValidateLimit(limit, maxPageSize int) error {
	if limit < 0 {
		return fmt.Errorf("limit must not be negative")
	}
	if limit > maxPageSize {
		return fmt.Errorf("limit exceeds maximum of %d", maxPageSize)
	}
	return nil
}
