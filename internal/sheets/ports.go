package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound spreadsheet adapters.
type (
	// ActivityWriter appends one activity entry as a new row. Rows are never
	// updated or removed.
	ActivityWriter interface {
		AppendActivity(ctx context.Context, a core.Activity) error
	}
)
