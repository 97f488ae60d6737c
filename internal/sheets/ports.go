package sheets

import (
	"context"

	"pocketbook/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerWriter mirrors transactions into an external ledger, one row per
	// transaction keyed by its id.
	LedgerWriter interface {
		// Upsert writes t, replacing the row of the same id if one exists.
		Upsert(ctx context.Context, t core.Transaction) (rowRef string, err error)
		// Remove deletes the row of id. A missing row is not an error.
		Remove(ctx context.Context, id int64) error
	}
)

// Header is the first row of a ledger sheet.
var Header = []string{"ID", "Date", "Type", "Description", "Amount", "Category", "Account", "Updated"}
