// Package sheets defines where the ledger mirror is written.
package sheets

import (
	"context"

	"kakeibo/internal/core"
)

// Header is the first row of every exported ledger.
var Header = []string{"user_id", "id", "date", "category", "amount", "payment_method", "note"}

// LedgerSink replaces the mirrored ledger with rows.
type LedgerSink interface {
	ReplaceLedger(ctx context.Context, rows []core.LedgerRow) error
}

// Record returns the cells of row in Header order.
func Record(row core.LedgerRow) []any {
	return []any{
		row.UserID,
		row.ID,
		row.Date.Format(core.DateLayout),
		row.CategoryName,
		row.Amount,
		row.PaymentMethod,
		row.Note,
	}
}
