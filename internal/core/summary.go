package core

import "time"

// MonthlyTotal aggregates one calendar month of a user's ledger.
// Expense keeps its negative sign.
type MonthlyTotal struct {
	Month   string // YYYY-MM
	Income  int64
	Expense int64
}

// Net is income plus (negative) expense.
func (m MonthlyTotal) Net() int64 {
	return m.Income + m.Expense
}

// LedgerRow is a transaction joined with its display names.
type LedgerRow struct {
	ID            int64
	UserID        int64
	Date          time.Time
	CategoryName  string
	Amount        int64
	PaymentMethod string // empty when none
	Note          string
}

// Dashboard is everything the dashboard view shows for one user.
type Dashboard struct {
	Monthly []MonthlyTotal
	Rows    []LedgerRow
}
