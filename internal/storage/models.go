package storage

import "database/sql"

type User struct {
	ID       int64
	Name     string
	Email    string
	Password string
	IsAdmin  int64
}

type Category struct {
	ID   int64
	Name string
}

type PaymentMethod struct {
	ID   int64
	Name string
}

type Transaction struct {
	ID            int64
	UserID        int64
	Date          string
	Category      int64
	Amount        int64
	PaymentMethod sql.NullInt64
	Note          string
}

type MonthlyTotalRow struct {
	Month   string
	Income  int64
	Expense int64
}

type LedgerRow struct {
	ID                int64
	UserID            int64
	Date              string
	CategoryName      string
	Amount            int64
	PaymentMethodName sql.NullString
	Note              string
}
