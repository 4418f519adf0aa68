package storage

import (
	"context"
	"database/sql"
)

const createUser = `
INSERT INTO users (name, email, password) VALUES (?, ?, ?)
RETURNING id, name, email, password, is_admin`

type CreateUserParams struct {
	Name     string
	Email    string
	Password string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser, arg.Name, arg.Email, arg.Password)
	var i User
	err := row.Scan(&i.ID, &i.Name, &i.Email, &i.Password, &i.IsAdmin)
	return i, err
}

const getUserByEmail = `
SELECT id, name, email, password, is_admin FROM users WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByEmail, email)
	var i User
	err := row.Scan(&i.ID, &i.Name, &i.Email, &i.Password, &i.IsAdmin)
	return i, err
}

const setUserAdmin = `UPDATE users SET is_admin = ? WHERE email = ?`

type SetUserAdminParams struct {
	IsAdmin int64
	Email   string
}

func (q *Queries) SetUserAdmin(ctx context.Context, arg SetUserAdminParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, setUserAdmin, arg.IsAdmin, arg.Email)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listCategories = `SELECT id, name FROM categories ORDER BY id`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var i Category
		if err := rows.Scan(&i.ID, &i.Name); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createCategory = `INSERT INTO categories (name) VALUES (?) RETURNING id, name`

func (q *Queries) CreateCategory(ctx context.Context, name string) (Category, error) {
	row := q.db.QueryRowContext(ctx, createCategory, name)
	var i Category
	err := row.Scan(&i.ID, &i.Name)
	return i, err
}

const listPaymentMethods = `SELECT id, name FROM payment_methods ORDER BY id`

func (q *Queries) ListPaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	rows, err := q.db.QueryContext(ctx, listPaymentMethods)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PaymentMethod
	for rows.Next() {
		var i PaymentMethod
		if err := rows.Scan(&i.ID, &i.Name); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createPaymentMethod = `INSERT INTO payment_methods (name) VALUES (?) RETURNING id, name`

func (q *Queries) CreatePaymentMethod(ctx context.Context, name string) (PaymentMethod, error) {
	row := q.db.QueryRowContext(ctx, createPaymentMethod, name)
	var i PaymentMethod
	err := row.Scan(&i.ID, &i.Name)
	return i, err
}

const createTransaction = `
INSERT INTO transactions (user_id, date, category, amount, payment_method, note)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id`

type CreateTransactionParams struct {
	UserID        int64
	Date          string
	Category      int64
	Amount        int64
	PaymentMethod sql.NullInt64
	Note          string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.UserID, arg.Date, arg.Category, arg.Amount, arg.PaymentMethod, arg.Note)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getTransaction = `
SELECT id, user_id, date, category, amount, payment_method, note
FROM transactions
WHERE id = ? AND user_id = ?`

type GetTransactionParams struct {
	ID     int64
	UserID int64
}

func (q *Queries) GetTransaction(ctx context.Context, arg GetTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, arg.ID, arg.UserID)
	var i Transaction
	err := row.Scan(&i.ID, &i.UserID, &i.Date, &i.Category, &i.Amount, &i.PaymentMethod, &i.Note)
	return i, err
}

const updateTransaction = `
UPDATE transactions
SET date = ?, category = ?, amount = ?, payment_method = ?, note = ?
WHERE id = ? AND user_id = ?`

type UpdateTransactionParams struct {
	Date          string
	Category      int64
	Amount        int64
	PaymentMethod sql.NullInt64
	Note          string
	ID            int64
	UserID        int64
}

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateTransaction,
		arg.Date, arg.Category, arg.Amount, arg.PaymentMethod, arg.Note, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ? AND user_id = ?`

type DeleteTransactionParams struct {
	ID     int64
	UserID int64
}

func (q *Queries) DeleteTransaction(ctx context.Context, arg DeleteTransactionParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransaction, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const monthlyTotals = `
SELECT strftime('%Y-%m', date) AS month,
       SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END) AS income,
       SUM(CASE WHEN amount < 0 THEN amount ELSE 0 END) AS expense
FROM transactions
WHERE user_id = ?
GROUP BY month
ORDER BY month DESC`

func (q *Queries) MonthlyTotals(ctx context.Context, userID int64) ([]MonthlyTotalRow, error) {
	rows, err := q.db.QueryContext(ctx, monthlyTotals, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MonthlyTotalRow
	for rows.Next() {
		var i MonthlyTotalRow
		if err := rows.Scan(&i.Month, &i.Income, &i.Expense); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const ledgerColumns = `
SELECT t.id, t.user_id, t.date, c.name AS category_name, t.amount, pm.name AS payment_method, t.note
FROM transactions t
JOIN categories c ON t.category = c.id
LEFT JOIN payment_methods pm ON t.payment_method = pm.id`

const listLedger = ledgerColumns + `
WHERE t.user_id = ?
ORDER BY t.date DESC, t.id DESC`

func (q *Queries) ListLedger(ctx context.Context, userID int64) ([]LedgerRow, error) {
	return q.scanLedger(ctx, listLedger, userID)
}

const listAllLedger = ledgerColumns + `
ORDER BY t.user_id, t.date DESC, t.id DESC`

// ListAllLedger spans every user and exists only for the ledger mirror.
func (q *Queries) ListAllLedger(ctx context.Context) ([]LedgerRow, error) {
	return q.scanLedger(ctx, listAllLedger)
}

func (q *Queries) scanLedger(ctx context.Context, query string, args ...interface{}) ([]LedgerRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LedgerRow
	for rows.Next() {
		var i LedgerRow
		if err := rows.Scan(&i.ID, &i.UserID, &i.Date, &i.CategoryName, &i.Amount, &i.PaymentMethodName, &i.Note); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const ping = `SELECT 1`

func (q *Queries) Ping(ctx context.Context) error {
	var one int
	return q.db.QueryRowContext(ctx, ping).Scan(&one)
}
