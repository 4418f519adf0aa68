package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"kakeibo/internal/core"

	_ "modernc.org/sqlite"
)

// Store owns the connection pool for the single SQLite database file.
type Store struct {
	db *sql.DB
}

// DSN builds the driver connection string for path with foreign keys
// enforced and a busy timeout for concurrent writers.
func DSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Open creates the database directory if needed, opens the pool and
// applies migrations.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Do acquires one connection for the duration of fn and always releases it,
// whether fn succeeds, fails or returns early.
func (s *Store) Do(ctx context.Context, fn func(c *Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			slog.WarnContext(ctx, "Failed to release connection", "error", cerr)
		}
	}()
	return fn(&Conn{q: New(conn)})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Do(ctx, func(c *Conn) error { return c.q.Ping(ctx) })
}

// Conn exposes domain-typed operations over one acquired connection.
type Conn struct {
	q *Queries
}

func (c *Conn) CreateUser(ctx context.Context, name, email, passwordHash string) (core.User, error) {
	u, err := c.q.CreateUser(ctx, CreateUserParams{Name: name, Email: email, Password: passwordHash})
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", classify(err))
	}
	return toCoreUser(u), nil
}

func (c *Conn) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := c.q.GetUserByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return toCoreUser(u), nil
}

// SetUserAdmin reports whether a user with that email existed.
func (c *Conn) SetUserAdmin(ctx context.Context, email string, admin bool) (bool, error) {
	var flag int64
	if admin {
		flag = 1
	}
	n, err := c.q.SetUserAdmin(ctx, SetUserAdminParams{IsAdmin: flag, Email: email})
	if err != nil {
		return false, fmt.Errorf("set user admin: %w", err)
	}
	return n > 0, nil
}

func (c *Conn) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := c.q.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, len(rows))
	for i, r := range rows {
		out[i] = core.Category{ID: r.ID, Name: r.Name}
	}
	return out, nil
}

func (c *Conn) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	r, err := c.q.CreateCategory(ctx, name)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", classify(err))
	}
	return core.Category{ID: r.ID, Name: r.Name}, nil
}

func (c *Conn) ListPaymentMethods(ctx context.Context) ([]core.PaymentMethod, error) {
	rows, err := c.q.ListPaymentMethods(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	out := make([]core.PaymentMethod, len(rows))
	for i, r := range rows {
		out[i] = core.PaymentMethod{ID: r.ID, Name: r.Name}
	}
	return out, nil
}

func (c *Conn) CreatePaymentMethod(ctx context.Context, name string) (core.PaymentMethod, error) {
	r, err := c.q.CreatePaymentMethod(ctx, name)
	if err != nil {
		return core.PaymentMethod{}, fmt.Errorf("create payment method: %w", classify(err))
	}
	return core.PaymentMethod{ID: r.ID, Name: r.Name}, nil
}

func (c *Conn) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	id, err := c.q.CreateTransaction(ctx, CreateTransactionParams{
		UserID:        t.UserID,
		Date:          t.Date.Format(core.DateLayout),
		Category:      t.CategoryID,
		Amount:        t.Amount,
		PaymentMethod: nullInt64(t.PaymentMethodID),
		Note:          t.Note,
	})
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", classify(err))
	}
	return id, nil
}

// GetTransaction applies the owner filter; another user's id is ErrNotFound.
func (c *Conn) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	r, err := c.q.GetTransaction(ctx, GetTransactionParams{ID: id, UserID: userID})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return toCoreTransaction(r), nil
}

// UpdateTransaction returns the number of rows changed; zero when t is not
// owned by t.UserID.
func (c *Conn) UpdateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	n, err := c.q.UpdateTransaction(ctx, UpdateTransactionParams{
		Date:          t.Date.Format(core.DateLayout),
		Category:      t.CategoryID,
		Amount:        t.Amount,
		PaymentMethod: nullInt64(t.PaymentMethodID),
		Note:          t.Note,
		ID:            t.ID,
		UserID:        t.UserID,
	})
	if err != nil {
		return 0, fmt.Errorf("update transaction: %w", classify(err))
	}
	return n, nil
}

func (c *Conn) DeleteTransaction(ctx context.Context, userID, id int64) (int64, error) {
	n, err := c.q.DeleteTransaction(ctx, DeleteTransactionParams{ID: id, UserID: userID})
	if err != nil {
		return 0, fmt.Errorf("delete transaction: %w", err)
	}
	return n, nil
}

func (c *Conn) MonthlyTotals(ctx context.Context, userID int64) ([]core.MonthlyTotal, error) {
	rows, err := c.q.MonthlyTotals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	out := make([]core.MonthlyTotal, len(rows))
	for i, r := range rows {
		out[i] = core.MonthlyTotal{Month: r.Month, Income: r.Income, Expense: r.Expense}
	}
	return out, nil
}

func (c *Conn) ListLedger(ctx context.Context, userID int64) ([]core.LedgerRow, error) {
	rows, err := c.q.ListLedger(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	return toCoreLedger(rows), nil
}

func (c *Conn) ListAllLedger(ctx context.Context) ([]core.LedgerRow, error) {
	rows, err := c.q.ListAllLedger(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all ledger: %w", err)
	}
	return toCoreLedger(rows), nil
}

func toCoreUser(u User) core.User {
	return core.User{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.Password,
		IsAdmin:      u.IsAdmin != 0,
	}
}

func toCoreTransaction(r Transaction) core.Transaction {
	t := core.Transaction{
		ID:         r.ID,
		UserID:     r.UserID,
		Date:       parseDate(r.Date),
		CategoryID: r.Category,
		Amount:     r.Amount,
		Note:       r.Note,
	}
	if r.PaymentMethod.Valid {
		pm := r.PaymentMethod.Int64
		t.PaymentMethodID = &pm
	}
	return t
}

func toCoreLedger(rows []LedgerRow) []core.LedgerRow {
	out := make([]core.LedgerRow, len(rows))
	for i, r := range rows {
		out[i] = core.LedgerRow{
			ID:            r.ID,
			UserID:        r.UserID,
			Date:          parseDate(r.Date),
			CategoryName:  r.CategoryName,
			Amount:        r.Amount,
			PaymentMethod: r.PaymentMethodName.String,
			Note:          r.Note,
		}
	}
	return out
}

// parseDate tolerates rows written before dates were validated.
func parseDate(s string) time.Time {
	t, err := time.Parse(core.DateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
