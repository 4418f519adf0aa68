package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"

	"kakeibo/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustUser(t *testing.T, s *Store, email string) core.User {
	t.Helper()
	var u core.User
	err := s.Do(context.Background(), func(c *Conn) error {
		var err error
		u, err = c.CreateUser(context.Background(), "user", email, "hash")
		return err
	})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", email, err)
	}
	return u
}

func day(s string) time.Time {
	d, _ := time.Parse(core.DateLayout, s)
	return d
}

func TestMigrationsSeedReferenceData(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Do(ctx, func(c *Conn) error {
		cats, err := c.ListCategories(ctx)
		if err != nil {
			return err
		}
		if len(cats) == 0 || cats[0].ID != 1 || cats[0].Name != "Salary" {
			t.Errorf("unexpected seeded categories: %+v", cats)
		}
		pms, err := c.ListPaymentMethods(ctx)
		if err != nil {
			return err
		}
		if len(pms) == 0 {
			t.Errorf("expected seeded payment methods")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
}

func TestReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	s1.Close()
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	s2.Close()
}

func TestUniqueConstraintsAreClassified(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustUser(t, s, "a@x.com")

	err := s.Do(ctx, func(c *Conn) error {
		_, err := c.CreateUser(ctx, "other", "a@x.com", "hash2")
		return err
	})
	if !errors.Is(err, ErrUniqueViolation) {
		t.Fatalf("duplicate email: expected ErrUniqueViolation, got %v", err)
	}

	err = s.Do(ctx, func(c *Conn) error {
		_, err := c.CreateCategory(ctx, "Salary")
		return err
	})
	if !errors.Is(err, ErrUniqueViolation) {
		t.Fatalf("duplicate category: expected ErrUniqueViolation, got %v", err)
	}

	err = s.Do(ctx, func(c *Conn) error {
		_, err := c.CreatePaymentMethod(ctx, "Cash")
		return err
	})
	if !errors.Is(err, ErrUniqueViolation) {
		t.Fatalf("duplicate payment method: expected ErrUniqueViolation, got %v", err)
	}
}

func TestForeignKeyConstraintIsClassified(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "fk@x.com")

	err := s.Do(ctx, func(c *Conn) error {
		_, err := c.CreateTransaction(ctx, core.Transaction{
			UserID: u.ID, Date: day("2024-01-01"), CategoryID: 9999, Amount: 1,
		})
		return err
	})
	if !errors.Is(err, ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
	}
}

func TestMonthlyTotalsPreserveSign(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "sum@x.com")
	pm := int64(1)

	err := s.Do(ctx, func(c *Conn) error {
		for _, tx := range []core.Transaction{
			{UserID: u.ID, Date: day("2024-03-01"), CategoryID: 1, Amount: 500},
			{UserID: u.ID, Date: day("2024-03-10"), CategoryID: 3, Amount: -200, PaymentMethodID: &pm},
			{UserID: u.ID, Date: day("2024-03-31"), CategoryID: 2, Amount: 100},
			{UserID: u.ID, Date: day("2024-02-15"), CategoryID: 3, Amount: -50, PaymentMethodID: &pm},
		} {
			if _, err := c.CreateTransaction(ctx, tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	var totals []core.MonthlyTotal
	if err := s.Do(ctx, func(c *Conn) error {
		var err error
		totals, err = c.MonthlyTotals(ctx, u.ID)
		return err
	}); err != nil {
		t.Fatalf("MonthlyTotals: %v", err)
	}

	want := []core.MonthlyTotal{
		{Month: "2024-03", Income: 600, Expense: -200},
		{Month: "2024-02", Income: 0, Expense: -50},
	}
	if len(totals) != len(want) {
		t.Fatalf("got %d months, want %d: %+v", len(totals), len(want), totals)
	}
	for i := range want {
		if totals[i] != want[i] {
			t.Errorf("month %d = %+v, want %+v", i, totals[i], want[i])
		}
	}
}

func TestOwnerFilter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a := mustUser(t, s, "a@x.com")
	b := mustUser(t, s, "b@x.com")

	var id int64
	if err := s.Do(ctx, func(c *Conn) error {
		var err error
		id, err = c.CreateTransaction(ctx, core.Transaction{
			UserID: a.ID, Date: day("2024-01-01"), CategoryID: 1, Amount: 1000, Note: "salary",
		})
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := s.Do(ctx, func(c *Conn) error {
		if _, err := c.GetTransaction(ctx, b.ID, id); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetTransaction as B: expected ErrNotFound, got %v", err)
		}
		rows, err := c.ListLedger(ctx, b.ID)
		if err != nil {
			return err
		}
		if len(rows) != 0 {
			t.Errorf("B ledger should be empty, got %d rows", len(rows))
		}
		n, err := c.UpdateTransaction(ctx, core.Transaction{
			ID: id, UserID: b.ID, Date: day("2024-01-02"), CategoryID: 1, Amount: 1,
		})
		if err != nil {
			return err
		}
		if n != 0 {
			t.Errorf("update as B affected %d rows", n)
		}
		n, err = c.DeleteTransaction(ctx, b.ID, id)
		if err != nil {
			return err
		}
		if n != 0 {
			t.Errorf("delete as B affected %d rows", n)
		}

		got, err := c.GetTransaction(ctx, a.ID, id)
		if err != nil {
			return err
		}
		if got.Amount != 1000 || got.Note != "salary" || got.PaymentMethodID != nil {
			t.Errorf("A's transaction was modified: %+v", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
}

func TestLedgerJoinsNames(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "join@x.com")
	pm := int64(2)

	err := s.Do(ctx, func(c *Conn) error {
		if _, err := c.CreateTransaction(ctx, core.Transaction{
			UserID: u.ID, Date: day("2024-01-05"), CategoryID: 3, Amount: -300, PaymentMethodID: &pm, Note: "lunch",
		}); err != nil {
			return err
		}
		if _, err := c.CreateTransaction(ctx, core.Transaction{
			UserID: u.ID, Date: day("2024-01-25"), CategoryID: 1, Amount: 1000,
		}); err != nil {
			return err
		}
		rows, err := c.ListLedger(ctx, u.ID)
		if err != nil {
			return err
		}
		if len(rows) != 2 {
			t.Fatalf("got %d rows", len(rows))
		}
		if rows[0].CategoryName != "Salary" || rows[0].PaymentMethod != "" {
			t.Errorf("newest row = %+v", rows[0])
		}
		if rows[1].CategoryName != "Food" || rows[1].PaymentMethod != "Credit card" || rows[1].Note != "lunch" {
			t.Errorf("oldest row = %+v", rows[1])
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
}

func TestDoReleasesConnectionOnError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sentinel := errors.New("boom")

	for i := 0; i < 50; i++ {
		err := s.Do(ctx, func(c *Conn) error { return sentinel })
		if !errors.Is(err, sentinel) {
			t.Fatalf("expected sentinel, got %v", err)
		}
	}
	if open := s.db.Stats().InUse; open != 0 {
		t.Fatalf("connections still in use: %d", open)
	}
}

func TestSetUserAdmin(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustUser(t, s, "admin@x.com")

	err := s.Do(ctx, func(c *Conn) error {
		ok, err := c.SetUserAdmin(ctx, "admin@x.com", true)
		if err != nil || !ok {
			t.Fatalf("SetUserAdmin = %v, %v", ok, err)
		}
		u, err := c.GetUserByEmail(ctx, "admin@x.com")
		if err != nil {
			return err
		}
		if !u.IsAdmin {
			t.Errorf("expected admin flag")
		}
		ok, err = c.SetUserAdmin(ctx, "nobody@x.com", true)
		if err != nil || ok {
			t.Errorf("unknown email: got %v, %v", ok, err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
}

func TestRunMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Close()

	if err := RunMigrations(DSN(path)); err != nil {
		t.Fatalf("second run: %v", err)
	}

	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec("UPDATE schema_migrations SET dirty = 1"); err != nil {
		t.Fatalf("mark dirty: %v", err)
	}

	err = RunMigrations(DSN(path))
	var dirty migrate.ErrDirty
	if !errors.As(err, &dirty) {
		t.Fatalf("RunMigrations() error = %v, want ErrDirty", err)
	}
	if dirty.Version != 2 {
		t.Errorf("dirty version = %d, want 2", dirty.Version)
	}
}
