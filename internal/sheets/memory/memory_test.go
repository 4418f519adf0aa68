package memory

import (
	"context"
	"errors"
	"testing"

	"kakeibo/internal/core"
)

func TestSinkReplacesRows(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.ReplaceLedger(ctx, []core.LedgerRow{{ID: 1}, {ID: 2}}); err != nil {
		t.Fatalf("ReplaceLedger: %v", err)
	}
	if err := s.ReplaceLedger(ctx, []core.LedgerRow{{ID: 3}}); err != nil {
		t.Fatalf("ReplaceLedger: %v", err)
	}
	rows := s.Rows()
	if len(rows) != 1 || rows[0].ID != 3 {
		t.Fatalf("Rows = %+v", rows)
	}
	if s.Exports() != 2 {
		t.Fatalf("Exports = %d", s.Exports())
	}

	boom := errors.New("boom")
	s.FailWith(boom)
	if err := s.ReplaceLedger(ctx, nil); !errors.Is(err, boom) {
		t.Fatalf("ReplaceLedger = %v", err)
	}
	if s.Exports() != 2 || len(s.Rows()) != 1 {
		t.Fatal("failed export changed state")
	}
}
