package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"kakeibo/internal/core"
)

type fakeSheets struct {
	mu      sync.Mutex
	tabs    []string
	calls   []string
	written [][]any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet:
		f.calls = append(f.calls, "get")
		sheets := make([]map[string]any, len(f.tabs))
		for i, t := range f.tabs {
			sheets[i] = map[string]any{"properties": map[string]any{"title": t}}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})
	case strings.HasSuffix(path, ":batchUpdate"):
		f.calls = append(f.calls, "add")
		var req gsheet.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.tabs = append(f.tabs, req.Requests[0].AddSheet.Properties.Title)
		_, _ = w.Write([]byte(`{}`))
	case strings.HasSuffix(path, ":clear"):
		f.calls = append(f.calls, "clear")
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPut:
		f.calls = append(f.calls, "update")
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.written = vr.Values
		_, _ = w.Write([]byte(`{}`))
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

func newTestExporter(t *testing.T, fake *fakeSheets) *Exporter {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return NewWithService(svc, "sheet-id", "Ledger")
}

func TestReplaceLedgerCreatesTabAndWritesRows(t *testing.T) {
	fake := &fakeSheets{tabs: []string{"Sheet1"}}
	e := newTestExporter(t, fake)

	rows := []core.LedgerRow{{
		ID: 5, UserID: 2, Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		CategoryName: "Food", Amount: -300, PaymentMethod: "Cash", Note: "lunch",
	}}
	if err := e.ReplaceLedger(context.Background(), rows); err != nil {
		t.Fatalf("ReplaceLedger: %v", err)
	}

	if got := strings.Join(fake.calls, ","); got != "get,add,clear,update" {
		t.Fatalf("calls = %s", got)
	}
	if len(fake.written) != 2 {
		t.Fatalf("written %d rows, want header plus one", len(fake.written))
	}
	if got := fmt.Sprint(fake.written[0]...); !strings.HasPrefix(got, "user_id") {
		t.Errorf("header = %v", fake.written[0])
	}
	want := []string{"2", "5", "2024-01-01", "Food", "-300", "Cash", "lunch"}
	for i, cell := range fake.written[1] {
		if fmt.Sprint(cell) != want[i] {
			t.Errorf("cell %d = %v, want %s", i, cell, want[i])
		}
	}
}

func TestReplaceLedgerReusesExistingTab(t *testing.T) {
	fake := &fakeSheets{tabs: []string{"Ledger"}}
	e := newTestExporter(t, fake)

	if err := e.ReplaceLedger(context.Background(), nil); err != nil {
		t.Fatalf("ReplaceLedger: %v", err)
	}
	if got := strings.Join(fake.calls, ","); got != "get,clear,update" {
		t.Fatalf("calls = %s", got)
	}
	if len(fake.written) != 1 {
		t.Fatalf("empty ledger should still write the header, got %v", fake.written)
	}
}

func TestNewRequiresConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := New(ctx, Config{SheetName: "Ledger", CredentialsJSON: "{}"}); err == nil {
		t.Error("expected error without spreadsheet id")
	}
	if _, err := New(ctx, Config{SpreadsheetID: "x"}); err == nil || !strings.Contains(err.Error(), "credentials") {
		t.Errorf("expected credentials error, got %v", err)
	}
	if _, err := New(ctx, Config{SpreadsheetID: "x", CredentialsFile: "/non/existent.json"}); err == nil {
		t.Error("expected error for missing credentials file")
	}
}

func TestQuote(t *testing.T) {
	if got := quote("Bob's Ledger"); got != "'Bob''s Ledger'" {
		t.Fatalf("quote = %s", got)
	}
}
