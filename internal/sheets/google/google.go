// Package google mirrors the ledger into a Google Sheets tab.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"kakeibo/internal/core"
	ports "kakeibo/internal/sheets"
)

var _ ports.LedgerSink = (*Exporter)(nil)

// Config selects the spreadsheet and the service account used to write it.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// New authenticates with the service account in cfg. Extra options are
// appended after the credentials.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Exporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	all := append([]goption.ClientOption{
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, opts...)
	svc, err := gsheet.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

// NewWithService wraps an already configured service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Exporter {
	if sheetName == "" {
		sheetName = "Ledger"
	}
	return &Exporter{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case cfg.CredentialsFile != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials")
	}
}

// ReplaceLedger writes the header and rows into the tab, creating it when
// missing and clearing whatever it held before.
func (e *Exporter) ReplaceLedger(ctx context.Context, rows []core.LedgerRow) error {
	if e.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if err := e.ensureSheet(ctx); err != nil {
		return err
	}

	all := quote(e.sheetName) + "!A:G"
	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, all, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", e.sheetName, err)
	}

	values := make([][]any, 0, len(rows)+1)
	header := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		header[i] = h
	}
	values = append(values, header)
	for _, r := range rows {
		values = append(values, ports.Record(r))
	}

	_, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, quote(e.sheetName)+"!A1", &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", e.sheetName, err)
	}
	slog.InfoContext(ctx, "Ledger exported to sheet", "sheet", e.sheetName, "rows", len(rows))
	return nil
}

func (e *Exporter) ensureSheet(ctx context.Context) error {
	ss, err := e.svc.Spreadsheets.Get(e.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == e.sheetName {
			return nil
		}
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: e.sheetName}},
		}},
	}
	if _, err := e.svc.Spreadsheets.BatchUpdate(e.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", e.sheetName, err)
	}
	return nil
}

// quote wraps a tab name for A1 notation.
func quote(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
