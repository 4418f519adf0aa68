package http

import (
	"fmt"
	"net/http"

	"github.com/xuri/excelize/v2"

	"kakeibo/internal/core"
	applog "kakeibo/internal/log"
)

const (
	exportSheet       = "Ledger"
	exportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var exportHeader = []any{"Date", "Category", "Type", "Amount", "Payment method", "Note"}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r).UserID
	rows, err := s.ledger.ExportRows(r.Context(), userID)
	if err != nil {
		s.serverError(w, r, "Failed to load ledger for export", err, applog.OpExport)
		return
	}

	f, err := buildLedgerWorkbook(rows)
	if err != nil {
		s.serverError(w, r, "Failed to build workbook", err, applog.OpExport)
		return
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.serverError(w, r, "Failed to write workbook", err, applog.OpExport)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Ledger exported",
		applog.FieldRows, len(rows))
	w.Header().Set("Content-Type", exportContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="kakeibo-ledger.xlsx"`)
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	_, _ = buf.WriteTo(w)
}

// buildLedgerWorkbook lays rows out one per line under a header, amounts
// kept signed and numeric.
func buildLedgerWorkbook(rows []core.LedgerRow) (*excelize.File, error) {
	f := excelize.NewFile()
	idx, err := f.NewSheet(exportSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		typ := core.Income
		if row.Amount < 0 {
			typ = core.Expense
		}
		values := []any{
			row.Date.Format(core.DateLayout),
			row.CategoryName,
			typ.String(),
			row.Amount,
			row.PaymentMethod,
			row.Note,
		}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", row.ID, err)
		}
	}
	if err := f.SetColWidth(exportSheet, "A", "F", 18); err != nil {
		f.Close()
		return nil, fmt.Errorf("set column width: %w", err)
	}
	return f, nil
}
