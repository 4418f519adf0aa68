// Package worker keeps the external ledger mirror in step with the
// database.
package worker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	applog "kakeibo/internal/log"
	"kakeibo/internal/sheets"
)

// RowSource yields every user's ledger.
type RowSource interface {
	AllRows(ctx context.Context) ([]core.LedgerRow, error)
}

// ExportWorker re-exports the full ledger whenever it is told something
// changed and on a fixed interval. Overlapping exports share one run.
type ExportWorker struct {
	source RowSource
	sink   sheets.LedgerSink
	group  singleflight.Group
	logger *applog.Logger
}

func NewExportWorker(source RowSource, sink sheets.LedgerSink, logger *applog.Logger) *ExportWorker {
	return &ExportWorker{
		source: source,
		sink:   sink,
		logger: logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleLedgerChanged is an amqp.Handler. The message only signals that an
// export is due; an error requeues it.
func (w *ExportWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	w.logger.DebugContext(ctx, "Ledger change received",
		applog.FieldUserID, msg.UserID,
		applog.FieldTransactionID, msg.TransactionID,
		applog.FieldOperation, msg.Op)
	return w.Export(ctx)
}

// Export reads all rows and replaces the mirror with them.
func (w *ExportWorker) Export(ctx context.Context) error {
	_, err, shared := w.group.Do("export", func() (any, error) {
		start := time.Now()
		rows, err := w.source.AllRows(ctx)
		if err != nil {
			return nil, fmt.Errorf("load ledger: %w", err)
		}
		if err := w.sink.ReplaceLedger(ctx, rows); err != nil {
			return nil, fmt.Errorf("replace ledger: %w", err)
		}
		w.logger.InfoContext(ctx, "Ledger exported",
			applog.FieldRows, len(rows),
			applog.FieldDuration, time.Since(start).Milliseconds())
		return nil, nil
	})
	if err != nil {
		w.logger.LogError(ctx, "Ledger export failed", err, applog.OpExport, "shared", shared)
	}
	return err
}

// RunPeriodic exports once immediately and then every interval until ctx is
// cancelled. Failed runs are logged and retried on the next tick.
func (w *ExportWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	_ = w.Export(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "Periodic export stopped")
			return ctx.Err()
		case <-ticker.C:
			_ = w.Export(ctx)
		}
	}
}
