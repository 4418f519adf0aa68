package worker

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	applog "kakeibo/internal/log"
	"kakeibo/internal/sheets/memory"
)

type stubSource struct {
	calls   atomic.Int32
	rows    []core.LedgerRow
	err     error
	release chan struct{}
}

func (s *stubSource) AllRows(ctx context.Context) ([]core.LedgerRow, error) {
	s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	return s.rows, s.err
}

func testLogger() *applog.Logger {
	return applog.New(applog.Config{Output: io.Discard})
}

func TestHandleLedgerChangedExports(t *testing.T) {
	src := &stubSource{rows: []core.LedgerRow{{ID: 1, UserID: 1}, {ID: 2, UserID: 2}}}
	sink := memory.New()
	w := NewExportWorker(src, sink, testLogger())

	if err := w.HandleLedgerChanged(context.Background(), amqp.NewLedgerChangedMessage(1, 1, amqp.OpCreated)); err != nil {
		t.Fatalf("HandleLedgerChanged: %v", err)
	}
	if got := sink.Rows(); len(got) != 2 {
		t.Fatalf("sink rows = %+v", got)
	}
}

func TestExportErrors(t *testing.T) {
	ctx := context.Background()

	src := &stubSource{err: errors.New("db locked")}
	w := NewExportWorker(src, memory.New(), testLogger())
	if err := w.Export(ctx); err == nil {
		t.Fatal("expected source error")
	}

	sink := memory.New()
	sink.FailWith(errors.New("quota"))
	w = NewExportWorker(&stubSource{}, sink, testLogger())
	if err := w.Export(ctx); err == nil {
		t.Fatal("expected sink error")
	}
}

func TestConcurrentExportsShareOneRun(t *testing.T) {
	src := &stubSource{release: make(chan struct{})}
	sink := memory.New()
	w := NewExportWorker(src, sink, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Export(context.Background())
		}()
	}
	// Let every caller reach the in-flight export before it finishes.
	deadline := time.Now().Add(time.Second)
	for src.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(src.release)
	wg.Wait()

	if got := src.calls.Load(); got < 1 || got > 2 {
		t.Fatalf("AllRows called %d times, want overlapping exports collapsed", got)
	}
}

func TestRunPeriodicStopsOnCancel(t *testing.T) {
	sink := memory.New()
	w := NewExportWorker(&stubSource{}, sink, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.RunPeriodic(ctx, 5*time.Millisecond) }()

	deadline := time.Now().Add(time.Second)
	for sink.Exports() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("RunPeriodic = %v, want context.Canceled", err)
	}
	if sink.Exports() < 2 {
		t.Fatalf("exports = %d, want startup run plus at least one tick", sink.Exports())
	}
}
