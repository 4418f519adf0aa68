// Package memory is an in-process LedgerSink used by tests and local runs
// without Google credentials.
package memory

import (
	"context"
	"sync"

	"kakeibo/internal/core"
	ports "kakeibo/internal/sheets"
)

var _ ports.LedgerSink = (*Sink)(nil)

type Sink struct {
	mu      sync.Mutex
	rows    []core.LedgerRow
	exports int
	err     error
}

func New() *Sink {
	return &Sink{}
}

// FailWith makes subsequent exports return err. Pass nil to recover.
func (s *Sink) FailWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *Sink) ReplaceLedger(_ context.Context, rows []core.LedgerRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.rows = append([]core.LedgerRow(nil), rows...)
	s.exports++
	return nil
}

// Rows returns a copy of the last exported ledger.
func (s *Sink) Rows() []core.LedgerRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.LedgerRow(nil), s.rows...)
}

// Exports counts successful ReplaceLedger calls.
func (s *Sink) Exports() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exports
}
