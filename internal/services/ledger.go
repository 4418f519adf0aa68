package services

import (
	"context"
	"errors"
	"time"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	applog "kakeibo/internal/log"
	"kakeibo/internal/storage"
)

// ChangePublisher announces ledger writes to other processes.
type ChangePublisher interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

// TransactionInput is a decoded transaction form. AmountRaw is the amount
// exactly as submitted.
type TransactionInput struct {
	Date            time.Time
	CategoryID      int64
	AmountRaw       string
	Type            core.TransactionType
	PaymentMethodID *int64
	Note            string
}

// LedgerService reads and writes transactions. Every operation is scoped to
// the calling user.
type LedgerService struct {
	store     *storage.Store
	publisher ChangePublisher
	logger    *applog.Logger
}

// NewLedgerService builds the service. publisher may be nil.
func NewLedgerService(store *storage.Store, publisher ChangePublisher, logger *applog.Logger) *LedgerService {
	return &LedgerService{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(applog.ComponentLedger),
	}
}

// Dashboard returns the monthly totals and the full ledger of userID.
func (s *LedgerService) Dashboard(ctx context.Context, userID int64) (core.Dashboard, error) {
	var d core.Dashboard
	err := s.store.Do(ctx, func(c *storage.Conn) error {
		var err error
		if d.Monthly, err = c.MonthlyTotals(ctx, userID); err != nil {
			return err
		}
		d.Rows, err = c.ListLedger(ctx, userID)
		return err
	})
	return d, err
}

// Create validates in and stores it for userID, returning the new id.
func (s *LedgerService) Create(ctx context.Context, userID int64, in TransactionInput) (int64, error) {
	t, err := buildTransaction(userID, in)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.store.Do(ctx, func(c *storage.Conn) error {
		id, err = c.CreateTransaction(ctx, t)
		return err
	})
	if err != nil {
		return 0, mapReferenceError(err)
	}

	s.logger.InfoContext(ctx, "Transaction created",
		applog.FieldUserID, userID, applog.FieldTransactionID, id)
	s.publish(ctx, userID, id, amqp.OpCreated)
	return id, nil
}

// Get returns the transaction only when userID owns it.
func (s *LedgerService) Get(ctx context.Context, userID, id int64) (core.Transaction, bool, error) {
	var t core.Transaction
	err := s.store.Do(ctx, func(c *storage.Conn) error {
		var err error
		t, err = c.GetTransaction(ctx, userID, id)
		return err
	})
	if errors.Is(err, storage.ErrNotFound) {
		return core.Transaction{}, false, nil
	}
	if err != nil {
		return core.Transaction{}, false, err
	}
	return t, true, nil
}

// Update overwrites a transaction owned by userID. Updating a row that does
// not exist or belongs to someone else changes nothing and is not an error.
func (s *LedgerService) Update(ctx context.Context, userID, id int64, in TransactionInput) error {
	t, err := buildTransaction(userID, in)
	if err != nil {
		return err
	}
	t.ID = id

	var n int64
	err = s.store.Do(ctx, func(c *storage.Conn) error {
		n, err = c.UpdateTransaction(ctx, t)
		return err
	})
	if err != nil {
		return mapReferenceError(err)
	}
	if n > 0 {
		s.publish(ctx, userID, id, amqp.OpUpdated)
	}
	return nil
}

// Delete removes a transaction owned by userID. Missing rows are ignored.
func (s *LedgerService) Delete(ctx context.Context, userID, id int64) error {
	var n int64
	err := s.store.Do(ctx, func(c *storage.Conn) error {
		var err error
		n, err = c.DeleteTransaction(ctx, userID, id)
		return err
	})
	if err != nil {
		return err
	}
	if n > 0 {
		s.publish(ctx, userID, id, amqp.OpDeleted)
	}
	return nil
}

// ExportRows returns the ledger of userID in dashboard order.
func (s *LedgerService) ExportRows(ctx context.Context, userID int64) ([]core.LedgerRow, error) {
	var rows []core.LedgerRow
	err := s.store.Do(ctx, func(c *storage.Conn) error {
		var err error
		rows, err = c.ListLedger(ctx, userID)
		return err
	})
	return rows, err
}

// AllRows returns every user's ledger ordered by user then date.
func (s *LedgerService) AllRows(ctx context.Context) ([]core.LedgerRow, error) {
	var rows []core.LedgerRow
	err := s.store.Do(ctx, func(c *storage.Conn) error {
		var err error
		rows, err = c.ListAllLedger(ctx)
		return err
	})
	return rows, err
}

// publish never fails the caller; the row is already committed.
func (s *LedgerService) publish(ctx context.Context, userID, id int64, op amqp.LedgerOp) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerChanged(ctx, amqp.NewLedgerChangedMessage(userID, id, op)); err != nil {
		s.logger.LogError(ctx, "Failed to publish ledger change", err, applog.OpPublish,
			applog.FieldUserID, userID, applog.FieldTransactionID, id)
	}
}

func buildTransaction(userID int64, in TransactionInput) (core.Transaction, error) {
	amount, err := core.ParseAmount(in.AmountRaw)
	if err != nil {
		return core.Transaction{}, err
	}
	if in.Type != core.Income && in.Type != core.Expense {
		return core.Transaction{}, core.ErrInvalidInput
	}
	if in.Date.IsZero() || in.CategoryID <= 0 {
		return core.Transaction{}, core.ErrInvalidInput
	}
	t := core.Transaction{
		UserID:          userID,
		Date:            in.Date,
		CategoryID:      in.CategoryID,
		Amount:          amount,
		PaymentMethodID: in.PaymentMethodID,
		Note:            in.Note,
	}
	t.Normalize(in.Type)
	return t, nil
}

func mapReferenceError(err error) error {
	if errors.Is(err, storage.ErrForeignKeyViolation) {
		return core.ErrUnknownReference
	}
	return err
}
