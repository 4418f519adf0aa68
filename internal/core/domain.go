package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// DateLayout is the storage and form format for transaction dates.
const DateLayout = "2006-01-02"

type (
	TransactionType string

	User struct {
		ID           int64
		Name         string
		Email        string
		PasswordHash string
		IsAdmin      bool
	}

	Category struct {
		ID   int64
		Name string
	}

	PaymentMethod struct {
		ID   int64
		Name string
	}

	// Transaction is a single ledger entry. Amount is signed: positive for
	// income, negative for expense. PaymentMethodID is nil for income.
	Transaction struct {
		ID              int64
		UserID          int64
		Date            time.Time
		CategoryID      int64
		Amount          int64
		PaymentMethodID *int64
		Note            string
	}
)

var (
	ErrDuplicateEmail             = errors.New("email already registered")
	ErrDuplicateCategoryName      = errors.New("category already exists")
	ErrDuplicatePaymentMethodName = errors.New("payment method already exists")
	ErrInvalidCredentials         = errors.New("invalid credentials")
	ErrInvalidAmount              = errors.New("invalid amount")
	ErrInvalidInput               = errors.New("invalid input")
	ErrUnknownReference           = errors.New("unknown category or payment method")
	ErrUserNotFound               = errors.New("user not found")
	ErrEmptyName                  = errors.New("empty name")
)

// ParseTransactionType accepts "income" or "expense".
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(strings.TrimSpace(s)); t {
	case Income, Expense:
		return t, nil
	default:
		return "", ErrInvalidInput
	}
}

func (t TransactionType) String() string {
	return string(t)
}

// SignedAmount applies the sign convention of t to a non-negative magnitude.
func (t TransactionType) SignedAmount(magnitude int64) int64 {
	if magnitude < 0 {
		magnitude = -magnitude
	}
	if t == Expense {
		return -magnitude
	}
	return magnitude
}

// Type reports the transaction type implied by the amount sign.
func (t Transaction) Type() TransactionType {
	if t.Amount < 0 {
		return Expense
	}
	return Income
}

// Magnitude returns the absolute amount.
func (t Transaction) Magnitude() int64 {
	if t.Amount < 0 {
		return -t.Amount
	}
	return t.Amount
}

// Normalize enforces the write-time invariants: amount sign follows the
// type and income never carries a payment method.
func (t *Transaction) Normalize(typ TransactionType) {
	t.Amount = typ.SignedAmount(t.Amount)
	if typ != Expense {
		t.PaymentMethodID = nil
	}
}

// NormalizeName trims reference-data names and rejects empty ones.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	return name, nil
}
