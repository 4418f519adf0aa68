package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// LedgerOp names the write that changed a ledger.
type LedgerOp string

const (
	OpCreated LedgerOp = "create"
	OpUpdated LedgerOp = "update"
	OpDeleted LedgerOp = "delete"
)

// LedgerChangedMessage announces a write to one user's ledger. It carries
// ids only; consumers read current rows from the database.
type LedgerChangedMessage struct {
	UserID        int64     `json:"user_id"`
	TransactionID int64     `json:"transaction_id"`
	Op            LedgerOp  `json:"op"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(userID, transactionID int64, op LedgerOp) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		UserID:        userID,
		TransactionID: transactionID,
		Op:            op,
		Timestamp:     time.Now().UTC(),
	}
}

func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON decodes and sanity-checks a message body.
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Op {
	case OpCreated, OpUpdated, OpDeleted:
	default:
		return nil, fmt.Errorf("unknown ledger op %q", msg.Op)
	}
	if msg.UserID <= 0 {
		return nil, fmt.Errorf("invalid user id %d", msg.UserID)
	}
	return &msg, nil
}
