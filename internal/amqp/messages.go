package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types carried by LedgerEventMessage.
const (
	EventTransactionCreated = "transaction.created"
	EventTransactionUpdated = "transaction.updated"
	EventTransactionDeleted = "transaction.deleted"
	EventTransferCreated    = "transfer.created"
)

// LedgerEventMessage is a lightweight notification that a ledger mutation
// touched the listed accounts. It carries only identifiers; the worker
// fetches the full account state from the database.
type LedgerEventMessage struct {
	EventID        string    `json:"event_id"`
	Type           string    `json:"type"`
	TransactionIDs []int64   `json:"transaction_ids"`
	AccountIDs     []int64   `json:"account_ids"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewLedgerEventMessage creates an event message with a fresh event id
func NewLedgerEventMessage(eventType string, transactionIDs, accountIDs []int64) *LedgerEventMessage {
	return &LedgerEventMessage{
		EventID:        uuid.NewString(),
		Type:           eventType,
		TransactionIDs: transactionIDs,
		AccountIDs:     accountIDs,
		Timestamp:      time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON creates a message from JSON bytes
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
