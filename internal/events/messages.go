package events

import (
	"encoding/json"
	"time"
)

// Event names published to the ledger exchange.
const (
	EventTransactionCreated = "transaction.created"
	EventTransactionDeleted = "transaction.deleted"
	EventImportCompleted    = "transactions.imported"
)

// LedgerEventMessage is the envelope for every ledger notification. Consumers
// fetch full records from the store; the message carries identifiers only.
type LedgerEventMessage struct {
	Event         string    `json:"event"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Count         int       `json:"count,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionEvent(event, transactionID string) *LedgerEventMessage {
	return &LedgerEventMessage{
		Event:         event,
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

func NewImportCompletedEvent(count int) *LedgerEventMessage {
	return &LedgerEventMessage{
		Event:     EventImportCompleted,
		Count:     count,
		Timestamp: time.Now(),
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
