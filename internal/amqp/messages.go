package amqp

import (
	"encoding/json"
	"time"
)

// Recalculation triggers, carried in the message for observability.
const (
	ReasonTransaction = "transaction"
	ReasonImport      = "import"
	ReasonManual      = "manual"
	ReasonScheduled   = "scheduled"
)

// RecalcRequestMessage asks the worker to replay the ledger and rewrite
// balances. It carries only the trigger; the worker reads everything it
// needs from the database.
type RecalcRequestMessage struct {
	Reason        string    `json:"reason"`
	TransactionID int64     `json:"transaction_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewRecalcRequestMessage builds a message for the given trigger. txnID is
// zero for triggers not tied to a single transaction.
func NewRecalcRequestMessage(reason string, txnID int64) *RecalcRequestMessage {
	return &RecalcRequestMessage{
		Reason:        reason,
		TransactionID: txnID,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *RecalcRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecalcRequestMessageFromJSON parses a message from JSON bytes.
func RecalcRequestMessageFromJSON(data []byte) (*RecalcRequestMessage, error) {
	var msg RecalcRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
