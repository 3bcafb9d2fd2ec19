package amqp

import (
	"encoding/json"
	"time"
)

// LedgerChangeMessage announces a committed ledger mutation to other
// processes sharing the same store. It carries no payload; consumers
// reload from the persistence medium and re-snapshot.
type LedgerChangeMessage struct {
	Origin    string    `json:"origin"` // instance id, used to drop echoes
	Namespace string    `json:"namespace"`
	Op        string    `json:"op"`
	EntityID  string    `json:"entity_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerChangeMessage builds a change announcement from one mutation.
func NewLedgerChangeMessage(origin, namespace, op, entityID string) *LedgerChangeMessage {
	return &LedgerChangeMessage{
		Origin:    origin,
		Namespace: namespace,
		Op:        op,
		EntityID:  entityID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *LedgerChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangeMessageFromJSON creates a message from JSON bytes.
func LedgerChangeMessageFromJSON(data []byte) (*LedgerChangeMessage, error) {
	var msg LedgerChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
