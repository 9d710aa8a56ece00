package amqp

import (
	"encoding/json"
	"time"
)

// Entry change operations announced on the exchange.
const (
	OpCreated = "entry.created"
	OpUpdated = "entry.updated"
	OpDeleted = "entry.deleted"
)

// EntryChangeMessage is a lightweight notification that an entry changed.
// It carries only the operation and identifier; consumers fetch the record
// from the store if they need it.
type EntryChangeMessage struct {
	Operation string    `json:"operation"`
	EntryID   string    `json:"entry_id"`
	Degraded  bool      `json:"degraded,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEntryChangeMessage(operation, entryID string, degraded bool) *EntryChangeMessage {
	return &EntryChangeMessage{
		Operation: operation,
		EntryID:   entryID,
		Degraded:  degraded,
		Timestamp: time.Now(),
	}
}

func (m *EntryChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EntryChangeMessageFromJSON(data []byte) (*EntryChangeMessage, error) {
	var msg EntryChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
