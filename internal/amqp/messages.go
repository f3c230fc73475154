package amqp

import (
	"encoding/json"
	"time"
)

// LedgerChangeMessage announces that a stored collection changed. It carries
// only the key and version; consumers read the current state from storage.
type LedgerChangeMessage struct {
	Key       string    `json:"key"`
	Version   int64     `json:"version"`
	Operation string    `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangeMessage(key string, version int64, operation string) *LedgerChangeMessage {
	return &LedgerChangeMessage{
		Key:       key,
		Version:   version,
		Operation: operation,
		Timestamp: time.Now().UTC(),
	}
}

func (m *LedgerChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerChangeMessageFromJSON(data []byte) (*LedgerChangeMessage, error) {
	var msg LedgerChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
