package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"presupuesto/internal/core"
)

// MonthChangedMessage is a lightweight notice that one month changed.
// Consumers read the month itself from storage.
type MonthChangedMessage struct {
	Month     core.MonthKey `json:"month"`
	Operation string        `json:"operation"`
	Kind      core.Kind     `json:"kind,omitempty"`
	EntryID   int64         `json:"entry_id,omitempty"`
	Version   uint64        `json:"version"`
	Timestamp time.Time     `json:"timestamp"`
}

func NewMonthChangedMessage(month core.MonthKey, op string, version uint64) *MonthChangedMessage {
	return &MonthChangedMessage{
		Month:     month,
		Operation: op,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *MonthChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MonthChangedMessageFromJSON decodes a message and checks its month.
func MonthChangedMessageFromJSON(data []byte) (*MonthChangedMessage, error) {
	var msg MonthChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Month.Validate(); err != nil {
		return nil, fmt.Errorf("message month: %w", err)
	}
	return &msg, nil
}
