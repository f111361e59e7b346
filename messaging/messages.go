package messaging

import (
	"encoding/json"
	"time"

	"bookkeeping/services"
)

// LedgerMessage - конверт события журнала в брокере
type LedgerMessage struct {
	Event     string               `json:"event"`
	Payload   services.LedgerEvent `json:"payload"`
	Timestamp time.Time            `json:"timestamp"`
}

// NewLedgerMessage оборачивает событие в конверт
func NewLedgerMessage(event services.LedgerEvent) *LedgerMessage {
	return &LedgerMessage{
		Event:     event.Kind,
		Payload:   event,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON сериализует сообщение
func (m *LedgerMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerMessageFromJSON разбирает сообщение из брокера
func LedgerMessageFromJSON(data []byte) (*LedgerMessage, error) {
	var msg LedgerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
