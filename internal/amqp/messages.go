package amqp

import (
	"encoding/json"
	"time"

	"coleta/internal/core"
)

// Record lifecycle actions published to downstream consumers.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// RecordEvent is the message emitted after a successful write. Consumers get
// the identity of the record, not its measurements; they fetch what they
// need from the API.
type RecordEvent struct {
	Action    string     `json:"action"`
	Group     core.Group `json:"grupo"`
	ID        int64      `json:"id"`
	Line      string     `json:"linhaProducao"`
	Date      string     `json:"dataColeta"`
	Timestamp time.Time  `json:"timestamp"`
}

func NewRecordEvent(action string, group core.Group, id int64, line, date string) RecordEvent {
	return RecordEvent{
		Action:    action,
		Group:     group,
		ID:        id,
		Line:      line,
		Date:      date,
		Timestamp: time.Now(),
	}
}

func (e RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func RecordEventFromJSON(data []byte) (RecordEvent, error) {
	var ev RecordEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return RecordEvent{}, err
	}
	return ev, nil
}
