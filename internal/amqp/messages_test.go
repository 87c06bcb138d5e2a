package amqp

import (
	"strings"
	"testing"
	"time"

	"coleta/internal/core"
)

func TestNewRecordEvent(t *testing.T) {
	before := time.Now()
	ev := NewRecordEvent(ActionCreated, core.Grupo1, 42, "L90", "2024-03-05")

	if ev.Action != ActionCreated || ev.Group != core.Grupo1 || ev.ID != 42 {
		t.Errorf("event = %+v", ev)
	}
	if ev.Line != "L90" || ev.Date != "2024-03-05" {
		t.Errorf("line/date = %s/%s", ev.Line, ev.Date)
	}
	if ev.Timestamp.Before(before) {
		t.Error("timestamp should be set at construction")
	}
}

func TestRecordEvent_JSONRoundTrip(t *testing.T) {
	ev := NewRecordEvent(ActionUpdated, core.Grupo2, 7, "L84", "2024-03-05")

	data, err := ev.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	// Consumers in other languages key on these names.
	for _, key := range []string{`"action"`, `"grupo"`, `"linhaProducao"`, `"dataColeta"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("payload missing %s: %s", key, data)
		}
	}

	got, err := RecordEventFromJSON(data)
	if err != nil {
		t.Fatalf("RecordEventFromJSON failed: %v", err)
	}
	if got.Action != ev.Action || got.Group != ev.Group || got.ID != ev.ID || got.Line != ev.Line || got.Date != ev.Date {
		t.Errorf("round trip mismatch: %+v", got)
	}

	if _, err := RecordEventFromJSON([]byte("{broken")); err == nil {
		t.Error("malformed payload should fail")
	}
}
