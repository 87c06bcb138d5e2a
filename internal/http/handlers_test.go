package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"coleta/internal/amqp"
	"coleta/internal/core"
	"coleta/internal/storage"
)

type capturedEvents struct {
	events []amqp.RecordEvent
}

func (c *capturedEvents) PublishRecordEvent(ctx context.Context, ev amqp.RecordEvent) error {
	c.events = append(c.events, ev)
	return nil
}

func newTestServer(t *testing.T) (*Server, *capturedEvents) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "coleta.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository failed: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	events := &capturedEvents{}
	srv := NewServer(":0", repo, events, 10000)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv, events
}

func grupo1Body(t *testing.T, line, date string, value float64) []byte {
	t.Helper()
	payload := map[string]any{
		"linhaProducao": line,
		"dataColeta":    date,
		"sku":           "SKU-1",
	}
	for _, f := range core.Spec(core.Grupo1).Fields {
		payload[f.Name] = value
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return body
}

func doJSON(srv *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("response is not a JSON object: %v\n%s", err, rec.Body.String())
	}
	return m
}

func TestCreate_Success(t *testing.T) {
	srv, events := newTestServer(t)

	rec := doJSON(srv, http.MethodPost, "/api/coleta/grupo1", grupo1Body(t, "L90", core.Today(), 1.5))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201\n%s", rec.Code, rec.Body.String())
	}

	got := decodeMap(t, rec)
	if got["linhaProducao"] != "L90" || got["dataColeta"] != core.Today() {
		t.Errorf("line/date = %v/%v", got["linhaProducao"], got["dataColeta"])
	}
	if got["id"] == nil || got["createdAt"] == nil {
		t.Errorf("response missing id/createdAt: %v", got)
	}
	for _, f := range core.Spec(core.Grupo1).Fields {
		if got[f.Name] != 1.5 {
			t.Errorf("field %s = %v, want 1.5", f.Name, got[f.Name])
		}
	}

	if len(events.events) != 1 {
		t.Fatalf("expected one published event, got %d", len(events.events))
	}
	ev := events.events[0]
	if ev.Action != amqp.ActionCreated || ev.Group != core.Grupo1 || ev.Line != "L90" {
		t.Errorf("event = %+v", ev)
	}

	list := doJSON(srv, http.MethodGet, "/api/coleta/grupo1", nil)
	if list.Code != http.StatusOK {
		t.Fatalf("list status = %d", list.Code)
	}
	var records []map[string]any
	if err := json.Unmarshal(list.Body.Bytes(), &records); err != nil {
		t.Fatalf("list not a JSON array: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("list returned %d records, want 1", len(records))
	}
}

func TestCreate_Duplicate(t *testing.T) {
	srv, _ := newTestServer(t)

	first := doJSON(srv, http.MethodPost, "/api/coleta/grupo1", grupo1Body(t, "L90", core.Today(), 1))
	if first.Code != http.StatusCreated {
		t.Fatalf("first create status = %d", first.Code)
	}

	second := doJSON(srv, http.MethodPost, "/api/coleta/grupo1", grupo1Body(t, "L90", core.Today(), 2))
	if second.Code != http.StatusConflict {
		t.Fatalf("second create status = %d, want 409\n%s", second.Code, second.Body.String())
	}
	got := decodeMap(t, second)
	msg, _ := got["error"].(string)
	want := fmt.Sprintf("A linha L90 já possui registro para o dia %s.", core.FormatDateBR(core.Today()))
	if msg != want {
		t.Errorf("error = %q, want %q", msg, want)
	}
}

func TestCreate_Rejections(t *testing.T) {
	srv, events := newTestServer(t)

	t.Run("stale date", func(t *testing.T) {
		rec := doJSON(srv, http.MethodPost, "/api/coleta/grupo1", grupo1Body(t, "L90", "2000-01-01", 1))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		got := decodeMap(t, rec)
		if msg, _ := got["error"].(string); !strings.Contains(msg, "dia atual") {
			t.Errorf("error = %q, want date gate message", msg)
		}
	})

	t.Run("missing field", func(t *testing.T) {
		payload := map[string]any{}
		if err := json.Unmarshal(grupo1Body(t, "L90", core.Today(), 1), &payload); err != nil {
			t.Fatal(err)
		}
		delete(payload, "surge")
		body, _ := json.Marshal(payload)

		rec := doJSON(srv, http.MethodPost, "/api/coleta/grupo1", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		got := decodeMap(t, rec)
		details, _ := got["details"].([]any)
		if len(details) != 1 {
			t.Fatalf("details = %v, want one entry", got["details"])
		}
		entry, _ := details[0].(map[string]any)
		if entry["field"] != "surge" {
			t.Errorf("failed field = %v, want surge", entry["field"])
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := doJSON(srv, http.MethodPost, "/api/coleta/grupo1", []byte("{not json"))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("wrong group line", func(t *testing.T) {
		rec := doJSON(srv, http.MethodPost, "/api/coleta/grupo2", grupo1Body(t, "L90", core.Today(), 1))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	if len(events.events) != 0 {
		t.Errorf("rejected writes must not publish events, got %d", len(events.events))
	}
}

func TestUpdate(t *testing.T) {
	srv, events := newTestServer(t)

	created := doJSON(srv, http.MethodPost, "/api/coleta/grupo1", grupo1Body(t, "L91", core.Today(), 1))
	if created.Code != http.StatusCreated {
		t.Fatalf("create status = %d", created.Code)
	}
	id := int64(decodeMap(t, created)["id"].(float64))

	t.Run("partial update", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{"sku": "NEW", "surge": 7.5})
		rec := doJSON(srv, http.MethodPut, fmt.Sprintf("/api/coleta/grupo1/%d", id), body)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200\n%s", rec.Code, rec.Body.String())
		}
		got := decodeMap(t, rec)
		if got["sku"] != "NEW" || got["surge"] != 7.5 {
			t.Errorf("sku/surge = %v/%v", got["sku"], got["surge"])
		}
		if got["velocidadeLinha"] != 1.0 {
			t.Errorf("untouched field changed: %v", got["velocidadeLinha"])
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{"sku": "X"})
		rec := doJSON(srv, http.MethodPut, "/api/coleta/grupo1/99999", body)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
		got := decodeMap(t, rec)
		if got["error"] != "Coleta não encontrada" {
			t.Errorf("error = %v", got["error"])
		}
	})

	t.Run("non-numeric id", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{"sku": "X"})
		rec := doJSON(srv, http.MethodPut, "/api/coleta/grupo1/abc", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	var updates int
	for _, ev := range events.events {
		if ev.Action == amqp.ActionUpdated {
			updates++
		}
	}
	if updates != 1 {
		t.Errorf("expected one update event, got %d", updates)
	}
}

func TestDelete(t *testing.T) {
	srv, events := newTestServer(t)

	created := doJSON(srv, http.MethodPost, "/api/coleta/grupo2", grupo2Body(t, "L84", core.Today(), 2))
	if created.Code != http.StatusCreated {
		t.Fatalf("create status = %d\n%s", created.Code, created.Body.String())
	}
	id := int64(decodeMap(t, created)["id"].(float64))

	rec := doJSON(srv, http.MethodDelete, fmt.Sprintf("/api/coleta/grupo2/%d", id), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	again := doJSON(srv, http.MethodDelete, fmt.Sprintf("/api/coleta/grupo2/%d", id), nil)
	if again.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", again.Code)
	}

	var deleted []amqp.RecordEvent
	for _, ev := range events.events {
		if ev.Action == amqp.ActionDeleted {
			deleted = append(deleted, ev)
		}
	}
	if len(deleted) != 1 {
		t.Fatalf("expected one delete event, got %d", len(deleted))
	}
	// Consumers need the day the record belonged to, not just the id.
	if deleted[0].ID != id || deleted[0].Line != "L84" || deleted[0].Date != core.Today() {
		t.Errorf("delete event = %+v", deleted[0])
	}
}

func grupo2Body(t *testing.T, line, date string, value float64) []byte {
	t.Helper()
	payload := map[string]any{
		"linhaProducao": line,
		"dataColeta":    date,
	}
	for _, f := range core.Spec(core.Grupo2).Fields {
		payload[f.Name] = value
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return body
}

func TestDias(t *testing.T) {
	srv, _ := newTestServer(t)

	if rec := doJSON(srv, http.MethodPost, "/api/coleta/grupo1", grupo1Body(t, "L90", core.Today(), 1)); rec.Code != http.StatusCreated {
		t.Fatalf("create grupo1 status = %d", rec.Code)
	}
	if rec := doJSON(srv, http.MethodPost, "/api/coleta/grupo2", grupo2Body(t, "L84", core.Today(), 2)); rec.Code != http.StatusCreated {
		t.Fatalf("create grupo2 status = %d", rec.Code)
	}

	rec := doJSON(srv, http.MethodGet, "/api/coleta/dias", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var days []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &days); err != nil {
		t.Fatalf("response not a JSON array: %v", err)
	}
	if len(days) != 1 {
		t.Fatalf("days = %d, want 1", len(days))
	}
	day := days[0]
	if day["data"] != core.Today() {
		t.Errorf("data = %v, want today", day["data"])
	}
	if day["total"] != 2.0 {
		t.Errorf("total = %v, want 2", day["total"])
	}
	g1, _ := day["grupo1"].([]any)
	g2, _ := day["grupo2"].([]any)
	if len(g1) != 1 || len(g2) != 1 {
		t.Errorf("grupo1/grupo2 = %d/%d records, want 1/1", len(g1), len(g2))
	}
}

func TestExport(t *testing.T) {
	srv, _ := newTestServer(t)

	if rec := doJSON(srv, http.MethodPost, "/api/coleta/grupo1", grupo1Body(t, "L90", core.Today(), 1)); rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	t.Run("existing day", func(t *testing.T) {
		rec := doJSON(srv, http.MethodGet, "/api/coleta/export/"+core.Today(), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d\n%s", rec.Code, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
			t.Errorf("Content-Type = %q", ct)
		}
		if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "Coleta_Nordson_") {
			t.Errorf("Content-Disposition = %q", cd)
		}
		if rec.Body.Len() == 0 {
			t.Error("workbook body is empty")
		}
	})

	t.Run("day without records", func(t *testing.T) {
		rec := doJSON(srv, http.MethodGet, "/api/coleta/export/2000-01-01", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
		got := decodeMap(t, rec)
		if msg, _ := got["error"].(string); !strings.Contains(msg, "01/01/2000") {
			t.Errorf("error = %q, want Brazilian date in message", msg)
		}
	})

	t.Run("malformed date", func(t *testing.T) {
		rec := doJSON(srv, http.MethodGet, "/api/coleta/export/01-01-2000", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestRateLimit(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "coleta.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository failed: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	srv := NewServer(":0", repo, nil, 2)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	// Reads are never limited.
	for i := 0; i < 5; i++ {
		if rec := doJSON(srv, http.MethodGet, "/api/coleta/grupo1", nil); rec.Code != http.StatusOK {
			t.Fatalf("read %d status = %d", i, rec.Code)
		}
	}

	// Third mutating request from the same client trips the limit.
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = doJSON(srv, http.MethodDelete, "/api/coleta/grupo1/1", nil)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", last.Code)
	}
	if last.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", last.Header().Get("Retry-After"))
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(srv, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}
