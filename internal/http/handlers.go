package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"coleta/internal/amqp"
	"coleta/internal/core"
)

// Request bodies are small fixed forms; anything bigger is hostile.
const maxBodyBytes = 1 << 20

func (s *Server) handleList(spec *core.GroupSpec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := s.store.List(r.Context(), spec)
		if err != nil {
			writeOutcome(w, r, err, "List records failed")
			return
		}
		out := make([]map[string]any, 0, len(records))
		for _, rec := range records {
			out = append(out, spec.ToAPI(rec))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) handleCreate(spec *core.GroupSpec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := decodePayload(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Corpo da requisição inválido", nil)
			return
		}

		rec, err := spec.ParseCreate(payload)
		if err != nil {
			writeOutcome(w, r, err, "Parse create payload failed")
			return
		}
		if err := core.CheckWriteDate(rec.Date); err != nil {
			writeOutcome(w, r, err, "Date gate failed")
			return
		}

		created, err := s.store.Create(r.Context(), spec, rec)
		if err != nil {
			writeOutcome(w, r, err, "Create record failed")
			return
		}

		s.publish(r, amqp.ActionCreated, spec, created)
		writeJSON(w, http.StatusCreated, spec.ToAPI(created))
	}
}

func (s *Server) handleUpdate(spec *core.GroupSpec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		payload, err := decodePayload(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Corpo da requisição inválido", nil)
			return
		}

		fields, err := spec.ParseUpdate(payload)
		if err != nil {
			writeOutcome(w, r, err, "Parse update payload failed")
			return
		}

		updated, err := s.store.Update(r.Context(), spec, id, fields)
		if err != nil {
			writeOutcome(w, r, err, "Update record failed")
			return
		}

		s.publish(r, amqp.ActionUpdated, spec, updated)
		writeJSON(w, http.StatusOK, spec.ToAPI(updated))
	}
}

func (s *Server) handleDelete(spec *core.GroupSpec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		// Fetch first so the delete event names the day the record belonged to.
		rec, err := s.store.Get(r.Context(), spec, id)
		if err != nil {
			writeOutcome(w, r, err, "Load record for delete failed")
			return
		}
		if err := s.store.Delete(r.Context(), spec, id); err != nil {
			writeOutcome(w, r, err, "Delete record failed")
			return
		}

		s.publish(r, amqp.ActionDeleted, spec, rec)
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleDias serves the dashboard's day cards: every record of both groups,
// bundled by collection date, most recent first.
func (s *Server) handleDias(w http.ResponseWriter, r *http.Request) {
	grupo1, grupo2, err := s.listBoth(r)
	if err != nil {
		writeOutcome(w, r, err, "List records for day bundles failed")
		return
	}

	bundles := core.BundleByDay(grupo1, grupo2)
	out := make([]map[string]any, 0, len(bundles))
	for _, b := range bundles {
		out = append(out, map[string]any{
			"data":   b.Date,
			"grupo1": toAPIList(core.Spec(core.Grupo1), b.Grupo1),
			"grupo2": toAPIList(core.Spec(core.Grupo2), b.Grupo2),
			"total":  b.Total,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleExport streams one day's workbook. The workbook is built in memory
// first so a failed export never leaks a partial file to the client.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "Data inválida, use o formato YYYY-MM-DD", nil)
		return
	}

	grupo1, grupo2, err := s.listBoth(r)
	if err != nil {
		writeOutcome(w, r, err, "List records for export failed")
		return
	}

	var bundle *core.DayBundle
	for _, b := range core.BundleByDay(grupo1, grupo2) {
		if b.Date == date {
			bundle = &b
			break
		}
	}
	if bundle == nil {
		writeError(w, http.StatusNotFound, "Nenhuma coleta registrada para o dia "+core.FormatDateBR(date), nil)
		return
	}

	var buf bytes.Buffer
	if err := s.exporter(&buf, *bundle); err != nil {
		writeOutcome(w, r, err, "Export workbook failed")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+s.filename(date)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) listBoth(r *http.Request) (grupo1, grupo2 []core.Record, err error) {
	grupo1, err = s.store.List(r.Context(), core.Spec(core.Grupo1))
	if err != nil {
		return nil, nil, err
	}
	grupo2, err = s.store.List(r.Context(), core.Spec(core.Grupo2))
	if err != nil {
		return nil, nil, err
	}
	return grupo1, grupo2, nil
}

func toAPIList(spec *core.GroupSpec, records []core.Record) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		out = append(out, spec.ToAPI(rec))
	}
	return out
}

// publish emits a lifecycle event. Publishing is best effort: a broker
// outage must not fail a request the store already committed.
func (s *Server) publish(r *http.Request, action string, spec *core.GroupSpec, rec core.Record) {
	if s.events == nil {
		return
	}
	ev := amqp.NewRecordEvent(action, spec.Group, rec.ID, rec.Line, rec.Date)
	if err := s.events.PublishRecordEvent(r.Context(), ev); err != nil {
		slog.ErrorContext(r.Context(), "Publish record event failed",
			"error", err, "action", action, "grupo", spec.Group, "id", rec.ID)
	}
}

func decodePayload(r *http.Request) (map[string]any, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	payload := make(map[string]any)
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Identificador inválido", nil)
		return 0, false
	}
	return id, true
}
