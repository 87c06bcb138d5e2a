package core

import (
	"math"
	"strings"
	"sync"
	"time"
)

// FieldError names one offending payload field and the reason it failed.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError carries every failed field of one payload.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Reason
	}
	return "invalid payload: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

// The "today only" write policy is pinned to the plant's zone, not the host's
// and not the caller's. São Paulo has no DST since 2019; the fixed offset is
// only a fallback for hosts without tzdata.
var plantZone = sync.OnceValue(func() *time.Location {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		return time.FixedZone("-03", -3*60*60)
	}
	return loc
})

// Today returns the current calendar date (YYYY-MM-DD) in America/Sao_Paulo.
func Today() string {
	return time.Now().In(plantZone()).Format("2006-01-02")
}

// CheckWriteDate enforces the creation-time date policy: the collection date
// must be today as observed in the plant's zone.
func CheckWriteDate(date string) error {
	if today := Today(); date != today {
		return &DateWriteError{Date: date, Today: today}
	}
	return nil
}

// ParseCreate validates a decoded JSON payload against the group schema and
// builds the record to insert. Measurement fields are required; sku,
// pesoSacolaVarpe, parametroPainel and acrisson default when absent.
func (g *GroupSpec) ParseCreate(payload map[string]any) (Record, error) {
	verr := &ValidationError{}
	rec := Record{Measures: make(map[string]float64, len(g.Fields))}

	rec.Line = requireString(payload, "linhaProducao", verr)
	if rec.Line != "" && !g.HasLine(rec.Line) {
		verr.add("linhaProducao", "unknown production line for this group")
	}
	rec.Date = requireString(payload, "dataColeta", verr)
	if rec.Date != "" {
		if _, err := time.Parse("2006-01-02", rec.Date); err != nil {
			verr.add("dataColeta", "must be a date in YYYY-MM-DD format")
		}
	}
	rec.SKU = optionalString(payload, "sku", verr)
	rec.BagWeight = optionalNumber(payload, "pesoSacolaVarpe", verr)
	rec.PanelParam = optionalNumber(payload, "parametroPainel", verr)
	rec.Acrisson = optionalNumber(payload, "acrisson", verr)

	for _, f := range g.Fields {
		v, ok := payload[f.Name]
		if !ok {
			verr.add(f.Name, "required")
			continue
		}
		n, ok := finiteNumber(v)
		if !ok {
			verr.add(f.Name, "must be a finite number")
			continue
		}
		if n < 0 {
			verr.add(f.Name, "must not be negative")
			continue
		}
		rec.Measures[f.Name] = n
	}

	if len(verr.Fields) > 0 {
		return Record{}, verr
	}
	return rec, nil
}

// ParseUpdate validates a partial payload for an in-place update. Only the
// provided fields are checked; id and createdAt are immutable and ignored.
func (g *GroupSpec) ParseUpdate(payload map[string]any) (Fields, error) {
	verr := &ValidationError{}
	fields := make(Fields, len(payload))

	for key, v := range payload {
		switch key {
		case "id", "createdAt":
			continue
		case "linhaProducao":
			s, ok := v.(string)
			if !ok || s == "" {
				verr.add(key, "must be a non-empty string")
				continue
			}
			if !g.HasLine(s) {
				verr.add(key, "unknown production line for this group")
				continue
			}
			fields[key] = s
		case "dataColeta":
			s, ok := v.(string)
			if !ok {
				verr.add(key, "must be a string")
				continue
			}
			if _, err := time.Parse("2006-01-02", s); err != nil {
				verr.add(key, "must be a date in YYYY-MM-DD format")
				continue
			}
			fields[key] = s
		case "sku":
			s, ok := v.(string)
			if !ok {
				verr.add(key, "must be a string")
				continue
			}
			fields[key] = s
		case "pesoSacolaVarpe", "parametroPainel", "acrisson":
			n, ok := finiteNumber(v)
			if !ok {
				verr.add(key, "must be a finite number")
				continue
			}
			fields[key] = n
		default:
			if _, known := g.Field(key); !known {
				// Unknown keys are ignored, matching the original parser.
				continue
			}
			n, ok := finiteNumber(v)
			if !ok {
				verr.add(key, "must be a finite number")
				continue
			}
			if n < 0 {
				verr.add(key, "must not be negative")
				continue
			}
			fields[key] = n
		}
	}

	if len(verr.Fields) > 0 {
		return nil, verr
	}
	return fields, nil
}

func requireString(payload map[string]any, key string, verr *ValidationError) string {
	v, ok := payload[key]
	if !ok {
		verr.add(key, "required")
		return ""
	}
	s, ok := v.(string)
	if !ok || s == "" {
		verr.add(key, "must be a non-empty string")
		return ""
	}
	return s
}

func optionalString(payload map[string]any, key string, verr *ValidationError) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		verr.add(key, "must be a string")
		return ""
	}
	return s
}

func optionalNumber(payload map[string]any, key string, verr *ValidationError) float64 {
	v, ok := payload[key]
	if !ok || v == nil {
		return 0
	}
	n, ok := finiteNumber(v)
	if !ok {
		verr.add(key, "must be a finite number")
		return 0
	}
	return n
}

func finiteNumber(v any) (float64, bool) {
	n, ok := v.(float64)
	if !ok {
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
