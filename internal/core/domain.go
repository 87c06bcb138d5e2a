package core

import (
	"errors"
	"fmt"
	"time"
)

// Group identifies one of the two production-line partitions. Each group has
// its own measurement-field schema, storage table and export sheet.
type Group int

const (
	Grupo1 Group = 1 // ABS e Tape lines
	Grupo2 Group = 2 // Pants lines
)

// FieldSpec describes one group-specific measurement field.
type FieldSpec struct {
	Name   string  // camelCase name at the API boundary
	Column string  // snake_case column at the storage boundary
	Header string  // label on the exported form
	Width  float64 // export column width
}

// GroupSpec is the descriptor a group's records are processed through.
// Validation, storage and export are all generic over it.
type GroupSpec struct {
	Group     Group
	Table     string
	SheetName string
	Lines     []string
	Fields    []FieldSpec
}

// Record is one day's measurement batch for a single production line.
// Measures holds the group-specific fields, keyed by FieldSpec.Name.
type Record struct {
	ID         int64
	CreatedAt  time.Time
	Date       string // dataColeta, YYYY-MM-DD
	Line       string // linhaProducao
	SKU        string
	BagWeight  float64 // pesoSacolaVarpe
	PanelParam float64 // parametroPainel
	Acrisson   float64
	Measures   map[string]float64
}

// Fields is a partial set of updatable values, keyed by API field name.
// Values are string for the text fields and float64 for the numeric ones.
type Fields map[string]any

var ErrNotFound = errors.New("record not found")

// DuplicateError reports a create (or update) that would leave two records
// for the same (line, date) pair within one group.
type DuplicateError struct {
	Line string
	Date string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("A linha %s já possui registro para o dia %s.", e.Line, FormatDateBR(e.Date))
}

// DateWriteError reports a create whose collection date is not today in the
// plant's time zone.
type DateWriteError struct {
	Date  string
	Today string
}

func (e *DateWriteError) Error() string {
	return "Só é permitido registrar dados do dia atual"
}

// HasLine reports whether the production line belongs to this group.
func (g *GroupSpec) HasLine(line string) bool {
	for _, l := range g.Lines {
		if l == line {
			return true
		}
	}
	return false
}

// Field returns the measurement field spec with the given API name.
func (g *GroupSpec) Field(name string) (FieldSpec, bool) {
	for _, f := range g.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// ToAPI flattens a record into the camelCase JSON shape of the API.
func (g *GroupSpec) ToAPI(r Record) map[string]any {
	m := map[string]any{
		"id":              r.ID,
		"createdAt":       r.CreatedAt.UTC().Format(time.RFC3339),
		"dataColeta":      r.Date,
		"linhaProducao":   r.Line,
		"sku":             r.SKU,
		"pesoSacolaVarpe": r.BagWeight,
		"parametroPainel": r.PanelParam,
		"acrisson":        r.Acrisson,
	}
	for _, f := range g.Fields {
		m[f.Name] = r.Measures[f.Name]
	}
	return m
}

// FormatDateBR converts an ISO date (YYYY-MM-DD) to DD/MM/YYYY.
// Malformed input is returned unchanged.
func FormatDateBR(iso string) string {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	return t.Format("02/01/2006")
}
