package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"coleta/internal/core"

	_ "modernc.org/sqlite"
)

// Base columns shared by both group tables, in table order. The group's
// measurement columns follow, taken from the GroupSpec.
var baseColumns = []string{
	"data_coleta",
	"linha_producao",
	"sku",
	"peso_sacola_varpe",
	"parametro_painel",
	"acrisson",
}

// Maps API field names of the shared columns to their storage columns.
var baseColumnFor = map[string]string{
	"dataColeta":      "data_coleta",
	"linhaProducao":   "linha_producao",
	"sku":             "sku",
	"pesoSacolaVarpe": "peso_sacola_varpe",
	"parametroPainel": "parametro_painel",
	"acrisson":        "acrisson",
}

// SQLiteRepository owns record identity and persistence for both groups.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer at a time; serializing on a single connection
	// turns concurrent SQLITE_BUSY failures into queueing.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// List returns every record of the group. Order is unspecified; callers
// sort as needed.
func (r *SQLiteRepository) List(ctx context.Context, spec *core.GroupSpec) ([]core.Record, error) {
	query := "SELECT " + selectColumns(spec) + " FROM " + spec.Table
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", spec.Table, err)
	}
	defer rows.Close()

	var records []core.Record
	for rows.Next() {
		rec, err := scanRecord(spec, rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s row: %w", spec.Table, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", spec.Table, err)
	}
	return records, nil
}

// Create inserts the record, assigning id and createdAt. The duplicate check
// rides on the UNIQUE(data_coleta, linha_producao) index: the insert and the
// check are one statement, so two concurrent creators cannot both win.
func (r *SQLiteRepository) Create(ctx context.Context, spec *core.GroupSpec, rec core.Record) (core.Record, error) {
	cols := make([]string, 0, 1+len(baseColumns)+len(spec.Fields))
	args := make([]any, 0, cap(cols))

	cols = append(cols, `"created_at"`)
	args = append(args, time.Now().UTC().Format(time.RFC3339))
	for _, c := range baseColumns {
		cols = append(cols, `"`+c+`"`)
	}
	args = append(args, rec.Date, rec.Line, rec.SKU, rec.BagWeight, rec.PanelParam, rec.Acrisson)
	for _, f := range spec.Fields {
		cols = append(cols, `"`+f.Column+`"`)
		args = append(args, rec.Measures[f.Name])
	}

	query := "INSERT INTO " + spec.Table + " (" + strings.Join(cols, ", ") + ") VALUES (" +
		placeholders(len(cols)) + `) ON CONFLICT("data_coleta", "linha_producao") DO NOTHING`

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return core.Record{}, fmt.Errorf("insert into %s: %w", spec.Table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Record{}, fmt.Errorf("rows affected for %s insert: %w", spec.Table, err)
	}
	if affected == 0 {
		return core.Record{}, &core.DuplicateError{Line: rec.Line, Date: rec.Date}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Record{}, fmt.Errorf("last insert id for %s: %w", spec.Table, err)
	}

	created, err := r.Get(ctx, spec, id)
	if err != nil {
		return core.Record{}, err
	}
	slog.InfoContext(ctx, "Record created",
		"table", spec.Table, "id", created.ID, "line", created.Line, "date", created.Date)
	return created, nil
}

// Get returns one record by id, or core.ErrNotFound.
func (r *SQLiteRepository) Get(ctx context.Context, spec *core.GroupSpec, id int64) (core.Record, error) {
	query := "SELECT " + selectColumns(spec) + " FROM " + spec.Table + ` WHERE "id" = ?`
	rec, err := scanRecord(spec, r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Record{}, core.ErrNotFound
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("get %s id=%d: %w", spec.Table, id, err)
	}
	return rec, nil
}

// Update merges the provided fields into the existing record. Moving the
// record onto a (date, line) pair that already exists trips the same unique
// index as Create and is reported as a duplicate, not a storage failure.
func (r *SQLiteRepository) Update(ctx context.Context, spec *core.GroupSpec, id int64, fields core.Fields) (core.Record, error) {
	if len(fields) == 0 {
		return r.Get(ctx, spec, id)
	}

	sets := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	for name, value := range fields {
		col, ok := baseColumnFor[name]
		if !ok {
			f, known := spec.Field(name)
			if !known {
				continue
			}
			col = f.Column
		}
		sets = append(sets, `"`+col+`" = ?`)
		args = append(args, value)
	}
	args = append(args, id)

	query := "UPDATE " + spec.Table + " SET " + strings.Join(sets, ", ") + ` WHERE "id" = ?`
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Record{}, r.duplicateFromUpdate(ctx, spec, id, fields)
		}
		return core.Record{}, fmt.Errorf("update %s id=%d: %w", spec.Table, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Record{}, fmt.Errorf("rows affected for %s update: %w", spec.Table, err)
	}
	if affected == 0 {
		return core.Record{}, core.ErrNotFound
	}

	return r.Get(ctx, spec, id)
}

// Delete removes the record; core.ErrNotFound when the id is absent.
func (r *SQLiteRepository) Delete(ctx context.Context, spec *core.GroupSpec, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM "+spec.Table+` WHERE "id" = ?`, id)
	if err != nil {
		return fmt.Errorf("delete from %s id=%d: %w", spec.Table, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %s delete: %w", spec.Table, err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	slog.InfoContext(ctx, "Record deleted", "table", spec.Table, "id", id)
	return nil
}

// duplicateFromUpdate reconstructs the (line, date) pair an update collided
// on, so the caller gets the same message shape as a duplicate create.
func (r *SQLiteRepository) duplicateFromUpdate(ctx context.Context, spec *core.GroupSpec, id int64, fields core.Fields) error {
	line, date := "", ""
	if v, ok := fields["linhaProducao"].(string); ok {
		line = v
	}
	if v, ok := fields["dataColeta"].(string); ok {
		date = v
	}
	if line == "" || date == "" {
		if current, err := r.Get(ctx, spec, id); err == nil {
			if line == "" {
				line = current.Line
			}
			if date == "" {
				date = current.Date
			}
		}
	}
	return &core.DuplicateError{Line: line, Date: date}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func selectColumns(spec *core.GroupSpec) string {
	cols := make([]string, 0, 2+len(baseColumns)+len(spec.Fields))
	cols = append(cols, `"id"`, `"created_at"`)
	for _, c := range baseColumns {
		cols = append(cols, `"`+c+`"`)
	}
	for _, f := range spec.Fields {
		cols = append(cols, `"`+f.Column+`"`)
	}
	return strings.Join(cols, ", ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(spec *core.GroupSpec, row rowScanner) (core.Record, error) {
	var (
		rec       core.Record
		createdAt string
		measures  = make([]float64, len(spec.Fields))
	)

	dest := make([]any, 0, 8+len(spec.Fields))
	dest = append(dest, &rec.ID, &createdAt, &rec.Date, &rec.Line, &rec.SKU,
		&rec.BagWeight, &rec.PanelParam, &rec.Acrisson)
	for i := range measures {
		dest = append(dest, &measures[i])
	}

	if err := row.Scan(dest...); err != nil {
		return core.Record{}, err
	}

	rec.CreatedAt = parseCreatedAt(createdAt)
	rec.Measures = make(map[string]float64, len(spec.Fields))
	for i, f := range spec.Fields {
		rec.Measures[f.Name] = measures[i]
	}
	return rec, nil
}

// Rows written by this repository carry RFC 3339 timestamps; rows created by
// SQLite's CURRENT_TIMESTAMP default use "2006-01-02 15:04:05".
func parseCreatedAt(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}
