package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/louisbranch/recordstore/storage"
	_ "modernc.org/sqlite"
)

// Open opens a SQLite database file for sharing across adapters. The handle
// serialises access through the driver, so it is safe to hand to multiple
// adapter instances and goroutines.
func Open(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return sqlDB, nil
}

// Option configures an adapter.
type Option func(*options)

type options struct {
	logf func(format string, args ...any)
}

// WithLogf routes the adapter's per-operation diagnostic lines through logf.
// Without it the lines are dropped.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(o *options) {
		if logf != nil {
			o.logf = logf
		}
	}
}

// Adapter persists one collection in one SQLite table. Instances are cheap
// to copy; the underlying handle is shared. All operations are synchronous
// and block until the driver returns.
type Adapter[K, D any] struct {
	sqlDB *sql.DB
	table string
	spec  storage.Spec[K, D]
	logf  func(format string, args ...any)
}

// New wraps a shared database handle and table name with a collection Spec.
func New[K, D any](sqlDB *sql.DB, table string, spec storage.Spec[K, D], opts ...Option) *Adapter[K, D] {
	o := options{logf: func(string, ...any) {}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Adapter[K, D]{sqlDB: sqlDB, table: table, spec: spec, logf: o.logf}
}

// Initialize creates the backing table when missing. The column set and
// primary key derive from the Spec; calling it again is a no-op.
func (a *Adapter[K, D]) Initialize(ctx context.Context) error {
	var b strings.Builder
	b.WriteString(`CREATE TABLE IF NOT EXISTS "`)
	b.WriteString(a.table)
	b.WriteString(`" (`)
	for i, field := range a.spec.Fields() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(field.Name)
		b.WriteString(" ")
		b.WriteString(columnType(field.Kind))
	}
	b.WriteString(", PRIMARY KEY(")
	b.WriteString(a.spec.KeyField())
	b.WriteString("));")

	if _, err := a.sqlDB.ExecContext(ctx, b.String()); err != nil {
		return fmt.Errorf("create table %q: %w", a.table, err)
	}
	return nil
}

// Load returns the record stored under key. A missing row and a row the Spec
// cannot reconstruct both report found == false.
func (a *Adapter[K, D]) Load(ctx context.Context, key K) (D, bool, error) {
	var zero D
	command := `SELECT * FROM "` + a.table + `" WHERE "` + a.spec.KeyField() + `" = :primary_key`

	rows, err := a.sqlDB.QueryContext(ctx, command, sql.Named("primary_key", bindArg(a.spec.SerializeKey(key))))
	if err != nil {
		return zero, false, fmt.Errorf("load from %q: %w", a.table, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return zero, false, fmt.Errorf("load from %q: %w", a.table, err)
		}
		return zero, false, nil
	}

	row, ok, err := a.decodeRow(rows)
	if err != nil {
		return zero, false, fmt.Errorf("load from %q: %w", a.table, err)
	}
	if !ok {
		return zero, false, nil
	}
	data, ok := a.spec.DeserializeData(row)
	if !ok {
		return zero, false, nil
	}
	return data, true, nil
}

// Contains reports whether a row exists for key without decoding any other
// column.
func (a *Adapter[K, D]) Contains(ctx context.Context, key K) (bool, error) {
	keyField := a.spec.KeyField()
	command := "SELECT " + keyField + " FROM " + a.table + " WHERE " + keyField + "=?"
	a.logf("contains: %s", command)

	var found any
	err := a.sqlDB.QueryRowContext(ctx, command, bindArg(a.spec.SerializeKey(key))).Scan(&found)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("contains in %q: %w", a.table, err)
	}
	return true, nil
}

// Store inserts one row. It is insert, not upsert: a primary-key conflict
// fails like any other rejected write, with a *storage.StoreError.
func (a *Adapter[K, D]) Store(ctx context.Context, key K, data D) error {
	serialized, ok := a.spec.SerializeData(data)
	if !ok {
		return &storage.StoreError{Message: "failed to serialize data"}
	}

	fields := a.spec.Fields()
	names := make([]string, len(fields))
	placeholders := make([]string, len(fields))
	args := make([]any, len(fields))
	for i, field := range fields {
		names[i] = field.Name
		placeholders[i] = "?"

		value, ok := serialized[field.Name]
		if !ok {
			if field.Name != a.spec.KeyField() {
				return &storage.StoreError{Message: "missing serialized field " + field.Name}
			}
			value = a.spec.SerializeKey(key)
		}
		args[i] = bindArg(value)
	}

	command := "INSERT INTO " + a.table + " (" + strings.Join(names, ", ") +
		") VALUES (" + strings.Join(placeholders, ", ") + ")"
	if _, err := a.sqlDB.ExecContext(ctx, command, args...); err != nil {
		return &storage.StoreError{Message: fmt.Sprintf("insert into %s: %v", a.table, err)}
	}
	a.logf("stored record in %q", a.table)
	return nil
}

// Update writes non-key columns of data for the row matching key. A nil only
// updates every non-key field; otherwise the listed fields, in Fields
// declaration order. Updating an absent key affects zero rows and is silent.
func (a *Adapter[K, D]) Update(ctx context.Context, key K, data D, only []string) error {
	keyField := a.spec.KeyField()

	var selected []storage.Field
	for _, field := range a.spec.Fields() {
		if field.Name == keyField {
			continue
		}
		if only != nil && !slices.Contains(only, field.Name) {
			continue
		}
		selected = append(selected, field)
	}
	if len(selected) == 0 {
		return nil
	}

	serialized, ok := a.spec.SerializeData(data)
	if !ok {
		return &storage.StoreError{Message: "failed to serialize data"}
	}

	sets := make([]string, len(selected))
	args := make([]any, 0, len(selected)+1)
	for i, field := range selected {
		sets[i] = field.Name + " = ?"
		value, ok := serialized[field.Name]
		if !ok {
			return &storage.StoreError{Message: "missing serialized field " + field.Name}
		}
		args = append(args, bindArg(value))
	}
	args = append(args, bindArg(a.spec.SerializeKey(key)))

	command := "UPDATE " + a.table + " SET " + strings.Join(sets, ", ") +
		" WHERE " + keyField + " = ?"
	if _, err := a.sqlDB.ExecContext(ctx, command, args...); err != nil {
		return &storage.StoreError{Message: fmt.Sprintf("update %s: %v", a.table, err)}
	}
	a.logf("updated %d columns in %q", len(selected), a.table)
	return nil
}

// Delete removes the row matching key; deleting an absent key is silent.
func (a *Adapter[K, D]) Delete(ctx context.Context, key K) error {
	command := "DELETE FROM " + a.table + ` WHERE "` + a.spec.KeyField() + `"=?`
	if _, err := a.sqlDB.ExecContext(ctx, command, bindArg(a.spec.SerializeKey(key))); err != nil {
		return fmt.Errorf("delete from %q: %w", a.table, err)
	}
	a.logf("deleted record from %q", a.table)
	return nil
}

// Clear removes every row in the table.
func (a *Adapter[K, D]) Clear(ctx context.Context) error {
	if _, err := a.sqlDB.ExecContext(ctx, "DELETE FROM "+a.table); err != nil {
		return fmt.Errorf("clear %q: %w", a.table, err)
	}
	a.logf("all rows deleted from %s", a.table)
	return nil
}

// Scan returns rows ordered by key ascending, skipping start rows and
// returning at most limit; a negative limit means unlimited. Rows the Spec
// cannot reconstruct are dropped.
func (a *Adapter[K, D]) Scan(ctx context.Context, start, limit int) ([]storage.Entry[K, D], error) {
	if limit < 0 {
		limit = -1
	}
	command := fmt.Sprintf(`SELECT * FROM "%s" ORDER BY "%s" LIMIT %d OFFSET %d`,
		a.table, a.spec.KeyField(), limit, start)
	return a.selectEntries(ctx, command)
}

// QueryRecords behaves like Scan restricted to rows matching q. Placeholders
// bind constants in left-to-right traversal order of the query tree.
func (a *Adapter[K, D]) QueryRecords(ctx context.Context, q storage.Query, start, limit int) ([]storage.Entry[K, D], error) {
	if limit < 0 {
		limit = -1
	}
	var args []any
	where := compileQuery(q, &args)
	command := fmt.Sprintf(`SELECT * FROM "%s" WHERE %s ORDER BY %s LIMIT %d OFFSET %d`,
		a.table, where, a.spec.KeyField(), limit, start)
	return a.selectEntries(ctx, command, args...)
}

func (a *Adapter[K, D]) selectEntries(ctx context.Context, command string, args ...any) ([]storage.Entry[K, D], error) {
	rows, err := a.sqlDB.QueryContext(ctx, command, args...)
	if err != nil {
		return nil, fmt.Errorf("select from %q: %w", a.table, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	entries := []storage.Entry[K, D]{}
	for rows.Next() {
		row, ok, err := a.decodeRow(rows)
		if err != nil {
			return nil, fmt.Errorf("select from %q: %w", a.table, err)
		}
		if !ok {
			continue
		}

		keyValue, ok := row[a.spec.KeyField()]
		if !ok {
			continue
		}
		key, ok := a.spec.DeserializeKey(keyValue)
		if !ok {
			continue
		}
		data, ok := a.spec.DeserializeData(row)
		if !ok {
			continue
		}
		entries = append(entries, storage.Entry[K, D]{Key: key, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select from %q: %w", a.table, err)
	}
	return entries, nil
}

// decodeRow reads the current row into a column-name-keyed value map. Column
// values dispatch over the field's declared kind, not the column's dynamic
// type. A column that does not coerce makes the whole row undecodable
// (ok == false); a column the Spec does not declare is a library or schema
// bug and panics.
func (a *Adapter[K, D]) decodeRow(rows *sql.Rows) (map[string]storage.Value, bool, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, false, err
	}

	raw := make([]any, len(columns))
	scanTargets := make([]any, len(columns))
	for i := range raw {
		scanTargets[i] = &raw[i]
	}
	if err := rows.Scan(scanTargets...); err != nil {
		return nil, false, err
	}

	row := make(map[string]storage.Value, len(columns))
	for i, column := range columns {
		field, ok := a.fieldByName(column)
		if !ok {
			panic(fmt.Sprintf("sqlite: unknown column %q in table %q", column, a.table))
		}
		value, ok := readColumn(field.Kind, raw[i])
		if !ok {
			return nil, false, nil
		}
		row[column] = value
	}
	return row, true, nil
}

func (a *Adapter[K, D]) fieldByName(name string) (storage.Field, bool) {
	for _, field := range a.spec.Fields() {
		if field.Name == name {
			return field, true
		}
	}
	return storage.Field{}, false
}

var (
	_ storage.Adapter[string, struct{}]   = (*Adapter[string, struct{}])(nil)
	_ storage.Queryable[string, struct{}] = (*Adapter[string, struct{}])(nil)
)
