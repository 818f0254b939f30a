package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/zoobzio/embedded"
)

// IDColumn is the integer primary key every bound table must have.
const IDColumn = "id"

// Table persists records of type R in one SQLite table.
type Table[R embedded.Storable] struct {
	db        *DB
	name      string
	columns   []string
	known     map[string]bool
	newRecord func() R
}

// Bind reads the schema of table and checks that it has an id column and
// every column R's composite attributes map to.
func Bind[R embedded.Storable](ctx context.Context, db *DB, table string, newRecord func() R) (*Table[R], error) {
	columns, err := db.tableColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s does not exist", table)
	}

	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}
	if !known[IDColumn] {
		return nil, fmt.Errorf("table %s has no %s column", table, IDColumn)
	}

	for _, m := range embedded.For[R]().Mappings() {
		for _, c := range m.Columns.Columns() {
			if !known[c.Name] {
				return nil, &embedded.MissingFieldError{Attribute: m.Attribute, SubAttr: c.Attr, Column: c.Name}
			}
		}
	}

	return &Table[R]{
		db:        db,
		name:      table,
		columns:   columns,
		known:     known,
		newRecord: newRecord,
	}, nil
}

// Name returns the table name.
func (t *Table[R]) Name() string {
	return t.name
}

// Columns returns the table columns in declaration order.
func (t *Table[R]) Columns() []string {
	return slices.Clone(t.columns)
}

// Save inserts rec when it has no id and updates its dirty columns otherwise.
// The generated id is written back to rec. Columns the table does not have
// are ignored.
func (t *Table[R]) Save(ctx context.Context, rec R) error {
	start := time.Now()
	raw, hasID := rec.ReadColumn(IDColumn)
	hasID = hasID && raw != nil

	var (
		written int
		err     error
	)
	if hasID {
		written, err = t.update(ctx, rec, raw)
	} else {
		written, err = t.insert(ctx, rec)
	}
	embedded.EmitStoreSaved(ctx, t.name, written, time.Since(start), err)
	if err != nil {
		return err
	}
	rec.MarkClean()
	return nil
}

func (t *Table[R]) insert(ctx context.Context, rec R) (int, error) {
	values := rec.Values()
	var (
		cols  []string
		marks []string
		args  []any
	)
	for _, c := range t.columns {
		v, ok := values[c]
		if !ok || (c == IDColumn && v == nil) {
			continue
		}
		cols = append(cols, quoteIdentifier(c))
		marks = append(marks, "?")
		args = append(args, v)
	}

	var query string
	if len(cols) == 0 {
		query = "INSERT INTO " + quoteIdentifier(t.name) + " DEFAULT VALUES"
	} else {
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quoteIdentifier(t.name), strings.Join(cols, ", "), strings.Join(marks, ", "))
	}

	res, err := t.db.sqlDB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, wrapWriteError(t.name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", t.name, err)
	}
	rec.WriteColumn(IDColumn, id)
	return len(cols), nil
}

func (t *Table[R]) update(ctx context.Context, rec R, id any) (int, error) {
	var (
		sets []string
		args []any
	)
	for _, c := range rec.Dirty() {
		if c == IDColumn || !t.known[c] {
			continue
		}
		v, _ := rec.ReadColumn(c)
		sets = append(sets, quoteIdentifier(c)+" = ?")
		args = append(args, v)
	}
	if len(sets) == 0 {
		return 0, nil
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		quoteIdentifier(t.name), strings.Join(sets, ", "), quoteIdentifier(IDColumn))
	res, err := t.db.sqlDB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, wrapWriteError(t.name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", t.name, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: %s %s=%v", embedded.ErrNotFound, t.name, IDColumn, id)
	}
	return len(sets), nil
}

// Reload replaces rec's columns with the stored row.
func (t *Table[R]) Reload(ctx context.Context, rec R) error {
	id, ok := rec.ReadColumn(IDColumn)
	if !ok || id == nil {
		return fmt.Errorf("%w: %s has no %s", embedded.ErrNotFound, t.name, IDColumn)
	}
	fresh, err := t.All().Where(embedded.Conditions{IDColumn: id}).First(ctx)
	if err != nil {
		return err
	}
	rec.Load(fresh.Values())
	return nil
}

// Delete removes rec's row.
func (t *Table[R]) Delete(ctx context.Context, rec R) error {
	id, ok := rec.ReadColumn(IDColumn)
	if !ok || id == nil {
		return fmt.Errorf("%w: %s has no %s", embedded.ErrNotFound, t.name, IDColumn)
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quoteIdentifier(t.name), quoteIdentifier(IDColumn))
	res, err := t.db.sqlDB.ExecContext(ctx, query, id)
	if err != nil {
		return wrapWriteError(t.name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s=%v", embedded.ErrNotFound, t.name, IDColumn, id)
	}
	return nil
}

// All returns the unfiltered scope of the table.
func (t *Table[R]) All() embedded.Scope[R] {
	return &scope[R]{table: t, limit: -1}
}

// Embedded returns the unfiltered scope wrapped for composite attributes,
// using R's registry.
func (t *Table[R]) Embedded() *embedded.EmbeddedScope[R] {
	return embedded.Wrap(t.All())
}

// scanRows hydrates one record per row.
func (t *Table[R]) scanRows(rows *sql.Rows) ([]R, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []R
	for rows.Next() {
		dest := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		values := make(map[string]any, len(cols))
		for i, c := range cols {
			values[c] = dest[i]
		}
		rec := t.newRecord()
		rec.Load(values)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
