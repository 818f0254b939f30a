// Package memstore provides an in-process persistence engine for records
// that embed embedded.Row. Tables hold rows as column maps keyed by an
// int64 id column, answer queries through an embedded.Scope, and can be
// snapshotted through any embedded.Codec.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/zoobzio/embedded"
)

// IDColumn is the primary key column every table row carries.
const IDColumn = "id"

// Table stores records of type R.
type Table[R embedded.Storable] struct {
	name      string
	newRecord func() R

	mu     sync.RWMutex
	rows   map[int64]map[string]any
	ids    []int64 // ascending
	nextID int64
}

// New returns an empty table. newRecord builds the zero record that
// queries hydrate.
func New[R embedded.Storable](name string, newRecord func() R) *Table[R] {
	return &Table[R]{
		name:      name,
		newRecord: newRecord,
		rows:      make(map[int64]map[string]any),
	}
}

// Name returns the table name.
func (t *Table[R]) Name() string {
	return t.name
}

// Len returns the number of stored rows.
func (t *Table[R]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.ids)
}

// Save inserts rec when it has no id and replaces the stored row otherwise.
// A new id is written back to rec. Dirty state is cleared on success.
func (t *Table[R]) Save(ctx context.Context, rec R) error {
	start := time.Now()
	changed := len(rec.Dirty())

	t.mu.Lock()
	id, hasID, err := recordID(rec)
	if err != nil {
		t.mu.Unlock()
		embedded.EmitStoreSaved(ctx, t.name, changed, time.Since(start), err)
		return err
	}

	if !hasID {
		t.nextID++
		id = t.nextID
		rec.WriteColumn(IDColumn, id)
	} else if id > t.nextID {
		t.nextID = id
	}

	values := rec.Values()
	values[IDColumn] = id
	if _, exists := t.rows[id]; !exists {
		t.insertID(id)
	}
	t.rows[id] = values
	t.mu.Unlock()

	rec.MarkClean()
	embedded.EmitStoreSaved(ctx, t.name, changed, time.Since(start), nil)
	return nil
}

// Reload replaces rec's columns with the stored row.
func (t *Table[R]) Reload(_ context.Context, rec R) error {
	id, ok, err := recordID(rec)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s has no %s", embedded.ErrNotFound, t.name, IDColumn)
	}

	t.mu.RLock()
	row, exists := t.rows[id]
	if exists {
		row = maps.Clone(row)
	}
	t.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s %s=%d", embedded.ErrNotFound, t.name, IDColumn, id)
	}
	rec.Load(fillMapped[R](row))
	return nil
}

// Delete removes rec's row.
func (t *Table[R]) Delete(_ context.Context, rec R) error {
	id, ok, err := recordID(rec)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.rows[id]; !ok || !exists {
		return fmt.Errorf("%w: %s %s=%d", embedded.ErrNotFound, t.name, IDColumn, id)
	}
	delete(t.rows, id)
	if i, found := slices.BinarySearch(t.ids, id); found {
		t.ids = slices.Delete(t.ids, i, i+1)
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

func (t *Table[R]) insertID(id int64) {
	i, _ := slices.BinarySearch(t.ids, id)
	t.ids = slices.Insert(t.ids, i, id)
}

// snapshotRows copies every row in id order.
func (t *Table[R]) snapshotRows() []map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]map[string]any, 0, len(t.ids))
	for _, id := range t.ids {
		out = append(out, maps.Clone(t.rows[id]))
	}
	return out
}

func (t *Table[R]) hydrate(row map[string]any) R {
	rec := t.newRecord()
	rec.Load(fillMapped[R](maps.Clone(row)))
	return rec
}

// fillMapped sets every composite column of R that row lacks to nil, so an
// attribute never written reads back as its zero value like a NULL column.
func fillMapped[R any](row map[string]any) map[string]any {
	for _, m := range embedded.For[R]().Mappings() {
		for _, col := range m.Columns.Names() {
			if _, ok := row[col]; !ok {
				row[col] = nil
			}
		}
	}
	return row
}

func recordID(rec embedded.Record) (int64, bool, error) {
	raw, ok := rec.ReadColumn(IDColumn)
	if !ok || raw == nil {
		return 0, false, nil
	}
	id, err := toID(raw)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// toID accepts the integer forms codecs and callers produce for ids.
func toID(raw any) (int64, error) {
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > math.MaxInt64 {
			return 0, fmt.Errorf("%s %d out of range", IDColumn, rv.Uint())
		}
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) {
			return 0, fmt.Errorf("%s %v is not an integer", IDColumn, f)
		}
		return int64(f), nil
	case reflect.String:
		id, err := strconv.ParseInt(rv.String(), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s %q: %w", IDColumn, rv.String(), err)
		}
		return id, nil
	}
	return 0, fmt.Errorf("%s has unsupported type %T", IDColumn, raw)
}
