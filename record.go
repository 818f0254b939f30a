package embedded

import (
	"maps"
	"slices"
)

// Record is the raw column storage of a persisted record.
// Composite attributes read and write through it and never touch
// anything else on the record.
type Record interface {
	// ReadColumn returns the in-memory value of a column and whether the
	// record has that column at all. A present column may hold nil.
	ReadColumn(name string) (any, bool)

	// WriteColumn stores a value in a column, marking it changed.
	WriteColumn(name string, value any)
}

// Row is a map-backed Record with dirty tracking.
// Record types embed it to gain column storage:
//
//	type Order struct {
//	    embedded.Row
//	}
//
// The zero value is ready to use.
type Row struct {
	values map[string]any
	dirty  map[string]struct{}
}

// NewRow returns a clean row holding a copy of values.
func NewRow(values map[string]any) Row {
	return Row{values: maps.Clone(values)}
}

// ReadColumn implements Record.
func (r *Row) ReadColumn(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// WriteColumn implements Record.
func (r *Row) WriteColumn(name string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if r.dirty == nil {
		r.dirty = make(map[string]struct{})
	}
	r.values[name] = value
	r.dirty[name] = struct{}{}
}

// Values returns a copy of every column value.
func (r *Row) Values() map[string]any {
	if r.values == nil {
		return map[string]any{}
	}
	return maps.Clone(r.values)
}

// Load replaces the row contents with values and clears dirty state.
// Stores call it when hydrating a record.
func (r *Row) Load(values map[string]any) {
	r.values = maps.Clone(values)
	r.dirty = nil
}

// Dirty returns the changed columns in name order.
func (r *Row) Dirty() []string {
	return slices.Sorted(maps.Keys(r.dirty))
}

// Changed reports whether a column was written since the last MarkClean.
func (r *Row) Changed(name string) bool {
	_, ok := r.dirty[name]
	return ok
}

// MarkClean forgets dirty state after a successful save.
func (r *Row) MarkClean() {
	r.dirty = nil
}

// Storable is a Record a store can persist and hydrate.
// *Row satisfies it, and so does any pointer to a struct embedding Row.
type Storable interface {
	Record
	Values() map[string]any
	Load(values map[string]any)
	Dirty() []string
	MarkClean()
}

var _ Storable = (*Row)(nil)
