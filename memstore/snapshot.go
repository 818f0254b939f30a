package memstore

import (
	"fmt"
	"slices"

	"github.com/zoobzio/embedded"
)

// snapshot is the encoded form of a table.
type snapshot struct {
	Table  string           `json:"table" yaml:"table" msgpack:"table" bson:"table"`
	NextID int64            `json:"next_id" yaml:"next_id" msgpack:"next_id" bson:"next_id"`
	Rows   []map[string]any `json:"rows" yaml:"rows" msgpack:"rows" bson:"rows"`
}

// Snapshot encodes every row with c.
func (t *Table[R]) Snapshot(c embedded.Codec) ([]byte, error) {
	rows := t.snapshotRows()

	t.mu.RLock()
	next := t.nextID
	t.mu.RUnlock()

	data, err := c.Marshal(snapshot{Table: t.name, NextID: next, Rows: rows})
	if err != nil {
		return nil, fmt.Errorf("snapshot %s as %s: %w", t.name, c.ContentType(), err)
	}
	return data, nil
}

// Restore replaces the table contents with a snapshot decoded by c.
// The snapshot must belong to a table of the same name.
func (t *Table[R]) Restore(c embedded.Codec, data []byte) error {
	var snap snapshot
	if err := c.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("restore %s from %s: %w", t.name, c.ContentType(), err)
	}
	if snap.Table != t.name {
		return fmt.Errorf("restore %s: snapshot belongs to table %q", t.name, snap.Table)
	}

	rows := make(map[int64]map[string]any, len(snap.Rows))
	ids := make([]int64, 0, len(snap.Rows))
	next := snap.NextID
	for i, row := range snap.Rows {
		raw, ok := row[IDColumn]
		if !ok || raw == nil {
			return fmt.Errorf("restore %s: row %d has no %s", t.name, i, IDColumn)
		}
		id, err := toID(raw)
		if err != nil {
			return fmt.Errorf("restore %s: row %d: %w", t.name, i, err)
		}
		if _, dup := rows[id]; dup {
			return fmt.Errorf("restore %s: duplicate %s %d", t.name, IDColumn, id)
		}
		row[IDColumn] = id
		rows[id] = row
		ids = append(ids, id)
		next = max(next, id)
	}
	slices.Sort(ids)

	t.mu.Lock()
	t.rows, t.ids, t.nextID = rows, ids, next
	t.mu.Unlock()
	return nil
}
