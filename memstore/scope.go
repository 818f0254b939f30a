package memstore

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/zoobzio/embedded"
)

// Match is a predicate evaluated against hydrated records.
type Match[R any] func(R) bool

type orderTerm struct {
	column string
	desc   bool
}

// scope is an immutable query over a table.
type scope[R embedded.Storable] struct {
	table  *Table[R]
	conds  []embedded.Condition
	preds  []Match[R]
	order  []orderTerm
	limit  int
	offset int
	err    error
}

func (s *scope[R]) clone() *scope[R] {
	c := *s
	c.conds = slices.Clone(s.conds)
	c.preds = slices.Clone(s.preds)
	c.order = slices.Clone(s.order)
	return &c
}

// Where accepts column conditions and Match predicates.
func (s *scope[R]) Where(pred any) embedded.Scope[R] {
	next := s.clone()
	if next.err != nil {
		return next
	}

	switch p := pred.(type) {
	case embedded.Conditions:
		next.conds = append(next.conds, p.Terms()...)
	case map[string]any:
		next.conds = append(next.conds, embedded.Conditions(p).Terms()...)
	case Match[R]:
		next.preds = append(next.preds, p)
	case func(R) bool:
		next.preds = append(next.preds, p)
	default:
		next.err = fmt.Errorf("%w: %T on %s", embedded.ErrUnsupportedPredicate, pred, s.table.name)
	}
	return next
}

func (s *scope[R]) Unscoped() embedded.Scope[R] {
	return s.table.All()
}

func (s *scope[R]) Filters() []embedded.Condition {
	return slices.Clone(s.conds)
}

// Order sorts by a comma separated list of "column [asc|desc]" terms.
func (s *scope[R]) Order(expr string) embedded.Scope[R] {
	next := s.clone()
	if next.err != nil {
		return next
	}
	for _, part := range strings.Split(expr, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 || len(fields) > 2 {
			next.err = fmt.Errorf("memstore: invalid order %q", expr)
			return next
		}
		term := orderTerm{column: fields[0]}
		if len(fields) == 2 {
			switch strings.ToLower(fields[1]) {
			case "asc":
			case "desc":
				term.desc = true
			default:
				next.err = fmt.Errorf("memstore: invalid order direction %q", fields[1])
				return next
			}
		}
		next.order = append(next.order, term)
	}
	return next
}

func (s *scope[R]) Limit(n int) embedded.Scope[R] {
	next := s.clone()
	next.limit = n
	return next
}

func (s *scope[R]) Offset(n int) embedded.Scope[R] {
	next := s.clone()
	next.offset = n
	return next
}

func (s *scope[R]) First(ctx context.Context) (R, error) {
	var zero R
	records, err := s.Limit(1).(*scope[R]).run(ctx)
	if err != nil {
		return zero, err
	}
	if len(records) == 0 {
		return zero, fmt.Errorf("%w: %s", embedded.ErrNotFound, s.table.name)
	}
	return records[0], nil
}

func (s *scope[R]) Find(ctx context.Context) ([]R, error) {
	return s.run(ctx)
}

func (s *scope[R]) Count(ctx context.Context) (int, error) {
	unpaged := s.clone()
	unpaged.limit, unpaged.offset = -1, 0
	records, err := unpaged.run(ctx)
	return len(records), err
}

func (s *scope[R]) Err() error {
	return s.err
}

func (s *scope[R]) run(ctx context.Context) ([]R, error) {
	if s.err != nil {
		return nil, s.err
	}
	start := time.Now()

	var matched []map[string]any
	var records []R
	for _, row := range s.table.snapshotRows() {
		if !s.matches(row) {
			continue
		}
		rec := s.table.hydrate(row)
		if !s.accepts(rec) {
			continue
		}
		matched = append(matched, row)
		records = append(records, rec)
	}

	if len(s.order) > 0 {
		idx := make([]int, len(matched))
		for i := range idx {
			idx[i] = i
		}
		slices.SortStableFunc(idx, func(a, b int) int {
			return s.compareRows(matched[a], matched[b])
		})
		sorted := make([]R, len(records))
		for i, j := range idx {
			sorted[i] = records[j]
		}
		records = sorted
	}

	if s.offset > 0 {
		records = records[min(s.offset, len(records)):]
	}
	if s.limit >= 0 && s.limit < len(records) {
		records = records[:s.limit]
	}

	embedded.EmitStoreQuery(ctx, s.table.name, s.describe(), time.Since(start), nil)
	return records, nil
}

func (s *scope[R]) matches(row map[string]any) bool {
	for _, c := range s.conds {
		if !embedded.ValuesEqual(row[c.Column], c.Value) {
			return false
		}
	}
	return true
}

func (s *scope[R]) accepts(rec R) bool {
	for _, p := range s.preds {
		if !p(rec) {
			return false
		}
	}
	return true
}

func (s *scope[R]) compareRows(a, b map[string]any) int {
	for _, o := range s.order {
		c := compare(a[o.column], b[o.column])
		if o.desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

// describe renders the scope for query signals.
func (s *scope[R]) describe() string {
	var b strings.Builder
	b.WriteString("scan ")
	b.WriteString(s.table.name)
	for i, c := range s.conds {
		if i == 0 {
			b.WriteString(" where ")
		} else {
			b.WriteString(" and ")
		}
		if c.Value == nil {
			fmt.Fprintf(&b, "%s is null", c.Column)
		} else {
			fmt.Fprintf(&b, "%s = %v", c.Column, c.Value)
		}
	}
	if len(s.preds) > 0 {
		fmt.Fprintf(&b, " (+%d predicates)", len(s.preds))
	}
	return b.String()
}

// compare orders column values: nil first, then numbers, times and text.
func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt)
		}
	}

	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if af, ok := number(av); ok {
		if bf, ok := number(bv); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}

	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func number(v reflect.Value) (float64, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	}
	return 0, false
}
