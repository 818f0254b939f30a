package embedded

import (
	"context"
	"maps"
	"slices"
)

// Condition is one column equality term. A nil Value means IS NULL.
type Condition struct {
	Column string
	Value  any
}

// Conditions is a key/value predicate. Keys are column names or, through
// an EmbeddedScope, composite attribute names.
type Conditions map[string]any

// Terms returns the conditions as terms ordered by key.
func (c Conditions) Terms() []Condition {
	terms := make([]Condition, 0, len(c))
	for _, k := range slices.Sorted(maps.Keys(c)) {
		terms = append(terms, Condition{Column: k, Value: c[k]})
	}
	return terms
}

// Scope is the query builder of a persistence engine. Implementations are
// immutable: every builder method returns a new scope carrying the
// receiver's conditions plus its own.
type Scope[R any] interface {
	// Where narrows the scope. Conditions are column equalities; any other
	// predicate shape is engine specific.
	Where(pred any) Scope[R]

	// Unscoped returns the unfiltered scope of the same table.
	Unscoped() Scope[R]

	// Filters returns the key/value conditions applied so far.
	Filters() []Condition

	Order(expr string) Scope[R]
	Limit(n int) Scope[R]
	Offset(n int) Scope[R]

	First(ctx context.Context) (R, error)
	Find(ctx context.Context) ([]R, error)
	Count(ctx context.Context) (int, error)

	// Err returns the first error recorded while building the scope.
	Err() error
}

// EmbeddedScope wraps a Scope so that Where accepts composite attributes.
// Each builder call returns a new wrapper; the wrapped scope is never mutated.
type EmbeddedScope[R any] struct {
	scope Scope[R]
	reg   *Registry
	err   error
}

// Wrap returns a composite-aware scope over scope using R's registry.
func Wrap[R any](scope Scope[R]) *EmbeddedScope[R] {
	return WrapWith(scope, For[R]())
}

// WrapWith returns a composite-aware scope over scope using reg.
func WrapWith[R any](scope Scope[R], reg *Registry) *EmbeddedScope[R] {
	return &EmbeddedScope[R]{scope: scope, reg: reg}
}

func (s *EmbeddedScope[R]) derive(scope Scope[R]) *EmbeddedScope[R] {
	return &EmbeddedScope[R]{scope: scope, reg: s.reg, err: s.err}
}

// Where filters by pred. Key/value predicates may name composite
// attributes; each is expanded into one equality term per column and
// merged with the remaining keys. Other predicates are forwarded as is.
//
// Terms never replace earlier conditions: filtering the same attribute
// twice intersects, and a term already applied with an equal value is not
// sent again.
func (s *EmbeddedScope[R]) Where(pred any) *EmbeddedScope[R] {
	if s.err != nil {
		return s
	}

	conds, ok := asConditions(pred)
	if !ok {
		return s.derive(s.scope.Where(pred))
	}

	applied := s.scope.Filters()
	merged := make(Conditions, len(conds))
	var extra []Conditions
	expanded := 0

	// Pass-through keys first, verbatim.
	for _, k := range slices.Sorted(maps.Keys(conds)) {
		if !s.reg.Has(k) {
			merged[k] = conds[k]
		}
	}

	for _, k := range slices.Sorted(maps.Keys(conds)) {
		if !s.reg.Has(k) {
			continue
		}
		terms, err := s.reg.Expand(k, conds[k])
		if err != nil {
			emitFilterExpanded(context.Background(), s.reg.name, 0, err)
			next := s.derive(s.scope)
			next.err = err
			return next
		}
		for _, t := range terms {
			if alreadyApplied(applied, t) {
				continue
			}
			expanded++
			if existing, clash := merged[t.Column]; clash {
				if !ValuesEqual(existing, t.Value) {
					extra = append(extra, Conditions{t.Column: t.Value})
				}
				continue
			}
			merged[t.Column] = t.Value
		}
	}

	if expanded > 0 {
		emitFilterExpanded(context.Background(), s.reg.name, expanded, nil)
	}

	if len(merged) == 0 && len(extra) == 0 && len(conds) > 0 {
		return s.derive(s.scope)
	}

	next := s.scope.Where(merged)
	for _, e := range extra {
		next = next.Where(e)
	}
	return s.derive(next)
}

func asConditions(pred any) (Conditions, bool) {
	switch p := pred.(type) {
	case Conditions:
		return p, true
	case map[string]any:
		return Conditions(p), true
	}
	return nil, false
}

func alreadyApplied(applied []Condition, t Condition) bool {
	for _, a := range applied {
		if a.Column == t.Column && ValuesEqual(a.Value, t.Value) {
			return true
		}
	}
	return false
}

// Chain begins a where chain without filtering.
func (s *EmbeddedScope[R]) Chain() *EmbeddedScope[R] {
	return s.derive(s.scope)
}

// Unscoped drops every condition, including composite ones.
func (s *EmbeddedScope[R]) Unscoped() *EmbeddedScope[R] {
	return &EmbeddedScope[R]{scope: s.scope.Unscoped(), reg: s.reg}
}

// Order forwards to the wrapped scope.
func (s *EmbeddedScope[R]) Order(expr string) *EmbeddedScope[R] {
	return s.derive(s.scope.Order(expr))
}

// Limit forwards to the wrapped scope.
func (s *EmbeddedScope[R]) Limit(n int) *EmbeddedScope[R] {
	return s.derive(s.scope.Limit(n))
}

// Offset forwards to the wrapped scope.
func (s *EmbeddedScope[R]) Offset(n int) *EmbeddedScope[R] {
	return s.derive(s.scope.Offset(n))
}

// First returns the first matching record.
func (s *EmbeddedScope[R]) First(ctx context.Context) (R, error) {
	if s.err != nil {
		var zero R
		return zero, s.err
	}
	return s.scope.First(ctx)
}

// Find returns every matching record.
func (s *EmbeddedScope[R]) Find(ctx context.Context) ([]R, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.scope.Find(ctx)
}

// Count returns the number of matching records.
func (s *EmbeddedScope[R]) Count(ctx context.Context) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.scope.Count(ctx)
}

// Filters returns the column conditions applied to the wrapped scope.
func (s *EmbeddedScope[R]) Filters() []Condition {
	return s.scope.Filters()
}

// Scope returns the wrapped scope.
func (s *EmbeddedScope[R]) Scope() Scope[R] {
	return s.scope
}

// Registry returns the registry used for expansion.
func (s *EmbeddedScope[R]) Registry() *Registry {
	return s.reg
}

// Err returns the first expansion error, or the wrapped scope's error.
func (s *EmbeddedScope[R]) Err() error {
	if s.err != nil {
		return s.err
	}
	return s.scope.Err()
}
