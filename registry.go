package embedded

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// Mapping is a registered composite attribute.
type Mapping struct {
	Attribute string
	ValueType reflect.Type
	Columns   ColumnMap

	plan *valuePlan
}

// Registry holds the composite attributes of one record type.
// It is written at type-definition time and read thereafter.
type Registry struct {
	name string

	mu       sync.RWMutex
	order    []string
	mappings map[string]*Mapping
}

// NewRegistry returns an empty registry not attached to any record type.
func NewRegistry(name string) *Registry {
	return &Registry{
		name:     name,
		mappings: make(map[string]*Mapping),
	}
}

var (
	registries   = make(map[reflect.Type]*Registry)
	registriesMu sync.RWMutex
)

// For returns the registry of record type R, creating it on first use.
// R and *R share one registry.
func For[R any]() *Registry {
	return registryOf(reflect.TypeFor[R]())
}

func registryOf(typ reflect.Type) *Registry {
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}

	// Fast path: read-lock cache check
	registriesMu.RLock()
	if cached, ok := registries[typ]; ok {
		registriesMu.RUnlock()
		return cached
	}
	registriesMu.RUnlock()

	// Slow path: build and cache with write-lock
	registriesMu.Lock()
	defer registriesMu.Unlock()

	// Double-check pattern
	if cached, ok := registries[typ]; ok {
		return cached
	}

	name := typ.Name()
	if name == "" {
		name = typ.String()
	}
	reg := NewRegistry(name)
	registries[typ] = reg
	return reg
}

// Reset clears the record type registries.
// This is primarily useful for test isolation.
func Reset() {
	registriesMu.Lock()
	defer registriesMu.Unlock()
	registries = make(map[reflect.Type]*Registry)
}

// Name returns the record type name.
func (r *Registry) Name() string {
	return r.name
}

// Register adds a composite attribute whose value type is resolved by
// className from the value-type table. An empty className defaults to the
// camel-cased attribute name. Registering an existing attribute replaces it.
func (r *Registry) Register(attribute string, attrs any, className string) error {
	if className == "" {
		className = Camelize(attribute)
	}
	plan, ok := lookupValuePlan(className)
	if !ok {
		err := newConfigError(ErrUnknownValueType, r.name, attribute, fmt.Sprintf("class %q", className))
		emitMappingRejected(context.Background(), r.name, attribute, err)
		return err
	}
	_, err := r.register(attribute, attrs, plan)
	return err
}

func (r *Registry) register(attribute string, attrs any, plan *valuePlan) (*Mapping, error) {
	m, err := r.build(attribute, attrs, plan)
	if err != nil {
		emitMappingRejected(context.Background(), r.name, attribute, err)
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkCollisions(m); err != nil {
		emitMappingRejected(context.Background(), r.name, attribute, err)
		return nil, err
	}
	if _, exists := r.mappings[attribute]; !exists {
		r.order = append(r.order, attribute)
	}
	r.mappings[attribute] = m

	emitMappingRegistered(context.Background(), r.name, attribute, m.Columns.Len())
	return m, nil
}

func (r *Registry) build(attribute string, attrs any, plan *valuePlan) (*Mapping, error) {
	if attribute == "" {
		return nil, newConfigError(ErrConfiguration, r.name, attribute, "attribute name is required")
	}

	columns, err := resolveColumns(attribute, attrs)
	if err != nil {
		return nil, newConfigError(ErrConfiguration, r.name, attribute, err.Error())
	}
	cm := newColumnMap(columns)

	if missing, ok := plan.covers(cm.Attrs()); !ok {
		return nil, newConfigError(ErrConfiguration, r.name, attribute,
			fmt.Sprintf("value type %s has no field for sub-attribute %s", plan.typeName, missing))
	}

	return &Mapping{
		Attribute: attribute,
		ValueType: plan.typ,
		Columns:   cm,
		plan:      plan,
	}, nil
}

// checkCollisions rejects columns already bound by another attribute.
// Must be called with r.mu held.
func (r *Registry) checkCollisions(m *Mapping) error {
	for _, name := range r.order {
		if name == m.Attribute {
			continue
		}
		other := r.mappings[name]
		for _, col := range m.Columns.Names() {
			if sub, ok := other.Columns.Attr(col); ok {
				return newConfigError(ErrColumnCollision, r.name, m.Attribute,
					fmt.Sprintf("column %s already bound to %s.%s", col, name, sub))
			}
		}
	}
	return nil
}

// Lookup returns the mapping registered under attribute.
func (r *Registry) Lookup(attribute string) (Mapping, bool) {
	m, ok := r.mapping(attribute)
	if !ok {
		return Mapping{}, false
	}
	return *m, true
}

// Has reports whether attribute names a composite attribute.
func (r *Registry) Has(attribute string) bool {
	_, ok := r.mapping(attribute)
	return ok
}

func (r *Registry) mapping(attribute string) (*Mapping, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mappings[attribute]
	return m, ok
}

// ResolveColumns returns the column layout of attribute.
func (r *Registry) ResolveColumns(attribute string) (ColumnMap, error) {
	m, ok := r.mapping(attribute)
	if !ok {
		return ColumnMap{}, fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, r.name, attribute)
	}
	return m.Columns, nil
}

// Mappings returns every registered mapping in registration order.
func (r *Registry) Mappings() []Mapping {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Mapping, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.mappings[name])
	}
	return out
}

// Attributes returns the registered attribute names in registration order.
func (r *Registry) Attributes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Get assembles attribute's value object from rec.
func (r *Registry) Get(rec Record, attribute string) (any, error) {
	m, ok := r.mapping(attribute)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, r.name, attribute)
	}
	v, err := m.get(rec)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// Set writes in to attribute's columns on rec.
func (r *Registry) Set(rec Record, attribute string, in Input) error {
	m, ok := r.mapping(attribute)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, r.name, attribute)
	}
	return m.set(rec, in)
}

// Expand rewrites a filter value on attribute into column equality terms,
// in column order. A nil value yields a nil term for every column.
func (r *Registry) Expand(attribute string, value any) ([]Condition, error) {
	m, ok := r.mapping(attribute)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, r.name, attribute)
	}
	return m.expand(value)
}

// Apply registers a set of declarations, stopping at the first failure.
func (r *Registry) Apply(decls []Declaration) error {
	for _, d := range decls {
		if err := r.Register(d.Name, d.Attrs.value(), d.ClassName); err != nil {
			return err
		}
	}
	return nil
}
