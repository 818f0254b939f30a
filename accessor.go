package embedded

import (
	"context"
	"fmt"
	"reflect"
)

type inputKind uint8

const (
	inputNone inputKind = iota
	inputValue
	inputAttributes
)

// Input is what a setter accepts: a value object, or a raw map of
// sub-attribute values. Build it with Value, Attributes or InputOf.
type Input struct {
	kind  inputKind
	value any
	attrs map[string]any
}

// Value wraps a value object. Any type exposing the mapping's sub-attributes
// as fields or zero-argument reader methods is accepted. The reader for
// id_number may be spelled IdNumber or IDNumber.
func Value(v any) Input {
	return Input{kind: inputValue, value: v}
}

// Attributes wraps a sub-attribute → value map.
func Attributes(m map[string]any) Input {
	return Input{kind: inputAttributes, attrs: m}
}

// InputOf classifies x: maps keyed by strings become Attributes, an Input
// is returned as is, and anything else becomes a Value.
func InputOf(x any) Input {
	switch v := x.(type) {
	case Input:
		return v
	case map[string]any:
		return Attributes(v)
	case nil:
		return Input{}
	}

	rv := reflect.ValueOf(x)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return Attributes(m)
	}
	return Value(x)
}

// Accessor is the typed getter/setter pair of one composite attribute.
type Accessor[V any] struct {
	m *Mapping
}

// Embeds registers attribute on reg with value type V and returns its accessor.
// When opts.ClassName is set V is also defined under that name.
func Embeds[V any](reg *Registry, attribute string, opts Options) (*Accessor[V], error) {
	plan, err := planFor[V]()
	if err != nil {
		err = newConfigError(ErrConfiguration, reg.name, attribute, err.Error())
		emitMappingRejected(context.Background(), reg.name, attribute, err)
		return nil, err
	}

	if opts.ClassName != "" {
		if err := DefineValueAs[V](opts.ClassName); err != nil {
			err = newConfigError(ErrConfiguration, reg.name, attribute, err.Error())
			emitMappingRejected(context.Background(), reg.name, attribute, err)
			return nil, err
		}
	}

	m, err := reg.register(attribute, opts.Attrs, plan)
	if err != nil {
		return nil, err
	}
	return &Accessor[V]{m: m}, nil
}

// MustEmbed is like Embeds but panics on error. It is intended for
// package-level declarations next to the record type.
func MustEmbed[V any](reg *Registry, attribute string, opts Options) *Accessor[V] {
	a, err := Embeds[V](reg, attribute, opts)
	if err != nil {
		panic(err)
	}
	return a
}

// Attribute returns the composite attribute name.
func (a *Accessor[V]) Attribute() string {
	return a.m.Attribute
}

// Columns returns the attribute's column layout.
func (a *Accessor[V]) Columns() ColumnMap {
	return a.m.Columns
}

// Get assembles the value object from rec's current column values.
// rec is not modified.
func (a *Accessor[V]) Get(rec Record) (V, error) {
	var zero V
	v, err := a.m.get(rec)
	if err != nil {
		return zero, err
	}
	return v.Interface().(V), nil
}

// Set writes in to the attribute's columns on rec without persisting.
func (a *Accessor[V]) Set(rec Record, in Input) error {
	return a.m.set(rec, in)
}

// SetValue writes a value object to the attribute's columns on rec.
func (a *Accessor[V]) SetValue(rec Record, v V) error {
	return a.m.set(rec, Value(v))
}

func (m *Mapping) get(rec Record) (reflect.Value, error) {
	values := make(map[string]any, m.Columns.Len())
	for _, c := range m.Columns.columns {
		raw, ok := rec.ReadColumn(c.Name)
		if !ok {
			err := &MissingFieldError{Attribute: m.Attribute, SubAttr: c.Attr, Column: c.Name}
			emitValueAssembled(context.Background(), m.Attribute, m.Columns.Len(), err)
			return reflect.Value{}, err
		}
		values[c.Attr] = raw
	}

	v, err := m.plan.assemble(values)
	if err != nil {
		err = fmt.Errorf("assemble %s: %w", m.Attribute, err)
	}
	emitValueAssembled(context.Background(), m.Attribute, m.Columns.Len(), err)
	return v, err
}

func (m *Mapping) set(rec Record, in Input) error {
	values, err := m.disassemble(in)
	if err != nil {
		emitValueDisassembled(context.Background(), m.Attribute, m.Columns.Len(), err)
		return err
	}

	for _, c := range m.Columns.columns {
		rec.WriteColumn(c.Name, values[c.Attr])
	}
	emitValueDisassembled(context.Background(), m.Attribute, m.Columns.Len(), nil)
	return nil
}

// disassemble reads every sub-attribute out of an input.
func (m *Mapping) disassemble(in Input) (map[string]any, error) {
	attrs := m.Columns.Attrs()

	switch in.kind {
	case inputAttributes:
		out := make(map[string]any, len(attrs))
		for _, a := range attrs {
			out[a] = normalize(in.attrs[a])
		}
		return out, nil
	case inputValue:
		if in.value == nil {
			break
		}
		out, _, ok := readAttrs(in.value, attrs)
		if ok {
			return out, nil
		}
	}

	return nil, newTypeMismatchError(m.Attribute, m.plan.typeName, in.value)
}

// expand turns a filter value into column terms. nil means every column is null.
func (m *Mapping) expand(value any) ([]Condition, error) {
	terms := make([]Condition, 0, m.Columns.Len())

	if normalize(value) == nil {
		for _, c := range m.Columns.columns {
			terms = append(terms, Condition{Column: c.Name, Value: nil})
		}
		return terms, nil
	}

	values, err := m.disassemble(InputOf(value))
	if err != nil {
		return nil, err
	}
	for _, c := range m.Columns.columns {
		terms = append(terms, Condition{Column: c.Name, Value: values[c.Attr]})
	}
	return terms, nil
}
