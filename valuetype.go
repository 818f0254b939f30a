package embedded

import (
	"bytes"
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/zoobzio/sentinel"
)

// tagEmbed names the sub-attribute a value type field carries: `embed:"currency"`.
// A value of "-" excludes the field.
const tagEmbed = "embed"

func init() {
	sentinel.Tag(tagEmbed)
}

var (
	assemblerType    = reflect.TypeFor[Assembler]()
	disassemblerType = reflect.TypeFor[Disassembler]()
	scannerType      = reflect.TypeFor[sql.Scanner]()
	timeType         = reflect.TypeFor[time.Time]()
)

// valuePlan describes how to read and build one value type.
type valuePlan struct {
	typ          reflect.Type
	typeName     string
	fields       map[string]fieldPlan // keyed by sub-attribute
	assembler    bool                 // *typ implements Assembler
	disassembler bool                 // typ or *typ implements Disassembler
}

// fieldPlan locates a sub-attribute inside a struct.
type fieldPlan struct {
	attr  string
	name  string
	index []int
	typ   reflect.Type
}

var (
	plans   = make(map[reflect.Type]*valuePlan)
	plansMu sync.RWMutex

	valueTypes   = make(map[string]*valuePlan)
	valueTypesMu sync.RWMutex
)

// DefineValue adds V to the value-type table under its Go type name.
// Untyped registrations and YAML declarations resolve class names here.
func DefineValue[V any]() error {
	return DefineValueAs[V](reflect.TypeFor[V]().Name())
}

// DefineValueAs adds V to the value-type table under name.
func DefineValueAs[V any](name string) error {
	plan, err := planFor[V]()
	if err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("value type %s: name is required", plan.typeName)
	}

	valueTypesMu.Lock()
	defer valueTypesMu.Unlock()
	if existing, ok := valueTypes[name]; ok && existing.typ != plan.typ {
		return fmt.Errorf("value type name %q already bound to %s", name, existing.typeName)
	}
	valueTypes[name] = plan
	return nil
}

// LookupValue returns the Go type defined under name.
func LookupValue(name string) (reflect.Type, bool) {
	plan, ok := lookupValuePlan(name)
	if !ok {
		return nil, false
	}
	return plan.typ, true
}

func lookupValuePlan(name string) (*valuePlan, bool) {
	valueTypesMu.RLock()
	defer valueTypesMu.RUnlock()
	plan, ok := valueTypes[name]
	return plan, ok
}

// planFor returns the cached plan for V, scanning it with sentinel on first use.
func planFor[V any]() (*valuePlan, error) {
	typ := reflect.TypeFor[V]()
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("value type %s must be a struct", typ)
	}

	// Fast path: read-lock cache check
	plansMu.RLock()
	if cached, ok := plans[typ]; ok {
		plansMu.RUnlock()
		return cached, nil
	}
	plansMu.RUnlock()

	// Slow path: build and cache with write-lock
	plansMu.Lock()
	defer plansMu.Unlock()

	// Double-check pattern
	if cached, ok := plans[typ]; ok {
		return cached, nil
	}

	spec := sentinel.Scan[V]()
	plan := newValuePlan(typ, spec.TypeName)
	for _, field := range spec.Fields {
		if !isExported(field.Name) {
			continue
		}
		attr, ok := subAttrName(field.Name, field.Tags[tagEmbed])
		if !ok {
			continue
		}
		plan.fields[attr] = fieldPlan{
			attr:  attr,
			name:  field.Name,
			index: field.Index,
			typ:   field.ReflectType,
		}
	}

	plans[typ] = plan
	return plan, nil
}

// planOf returns a plan for a type only known at runtime, such as a
// duck-typed setter input. Struct fields are scanned with reflection.
func planOf(typ reflect.Type) *valuePlan {
	plansMu.RLock()
	if cached, ok := plans[typ]; ok {
		plansMu.RUnlock()
		return cached
	}
	plansMu.RUnlock()

	plansMu.Lock()
	defer plansMu.Unlock()

	if cached, ok := plans[typ]; ok {
		return cached
	}

	plan := newValuePlan(typ, typ.Name())
	if typ.Kind() == reflect.Struct {
		for i := 0; i < typ.NumField(); i++ {
			sf := typ.Field(i)
			if !sf.IsExported() {
				continue
			}
			attr, ok := subAttrName(sf.Name, sf.Tag.Get(tagEmbed))
			if !ok {
				continue
			}
			plan.fields[attr] = fieldPlan{
				attr:  attr,
				name:  sf.Name,
				index: sf.Index,
				typ:   sf.Type,
			}
		}
	}

	plans[typ] = plan
	return plan
}

func newValuePlan(typ reflect.Type, name string) *valuePlan {
	if name == "" {
		name = typ.String()
	}
	return &valuePlan{
		typ:          typ,
		typeName:     name,
		fields:       make(map[string]fieldPlan),
		assembler:    reflect.PointerTo(typ).Implements(assemblerType),
		disassembler: typ.Implements(disassemblerType) || reflect.PointerTo(typ).Implements(disassemblerType),
	}
}

func subAttrName(field, tag string) (string, bool) {
	switch tag {
	case "-":
		return "", false
	case "":
		return snakeCase(field), true
	default:
		name, _, _ := strings.Cut(tag, ",")
		return name, true
	}
}

func isExported(name string) bool {
	for _, r := range name {
		return unicode.IsUpper(r)
	}
	return false
}

// covers reports the first sub-attribute the plan cannot build.
func (p *valuePlan) covers(attrs []string) (string, bool) {
	if p.assembler {
		return "", true
	}
	for _, a := range attrs {
		if _, ok := p.fields[a]; !ok {
			return a, false
		}
	}
	return "", true
}

// assemble builds a value of the plan's type from sub-attribute values.
func (p *valuePlan) assemble(values map[string]any) (reflect.Value, error) {
	ptr := reflect.New(p.typ)

	if p.assembler {
		if err := ptr.Interface().(Assembler).AssembleAttributes(values); err != nil {
			return reflect.Value{}, err
		}
		return ptr.Elem(), nil
	}

	rv := ptr.Elem()
	for attr, raw := range values {
		fp, ok := p.fields[attr]
		if !ok {
			continue
		}
		if err := assign(rv.FieldByIndex(fp.index), raw); err != nil {
			return reflect.Value{}, fmt.Errorf("field %s: %w", fp.name, err)
		}
	}
	return rv, nil
}

// readAttrs reads the named sub-attributes from a value object.
// It reports the first sub-attribute the value exposes no reader for.
func readAttrs(v any, attrs []string) (map[string]any, string, bool) {
	out := make(map[string]any, len(attrs))

	if d, ok := v.(Disassembler); ok {
		values := d.DisassembleAttributes()
		for _, a := range attrs {
			out[a] = normalize(values[a])
		}
		return out, "", true
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, "", false
		}
		if d, ok := rv.Interface().(Disassembler); ok {
			return readAttrs(d, attrs)
		}
		rv = rv.Elem()
	}

	plan := planOf(rv.Type())
	for _, a := range attrs {
		if fp, ok := plan.fields[a]; ok && rv.Kind() == reflect.Struct {
			out[a] = normalize(rv.FieldByIndex(fp.index).Interface())
			continue
		}
		val, ok := callReader(rv, Camelize(a))
		if !ok {
			if name := goName(a); name != Camelize(a) {
				val, ok = callReader(rv, name)
			}
		}
		if !ok {
			return nil, a, false
		}
		out[a] = normalize(val)
	}
	return out, "", true
}

// callReader invokes a zero-argument reader method such as Currency().
func callReader(rv reflect.Value, name string) (any, bool) {
	m := rv.MethodByName(name)
	if !m.IsValid() && rv.CanAddr() {
		m = rv.Addr().MethodByName(name)
	}
	if !m.IsValid() {
		ptr := reflect.New(rv.Type())
		ptr.Elem().Set(rv)
		m = ptr.MethodByName(name)
	}
	if !m.IsValid() || m.Type().NumIn() != 0 || m.Type().NumOut() != 1 {
		return nil, false
	}
	return m.Call(nil)[0].Interface(), true
}

// normalize dereferences pointers so columns hold plain values.
func normalize(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

// assign stores a raw column value into a value object field.
// Conversions stay within what storage drivers return: assignable values,
// numeric widening and narrowing, []byte and string, sql.Scanner fields,
// and time values rendered as text or exposing Time().
func assign(dst reflect.Value, raw any) error {
	if raw == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	if dst.CanAddr() && dst.Addr().Type().Implements(scannerType) {
		return dst.Addr().Interface().(sql.Scanner).Scan(raw)
	}

	src := reflect.ValueOf(raw)
	for src.Kind() == reflect.Pointer {
		if src.IsNil() {
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		src = src.Elem()
	}

	if dst.Kind() == reflect.Pointer {
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), src.Interface()); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}

	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}

	if dst.Type() == timeType {
		t, err := asTime(src.Interface())
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(t))
		return nil
	}

	switch {
	case isNumber(src.Kind()) && isNumber(dst.Kind()),
		src.Kind() == reflect.String && dst.Kind() == reflect.String,
		src.Kind() == reflect.Bool && dst.Kind() == reflect.Bool:
		dst.Set(src.Convert(dst.Type()))
		return nil
	case isBytes(src.Type()) && dst.Kind() == reflect.String:
		dst.SetString(string(src.Bytes()))
		return nil
	case src.Kind() == reflect.String && isBytes(dst.Type()):
		dst.SetBytes([]byte(src.String()))
		return nil
	}

	return fmt.Errorf("cannot assign %s to %s", src.Type(), dst.Type())
}

// timeLayouts are the text forms SQL drivers use for timestamps.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func asTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case interface{ Time() time.Time }:
		return t.Time(), nil
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse %q as time", t)
	case []byte:
		return asTime(string(t))
	}
	return time.Time{}, fmt.Errorf("cannot assign %T to time.Time", v)
}

func isTimeLike(v any) bool {
	switch v.(type) {
	case time.Time, interface{ Time() time.Time }:
		return true
	}
	return false
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isBytes(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}

// ValuesEqual compares two column values the way a SQL equality would:
// numbers by value regardless of width, times by instant, bytes by content.
// Stores without a query engine use it to evaluate equality terms.
func ValuesEqual(a, b any) bool {
	a, b = normalize(a), normalize(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if isNumber(av.Kind()) && isNumber(bv.Kind()) {
		return numbersEqual(av, bv)
	}

	if isTimeLike(a) || isTimeLike(b) {
		at, aerr := asTime(a)
		bt, berr := asTime(b)
		return aerr == nil && berr == nil && at.Equal(bt)
	}

	if isBytes(av.Type()) || isBytes(bv.Type()) {
		return bytes.Equal(toBytes(av), toBytes(bv))
	}

	if av.Kind() == reflect.String && bv.Kind() == reflect.String {
		return av.String() == bv.String()
	}

	return reflect.DeepEqual(a, b)
}

func numbersEqual(a, b reflect.Value) bool {
	switch {
	case isFloat(a.Kind()) || isFloat(b.Kind()):
		return toFloat(a) == toFloat(b)
	case isUnsigned(a.Kind()) && isUnsigned(b.Kind()):
		return a.Uint() == b.Uint()
	case isUnsigned(a.Kind()):
		return b.Int() >= 0 && a.Uint() == uint64(b.Int())
	case isUnsigned(b.Kind()):
		return a.Int() >= 0 && uint64(a.Int()) == b.Uint()
	default:
		return a.Int() == b.Int()
	}
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func toFloat(v reflect.Value) float64 {
	switch {
	case isFloat(v.Kind()):
		return v.Float()
	case isUnsigned(v.Kind()):
		return float64(v.Uint())
	default:
		return float64(v.Int())
	}
}

func toBytes(v reflect.Value) []byte {
	if v.Kind() == reflect.String {
		return []byte(v.String())
	}
	if isBytes(v.Type()) {
		return v.Bytes()
	}
	return nil
}
