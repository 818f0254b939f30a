package embedded

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
	"unicode"
)

// Column binds a sub-attribute to its backing storage column.
type Column struct {
	Attr string `yaml:"attr"`
	Name string `yaml:"column"`
}

// AttrList declares sub-attributes by name; each column is derived as
// attribute + "_" + name.
type AttrList []string

// AttrColumns declares sub-attributes with explicit column names.
// An empty column name falls back to the derived name.
type AttrColumns map[string]string

// Attrs is shorthand for the list form of a sub-attribute declaration.
func Attrs(names ...string) AttrList {
	return AttrList(names)
}

// Options configures a composite attribute registration.
type Options struct {
	// Attrs lists the sub-attributes. Accepted shapes are AttrList, []string,
	// []any of strings, AttrColumns, map[string]string, map[string]any of
	// strings and []Column. Anything else fails registration.
	Attrs any

	// ClassName names the value type for untyped registration.
	// Defaults to the camel-cased attribute name.
	ClassName string
}

// ColumnMap is the resolved, ordered column layout of one composite attribute.
// It is immutable once built.
type ColumnMap struct {
	columns []Column
	byAttr  map[string]string
	byName  map[string]string
}

func newColumnMap(columns []Column) ColumnMap {
	m := ColumnMap{
		columns: columns,
		byAttr:  make(map[string]string, len(columns)),
		byName:  make(map[string]string, len(columns)),
	}
	for _, c := range columns {
		m.byAttr[c.Attr] = c.Name
		m.byName[c.Name] = c.Attr
	}
	return m
}

// Columns returns the bindings in declaration order.
func (m ColumnMap) Columns() []Column {
	return slices.Clone(m.columns)
}

// Column returns the storage column backing a sub-attribute.
func (m ColumnMap) Column(attr string) (string, bool) {
	name, ok := m.byAttr[attr]
	return name, ok
}

// Attr returns the sub-attribute stored in a column.
func (m ColumnMap) Attr(column string) (string, bool) {
	attr, ok := m.byName[column]
	return attr, ok
}

// Names returns the storage columns in declaration order.
func (m ColumnMap) Names() []string {
	names := make([]string, len(m.columns))
	for i, c := range m.columns {
		names[i] = c.Name
	}
	return names
}

// Attrs returns the sub-attribute names in declaration order.
func (m ColumnMap) Attrs() []string {
	attrs := make([]string, len(m.columns))
	for i, c := range m.columns {
		attrs[i] = c.Attr
	}
	return attrs
}

// Len returns the number of bound columns.
func (m ColumnMap) Len() int {
	return len(m.columns)
}

// ColumnName derives the default column of a sub-attribute.
func ColumnName(attribute, sub string) string {
	return attribute + "_" + sub
}

// ColumnNames derives the default column → sub-attribute layout for a list declaration.
func ColumnNames(attribute string, subs []string) map[string]string {
	out := make(map[string]string, len(subs))
	for _, s := range subs {
		out[ColumnName(attribute, s)] = s
	}
	return out
}

// resolveColumns normalizes a sub-attribute declaration into ordered bindings.
func resolveColumns(attribute string, attrs any) ([]Column, error) {
	var columns []Column

	switch a := attrs.(type) {
	case AttrList:
		columns = derive(attribute, a)
	case []string:
		columns = derive(attribute, a)
	case []any:
		names := make([]string, 0, len(a))
		for i, v := range a {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("sub-attribute %d is %T, want string", i, v)
			}
			names = append(names, s)
		}
		columns = derive(attribute, names)
	case AttrColumns:
		columns = explicit(attribute, a)
	case map[string]string:
		columns = explicit(attribute, a)
	case map[string]any:
		m := make(map[string]string, len(a))
		for k, v := range a {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("column for sub-attribute %s is %T, want string", k, v)
			}
			m[k] = s
		}
		columns = explicit(attribute, m)
	case []Column:
		columns = make([]Column, len(a))
		for i, c := range a {
			columns[i] = c
			if columns[i].Name == "" {
				columns[i].Name = ColumnName(attribute, c.Attr)
			}
		}
	default:
		return nil, fmt.Errorf("sub-attributes must be a list of names or a name to column mapping, got %s", describe(attrs))
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("at least one sub-attribute is required")
	}

	seenAttr := make(map[string]bool, len(columns))
	seenName := make(map[string]bool, len(columns))
	for _, c := range columns {
		if strings.TrimSpace(c.Attr) == "" {
			return nil, fmt.Errorf("sub-attribute name is empty")
		}
		if seenAttr[c.Attr] {
			return nil, fmt.Errorf("sub-attribute %s declared twice", c.Attr)
		}
		if seenName[c.Name] {
			return nil, fmt.Errorf("column %s bound twice", c.Name)
		}
		seenAttr[c.Attr] = true
		seenName[c.Name] = true
	}

	return columns, nil
}

func derive(attribute string, names []string) []Column {
	columns := make([]Column, len(names))
	for i, n := range names {
		columns[i] = Column{Attr: n, Name: ColumnName(attribute, n)}
	}
	return columns
}

// explicit orders a mapping declaration by sub-attribute name.
func explicit(attribute string, m map[string]string) []Column {
	columns := make([]Column, 0, len(m))
	for _, attr := range slices.Sorted(maps.Keys(m)) {
		name := m[attr]
		if name == "" {
			name = ColumnName(attribute, attr)
		}
		columns = append(columns, Column{Attr: attr, Name: name})
	}
	return columns
}

func describe(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}

// Camelize converts an attribute name to its default class name.
// "time_interval" becomes "TimeInterval".
func Camelize(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if r == '_' || r == '-' || r == ' ' {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// commonInitialisms are the words Go names spell in capitals.
var commonInitialisms = map[string]bool{
	"API": true, "CPU": true, "DNS": true, "HTML": true, "HTTP": true,
	"ID": true, "IP": true, "JSON": true, "SQL": true, "TTL": true,
	"UID": true, "URI": true, "URL": true, "UTC": true, "UUID": true,
	"XML": true,
}

// goName converts a sub-attribute to the method name a Go type would use,
// spelling common initialisms in capitals: "id_number" becomes "IDNumber".
func goName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	for i, p := range parts {
		if up := strings.ToUpper(p); commonInitialisms[up] {
			parts[i] = up
			continue
		}
		parts[i] = Camelize(p)
	}
	return strings.Join(parts, "")
}

// snakeCase converts a Go field name to its sub-attribute form.
// "StartTime" becomes "start_time" and "IDNumber" becomes "id_number".
func snakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
