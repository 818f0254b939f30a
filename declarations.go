package embedded

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Declarations is a YAML document declaring composite attributes per record type:
//
//	version: "1"
//	records:
//	  - type: Order
//	    embeds:
//	      - name: price
//	        attrs: [currency, amount]
//	      - name: weight
//	        attrs: [magnitude, quantity]
//	        class_name: MeasurementUnit
//	  - type: Person
//	    embeds:
//	      - name: identification
//	        attrs: {number: id_number, type: id_type}
type Declarations struct {
	Version string              `yaml:"version"`
	Records []RecordDeclaration `yaml:"records"`
}

// RecordDeclaration lists the composite attributes of one record type.
type RecordDeclaration struct {
	Type   string        `yaml:"type"`
	Embeds []Declaration `yaml:"embeds"`
}

// Declaration is one embeds entry.
type Declaration struct {
	Name      string   `yaml:"name"`
	Attrs     AttrSpec `yaml:"attrs"`
	ClassName string   `yaml:"class_name"`
}

// AttrSpec holds the attrs of a declaration: a sequence of names or a
// mapping of name to column, in document order.
type AttrSpec struct {
	names   []string
	columns []Column
	mapped  bool
	set     bool
}

// UnmarshalYAML implements custom YAML unmarshaling for AttrSpec.
// Accepts either a sequence of names or a name → column mapping.
func (a *AttrSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return err
		}
		*a = AttrSpec{names: names, set: true}
		return nil

	case yaml.MappingNode:
		columns := make([]Column, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var attr, column string
			if err := node.Content[i].Decode(&attr); err != nil {
				return err
			}
			if err := node.Content[i+1].Decode(&column); err != nil {
				return err
			}
			columns = append(columns, Column{Attr: attr, Name: column})
		}
		*a = AttrSpec{columns: columns, mapped: true, set: true}
		return nil

	default:
		return fmt.Errorf("%w: attrs must be a sequence or a mapping (line %d)", ErrConfiguration, node.Line)
	}
}

// ListAttrs builds an AttrSpec in list form.
func ListAttrs(names ...string) AttrSpec {
	return AttrSpec{names: names, set: true}
}

// MappedAttrs builds an AttrSpec in mapping form, in the given order.
func MappedAttrs(columns ...Column) AttrSpec {
	return AttrSpec{columns: columns, mapped: true, set: true}
}

// value returns the attrs in a shape resolveColumns accepts.
func (a AttrSpec) value() any {
	switch {
	case !a.set:
		return nil
	case a.mapped:
		return a.columns
	default:
		return AttrList(a.names)
	}
}

// ParseDeclarations parses a YAML declarations document.
func ParseDeclarations(data []byte) (*Declarations, error) {
	var d Declarations
	if err := yaml.Unmarshal(data, &d); err != nil {
		if errors.Is(err, ErrConfiguration) {
			return nil, &ConfigError{Err: ErrConfiguration, Detail: err.Error()}
		}
		return nil, fmt.Errorf("parse declarations: %w", err)
	}

	if d.Version == "" {
		d.Version = "1"
	}
	return &d, nil
}

// LoadDeclarations reads and parses a YAML declarations file.
func LoadDeclarations(path string) (*Declarations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read declarations %s: %w", path, err)
	}
	return ParseDeclarations(data)
}

// Record returns the declarations of one record type.
func (d *Declarations) Record(typ string) ([]Declaration, bool) {
	for _, r := range d.Records {
		if r.Type == typ {
			return r.Embeds, true
		}
	}
	return nil, false
}

// AttributeLayout is the resolved column layout of one declaration.
type AttributeLayout struct {
	Name      string
	ClassName string
	Columns   []Column
}

// RecordLayout is the resolved column layout of one record type.
type RecordLayout struct {
	Type       string
	Attributes []AttributeLayout
}

// Layout resolves every declaration's columns without binding value types,
// rejecting invalid attrs and column collisions the way Register does.
func (d *Declarations) Layout() ([]RecordLayout, error) {
	layouts := make([]RecordLayout, 0, len(d.Records))
	for _, r := range d.Records {
		if r.Type == "" {
			return nil, newConfigError(ErrConfiguration, "", "", "record type is required")
		}
		owners := make(map[string]string)
		layout := RecordLayout{Type: r.Type}
		for _, e := range r.Embeds {
			if e.Name == "" {
				return nil, newConfigError(ErrConfiguration, r.Type, "", "attribute name is required")
			}
			columns, err := resolveColumns(e.Name, e.Attrs.value())
			if err != nil {
				return nil, newConfigError(ErrConfiguration, r.Type, e.Name, err.Error())
			}
			for _, c := range columns {
				if owner, taken := owners[c.Name]; taken && owner != e.Name {
					return nil, newConfigError(ErrColumnCollision, r.Type, e.Name,
						fmt.Sprintf("column %s already bound to %s", c.Name, owner))
				}
				owners[c.Name] = e.Name
			}
			className := e.ClassName
			if className == "" {
				className = Camelize(e.Name)
			}
			layout.Attributes = append(layout.Attributes, AttributeLayout{
				Name:      e.Name,
				ClassName: className,
				Columns:   columns,
			})
		}
		layouts = append(layouts, layout)
	}
	return layouts, nil
}
