package embedded

import (
	"reflect"
	"strings"
	"testing"
)

func TestResolveColumns(t *testing.T) {
	tests := []struct {
		name  string
		attrs any
		want  []Column
	}{
		{
			name:  "attr list",
			attrs: Attrs("currency", "amount"),
			want:  []Column{{"currency", "price_currency"}, {"amount", "price_amount"}},
		},
		{
			name:  "string slice",
			attrs: []string{"currency", "amount"},
			want:  []Column{{"currency", "price_currency"}, {"amount", "price_amount"}},
		},
		{
			name:  "any slice",
			attrs: []any{"currency", "amount"},
			want:  []Column{{"currency", "price_currency"}, {"amount", "price_amount"}},
		},
		{
			name:  "attr columns ordered by sub-attribute",
			attrs: AttrColumns{"type": "id_type", "number": "id_number"},
			want:  []Column{{"number", "id_number"}, {"type", "id_type"}},
		},
		{
			name:  "string map",
			attrs: map[string]string{"number": "id_number", "type": ""},
			want:  []Column{{"number", "id_number"}, {"type", "price_type"}},
		},
		{
			name:  "any map",
			attrs: map[string]any{"number": "id_number"},
			want:  []Column{{"number", "id_number"}},
		},
		{
			name:  "explicit pairs keep order",
			attrs: []Column{{Attr: "type", Name: "kind"}, {Attr: "number"}},
			want:  []Column{{"type", "kind"}, {"number", "price_number"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveColumns("price", tt.attrs)
			if err != nil {
				t.Fatalf("resolveColumns() error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("resolveColumns() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveColumns_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		attrs   any
		wantErr string
	}{
		{"nil", nil, "got nil"},
		{"string", "currency", "got string"},
		{"int slice", []int{1, 2}, "got []int"},
		{"non-string element", []any{"currency", 3}, "sub-attribute 1 is int"},
		{"non-string column", map[string]any{"number": 7}, "column for sub-attribute number is int"},
		{"empty list", Attrs(), "at least one sub-attribute"},
		{"empty name", Attrs("currency", " "), "sub-attribute name is empty"},
		{"duplicate name", Attrs("currency", "currency"), "declared twice"},
		{"duplicate column", AttrColumns{"a": "col", "b": "col"}, "column col bound twice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolveColumns("price", tt.attrs)
			if err == nil {
				t.Fatal("resolveColumns() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestColumnMap(t *testing.T) {
	m := newColumnMap([]Column{{"number", "id_number"}, {"type", "id_type"}})

	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
	if got := m.Names(); !reflect.DeepEqual(got, []string{"id_number", "id_type"}) {
		t.Errorf("Names() = %v", got)
	}
	if got := m.Attrs(); !reflect.DeepEqual(got, []string{"number", "type"}) {
		t.Errorf("Attrs() = %v", got)
	}
	if col, ok := m.Column("type"); !ok || col != "id_type" {
		t.Errorf("Column(type) = %q, %v", col, ok)
	}
	if attr, ok := m.Attr("id_number"); !ok || attr != "number" {
		t.Errorf("Attr(id_number) = %q, %v", attr, ok)
	}
	if _, ok := m.Column("missing"); ok {
		t.Error("Column(missing) should not be found")
	}

	cols := m.Columns()
	cols[0].Name = "mutated"
	if name, _ := m.Column("number"); name != "id_number" {
		t.Error("Columns() should return a copy")
	}
}

func TestColumnNames(t *testing.T) {
	got := ColumnNames("time_interval", []string{"start_time", "end_time"})
	want := map[string]string{
		"time_interval_start_time": "start_time",
		"time_interval_end_time":   "end_time",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ColumnNames() = %v, want %v", got, want)
	}
}

func TestCamelize(t *testing.T) {
	tests := map[string]string{
		"price":         "Price",
		"time_interval": "TimeInterval",
		"id-card":       "IdCard",
		"":              "",
	}
	for in, want := range tests {
		if got := Camelize(in); got != want {
			t.Errorf("Camelize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Currency":  "currency",
		"StartTime": "start_time",
		"IDNumber":  "id_number",
		"Line2":     "line2",
		"ID":        "id",
	}
	for in, want := range tests {
		if got := snakeCase(in); got != want {
			t.Errorf("snakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGoName(t *testing.T) {
	tests := map[string]string{
		"id_number":  "IDNumber",
		"api_url":    "APIURL",
		"start_time": "StartTime",
		"uuid":       "UUID",
		"currency":   "Currency",
	}
	for in, want := range tests {
		if got := goName(in); got != want {
			t.Errorf("goName(%q) = %q, want %q", in, got, want)
		}
	}
}
