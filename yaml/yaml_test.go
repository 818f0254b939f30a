package yaml

import (
	"reflect"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	c := New()
	if c == nil {
		t.Error("New() should return non-nil codec")
	}
}

func TestContentType(t *testing.T) {
	c := New()
	if c.ContentType() != "application/yaml" {
		t.Errorf("ContentType() = %q, want %q", c.ContentType(), "application/yaml")
	}
}

func TestMarshalUnmarshal(t *testing.T) {
	c := New()

	type snapshot struct {
		Table string           `yaml:"table"`
		Rows  []map[string]any `yaml:"rows"`
	}
	original := snapshot{
		Table: "orders",
		Rows:  []map[string]any{{"id": int64(1), "price_currency": "USD", "price_amount": 100.25}},
	}

	data, err := c.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var restored snapshot
	if err := c.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if !reflect.DeepEqual(restored, original) {
		t.Errorf("round-trip failed: got %#v, want %#v", restored, original)
	}
}

func TestUnmarshalInvalid(t *testing.T) {
	c := New()

	var v struct {
		Name string `yaml:"name"`
	}
	err := c.Unmarshal([]byte("name: [invalid"), &v)
	if err == nil {
		t.Error("Unmarshal(invalid) should return error")
	}
}

func TestMarshalNil(t *testing.T) {
	c := New()

	data, err := c.Marshal(nil)
	if err != nil {
		t.Fatalf("Marshal(nil) error: %v", err)
	}

	if string(data) != "null\n" {
		t.Errorf("Marshal(nil) = %q, want %q", data, "null\n")
	}
}

func TestUnmarshal_EmptyInput(t *testing.T) {
	c := New()

	var v []map[string]any
	if err := c.Unmarshal([]byte{}, &v); err != nil {
		t.Errorf("Unmarshal(empty) error: %v", err)
	}
	if len(v) != 0 {
		t.Errorf("Unmarshal(empty) = %v, want no rows", v)
	}
}

func TestUnmarshal_RowValues(t *testing.T) {
	c := New()

	start := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	rows := []map[string]any{
		{"id": int64(3), "amount": 10.5, "currency": "ARS", "start_time": start, "id_type": nil},
	}

	data, err := c.Marshal(rows)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var restored []map[string]any
	if err := c.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	row := restored[0]
	if id, ok := row["id"].(int64); !ok || id != 3 {
		t.Errorf("id = %#v, want int64(3)", row["id"])
	}
	if amount, ok := row["amount"].(float64); !ok || amount != 10.5 {
		t.Errorf("amount = %#v, want 10.5", row["amount"])
	}
	if v, present := row["id_type"]; !present || v != nil {
		t.Errorf("id_type = %#v, want nil", v)
	}
	if _, ok := row["start_time"]; !ok {
		t.Error("start_time missing after round trip")
	}
}

func TestUnmarshal_WidensNestedValues(t *testing.T) {
	c := New()

	input := `table: orders
extra: 7
rows:
  - id: 1
    tags: [2, 3]
    dims: {width: 4}
`
	var v struct {
		Table string           `yaml:"table"`
		Extra any              `yaml:"extra"`
		Rows  []map[string]any `yaml:"rows"`
	}
	if err := c.Unmarshal([]byte(input), &v); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	if v.Extra != int64(7) {
		t.Errorf("extra = %#v, want int64(7)", v.Extra)
	}
	row := v.Rows[0]
	if row["id"] != int64(1) {
		t.Errorf("id = %#v, want int64(1)", row["id"])
	}
	if tags := row["tags"].([]any); tags[0] != int64(2) || tags[1] != int64(3) {
		t.Errorf("tags = %#v, want int64 elements", tags)
	}
	if dims := row["dims"].(map[string]any); dims["width"] != int64(4) {
		t.Errorf("dims = %#v, want int64 width", dims)
	}
}

func TestUnmarshal_LargeUnsignedKept(t *testing.T) {
	c := New()

	var rows []map[string]any
	if err := c.Unmarshal([]byte("- id: 18446744073709551615\n"), &rows); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if rows[0]["id"] != uint64(18446744073709551615) {
		t.Errorf("id = %#v, want uint64 max", rows[0]["id"])
	}
}

func TestUnmarshal_TextColumns(t *testing.T) {
	c := New()

	rows := []map[string]any{{
		"note":           "line1\nline2",
		"price_currency": "key: value",
		"id_number":      "0012",
		"label":          "日本語",
	}}
	data, err := c.Marshal(rows)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var restored []map[string]any
	if err := c.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if !reflect.DeepEqual(restored, rows) {
		t.Errorf("text columns = %#v, want %#v", restored, rows)
	}
}
