package embedded

import (
	"errors"
	"reflect"
	"testing"
)

type accPrice struct {
	Currency string
	Amount   float64
}

type accIdentification struct {
	Number string `embed:"number"`
	Type   string `embed:"type"`
}

// accPriceView exposes price sub-attributes through reader methods only.
type accPriceView struct{}

func (accPriceView) Currency() string { return "EUR" }
func (accPriceView) Amount() float64  { return 7.5 }

func newAccPrice(t *testing.T) (*Registry, *Accessor[accPrice]) {
	t.Helper()
	reg := NewRegistry("Order")
	price, err := Embeds[accPrice](reg, "price", Options{Attrs: Attrs("currency", "amount")})
	if err != nil {
		t.Fatalf("Embeds() error: %v", err)
	}
	return reg, price
}

func TestEmbeds(t *testing.T) {
	_, price := newAccPrice(t)

	if price.Attribute() != "price" {
		t.Errorf("Attribute() = %q", price.Attribute())
	}
	if got := price.Columns().Names(); !reflect.DeepEqual(got, []string{"price_currency", "price_amount"}) {
		t.Errorf("Columns().Names() = %v", got)
	}
}

func TestEmbeds_ClassName(t *testing.T) {
	reg := NewRegistry("Person")
	_, err := Embeds[accIdentification](reg, "identification", Options{
		Attrs:     AttrColumns{"number": "id_number", "type": "id_type"},
		ClassName: "AccIdentification",
	})
	if err != nil {
		t.Fatalf("Embeds() error: %v", err)
	}
	typ, ok := LookupValue("AccIdentification")
	if !ok || typ != reflect.TypeFor[accIdentification]() {
		t.Errorf("LookupValue() = %v, %v", typ, ok)
	}

	// The class name now resolves for untyped registration too.
	other := NewRegistry("Passport")
	if err := other.Register("holder", Attrs("number"), "AccIdentification"); err != nil {
		t.Errorf("Register() error: %v", err)
	}
}

func TestEmbeds_Errors(t *testing.T) {
	reg := NewRegistry("Order")

	if _, err := Embeds[string](reg, "price", Options{Attrs: Attrs("currency")}); !errors.Is(err, ErrConfiguration) {
		t.Errorf("non-struct value type error = %v", err)
	}
	if _, err := Embeds[accPrice](reg, "price", Options{Attrs: "currency"}); !errors.Is(err, ErrConfiguration) {
		t.Errorf("invalid attrs error = %v", err)
	}
	if _, err := Embeds[accPrice](reg, "price", Options{Attrs: Attrs("currency", "tax")}); !errors.Is(err, ErrConfiguration) {
		t.Errorf("uncovered sub-attribute error = %v", err)
	}
}

func TestMustEmbed_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustEmbed() should panic on invalid attrs")
		}
	}()
	MustEmbed[accPrice](NewRegistry("Order"), "price", Options{Attrs: 3})
}

func TestAccessor_RoundTrip(t *testing.T) {
	_, price := newAccPrice(t)
	var row Row

	want := accPrice{Currency: "USD", Amount: 100}
	if err := price.SetValue(&row, want); err != nil {
		t.Fatalf("SetValue() error: %v", err)
	}
	got, err := price.Get(&row)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got != want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
	if !reflect.DeepEqual(row.Dirty(), []string{"price_amount", "price_currency"}) {
		t.Errorf("Dirty() = %v", row.Dirty())
	}
}

func TestAccessor_SetInputs(t *testing.T) {
	_, price := newAccPrice(t)

	tests := []struct {
		name string
		in   Input
		want map[string]any
	}{
		{
			name: "value object",
			in:   Value(accPrice{Currency: "USD", Amount: 1}),
			want: map[string]any{"price_currency": "USD", "price_amount": 1.0},
		},
		{
			name: "duck-typed reader methods",
			in:   Value(accPriceView{}),
			want: map[string]any{"price_currency": "EUR", "price_amount": 7.5},
		},
		{
			name: "attribute map",
			in:   Attributes(map[string]any{"currency": "ARS", "amount": 50}),
			want: map[string]any{"price_currency": "ARS", "price_amount": 50},
		},
		{
			name: "partial attribute map",
			in:   Attributes(map[string]any{"currency": "ARS"}),
			want: map[string]any{"price_currency": "ARS", "price_amount": nil},
		},
		{
			name: "string-keyed map of another type",
			in:   InputOf(map[string]string{"currency": "JPY", "amount": "12"}),
			want: map[string]any{"price_currency": "JPY", "price_amount": "12"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var row Row
			if err := price.Set(&row, tt.in); err != nil {
				t.Fatalf("Set() error: %v", err)
			}
			if got := row.Values(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Values() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestAccessor_SetTypeMismatch(t *testing.T) {
	_, price := newAccPrice(t)

	tests := []struct {
		name string
		in   Input
	}{
		{"plain string", InputOf("USD 100")},
		{"struct without amount", Value(accIdentification{Number: "1"})},
		{"nil value", Value(nil)},
		{"empty input", Input{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := NewRow(map[string]any{"price_currency": "USD"})
			err := price.Set(&row, tt.in)

			var mismatch *TypeMismatchError
			if !errors.As(err, &mismatch) {
				t.Fatalf("Set() error = %v, want *TypeMismatchError", err)
			}
			if !errors.Is(err, ErrTypeMismatch) {
				t.Error("error should match ErrTypeMismatch")
			}
			if mismatch.Attribute != "price" {
				t.Errorf("Attribute = %q", mismatch.Attribute)
			}
			if len(row.Dirty()) != 0 {
				t.Errorf("failed Set should not write columns, dirty = %v", row.Dirty())
			}
		})
	}
}

func TestAccessor_GetMissingField(t *testing.T) {
	_, price := newAccPrice(t)
	row := NewRow(map[string]any{"price_currency": "USD"})

	_, err := price.Get(&row)
	var missing *MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("Get() error = %v, want *MissingFieldError", err)
	}
	if missing.SubAttr != "amount" || missing.Column != "price_amount" {
		t.Errorf("MissingFieldError = %+v", missing)
	}
	if !errors.Is(err, ErrMissingField) {
		t.Error("error should match ErrMissingField")
	}
}

func TestAccessor_GetNulls(t *testing.T) {
	_, price := newAccPrice(t)
	row := NewRow(map[string]any{"price_currency": nil, "price_amount": nil})

	got, err := price.Get(&row)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got != (accPrice{}) {
		t.Errorf("Get() = %+v, want zero value", got)
	}
}

func TestAccessor_GetDoesNotMutate(t *testing.T) {
	_, price := newAccPrice(t)
	row := NewRow(map[string]any{"price_currency": "USD", "price_amount": int64(3)})

	got, err := price.Get(&row)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Amount != 3 {
		t.Errorf("Amount = %v, want 3", got.Amount)
	}
	if len(row.Dirty()) != 0 {
		t.Errorf("Get() marked columns dirty: %v", row.Dirty())
	}
	if v, _ := row.ReadColumn("price_amount"); v != int64(3) {
		t.Errorf("column rewritten to %#v", v)
	}
}

func TestInputOf(t *testing.T) {
	if in := InputOf(nil); in.kind != inputNone {
		t.Errorf("InputOf(nil) kind = %v", in.kind)
	}
	if in := InputOf(map[string]any{"a": 1}); in.kind != inputAttributes {
		t.Errorf("InputOf(map) kind = %v", in.kind)
	}
	if in := InputOf(accPrice{}); in.kind != inputValue {
		t.Errorf("InputOf(struct) kind = %v", in.kind)
	}
	wrapped := Value(1)
	if in := InputOf(wrapped); !reflect.DeepEqual(in, wrapped) {
		t.Error("InputOf(Input) should return it unchanged")
	}
	if in := InputOf(map[int]any{1: 1}); in.kind != inputValue {
		t.Error("maps with non-string keys are values")
	}
}

type accCard struct {
	IDNumber string `embed:"id_number"`
}

// accCardView exposes id_number only through an initialism reader.
type accCardView struct{}

func (accCardView) IDNumber() string { return "X9" }

func TestAccessor_SetInitialismReader(t *testing.T) {
	card, err := Embeds[accCard](NewRegistry("Person"), "card", Options{Attrs: Attrs("id_number")})
	if err != nil {
		t.Fatalf("Embeds() error: %v", err)
	}

	var row Row
	if err := card.Set(&row, Value(accCardView{})); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	got, err := card.Get(&row)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.IDNumber != "X9" {
		t.Errorf("Get() = %+v, want IDNumber X9", got)
	}
}
