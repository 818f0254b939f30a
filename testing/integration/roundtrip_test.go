package integration

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/zoobzio/embedded"
	"github.com/zoobzio/embedded/bson"
	"github.com/zoobzio/embedded/json"
	"github.com/zoobzio/embedded/memstore"
	"github.com/zoobzio/embedded/msgpack"
	"github.com/zoobzio/embedded/sqlite"
	embeddedtest "github.com/zoobzio/embedded/testing"
	"github.com/zoobzio/embedded/yaml"
)

var prices = []embeddedtest.Price{
	{Currency: "USD", Amount: 100},
	{Currency: "ARS", Amount: 100},
	{Currency: "USD", Amount: 12.5},
}

func seedOrders(t *testing.T) *memstore.Table[*embeddedtest.Order] {
	t.Helper()
	orders := memstore.New("orders", embeddedtest.NewOrder)
	for i, p := range prices {
		o := embeddedtest.NewOrder()
		if err := o.SetPrice(p); err != nil {
			t.Fatalf("SetPrice() error: %v", err)
		}
		var weight any = map[string]any{}
		if i == 0 {
			weight = embeddedtest.MeasurementUnit{Magnitude: "kg", Quantity: 3}
		}
		if err := o.SetWeight(weight); err != nil {
			t.Fatalf("SetWeight() error: %v", err)
		}
		if err := orders.Save(context.Background(), o); err != nil {
			t.Fatalf("Save() error: %v", err)
		}
	}
	return orders
}

func openDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(sqlite.Config{Path: filepath.Join(t.TempDir(), "orders.db"), JournalMode: "WAL"})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(context.Background(), embeddedtest.Schema...); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	return db
}

func TestSnapshotRoundTrip_JSON(t *testing.T) {
	testSnapshotRoundTrip(t, json.New())
}

func TestSnapshotRoundTrip_YAML(t *testing.T) {
	testSnapshotRoundTrip(t, yaml.New())
}

func TestSnapshotRoundTrip_MessagePack(t *testing.T) {
	testSnapshotRoundTrip(t, msgpack.New())
}

func TestSnapshotRoundTrip_BSON(t *testing.T) {
	testSnapshotRoundTrip(t, bson.New())
}

// testSnapshotRoundTrip restores a snapshot into a fresh table and checks
// that composite filters still match the same rows.
func testSnapshotRoundTrip(t *testing.T, codec embedded.Codec) {
	ctx := context.Background()
	source := seedOrders(t)

	data, err := source.Snapshot(codec)
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}

	restored := memstore.New("orders", embeddedtest.NewOrder)
	if err := restored.Restore(codec, data); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	if restored.Len() != len(prices) {
		t.Fatalf("Len() = %d, want %d", restored.Len(), len(prices))
	}

	usd, err := restored.Embedded().
		Where(map[string]any{"price": embeddedtest.Price{Currency: "USD", Amount: 100}}).
		Find(ctx)
	if err != nil {
		t.Fatalf("Find() error: %v", err)
	}
	if len(usd) != 1 {
		t.Fatalf("Find() returned %d orders, want 1", len(usd))
	}
	weight, err := usd[0].Weight()
	if err != nil {
		t.Fatalf("Weight() error: %v", err)
	}
	if weight != (embeddedtest.MeasurementUnit{Magnitude: "kg", Quantity: 3}) {
		t.Errorf("Weight() = %+v", weight)
	}

	count, err := restored.Embedded().Where(map[string]any{"weight": nil}).Count(ctx)
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if count != 2 {
		t.Errorf("Count(weight nil) = %d, want 2", count)
	}

	// Saving after restore continues the id sequence.
	o := embeddedtest.NewOrder()
	if err := restored.Save(ctx, o); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if id, _ := o.ReadColumn(memstore.IDColumn); id != int64(len(prices)+1) {
		t.Errorf("new id = %#v, want %d", id, len(prices)+1)
	}
}

// TestStoresAgree copies orders from memory into SQLite and runs the same
// composite filters against both.
func TestStoresAgree(t *testing.T) {
	ctx := context.Background()
	mem := seedOrders(t)

	table, err := sqlite.Bind(ctx, openDB(t), "orders", embeddedtest.NewOrder)
	if err != nil {
		t.Fatalf("Bind() error: %v", err)
	}

	all, err := mem.All().Order("id").Find(ctx)
	if err != nil {
		t.Fatalf("Find() error: %v", err)
	}
	for _, src := range all {
		price, err := src.Price()
		if err != nil {
			t.Fatalf("Price() error: %v", err)
		}
		weight, err := src.Weight()
		if err != nil {
			t.Fatalf("Weight() error: %v", err)
		}
		dst := embeddedtest.NewOrder()
		if err := dst.SetPrice(price); err != nil {
			t.Fatalf("SetPrice() error: %v", err)
		}
		if weight != (embeddedtest.MeasurementUnit{}) {
			if err := dst.SetWeight(weight); err != nil {
				t.Fatalf("SetWeight() error: %v", err)
			}
		}
		if err := table.Save(ctx, dst); err != nil {
			t.Fatalf("Save() error: %v", err)
		}
	}

	filters := []map[string]any{
		{"price": embeddedtest.Price{Currency: "USD", Amount: 100}},
		{"price": map[string]any{"currency": "USD", "amount": 12.5}},
		{"price": embeddedtest.Price{Currency: "EUR", Amount: 100}},
		{"weight": nil},
		{"weight": embeddedtest.MeasurementUnit{Magnitude: "kg", Quantity: 3}},
	}
	for _, f := range filters {
		memCount, err := mem.Embedded().Where(f).Count(ctx)
		if err != nil {
			t.Fatalf("memstore Count(%v) error: %v", f, err)
		}
		sqlCount, err := table.Embedded().Where(f).Count(ctx)
		if err != nil {
			t.Fatalf("sqlite Count(%v) error: %v", f, err)
		}
		if memCount != sqlCount {
			t.Errorf("Count(%v): memstore %d, sqlite %d", f, memCount, sqlCount)
		}
	}
}

// TestStoresAgreeOnUnsetComposite saves an order that never set its weight
// to both stores; each reads the weight back as the zero value.
func TestStoresAgreeOnUnsetComposite(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New("orders", embeddedtest.NewOrder)
	table, err := sqlite.Bind(ctx, openDB(t), "orders", embeddedtest.NewOrder)
	if err != nil {
		t.Fatalf("Bind() error: %v", err)
	}

	for _, save := range []func(context.Context, *embeddedtest.Order) error{mem.Save, table.Save} {
		o := embeddedtest.NewOrder()
		if err := o.SetPrice(embeddedtest.Price{Currency: "USD", Amount: 5}); err != nil {
			t.Fatalf("SetPrice() error: %v", err)
		}
		if err := save(ctx, o); err != nil {
			t.Fatalf("Save() error: %v", err)
		}
	}

	scopes := map[string]*embedded.EmbeddedScope[*embeddedtest.Order]{
		"memstore": mem.Embedded(),
		"sqlite":   table.Embedded(),
	}
	for name, scope := range scopes {
		found, err := scope.Where(map[string]any{"weight": nil}).First(ctx)
		if err != nil {
			t.Fatalf("%s First() error: %v", name, err)
		}
		weight, err := found.Weight()
		if err != nil {
			t.Errorf("%s Weight() error: %v", name, err)
		}
		if weight != (embeddedtest.MeasurementUnit{}) {
			t.Errorf("%s Weight() = %+v, want zero value", name, weight)
		}
	}
}
