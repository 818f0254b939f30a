// Package embedded maps clusters of record columns to composite value objects.
//
// A record type declares composite attributes once, at type-definition time.
// Each attribute names its sub-attributes, the columns backing them and the
// value type used to assemble them. Records then read and write the
// attribute as a single value, and queries filter by it.
//
// # Declaring
//
//	type Price struct {
//	    Currency string
//	    Amount   int
//	}
//
//	type Order struct {
//	    embedded.Row
//	}
//
//	var orderPrice = embedded.MustEmbed[Price](embedded.For[Order](), "price",
//	    embedded.Options{Attrs: embedded.Attrs("currency", "amount")})
//
// The list form derives columns as attribute + "_" + sub-attribute
// (price_currency, price_amount). The mapping form names columns explicitly:
//
//	embedded.Options{Attrs: embedded.AttrColumns{"number": "id_number", "type": "id_type"}}
//
// Registration fails with a *ConfigError when the attrs are neither shape,
// when the value type lacks a sub-attribute, or when two attributes of one
// record type resolve to the same column.
//
// # Value Types
//
// Value types are structs. A field carries the sub-attribute named by its
// `embed` tag, or its snake_case name. Types that implement Assembler or
// Disassembler bypass reflection. Untyped registration and YAML declarations
// resolve class names through DefineValue.
//
// # Accessors
//
//	price, err := orderPrice.Get(order)           // assemble from columns
//	err = orderPrice.SetValue(order, Price{...})  // write columns, mark dirty
//	err = orderPrice.Set(order, embedded.Attributes(map[string]any{
//	    "currency": "USD", "amount": 100,
//	}))
//
// Set accepts any value exposing the sub-attributes as fields or
// zero-argument reader methods; other inputs fail with *TypeMismatchError.
// Get fails with *MissingFieldError when the record lacks a mapped column.
//
// # Queries
//
// Wrap turns a store scope into an EmbeddedScope whose Where accepts
// composite attribute keys:
//
//	first, err := embedded.Wrap(orders.All()).
//	    Where(embedded.Conditions{"price": Price{Currency: "USD", Amount: 100}}).
//	    First(ctx)
//
// Each composite key expands to one equality term per column, a nil
// sub-attribute to an IS NULL term. Chained filters intersect; earlier
// conditions are never dropped or replaced.
//
// # Stores
//
// The memstore and sqlite packages implement Scope over an in-process table
// and a SQLite database. Codec implementations for row snapshots live in the
// json, msgpack, yaml and bson packages.
//
// # Events
//
// Registration, assembly, expansion and store operations emit capitan signals
// (see signals.go).
package embedded
