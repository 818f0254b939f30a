package embedded

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for embedded mapping events.
var (
	SignalMappingRegistered  = capitan.NewSignal("embedded.mapping.registered", "Composite attribute registered on a record type")
	SignalMappingRejected    = capitan.NewSignal("embedded.mapping.rejected", "Composite attribute registration failed")
	SignalValueAssembled     = capitan.NewSignal("embedded.value.assembled", "Value object assembled from columns")
	SignalValueDisassembled  = capitan.NewSignal("embedded.value.disassembled", "Value object written to columns")
	SignalFilterExpanded     = capitan.NewSignal("embedded.filter.expanded", "Composite filter expanded into column terms")
	SignalStoreSaved         = capitan.NewSignal("embedded.store.saved", "Record persisted by a store")
	SignalStoreQueryComplete = capitan.NewSignal("embedded.store.query", "Store query finished")
)

// Keys for typed event data.
var (
	KeyRecordType  = capitan.NewStringKey("record_type")
	KeyAttribute   = capitan.NewStringKey("attribute")
	KeyColumnCount = capitan.NewIntKey("column_count")
	KeyTermCount   = capitan.NewIntKey("term_count")
	KeyTable       = capitan.NewStringKey("table")
	KeySQL         = capitan.NewStringKey("sql")
	KeyDuration    = capitan.NewDurationKey("duration")
	KeyError       = capitan.NewErrorKey("error")
)

// emitMappingRegistered emits an event when a composite attribute is registered.
func emitMappingRegistered(ctx context.Context, record, attribute string, columns int) {
	capitan.Emit(ctx, SignalMappingRegistered,
		KeyRecordType.Field(record),
		KeyAttribute.Field(attribute),
		KeyColumnCount.Field(columns),
	)
}

// emitMappingRejected emits an error event when registration fails.
func emitMappingRejected(ctx context.Context, record, attribute string, err error) {
	capitan.Error(ctx, SignalMappingRejected,
		KeyRecordType.Field(record),
		KeyAttribute.Field(attribute),
		KeyError.Field(err),
	)
}

// emitValueAssembled emits an event when a getter finishes.
func emitValueAssembled(ctx context.Context, attribute string, columns int, err error) {
	fields := []capitan.Field{
		KeyAttribute.Field(attribute),
		KeyColumnCount.Field(columns),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalValueAssembled, fields...)
	} else {
		capitan.Emit(ctx, SignalValueAssembled, fields...)
	}
}

// emitValueDisassembled emits an event when a setter finishes.
func emitValueDisassembled(ctx context.Context, attribute string, columns int, err error) {
	fields := []capitan.Field{
		KeyAttribute.Field(attribute),
		KeyColumnCount.Field(columns),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalValueDisassembled, fields...)
	} else {
		capitan.Emit(ctx, SignalValueDisassembled, fields...)
	}
}

// emitFilterExpanded emits an event when a scope wrapper rewrites a predicate.
func emitFilterExpanded(ctx context.Context, record string, terms int, err error) {
	fields := []capitan.Field{
		KeyRecordType.Field(record),
		KeyTermCount.Field(terms),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalFilterExpanded, fields...)
	} else {
		capitan.Emit(ctx, SignalFilterExpanded, fields...)
	}
}

// EmitStoreSaved is called by store implementations after a save.
func EmitStoreSaved(ctx context.Context, table string, columns int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyTable.Field(table),
		KeyColumnCount.Field(columns),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalStoreSaved, fields...)
	} else {
		capitan.Emit(ctx, SignalStoreSaved, fields...)
	}
}

// EmitStoreQuery is called by store implementations after a terminal query.
func EmitStoreQuery(ctx context.Context, table, sql string, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyTable.Field(table),
		KeySQL.Field(sql),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalStoreQueryComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalStoreQueryComplete, fields...)
	}
}
