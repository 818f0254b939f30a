package embedded

import "reflect"

// Codec provides content-type aware marshaling.
// Stores use it to snapshot and restore raw column values.
type Codec interface {
	// ContentType returns the MIME type for this codec (e.g., "application/json").
	ContentType() string

	// Marshal encodes v into bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v.
	Unmarshal(data []byte, v any) error
}

// RewriteDynamic walks v and replaces every dynamically typed value (map
// values, slice elements and fields declared as any) with fn of that value.
// Containers are walked before fn sees them. Codecs use it to turn
// decoder-specific representations into the plain values rows hold.
func RewriteDynamic(v any, fn func(any) any) {
	rewrite(reflect.ValueOf(v), fn)
}

func rewrite(rv reflect.Value, fn func(any) any) {
	switch rv.Kind() {
	case reflect.Pointer:
		if !rv.IsNil() {
			rewrite(rv.Elem(), fn)
		}

	case reflect.Interface:
		if rv.IsNil() {
			return
		}
		inner := rv.Elem()
		switch inner.Kind() {
		case reflect.Map, reflect.Slice, reflect.Pointer:
			rewrite(inner, fn)
		}
		if !rv.CanSet() {
			return
		}
		out := fn(inner.Interface())
		if out == nil {
			rv.Set(reflect.Zero(rv.Type()))
		} else {
			rv.Set(reflect.ValueOf(out))
		}

	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			if rv.Type().Field(i).IsExported() {
				rewrite(rv.Field(i), fn)
			}
		}

	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			val := iter.Value()
			if val.Kind() != reflect.Interface {
				rewrite(val, fn)
				continue
			}
			holder := reflect.New(val.Type()).Elem()
			holder.Set(val)
			rewrite(holder, fn)
			rv.SetMapIndex(iter.Key(), holder)
		}

	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			rewrite(rv.Index(i), fn)
		}
	}
}
