// Package bson provides a BSON codec for record snapshots.
//
// BSON primitives decoded into dynamically typed values are unwrapped:
// int32 widens to int64, datetimes become UTC time.Time, embedded
// documents become maps and arrays become slices.
package bson

import (
	"github.com/zoobzio/embedded"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// bsonCodec implements embedded.Codec for BSON.
type bsonCodec struct{}

// New returns a BSON codec.
func New() embedded.Codec {
	return &bsonCodec{}
}

// ContentType returns the MIME type for BSON.
func (c *bsonCodec) ContentType() string {
	return "application/bson"
}

// Marshal encodes v as BSON. v must be a document: a struct or a map.
func (c *bsonCodec) Marshal(v any) ([]byte, error) {
	return bson.Marshal(v)
}

// Unmarshal decodes BSON data into v.
func (c *bsonCodec) Unmarshal(data []byte, v any) error {
	if err := bson.Unmarshal(data, v); err != nil {
		return err
	}
	embedded.RewriteDynamic(v, unwrap)
	return nil
}

func unwrap(v any) any {
	switch p := v.(type) {
	case int32:
		return int64(p)
	case primitive.DateTime:
		return p.Time().UTC()
	case primitive.Binary:
		return p.Data
	case primitive.A:
		return []any(p)
	case primitive.D:
		m := make(map[string]any, len(p))
		for _, e := range p {
			m[e.Key] = e.Value
		}
		return m
	case primitive.M:
		return map[string]any(p)
	}
	return v
}
