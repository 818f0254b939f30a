// Package msgpack provides a MessagePack codec for record snapshots.
//
// Dynamically typed values decode loosely: every integer that fits comes
// back as int64 and every float as float64.
package msgpack

import (
	"bytes"
	"math"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zoobzio/embedded"
)

// msgpackCodec implements embedded.Codec for MessagePack.
type msgpackCodec struct{}

// New returns a MessagePack codec.
func New() embedded.Codec {
	return &msgpackCodec{}
}

// ContentType returns the MIME type for MessagePack.
func (c *msgpackCodec) ContentType() string {
	return "application/msgpack"
}

// Marshal encodes v as MessagePack.
func (c *msgpackCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes MessagePack data into v.
func (c *msgpackCodec) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	if err := dec.Decode(v); err != nil {
		return err
	}

	embedded.RewriteDynamic(v, integer)
	return nil
}

func integer(v any) any {
	switch n := v.(type) {
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n)
		}
	case float32:
		return float64(n)
	}
	return v
}
