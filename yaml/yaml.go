// Package yaml provides a YAML codec for record snapshots.
//
// Integers decoded into dynamically typed values come back as int64.
// Timestamps stay strings; value types parse them on assembly.
package yaml

import (
	"github.com/zoobzio/embedded"
	"gopkg.in/yaml.v3"
)

// yamlCodec implements embedded.Codec for YAML.
type yamlCodec struct{}

// New returns a YAML codec.
func New() embedded.Codec {
	return &yamlCodec{}
}

// ContentType returns the MIME type for YAML.
func (c *yamlCodec) ContentType() string {
	return "application/yaml"
}

// Marshal encodes v as YAML.
func (c *yamlCodec) Marshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

// Unmarshal decodes YAML data into v.
func (c *yamlCodec) Unmarshal(data []byte, v any) error {
	if err := yaml.Unmarshal(data, v); err != nil {
		return err
	}
	embedded.RewriteDynamic(v, widen)
	return nil
}

func widen(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case uint64:
		if n <= 1<<63-1 {
			return int64(n)
		}
	}
	return v
}
