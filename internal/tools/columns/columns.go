// Package columns prints the column layout resolved from a declarations file.
package columns

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/caarlos0/env/v11"
	"github.com/zoobzio/embedded"
)

// Config holds configuration for the columns tool.
type Config struct {
	Mappings string `env:"EMBEDDED_MAPPINGS" envDefault:"embedded.yaml"`
	Record   string `env:"EMBEDDED_RECORD"`
}

// ParseConfig reads the environment, then lets flags override it.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	fs.StringVar(&cfg.Mappings, "mappings", cfg.Mappings, "path to the YAML declarations file")
	fs.StringVar(&cfg.Record, "record", cfg.Record, "only print this record type")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run loads the declarations and writes one line per column to out:
//
//	Order.price (Price) currency -> price_currency
func Run(cfg Config, out io.Writer) error {
	if cfg.Mappings == "" {
		return errors.New("mappings path is required")
	}
	if out == nil {
		return errors.New("output is required")
	}

	decls, err := embedded.LoadDeclarations(cfg.Mappings)
	if err != nil {
		return err
	}
	layouts, err := decls.Layout()
	if err != nil {
		return fmt.Errorf("resolve %s: %w", cfg.Mappings, err)
	}

	found := cfg.Record == ""
	for _, r := range layouts {
		if cfg.Record != "" && r.Type != cfg.Record {
			continue
		}
		found = true
		for _, a := range r.Attributes {
			for _, c := range a.Columns {
				if _, err := fmt.Fprintf(out, "%s.%s (%s) %s -> %s\n", r.Type, a.Name, a.ClassName, c.Attr, c.Name); err != nil {
					return err
				}
			}
		}
	}
	if !found {
		return fmt.Errorf("record %q not declared in %s", cfg.Record, cfg.Mappings)
	}
	return nil
}
