package columns

import (
	"bytes"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zoobzio/embedded"
)

const declarations = `
records:
  - type: Order
    embeds:
      - name: price
        attrs: [currency, amount]
  - type: Person
    embeds:
      - name: identification
        attrs: {number: id_number, type: id_type}
        class_name: Identification
`

func writeDeclarations(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "embedded.yaml")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write declarations: %v", err)
	}
	return path
}

func TestParseConfigDefaults(t *testing.T) {
	t.Setenv("EMBEDDED_MAPPINGS", "")
	os.Unsetenv("EMBEDDED_MAPPINGS")
	t.Setenv("EMBEDDED_RECORD", "")
	os.Unsetenv("EMBEDDED_RECORD")

	fs := flag.NewFlagSet("columns", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Mappings != "embedded.yaml" || cfg.Record != "" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestParseConfigEnvAndFlags(t *testing.T) {
	t.Setenv("EMBEDDED_MAPPINGS", "/etc/embedded.yaml")
	t.Setenv("EMBEDDED_RECORD", "Order")

	fs := flag.NewFlagSet("columns", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-record", "Person"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Mappings != "/etc/embedded.yaml" {
		t.Fatalf("expected env mappings, got %q", cfg.Mappings)
	}
	if cfg.Record != "Person" {
		t.Fatalf("expected flag to override record, got %q", cfg.Record)
	}
}

func TestParseConfigBadFlag(t *testing.T) {
	fs := flag.NewFlagSet("columns", flag.ContinueOnError)
	fs.SetOutput(&bytes.Buffer{})
	if _, err := ParseConfig(fs, []string{"-unknown"}); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

func TestRunPrintsLayout(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := Run(Config{Mappings: writeDeclarations(t, declarations)}, buf); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := strings.Join([]string{
		"Order.price (Price) currency -> price_currency",
		"Order.price (Price) amount -> price_amount",
		"Person.identification (Identification) number -> id_number",
		"Person.identification (Identification) type -> id_type",
	}, "\n") + "\n"
	if buf.String() != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestRunFiltersRecord(t *testing.T) {
	buf := &bytes.Buffer{}
	cfg := Config{Mappings: writeDeclarations(t, declarations), Record: "Person"}
	if err := Run(cfg, buf); err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Contains(buf.String(), "Order.") {
		t.Fatalf("expected only Person lines, got %q", buf.String())
	}

	cfg.Record = "Invoice"
	if err := Run(cfg, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for undeclared record")
	}
}

func TestRunCollision(t *testing.T) {
	path := writeDeclarations(t, `
records:
  - type: Order
    embeds:
      - name: price
        attrs: [currency]
      - name: cost
        attrs: {currency: price_currency}
`)
	err := Run(Config{Mappings: path}, &bytes.Buffer{})
	if !errors.Is(err, embedded.ErrColumnCollision) {
		t.Fatalf("expected column collision, got %v", err)
	}
}

func TestRunErrors(t *testing.T) {
	if err := Run(Config{}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for empty mappings path")
	}
	if err := Run(Config{Mappings: "x.yaml"}, nil); err == nil {
		t.Fatal("expected error for nil output")
	}
	missing := filepath.Join(t.TempDir(), "missing.yaml")
	if err := Run(Config{Mappings: missing}, &bytes.Buffer{}); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not exist error, got %v", err)
	}
}
