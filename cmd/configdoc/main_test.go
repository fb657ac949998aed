package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	typedconfig "github.com/guidsdo/typed-configs"
)

const testSchema = `
classes:
  - name: Cache
    fields:
      - property: addr
        name: CACHE_ADDR
        type: string
        required: true
        description: Cache address.
      - property: ttl
        name: CACHE_TTL
        type: number
        description: Entry TTL in seconds.
        default: 30
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func environ(env ...string) func() []string {
	return func() []string { return env }
}

func TestRunCheck(t *testing.T) {
	schemaPath := writeFile(t, "schema.yml", testSchema)

	var out bytes.Buffer
	err := run([]string{"--log-level", "error", "check", "--schema", schemaPath}, &out, environ("CACHE_ADDR=localhost:6379"))
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if got := out.String(); got != "ok: 1 configs, 2 fields resolved\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestRunCheckReadsConfigFile(t *testing.T) {
	schemaPath := writeFile(t, "schema.yml", testSchema)
	configPath := writeFile(t, "values.yml", "CACHE_ADDR: cache:6379\n")

	var out bytes.Buffer
	err := run([]string{"--log-level", "error", "check", "--schema", schemaPath, "--config", configPath, "--config-required"}, &out, environ())
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
}

func TestRunCheckFailures(t *testing.T) {
	schemaPath := writeFile(t, "schema.yml", testSchema)

	t.Run("missing required value", func(t *testing.T) {
		err := run([]string{"--log-level", "error", "check", "--schema", schemaPath}, &bytes.Buffer{}, environ())
		if !errors.Is(err, typedconfig.ErrMissingRequiredValue) {
			t.Fatalf("expected ErrMissingRequiredValue, got %v", err)
		}
	})

	t.Run("empty value ignored", func(t *testing.T) {
		err := run([]string{"--log-level", "error", "check", "--schema", schemaPath, "--ignore-empty-env"},
			&bytes.Buffer{}, environ("CACHE_ADDR=localhost", "CACHE_TTL="))
		if err != nil {
			t.Fatalf("expected empty CACHE_TTL to be ignored, got %v", err)
		}
	})

	t.Run("wrong type", func(t *testing.T) {
		err := run([]string{"--log-level", "error", "check", "--schema", schemaPath}, &bytes.Buffer{}, environ("CACHE_ADDR=x", "CACHE_TTL=soon"))
		if !errors.Is(err, typedconfig.ErrInvalidValueType) {
			t.Fatalf("expected ErrInvalidValueType, got %v", err)
		}
	})

	t.Run("required config file", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "missing.yml")
		err := run([]string{"--log-level", "error", "check", "--schema", schemaPath, "--config", missing, "--config-required"},
			&bytes.Buffer{}, environ("CACHE_ADDR=x"))
		if !errors.Is(err, typedconfig.ErrConfigFileNotFound) {
			t.Fatalf("expected ErrConfigFileNotFound, got %v", err)
		}
	})

	t.Run("missing schema flag", func(t *testing.T) {
		if err := run([]string{"check"}, &bytes.Buffer{}, environ()); err == nil {
			t.Fatalf("expected error without --schema")
		}
	})

	t.Run("invalid settings", func(t *testing.T) {
		err := run([]string{"check", "--schema", schemaPath}, &bytes.Buffer{}, environ("CACHE_ADDR=x", "CONFIGDOC_LOG_LEVEL=loud"))
		if !errors.Is(err, typedconfig.ErrValueNotAllowed) {
			t.Fatalf("expected ErrValueNotAllowed, got %v", err)
		}
	})
}

func TestRunDefinitions(t *testing.T) {
	schemaPath := writeFile(t, "schema.yml", testSchema)

	var out bytes.Buffer
	if err := run([]string{"--log-level", "error", "definitions", "--schema", schemaPath}, &out, environ()); err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	var defs []typedconfig.Definition
	if err := json.Unmarshal(out.Bytes(), &defs); err != nil {
		t.Fatalf("decode definitions: %v", err)
	}
	if len(defs) != 2 || defs[0].Name != "CACHE_ADDR" || defs[1].DefaultValue != float64(30) {
		t.Fatalf("unexpected definitions %+v", defs)
	}
	if !strings.Contains(out.String(), "\n  {") {
		t.Fatalf("expected indented output, got %s", out.String())
	}
}

func TestRunDefinitionsToFile(t *testing.T) {
	schemaPath := writeFile(t, "schema.yml", testSchema)
	output := filepath.Join(t.TempDir(), "definitions.json")

	var out bytes.Buffer
	if err := run([]string{"--log-level", "error", "definitions", "--schema", schemaPath, "-o", output}, &out, environ()); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected nothing on stdout, got %q", out.String())
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), `"name": "CACHE_TTL"`) {
		t.Fatalf("unexpected file content %s", data)
	}
}

func TestOverridesIgnoreUnsetFlags(t *testing.T) {
	c := newCLI()
	if _, err := c.app.Parse([]string{"serve", "--schema", writeFile(t, "schema.yml", testSchema), "--port", "9999", "--rate-limit-burst", "0"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	overrides := c.overrides()
	if overrides.Port == nil || *overrides.Port != "9999" {
		t.Fatalf("expected port override")
	}
	if overrides.RateLimitRPS != nil {
		t.Fatalf("expected unset rate limit to be ignored")
	}
	if overrides.RateLimitBurst == nil || *overrides.RateLimitBurst != 0 {
		t.Fatalf("expected burst override of 0")
	}
	if overrides.LogLevel != nil {
		t.Fatalf("expected unset log level to be ignored")
	}
}
