package application

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	typedconfig "github.com/guidsdo/typed-configs"
	"github.com/guidsdo/typed-configs/internal/config"
	"github.com/guidsdo/typed-configs/internal/schema"
)

const testSchema = `
classes:
  - name: Queue
    fields:
      - property: url
        name: QUEUE_URL
        type: string
        required: true
        description: Broker URL.
      - property: workers
        name: QUEUE_WORKERS
        type: number
        description: Worker count.
        default: 4
        min: 1
`

func parseTestSchema(t *testing.T) *schema.Document {
	t.Helper()

	doc, err := schema.Parse([]byte(testSchema))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	return doc
}

func envOf(env ...string) typedconfig.RegistryOption {
	return typedconfig.WithEnviron(func() []string { return env })
}

func TestResolveSchema(t *testing.T) {
	registry, err := ResolveSchema(parseTestSchema(t), nil, envOf("QUEUE_URL=amqp://broker"))
	if err != nil {
		t.Fatalf("ResolveSchema returned error: %v", err)
	}

	class, ok := registry.Lookup("Queue")
	if !ok {
		t.Fatalf("expected Queue to be registered")
	}
	snapshot, err := registry.TakeSnapshot(class)
	if err != nil {
		t.Fatalf("TakeSnapshot returned error: %v", err)
	}
	if snapshot["url"] != "amqp://broker" || snapshot["workers"] != float64(4) {
		t.Fatalf("unexpected snapshot %v", snapshot)
	}
}

func TestResolveSchemaReportsFirstError(t *testing.T) {
	_, err := ResolveSchema(parseTestSchema(t), nil, envOf())
	if !errors.Is(err, typedconfig.ErrMissingRequiredValue) {
		t.Fatalf("expected ErrMissingRequiredValue, got %v", err)
	}
}

func TestDescribeSchemaNeedsNoValues(t *testing.T) {
	defs, err := DescribeSchema(parseTestSchema(t))
	if err != nil {
		t.Fatalf("DescribeSchema returned error: %v", err)
	}

	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}
	if defs[0].Name != "QUEUE_URL" || !defs[0].Required {
		t.Fatalf("unexpected first definition %+v", defs[0])
	}
	if defs[1].Name != "QUEUE_WORKERS" || defs[1].DefaultValue != float64(4) {
		t.Fatalf("unexpected second definition %+v", defs[1])
	}
}

func TestDescribeSchemaMatchesRegistryDefinitions(t *testing.T) {
	doc := parseTestSchema(t)

	described, err := DescribeSchema(doc)
	if err != nil {
		t.Fatalf("DescribeSchema returned error: %v", err)
	}
	registry, err := ResolveSchema(doc, nil, envOf("QUEUE_URL=amqp://broker"))
	if err != nil {
		t.Fatalf("ResolveSchema returned error: %v", err)
	}

	resolved := registry.Definitions()
	if len(described) != len(resolved) {
		t.Fatalf("expected %d definitions, got %d", len(resolved), len(described))
	}
	for i := range resolved {
		if described[i] != resolved[i] {
			t.Fatalf("definition %d differs: %+v != %+v", i, described[i], resolved[i])
		}
	}
}

func TestDescribeSchemaReportsDefinitionErrors(t *testing.T) {
	doc, err := schema.Parse([]byte("classes:\n  - name: A\n    fields:\n      - {property: a, name: bad-name, type: string, description: d}\n"))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if _, err := DescribeSchema(doc); !errors.Is(err, typedconfig.ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestNewInitializesDependencies(t *testing.T) {
	registry, err := ResolveSchema(parseTestSchema(t), nil, envOf("QUEUE_URL=amqp://broker"))
	if err != nil {
		t.Fatalf("ResolveSchema returned error: %v", err)
	}

	app, err := New(baseTestConfig(":8085"), registry, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if app.server == nil || app.router == nil || app.handler == nil {
		t.Fatalf("expected server, router, and handler to be initialized")
	}
	if app.Server() != app.server {
		t.Fatalf("Server accessor did not return underlying instance")
	}
	if app.Registry() != registry {
		t.Fatalf("Registry accessor did not return underlying instance")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/configs/Queue", nil)
	rec := httptest.NewRecorder()
	app.server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 through server handler, got %d", rec.Code)
	}
}

func TestNewRequiresRegistry(t *testing.T) {
	if _, err := New(baseTestConfig(":0"), nil, zaptest.NewLogger(t)); err == nil {
		t.Fatalf("expected error for missing registry")
	}
}

func TestNewServerAppliesConfig(t *testing.T) {
	cfg := baseTestConfig("9090")
	handler := http.NewServeMux()

	server := NewServer(cfg, handler)
	if server.Addr != ":9090" {
		t.Fatalf("expected address :9090, got %s", server.Addr)
	}
	if server.Handler != handler {
		t.Fatalf("expected handler to be applied")
	}
	if server.ReadHeaderTimeout != cfg.ReadHeaderTimeout ||
		server.WriteTimeout != cfg.WriteTimeout ||
		server.IdleTimeout != cfg.IdleTimeout {
		t.Fatalf("server timeouts do not match configuration")
	}
}

func TestBuildRootHandler(t *testing.T) {
	apiInvoked := false
	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			t.Fatalf("unexpected path passed to API handler: %s", r.URL.Path)
		}
		apiInvoked = true
		w.WriteHeader(http.StatusNoContent)
	})

	handler := BuildRootHandler(apiHandler)

	t.Run("redirects index", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusFound {
			t.Fatalf("expected status 302, got %d", rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/api/configs" {
			t.Fatalf("unexpected redirect target %q", loc)
		}
	})

	t.Run("returns not found for unknown paths", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/unknown", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("forwards api traffic", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected status 204, got %d", rec.Code)
		}
		if !apiInvoked {
			t.Fatalf("expected API handler to be invoked")
		}
	})
}

func baseTestConfig(port string) config.Config {
	return config.Config{
		Port:                 port,
		ShutdownGracePeriod:  50 * time.Millisecond,
		ReadHeaderTimeout:    20 * time.Millisecond,
		WriteTimeout:         30 * time.Millisecond,
		IdleTimeout:          40 * time.Millisecond,
		EnableRequestLogging: false,
		RateLimitRPS:         0,
		RateLimitBurst:       0,
	}
}
