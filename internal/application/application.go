package application

import (
	"cmp"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"go.uber.org/zap"

	typedconfig "github.com/guidsdo/typed-configs"
	"github.com/guidsdo/typed-configs/internal/api"
	"github.com/guidsdo/typed-configs/internal/config"
	"github.com/guidsdo/typed-configs/internal/schema"
)

// App encapsulates the resolved registry and the HTTP server inspecting it.
type App struct {
	registry *typedconfig.Registry
	handler  *api.Handler
	router   http.Handler
	logger   *zap.Logger
	server   *http.Server
}

// New initializes the application serving registry with the provided configuration.
func New(cfg config.Config, registry *typedconfig.Registry, logger *zap.Logger) (*App, error) {
	if registry == nil {
		return nil, errors.New("registry is required")
	}

	handler := api.NewHandler(registry)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		registry: registry,
		handler:  handler,
		router:   apiRouter,
		logger:   logger,
		server:   NewServer(cfg, BuildRootHandler(apiRouter)),
	}, nil
}

// ResolveSchema declares every class of doc and resolves it into a new
// registry. Resolution stops at the first failing class.
func ResolveSchema(doc *schema.Document, opts *typedconfig.Options, registryOpts ...typedconfig.RegistryOption) (*typedconfig.Registry, error) {
	registry := typedconfig.NewRegistry(registryOpts...)
	if _, err := doc.Register(registry, opts); err != nil {
		return nil, fmt.Errorf("resolve schema: %w", err)
	}
	return registry, nil
}

// DescribeSchema returns the definitions of every field in doc without
// resolving any value, ordered like Registry.Definitions.
func DescribeSchema(doc *schema.Document) ([]typedconfig.Definition, error) {
	classes, err := doc.Declare()
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(classes, func(a, b *typedconfig.Class) int {
		return cmp.Compare(a.Name(), b.Name())
	})

	registry := typedconfig.NewRegistry()
	definitions := []typedconfig.Definition{}
	for _, class := range classes {
		if err := class.Finalize(); err != nil {
			return nil, fmt.Errorf("config '%s': %w", class.Name(), err)
		}
		fields, err := class.Lookup()
		if err != nil {
			return nil, err
		}

		defs := make([]typedconfig.Definition, 0, len(fields))
		for property := range fields {
			def, err := registry.FieldMetadata(class, property)
			if err != nil {
				return nil, err
			}
			defs = append(defs, def)
		}
		slices.SortFunc(defs, func(a, b typedconfig.Definition) int {
			return cmp.Compare(a.Name, b.Name)
		})
		definitions = append(definitions, defs...)
	}
	return definitions, nil
}

// BuildRootHandler mounts the API under /api/ and redirects / to the config
// listing.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/api/configs", http.StatusFound)
	}))
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening",
			zap.String("addr", a.server.Addr),
			zap.Int("configs", len(a.registry.Classes())),
		)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Registry returns the registry the server inspects.
func (a *App) Registry() *typedconfig.Registry {
	return a.registry
}
