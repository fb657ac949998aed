package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	typedconfig "github.com/guidsdo/typed-configs"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Handler exposes a registry over HTTP. All routes are read-only.
type Handler struct {
	registry  *typedconfig.Registry
	clock     func() time.Time
	startedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler serving the instances of registry.
func NewHandler(registry *typedconfig.Registry, opts ...HandlerOption) *Handler {
	h := &Handler{
		registry: registry,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.startedAt = h.clock()
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
		Configs:   len(h.registry.Classes()),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDefinitions(w http.ResponseWriter, r *http.Request) {
	_ = r
	writeJSON(w, http.StatusOK, h.registry.Definitions())
}

func (h *Handler) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	_ = r
	classes := h.registry.Classes()
	resp := configsResponse{
		Configs:    make([]configSummary, 0, len(classes)),
		ResolvedAt: h.startedAt,
	}
	for _, class := range classes {
		fields, err := class.Lookup()
		if err != nil {
			writeInternalError(w, err)
			return
		}
		resp.Configs = append(resp.Configs, configSummary{Name: class.Name(), Fields: len(fields)})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	class, ok := h.lookupClass(w, r)
	if !ok {
		return
	}

	snapshot, err := h.registry.TakeSnapshot(class)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snapshotResponse{Name: class.Name(), Values: snapshot})
}

func (h *Handler) handleGetField(w http.ResponseWriter, r *http.Request) {
	class, ok := h.lookupClass(w, r)
	if !ok {
		return
	}

	property := r.PathValue("property")
	def, err := h.registry.FieldMetadata(class, property)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	inst, err := h.registry.Get(class)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	value, err := inst.Value(property)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, fieldResponse{Definition: def, Value: value})
}

func (h *Handler) lookupClass(w http.ResponseWriter, r *http.Request) (*typedconfig.Class, bool) {
	name := r.PathValue("class")
	class, ok := h.registry.Lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, "Config not found", "no config named '"+name+"' is registered")
		return nil, false
	}
	return class, true
}

func writeRegistryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, typedconfig.ErrNotFound), errors.Is(err, typedconfig.ErrUnknownProperty):
		writeError(w, http.StatusNotFound, "Not found", err.Error())
	default:
		writeInternalError(w, err)
	}
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Configs   int       `json:"configs"`
}

type configSummary struct {
	Name   string `json:"name"`
	Fields int    `json:"fields"`
}

type configsResponse struct {
	Configs    []configSummary `json:"configs"`
	ResolvedAt time.Time       `json:"resolvedAt"`
}

type snapshotResponse struct {
	Name   string               `json:"name"`
	Values typedconfig.Snapshot `json:"values"`
}

type fieldResponse struct {
	typedconfig.Definition
	Value any `json:"value"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, errorResponse{
		Error:   message,
		Details: details,
	})
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
