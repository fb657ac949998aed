package typedconfig

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// Options controls where Add reads values from.
type Options struct {
	// ConfigFilePath is a YAML file whose top-level keys are matched against
	// field names. Tried as given, then relative to the working directory.
	ConfigFilePath string
	// ConfigFileRequired makes a missing ConfigFilePath an error.
	ConfigFileRequired bool
	// IgnoreEmptyEnvironmentVariables skips environment variables set to "".
	IgnoreEmptyEnvironmentVariables bool
}

// Definition documents one field. A list of them is what WriteDefinitions
// exports.
type Definition struct {
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Required         bool      `json:"required"`
	Type             ValueType `json:"type"`
	RecommendedValue any       `json:"recommendedValue,omitempty"`
	DefaultValue     any       `json:"defaultValue,omitempty"`
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for registration and resolution events.
func WithLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithEnviron overrides the environment source (os.Environ by default).
func WithEnviron(environ func() []string) RegistryOption {
	return func(r *Registry) {
		r.environ = environ
	}
}

// WithWorkingDir sets the directory relative config file paths fall back to.
// Defaults to the process working directory.
func WithWorkingDir(dir string) RegistryOption {
	return func(r *Registry) {
		r.workDir = dir
	}
}

type registration struct {
	instance *Instance
	seq      int
}

// Registry keeps one resolved instance per class.
//
// Add is expected to be called once per class by a single goroutine, usually
// during program start. Reads are safe from any goroutine.
type Registry struct {
	logger  *zap.Logger
	environ func() []string
	workDir string

	mu      sync.RWMutex
	configs map[*Class]registration
	seq     int
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		logger:  zap.NewNop(),
		configs: make(map[*Class]registration),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add resolves class from its defaults, the optional YAML file and the
// environment, in that order, and registers the result. Nothing is
// registered when an error is returned.
func (r *Registry) Add(class *Class, opts *Options) (*Instance, error) {
	if opts == nil {
		opts = &Options{}
	}

	if r.registered(class) {
		return nil, fmt.Errorf("%w: class already added '%s'", ErrAlreadyRegistered, class.Name())
	}

	inst, err := r.resolve(class, *opts)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.configs[class]; ok {
		return nil, fmt.Errorf("%w: class already added '%s'", ErrAlreadyRegistered, class.Name())
	}
	r.seq++
	r.configs[class] = registration{instance: inst, seq: r.seq}

	r.logger.Info("config registered",
		zap.String("class", class.Name()),
		zap.Int("fields", len(inst.values)),
	)
	return inst, nil
}

// MustAdd is like Add but panics on error.
func (r *Registry) MustAdd(class *Class, opts *Options) *Instance {
	inst, err := r.Add(class, opts)
	if err != nil {
		panic(err)
	}
	return inst
}

// Get returns the registered instance of class.
func (r *Registry) Get(class *Class) (*Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.configs[class]
	if !ok {
		return nil, fmt.Errorf("%w: cannot find config instance for '%s'", ErrNotFound, class.Name())
	}
	return reg.instance, nil
}

// Classes returns the registered classes ordered by name, then by
// registration order.
func (r *Registry) Classes() []*Class {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sortedClasses()
}

// Lookup returns the registered class with the given name.
func (r *Registry) Lookup(name string) (*Class, bool) {
	for _, class := range r.Classes() {
		if class.Name() == name {
			return class, true
		}
	}
	return nil, false
}

// Definitions returns one entry per field of every registered class, sorted by
// class name and then by field name.
//
// Add is synchronous, so every Add that returned before the call is included.
func (r *Registry) Definitions() []Definition {
	definitions := []Definition{}
	for _, class := range r.Classes() {
		specs := class.specs()
		slices.SortStableFunc(specs, func(a, b FieldSpec) int {
			return cmp.Compare(a.Name, b.Name)
		})
		for _, spec := range specs {
			definitions = append(definitions, spec.definition())
		}
	}
	return definitions
}

// WriteDefinitions writes Definitions to w as indented JSON.
func (r *Registry) WriteDefinitions(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r.Definitions()); err != nil {
		return fmt.Errorf("encode definitions: %w", err)
	}
	return nil
}

// TakeSnapshot returns the current values of the registered instance of class.
func (r *Registry) TakeSnapshot(class *Class) (Snapshot, error) {
	if _, err := class.Lookup(); err != nil {
		return nil, err
	}
	inst, err := r.Get(class)
	if err != nil {
		return nil, err
	}
	return inst.Snapshot(), nil
}

// RestoreSnapshot writes the values of snapshot back through the validated
// setter. An unknown property or an invalid value rejects the whole snapshot.
func (r *Registry) RestoreSnapshot(class *Class, snapshot Snapshot) error {
	inst, err := r.Get(class)
	if err != nil {
		return err
	}
	return inst.restore(snapshot)
}

// FieldMetadata returns the definition of one property of class. The class
// does not need to be registered.
func (r *Registry) FieldMetadata(class *Class, property string) (Definition, error) {
	if _, err := class.Lookup(); err != nil {
		return Definition{}, err
	}
	spec, ok := class.spec(property)
	if !ok {
		return Definition{}, fmt.Errorf("%w: property '%s' is unknown in config %s", ErrUnknownProperty, property, class.Name())
	}
	return spec.definition(), nil
}

// RemoveAll forgets every registered instance. Field declarations are kept.
func (r *Registry) RemoveAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.configs)
	r.logger.Debug("all configs removed")
}

func (r *Registry) registered(class *Class) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.configs[class]
	return ok
}

func (r *Registry) sortedClasses() []*Class {
	regs := make([]*Class, 0, len(r.configs))
	for class := range r.configs {
		regs = append(regs, class)
	}
	slices.SortFunc(regs, func(a, b *Class) int {
		if c := cmp.Compare(a.Name(), b.Name()); c != 0 {
			return c
		}
		return cmp.Compare(r.configs[a].seq, r.configs[b].seq)
	})
	return regs
}
