package typedconfig

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"sync"

	"github.com/guidsdo/typed-configs/internal/value"
)

// envNamePattern is the POSIX (IEEE Std 1003.1-2017) rule for environment
// variable names: uppercase letters, digits and underscores, not starting
// with a digit.
var envNamePattern = regexp.MustCompile(`^[A-Z_][A-Z0-9_]*$`)

// Class identifies a configuration type and holds the specs of its fields.
// Two classes are the same only if they are the same pointer.
type Class struct {
	name string

	mu     sync.RWMutex
	fields map[string]*FieldSpec
	order  []string
}

// EnvBinding maps an environment name back to the property it populates.
type EnvBinding struct {
	Property string
	Type     ValueType
}

// NewClass creates an empty class. The name is used in messages and to order
// exported definitions.
func NewClass(name string) *Class {
	return &Class{name: name}
}

// Name returns the class name.
func (c *Class) Name() string {
	return c.name
}

// DeclareField adds a field to the class. A property can be declared once.
// The options are checked by Finalize, not here.
func (c *Class) DeclareField(property string, opts FieldOptions) error {
	if property == "" {
		return fmt.Errorf("%w: empty property name in config '%s'", ErrInvalidName, c.name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fields == nil {
		c.fields = make(map[string]*FieldSpec)
	}
	if _, ok := c.fields[property]; ok {
		return fmt.Errorf("%w: property '%s' already defined on %s", ErrDuplicateField, property, c.name)
	}

	c.fields[property] = &FieldSpec{Property: property, FieldOptions: opts}
	c.order = append(c.order, property)
	return nil
}

// Finalize checks the options of every field and records their types. It may
// be called again after more fields are declared.
func (c *Class) Finalize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.fields) == 0 {
		return c.noFieldsError()
	}

	names := make(map[string]string, len(c.fields))
	for _, property := range c.order {
		spec := c.fields[property]
		if err := c.checkField(spec); err != nil {
			return err
		}
		if other, ok := names[spec.Name]; ok {
			return fmt.Errorf("%w: name '%s' of property '%s' is already used by '%s' in config '%s'",
				ErrDuplicateName, spec.Name, property, other, c.name)
		}
		names[spec.Name] = property
	}

	for _, spec := range c.fields {
		spec.valueType = spec.Type
		spec.RecommendedValue = normalize(spec.RecommendedValue)
		spec.Default = normalize(spec.Default)
		if len(spec.PossibleValues) > 0 {
			allowed := make([]any, len(spec.PossibleValues))
			for i, v := range spec.PossibleValues {
				allowed[i] = normalize(v)
			}
			spec.PossibleValues = allowed
		}
	}
	return nil
}

func (c *Class) checkField(spec *FieldSpec) error {
	property := spec.Property

	if spec.Description == "" {
		return fmt.Errorf("%w: option 'description' for property '%s' is not a valid string in config '%s'",
			ErrInvalidDescription, property, c.name)
	}
	if spec.Validate != nil && spec.Check != nil {
		return fmt.Errorf("%w: options 'validate' and 'check' for property '%s' are both set in config '%s'",
			ErrInvalidValidator, property, c.name)
	}
	if !spec.Type.Valid() {
		return fmt.Errorf("%w: invalid type %#v for property '%s' in config '%s', type must be set to either: string, boolean, number",
			ErrInvalidType, spec.Type, property, c.name)
	}
	if got, ok := checkTyped(spec.RecommendedValue, spec.Type); !ok {
		return fmt.Errorf("%w: invalid type '%s' for 'recommendedValue' of '%s' in config '%s', must be %s",
			ErrRecommendedValueType, got, property, c.name, spec.Type)
	}
	if got, ok := checkTyped(spec.Default, spec.Type); !ok {
		return fmt.Errorf("%w: invalid type '%s' for 'default' of '%s' in config '%s', must be %s",
			ErrDefaultValueType, got, property, c.name, spec.Type)
	}
	if err := c.checkPossibleValues(spec); err != nil {
		return err
	}
	if !envNamePattern.MatchString(spec.Name) {
		return fmt.Errorf("%w: the name option of property '%s' must adhere to the by 'IEEE Std 1003.1-2017' defined standard",
			ErrInvalidName, property)
	}
	return nil
}

func (c *Class) checkPossibleValues(spec *FieldSpec) error {
	if len(spec.PossibleValues) == 0 {
		return nil
	}

	allowed := make([]any, 0, len(spec.PossibleValues))
	for _, v := range spec.PossibleValues {
		if v == nil {
			return fmt.Errorf("%w: nil entry in 'possibleValues' of '%s' in config '%s'", ErrPossibleValues, spec.Property, c.name)
		}
		if got, ok := checkTyped(v, spec.Type); !ok {
			return fmt.Errorf("%w: invalid type '%s' in 'possibleValues' of '%s' in config '%s', must be %s",
				ErrPossibleValues, got, spec.Property, c.name, spec.Type)
		}
		allowed = append(allowed, normalize(v))
	}

	for _, v := range []any{spec.RecommendedValue, spec.Default} {
		if value.IsEmpty(v) {
			continue
		}
		if !slices.Contains(allowed, normalize(v)) {
			return fmt.Errorf("%w: value '%v' of '%s' in config '%s' is not one of the possible values",
				ErrPossibleValues, v, spec.Property, c.name)
		}
	}
	return nil
}

// checkTyped reports whether v is unset or holds a finite value of typ. When
// it does not, the actual type is returned for the error message.
func checkTyped(v any, typ ValueType) (string, bool) {
	if v == nil {
		return "", true
	}
	got, ok := value.TypeOf(v)
	if !ok {
		return fmt.Sprintf("%T", v), false
	}
	if got != typ {
		return string(got), false
	}
	if f, isFloat := normalize(v).(float64); isFloat && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return "non-finite " + string(got), false
	}
	return "", true
}

// Lookup returns a copy of every field spec keyed by property.
func (c *Class) Lookup() (map[string]FieldSpec, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.fields) == 0 {
		return nil, c.noFieldsError()
	}

	specs := make(map[string]FieldSpec, len(c.fields))
	for property, spec := range c.fields {
		specs[property] = *spec
	}
	return specs, nil
}

// FieldsByEnvName returns the property and type of every field keyed by its
// environment name.
func (c *Class) FieldsByEnvName() (map[string]EnvBinding, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.fields) == 0 {
		return nil, c.noFieldsError()
	}

	bindings := make(map[string]EnvBinding, len(c.fields))
	for property, spec := range c.fields {
		bindings[spec.Name] = EnvBinding{Property: property, Type: spec.valueType}
	}
	return bindings, nil
}

// ClearFields removes every declared field. Instances created before the call
// keep their values but can no longer be written. Intended for test teardown.
func (c *Class) ClearFields() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fields = nil
	c.order = nil
}

// New finalizes the class and returns an instance holding the default values.
// The instance is not registered anywhere.
func (c *Class) New() (*Instance, error) {
	if err := c.Finalize(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	inst := &Instance{class: c, values: make(map[string]any, len(c.fields))}
	for property, spec := range c.fields {
		inst.values[property] = spec.Default
	}
	return inst, nil
}

func (c *Class) spec(property string) (FieldSpec, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	spec, ok := c.fields[property]
	if !ok {
		return FieldSpec{}, false
	}
	return *spec, true
}

// specs returns the field specs in declaration order.
func (c *Class) specs() []FieldSpec {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]FieldSpec, 0, len(c.order))
	for _, property := range c.order {
		out = append(out, *c.fields[property])
	}
	return out
}

func (c *Class) noFieldsError() error {
	return fmt.Errorf("%w: target %s doesn't have any config fields", ErrNoFields, c.name)
}
