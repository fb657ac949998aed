package typedconfig

import (
	"fmt"
	"math"
	"sync"

	"github.com/guidsdo/typed-configs/internal/value"
)

// Snapshot maps property names to values.
type Snapshot map[string]any

// Instance holds the current values of one class. Writes go through Set, which
// enforces the declared type of each field.
type Instance struct {
	class *Class

	mu     sync.RWMutex
	values map[string]any
}

// Class returns the class the instance was created from.
func (i *Instance) Class() *Class {
	return i.class
}

// Value returns the current value of property, nil when unset.
func (i *Instance) Value(property string) (any, error) {
	if _, ok := i.class.spec(property); !ok {
		return nil, i.unknownPropertyError(property)
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.values[property], nil
}

// String returns the value of a string field, "" when unset or not a string.
func (i *Instance) String(property string) string {
	v, _ := i.Value(property)
	s, _ := v.(string)
	return s
}

// Number returns the value of a number field, 0 when unset or not a number.
func (i *Instance) Number(property string) float64 {
	v, _ := i.Value(property)
	f, _ := v.(float64)
	return f
}

// Bool returns the value of a boolean field, false when unset or not a boolean.
func (i *Instance) Bool(property string) bool {
	v, _ := i.Value(property)
	b, _ := v.(bool)
	return b
}

// Set validates v against the field and stores it. A nil value clears an
// optional field.
func (i *Instance) Set(property string, v any) error {
	normalized, err := i.check(property, v, false)
	if err != nil {
		return err
	}

	i.mu.Lock()
	i.values[property] = normalized
	i.mu.Unlock()
	return nil
}

// Snapshot returns a copy of every field value, unset fields included.
func (i *Instance) Snapshot() Snapshot {
	specs := i.class.specs()

	i.mu.RLock()
	defer i.mu.RUnlock()

	snapshot := make(Snapshot, len(specs))
	for _, spec := range specs {
		snapshot[spec.Property] = i.values[spec.Property]
	}
	return snapshot
}

// restore writes every value of snapshot, or none of them if one is rejected.
func (i *Instance) restore(snapshot Snapshot) error {
	for property := range snapshot {
		if _, ok := i.class.spec(property); !ok {
			return fmt.Errorf("%w: property '%s' is unknown in config %s", ErrUnknownProperty, property, i.class.name)
		}
	}

	normalized := make(map[string]any, len(snapshot))
	for property, v := range snapshot {
		n, err := i.check(property, v, false)
		if err != nil {
			return err
		}
		normalized[property] = n
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	for property, v := range normalized {
		i.values[property] = v
	}
	return nil
}

// assign stores v without the required check. Resolution applies sources one
// by one and checks required fields once all of them are in.
func (i *Instance) assign(property string, v any) error {
	normalized, err := i.check(property, v, true)
	if err != nil {
		return err
	}

	i.mu.Lock()
	i.values[property] = normalized
	i.mu.Unlock()
	return nil
}

func (i *Instance) check(property string, v any, allowEmptyRequired bool) (any, error) {
	spec, ok := i.class.spec(property)
	if !ok {
		return nil, i.unknownPropertyError(property)
	}
	if !spec.Processed() {
		return nil, fmt.Errorf("%w: config field option '%s' of class '%s' has not been processed",
			ErrNotProcessed, property, i.class.name)
	}

	if v == nil {
		if spec.Required && !allowEmptyRequired {
			return nil, typeMismatchError(spec, v)
		}
		return nil, nil
	}

	got, ok := value.TypeOf(v)
	if !ok || got != spec.valueType {
		return nil, typeMismatchError(spec, v)
	}

	v = normalize(v)
	if f, isFloat := v.(float64); isFloat && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return nil, typeMismatchError(spec, v)
	}
	return v, nil
}

func (i *Instance) unknownPropertyError(property string) error {
	return fmt.Errorf("%w: property '%s' isn't defined on %s", ErrUnknownProperty, property, i.class.name)
}

func typeMismatchError(spec FieldSpec, v any) error {
	return fmt.Errorf("%w: value '%v' of property '%s' must be of type '%s'", ErrTypeMismatch, v, spec.Name, spec.valueType)
}
