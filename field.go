package typedconfig

import (
	"fmt"

	"github.com/guidsdo/typed-configs/internal/value"
)

// ValueType is the primitive type of a configuration field.
type ValueType = value.Type

// Supported field types. Numbers are stored as float64.
const (
	StringType  ValueType = value.String
	NumberType  ValueType = value.Number
	BooleanType ValueType = value.Boolean
)

// FieldOptions declares how a field is named, typed and validated.
type FieldOptions struct {
	// Name is the key used in YAML files and the environment. It must follow
	// the POSIX rule for environment variable names.
	Name string
	// Type is the declared type of the field.
	Type ValueType
	// Required fields must hold a non-empty value once all sources are applied.
	Required bool
	// Description is mandatory documentation for the field.
	Description string
	// RecommendedValue is exported with the definitions and must match Type.
	RecommendedValue any
	// Default is the value the field starts with before any source is applied.
	Default any
	// PossibleValues, when set, restricts a non-empty value to the listed ones.
	PossibleValues []any
	// Validate is run after the required check; a non-nil error aborts
	// resolution and is returned as is.
	Validate func(v any) error
	// Check is run after the required check; false aborts resolution with
	// ErrValidationFailed. Only one of Validate and Check may be set.
	Check func(v any) bool
}

// FieldSpec is a declared field of a class.
type FieldSpec struct {
	Property string
	FieldOptions

	valueType ValueType
}

// ValueType returns the type resolved by finalization, or "" when the field has
// not been processed yet.
func (s FieldSpec) ValueType() ValueType {
	return s.valueType
}

// Processed reports whether the field passed finalization.
func (s FieldSpec) Processed() bool {
	return s.valueType != ""
}

func (s FieldSpec) definition() Definition {
	typ := s.valueType
	if typ == "" {
		typ = s.Type
	}
	return Definition{
		Name:             s.Name,
		Description:      s.Description,
		Required:         s.Required,
		Type:             typ,
		RecommendedValue: normalize(s.RecommendedValue),
		DefaultValue:     normalize(s.Default),
	}
}

// Primitive lists the Go types a typed field can hold.
type Primitive interface {
	string | float64 | bool
}

// Field is a typed handle to one declared field of a class.
type Field[T Primitive] struct {
	class    *Class
	property string
}

// Declare declares a field on class with the type derived from T.
func Declare[T Primitive](class *Class, property string, opts FieldOptions) (*Field[T], error) {
	typ := typeFor[T]()
	if opts.Type != "" && opts.Type != typ {
		return nil, fmt.Errorf("%w: declared type '%s' of property '%s' in config '%s' does not match '%s'",
			ErrInvalidType, opts.Type, property, class.Name(), typ)
	}
	opts.Type = typ

	if err := class.DeclareField(property, opts); err != nil {
		return nil, err
	}
	return &Field[T]{class: class, property: property}, nil
}

// MustDeclare is like Declare but panics on error. It is meant for package
// level variable initialization.
func MustDeclare[T Primitive](class *Class, property string, opts FieldOptions) *Field[T] {
	f, err := Declare[T](class, property, opts)
	if err != nil {
		panic(err)
	}
	return f
}

// Property returns the name of the field on its class.
func (f *Field[T]) Property() string {
	return f.property
}

// Class returns the class the field belongs to.
func (f *Field[T]) Class() *Class {
	return f.class
}

// Get returns the current value, or the zero value of T when unset.
func (f *Field[T]) Get(inst *Instance) T {
	v, _ := f.Lookup(inst)
	return v
}

// Lookup returns the current value and whether it is set.
func (f *Field[T]) Lookup(inst *Instance) (T, bool) {
	var zero T
	raw, err := inst.Value(f.property)
	if err != nil || raw == nil {
		return zero, false
	}
	v, ok := raw.(T)
	return v, ok
}

// Set writes v through the validated setter of inst.
func (f *Field[T]) Set(inst *Instance, v T) error {
	return inst.Set(f.property, v)
}

// Unset clears the field. It fails for required fields.
func (f *Field[T]) Unset(inst *Instance) error {
	return inst.Set(f.property, nil)
}

func typeFor[T Primitive]() ValueType {
	var zero T
	switch any(zero).(type) {
	case string:
		return StringType
	case bool:
		return BooleanType
	default:
		return NumberType
	}
}

// normalize widens integer values to float64 so numbers have a single
// representation.
func normalize(v any) any {
	if v == nil {
		return nil
	}
	if t, ok := value.TypeOf(v); ok && t == NumberType {
		if f, err := value.Coerce("", v, NumberType); err == nil {
			return f
		}
	}
	return v
}
