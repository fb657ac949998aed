package typedconfig

import (
	"errors"

	"github.com/guidsdo/typed-configs/internal/source"
	"github.com/guidsdo/typed-configs/internal/value"
)

// Error categories. Every error created by this package matches exactly one of
// them through errors.Is. Errors returned by custom validators are passed
// through untouched.
var (
	// ErrDefinition indicates a broken field declaration. It surfaces while a
	// class is set up and is not recoverable.
	ErrDefinition = errors.New("config definition error")
	// ErrResolution indicates a class could not be populated from its sources.
	ErrResolution = errors.New("config resolution error")
	// ErrUsage indicates the caller asked for a class or property that does not exist.
	ErrUsage = errors.New("config usage error")
)

// Definition errors.
var (
	ErrDuplicateField       = newKindError(ErrDefinition, "duplicate field")
	ErrDuplicateName        = newKindError(ErrDefinition, "duplicate name")
	ErrInvalidDescription   = newKindError(ErrDefinition, "invalid description")
	ErrInvalidValidator     = newKindError(ErrDefinition, "invalid validator")
	ErrInvalidType          = newKindError(ErrDefinition, "invalid type")
	ErrRecommendedValueType = newKindError(ErrDefinition, "invalid recommended value")
	ErrDefaultValueType     = newKindError(ErrDefinition, "invalid default value")
	ErrPossibleValues       = newKindError(ErrDefinition, "invalid possible values")
	ErrInvalidName          = newKindError(ErrDefinition, "invalid name")
	ErrNoFields             = newKindError(ErrDefinition, "no config fields")
)

// Resolution errors.
var (
	ErrConfigFileNotFound   = newKindError(ErrResolution, "config file not found", source.ErrConfigFileNotFound)
	ErrInvalidValueType     = newKindError(ErrResolution, "invalid value type", value.ErrInvalidType)
	ErrMissingRequiredValue = newKindError(ErrResolution, "missing required value")
	ErrValidationFailed     = newKindError(ErrResolution, "validation failed")
	ErrValueNotAllowed      = newKindError(ErrResolution, "value not allowed")
	ErrTypeMismatch         = newKindError(ErrResolution, "type mismatch")
)

// Usage errors.
var (
	ErrAlreadyRegistered = newKindError(ErrUsage, "already registered")
	ErrNotFound          = newKindError(ErrUsage, "config not found")
	ErrUnknownProperty   = newKindError(ErrUsage, "unknown property")
	ErrNotProcessed      = newKindError(ErrUsage, "field not processed")
)

// ValueTypeError carries the key, expected type and raw value of a failed coercion.
type ValueTypeError = value.TypeError

type kindError struct {
	msg    string
	causes []error
}

func newKindError(kind error, msg string, causes ...error) error {
	return &kindError{msg: msg, causes: append([]error{kind}, causes...)}
}

func (e *kindError) Error() string {
	return e.msg
}

func (e *kindError) Unwrap() []error {
	return e.causes
}
