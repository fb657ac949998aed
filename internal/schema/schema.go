// Package schema describes configuration classes in a YAML file so tools can
// resolve and document them without Go declarations.
package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	typedconfig "github.com/guidsdo/typed-configs"
)

// ErrInvalidSchema indicates the schema file is malformed.
var ErrInvalidSchema = errors.New("invalid schema")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Document is the root of a schema file.
type Document struct {
	Classes []ClassSpec `yaml:"classes" validate:"required,min=1,unique=Name,dive"`
}

// ClassSpec describes one configuration class.
type ClassSpec struct {
	Name   string     `yaml:"name" validate:"required"`
	Fields []FieldDef `yaml:"fields" validate:"required,min=1,unique=Property,dive"`
}

// FieldDef describes one field of a class. Pattern applies to string fields,
// Min and Max to number fields.
type FieldDef struct {
	Property         string   `yaml:"property" validate:"required"`
	Name             string   `yaml:"name" validate:"required"`
	Type             string   `yaml:"type" validate:"required,oneof=string number boolean"`
	Required         bool     `yaml:"required"`
	Description      string   `yaml:"description" validate:"required"`
	RecommendedValue any      `yaml:"recommendedValue"`
	Default          any      `yaml:"default"`
	PossibleValues   []any    `yaml:"possibleValues"`
	Pattern          string   `yaml:"pattern"`
	Min              *float64 `yaml:"min"`
	Max              *float64 `yaml:"max"`
}

// Load reads and validates the schema file at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a schema document. Unknown keys are rejected.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: parse YAML: %w", ErrInvalidSchema, err)
	}

	if err := validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}

	for _, class := range doc.Classes {
		for _, field := range class.Fields {
			if err := checkConstraints(class.Name, field); err != nil {
				return nil, err
			}
		}
	}
	return &doc, nil
}

func checkConstraints(class string, field FieldDef) error {
	if field.Pattern != "" {
		if field.Type != string(typedconfig.StringType) {
			return fmt.Errorf("%w: pattern of '%s.%s' requires type string", ErrInvalidSchema, class, field.Property)
		}
		if _, err := regexp.Compile(field.Pattern); err != nil {
			return fmt.Errorf("%w: pattern of '%s.%s': %w", ErrInvalidSchema, class, field.Property, err)
		}
	}
	if field.Min != nil || field.Max != nil {
		if field.Type != string(typedconfig.NumberType) {
			return fmt.Errorf("%w: min/max of '%s.%s' require type number", ErrInvalidSchema, class, field.Property)
		}
		if field.Min != nil && field.Max != nil && *field.Min > *field.Max {
			return fmt.Errorf("%w: min of '%s.%s' is greater than max", ErrInvalidSchema, class, field.Property)
		}
	}
	return nil
}

// Declare creates one class per schema entry with all its fields declared.
// The classes are returned in schema order and are not yet finalized.
func (d *Document) Declare() ([]*typedconfig.Class, error) {
	classes := make([]*typedconfig.Class, 0, len(d.Classes))
	for _, spec := range d.Classes {
		class := typedconfig.NewClass(spec.Name)
		for _, field := range spec.Fields {
			if err := class.DeclareField(field.Property, field.options()); err != nil {
				return nil, err
			}
		}
		classes = append(classes, class)
	}
	return classes, nil
}

// Register declares the classes and adds each of them to registry. It stops
// at the first class that fails to resolve.
func (d *Document) Register(registry *typedconfig.Registry, opts *typedconfig.Options) ([]*typedconfig.Class, error) {
	classes, err := d.Declare()
	if err != nil {
		return nil, err
	}
	for _, class := range classes {
		if _, err := registry.Add(class, opts); err != nil {
			return nil, fmt.Errorf("config '%s': %w", class.Name(), err)
		}
	}
	return classes, nil
}

func (f FieldDef) options() typedconfig.FieldOptions {
	opts := typedconfig.FieldOptions{
		Name:             f.Name,
		Type:             typedconfig.ValueType(f.Type),
		Required:         f.Required,
		Description:      f.Description,
		RecommendedValue: f.RecommendedValue,
		Default:          f.Default,
		PossibleValues:   f.PossibleValues,
	}
	if f.Pattern != "" || f.Min != nil || f.Max != nil {
		opts.Validate = f.validator()
	}
	return opts
}

func (f FieldDef) validator() func(any) error {
	var pattern *regexp.Regexp
	if f.Pattern != "" {
		pattern = regexp.MustCompile(f.Pattern)
	}

	return func(v any) error {
		switch val := v.(type) {
		case string:
			if pattern != nil && !pattern.MatchString(val) {
				return fmt.Errorf("value '%s' of '%s' does not match pattern %q", val, f.Name, f.Pattern)
			}
		case float64:
			if f.Min != nil && val < *f.Min {
				return fmt.Errorf("value %v of '%s' is lower than %v", val, f.Name, *f.Min)
			}
			if f.Max != nil && val > *f.Max {
				return fmt.Errorf("value %v of '%s' is greater than %v", val, f.Name, *f.Max)
			}
		}
		return nil
	}
}
