package typedconfig

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/guidsdo/typed-configs/internal/source"
	"github.com/guidsdo/typed-configs/internal/value"
)

// resolve builds an instance of class. Later sources override earlier ones:
// defaults, then the YAML file, then the environment. Validation runs once
// all sources are applied.
func (r *Registry) resolve(class *Class, opts Options) (*Instance, error) {
	inst, err := class.New()
	if err != nil {
		return nil, err
	}

	bindings, err := class.FieldsByEnvName()
	if err != nil {
		return nil, err
	}
	logger := r.logger.With(zap.String("class", class.Name()))

	if opts.ConfigFilePath != "" {
		doc, err := source.LoadYAML(opts.ConfigFilePath, r.workDir, opts.ConfigFileRequired)
		if err != nil {
			if errors.Is(err, source.ErrConfigFileNotFound) {
				return nil, fmt.Errorf("%w: %w", ErrConfigFileNotFound, err)
			}
			return nil, fmt.Errorf("%w: load config file '%s': %w", ErrResolution, opts.ConfigFilePath, err)
		}

		applied, err := applySource(inst, bindings, doc)
		if err != nil {
			return nil, err
		}
		logger.Debug("applied config file",
			zap.String("path", opts.ConfigFilePath),
			zap.Strings("keys", applied),
		)
	}

	env := source.Environ(r.environ, opts.IgnoreEmptyEnvironmentVariables)
	vars := make(map[string]any, len(env))
	for k, v := range env {
		vars[k] = v
	}
	applied, err := applySource(inst, bindings, vars)
	if err != nil {
		return nil, err
	}
	logger.Debug("applied environment", zap.Strings("keys", applied))

	specs := class.specs()
	if err := validateRequired(inst, specs); err != nil {
		return nil, err
	}
	if err := validatePossibleValues(inst, specs); err != nil {
		return nil, err
	}
	if err := runValidators(inst, specs); err != nil {
		return nil, err
	}

	return inst, nil
}

// applySource coerces and assigns every key of raw that names a field. It
// returns the applied keys in sorted order.
func applySource(inst *Instance, bindings map[string]EnvBinding, raw map[string]any) ([]string, error) {
	keys := make([]string, 0, len(bindings))
	for key := range raw {
		if _, ok := bindings[key]; ok {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)

	for _, key := range keys {
		binding := bindings[key]
		v, err := value.Coerce(key, raw[key], binding.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidValueType, err)
		}
		if err := inst.assign(binding.Property, v); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func validateRequired(inst *Instance, specs []FieldSpec) error {
	for _, spec := range specs {
		if !spec.Required {
			continue
		}
		v, err := inst.Value(spec.Property)
		if err != nil {
			return err
		}
		if value.IsEmpty(v) {
			return fmt.Errorf("%w: required value for property '%s' has not been set", ErrMissingRequiredValue, spec.Name)
		}
	}
	return nil
}

func validatePossibleValues(inst *Instance, specs []FieldSpec) error {
	for _, spec := range specs {
		if len(spec.PossibleValues) == 0 {
			continue
		}
		v, err := inst.Value(spec.Property)
		if err != nil {
			return err
		}
		if value.IsEmpty(v) || slices.Contains(spec.PossibleValues, v) {
			continue
		}
		return fmt.Errorf("%w: value '%v' for property '%s' is not one of %v", ErrValueNotAllowed, v, spec.Name, spec.PossibleValues)
	}
	return nil
}

// runValidators invokes the custom validators. An error from Validate is
// returned unwrapped so its message reaches the caller unchanged.
func runValidators(inst *Instance, specs []FieldSpec) error {
	for _, spec := range specs {
		if spec.Validate == nil && spec.Check == nil {
			continue
		}
		v, err := inst.Value(spec.Property)
		if err != nil {
			return err
		}
		if spec.Validate != nil {
			if err := spec.Validate(v); err != nil {
				return err
			}
			continue
		}
		if !spec.Check(v) {
			return fmt.Errorf("%w: the value for property '%s' is invalid", ErrValidationFailed, spec.Name)
		}
	}
	return nil
}
