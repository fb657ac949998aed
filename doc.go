// Package typedconfig binds configuration classes to values from YAML files
// and environment variables.
//
// A Class declares its fields with a name, a type (string, number or
// boolean), a description and optional default, recommended value, allowed
// values and validator. Adding the class to a Registry resolves every field by
// layering three sources, each overriding the previous one:
//
//  1. the declared default values
//  2. the top-level keys of an optional YAML file
//  3. the process environment
//
// Raw strings are coerced to the field type: booleans accept only "true" and
// "false", numbers must be finite. After all sources are applied, required
// fields are checked for a non-empty value and custom validators run. Add
// either registers a fully valid instance or returns an error and registers
// nothing.
//
//	var (
//		Server = typedconfig.NewClass("Server")
//		Port   = typedconfig.MustDeclare[float64](Server, "port", typedconfig.FieldOptions{
//			Name:        "PORT",
//			Description: "HTTP port",
//			Default:     8080,
//		})
//	)
//
//	inst, err := typedconfig.Add(Server, &typedconfig.Options{ConfigFilePath: "config.yml"})
//	port := Port.Get(inst)
//
// The package level functions use a process-wide registry. Tests that need
// isolation create their own with NewRegistry.
//
// A registry is written by one goroutine, normally during start-up, and each
// class is added once. Reads may happen from any goroutine.
package typedconfig
