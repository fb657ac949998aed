// Package config resolves the settings of the configdoc tool itself. The
// settings are declared as a typedconfig class, so they follow the same
// precedence as any other class (defaults, YAML settings file, environment)
// with command-line flags applied last.
package config
