package typedconfig

import "io"

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry used by the package level
// functions.
func Default() *Registry {
	return defaultRegistry
}

// Add resolves and registers class on the default registry.
func Add(class *Class, opts *Options) (*Instance, error) {
	return defaultRegistry.Add(class, opts)
}

// MustAdd is like Add but panics on error.
func MustAdd(class *Class, opts *Options) *Instance {
	return defaultRegistry.MustAdd(class, opts)
}

// Get returns the instance of class from the default registry.
func Get(class *Class) (*Instance, error) {
	return defaultRegistry.Get(class)
}

// Definitions returns the field definitions of the default registry.
func Definitions() []Definition {
	return defaultRegistry.Definitions()
}

// WriteDefinitions writes the definitions of the default registry as JSON.
func WriteDefinitions(w io.Writer) error {
	return defaultRegistry.WriteDefinitions(w)
}

// TakeSnapshot captures the values of class in the default registry.
func TakeSnapshot(class *Class) (Snapshot, error) {
	return defaultRegistry.TakeSnapshot(class)
}

// RestoreSnapshot restores values of class in the default registry.
func RestoreSnapshot(class *Class, snapshot Snapshot) error {
	return defaultRegistry.RestoreSnapshot(class, snapshot)
}

// FieldMetadata returns the definition of one property of class.
func FieldMetadata(class *Class, property string) (Definition, error) {
	return defaultRegistry.FieldMetadata(class, property)
}

// RemoveAll clears the default registry.
func RemoveAll() {
	defaultRegistry.RemoveAll()
}
