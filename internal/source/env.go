package source

import (
	"os"
	"strings"
)

// Environ returns the variables of environ (os.Environ when nil) as a map.
// When ignoreEmpty is set, variables with an empty value are left out.
func Environ(environ func() []string, ignoreEmpty bool) map[string]string {
	if environ == nil {
		environ = os.Environ
	}

	vars := make(map[string]string)
	for _, kv := range environ() {
		key, val, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		if ignoreEmpty && val == "" {
			continue
		}
		vars[key] = val
	}
	return vars
}
