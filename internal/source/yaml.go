// Package source reads raw configuration input: YAML documents from disk and
// variables from the process environment.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrConfigFileNotFound indicates a required configuration file does not exist.
var ErrConfigFileNotFound = errors.New("configuration file does not exist")

// LoadYAML reads the top-level mapping of the YAML document at path.
//
// The path is tried as given first, then relative to workDir. A missing file
// yields an empty document unless required is set. An empty file is an empty
// document.
func LoadYAML(path, workDir string, required bool) (map[string]any, error) {
	resolved, ok := resolvePath(path, workDir)
	if !ok {
		if required {
			return nil, fmt.Errorf("%w: '%s'", ErrConfigFileNotFound, path)
		}
		return map[string]any{}, nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	doc := map[string]any{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return doc, nil
}

func resolvePath(path, workDir string) (string, bool) {
	if path == "" {
		return "", false
	}
	if fileExists(path) {
		return path, true
	}

	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", false
		}
		workDir = wd
	}
	candidate := filepath.Join(workDir, path)
	if fileExists(candidate) {
		return candidate, true
	}
	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
