// Package config loads YAML configuration files with ${ENV} expansion.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is implemented by configurations that check themselves after
// loading.
type Validator interface {
	Validate() error
}

// Load reads filename, expands ${VAR} references from the process
// environment and decodes the result into target. Keys absent from the
// file keep whatever values target already holds, so callers can
// pre-populate defaults; unknown keys are rejected to catch misspelled
// settings early. When target implements Validator, the decoded value is
// validated before Load returns.
func Load[T any](filename string, target *T) error {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read config %s: %w", filename, err)
	}

	dec := yaml.NewDecoder(bytes.NewBufferString(os.ExpandEnv(string(raw))))
	dec.KnownFields(true)
	// An empty file decodes to io.EOF; treat it as "all defaults".
	if err := dec.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", filename, err)
	}

	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("validate config %s: %w", filename, err)
		}
	}

	return nil
}
