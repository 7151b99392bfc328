// Package schema validates request payloads against JSON Schema documents
// stored on disk.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationError reports the first constraint a payload violates.
type ValidationError struct {
	Message string
	Path    string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// Validator loads schema documents by file name from a directory. Documents
// are read on every call so edits take effect without a restart.
type Validator struct {
	dir string
}

func New(dir string) *Validator {
	return &Validator{dir: dir}
}

// Validate checks document, a decoded JSON value, against the schema stored
// as schemaID. It returns a *ValidationError for the first violation.
func (v *Validator) Validate(schemaID string, document interface{}) error {
	raw, err := os.ReadFile(filepath.Join(v.dir, filepath.Base(schemaID)))
	if err != nil {
		return fmt.Errorf("load schema %s: %w", schemaID, err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(raw),
		gojsonschema.NewGoLoader(document),
	)
	if err != nil {
		return fmt.Errorf("validate against %s: %w", schemaID, err)
	}
	if result.Valid() {
		return nil
	}

	first := result.Errors()[0]
	return &ValidationError{
		Message: first.Description(),
		Path:    first.Field(),
	}
}

// DecodeJSON parses a request body into a generic value suitable for Validate.
func DecodeJSON(body []byte) (interface{}, error) {
	var document interface{}
	if err := json.Unmarshal(body, &document); err != nil {
		return nil, &ValidationError{Message: "invalid JSON payload"}
	}
	return document, nil
}
