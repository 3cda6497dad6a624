// Package schemas validates checkpoint snapshots and crawl payloads against
// the JSON Schema documents embedded from the top-level schemas directory.
package schemas

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	rootschemas "github.com/jonathan/prflow/schemas"
)

// Schema names accepted by Validate.
const (
	Companies     = "companies"
	PressReleases = "press_releases"
	CrawlResult   = "crawl_result"
	common        = "common"
)

// dependencies lists the documents each schema references.
var dependencies = map[string][]string{
	Companies:     {common},
	PressReleases: {common, CrawlResult},
	CrawlResult:   {common},
}

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Schema string
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	if ve.Schema != "" {
		sb.WriteString(fmt.Sprintf("%s validation failed:\n", ve.Schema))
	} else {
		sb.WriteString("validation failed:\n")
	}
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

var (
	compiledMu sync.Mutex
	compiled   = map[string]*gojsonschema.Schema{}
)

func loaderFor(fsys fs.FS, name string) (gojsonschema.JSONLoader, error) {
	path := name + ".schema.json"
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, &SchemaLoadError{Path: path, Message: "schema not found", Cause: err}
	}
	return gojsonschema.NewBytesLoader(data), nil
}

// load compiles the named embedded schema once.
func load(name string) (*gojsonschema.Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()

	if s, ok := compiled[name]; ok {
		return s, nil
	}
	deps, ok := dependencies[name]
	if !ok {
		return nil, &SchemaLoadError{Path: name, Message: "unknown schema"}
	}

	sl := gojsonschema.NewSchemaLoader()
	for _, dep := range deps {
		l, err := loaderFor(rootschemas.FS, dep)
		if err != nil {
			return nil, err
		}
		if err := sl.AddSchemas(l); err != nil {
			return nil, &SchemaLoadError{Path: dep, Message: "invalid schema", Cause: err}
		}
	}
	mainLoader, err := loaderFor(rootschemas.FS, name)
	if err != nil {
		return nil, err
	}
	s, err := sl.Compile(mainLoader)
	if err != nil {
		return nil, &SchemaLoadError{Path: name, Message: "failed to compile", Cause: err}
	}
	compiled[name] = s
	return s, nil
}

// Validate checks a JSON document against the named embedded schema.
func Validate(name string, document []byte) error {
	s, err := load(name)
	if err != nil {
		return err
	}
	if !json.Valid(document) {
		return &ValidationError{
			Schema: name,
			Errors: []FieldError{{Field: "(root)", Message: "document is not valid JSON"}},
		}
	}
	result, err := s.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return fmt.Errorf("failed to validate %s: %w", name, err)
	}
	return toValidationError(name, result)
}

// ValidateValue marshals v and validates it against the named schema.
func ValidateValue(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	return Validate(name, data)
}

// ValidateJSONString validates JSON string content against schema string content
func ValidateJSONString(schemaContent, jsonContent string) error {
	schemaLoader := gojsonschema.NewStringLoader(schemaContent)
	documentLoader := gojsonschema.NewStringLoader(jsonContent)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &SchemaLoadError{
			Path:    "(string schema)",
			Message: "schema validation failed during load",
			Cause:   err,
		}
	}
	return toValidationError("", result)
}

func toValidationError(name string, result *gojsonschema.Result) error {
	if result.Valid() {
		return nil
	}
	validationErr := &ValidationError{
		Schema: name,
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}
