package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/fulmenhq/otapublish/internal/assets"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// MetadataSchema is the registry name of the exported metadata.json schema.
const MetadataSchema = "export-metadata-v0"

// ValidationError represents a single validation error.
type ValidationError struct {
	Path    string `json:"path,omitempty"` // e.g. "fileMetadata.ios.assets.0.ext"
	Message string `json:"message"`
}

// Result holds the validation result.
type Result struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// registry holds pre-compiled schemas for known schema names.
var registry = make(map[string]*gojsonschema.Schema)

func init() {
	for _, info := range assets.GetSchemaNames() {
		schemaBytes, ok := assets.GetSchema(info.Path)
		if !ok || len(schemaBytes) == 0 {
			continue
		}
		schema, err := compileYAML(schemaBytes)
		if err != nil {
			continue
		}
		registry[info.Name] = schema
	}
}

// compileYAML converts a YAML schema to JSON for gojsonschema and compiles it.
func compileYAML(schemaBytes []byte) (*gojsonschema.Schema, error) {
	var schemaData interface{}
	if err := yaml.Unmarshal(schemaBytes, &schemaData); err != nil {
		return nil, err
	}
	jsonBytes, err := json.Marshal(schemaData)
	if err != nil {
		return nil, err
	}
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(jsonBytes))
}

// Validate validates data (interface{}) against the named schema.
func Validate(data interface{}, schemaName string) (*Result, error) {
	return validate(gojsonschema.NewGoLoader(data), schemaName)
}

// ValidateBytes validates a raw JSON document against the named schema.
func ValidateBytes(doc []byte, schemaName string) (*Result, error) {
	return validate(gojsonschema.NewBytesLoader(doc), schemaName)
}

func validate(docLoader gojsonschema.JSONLoader, schemaName string) (*Result, error) {
	schema, ok := registry[schemaName]
	if !ok {
		return nil, fmt.Errorf("schema %s not found in registry", schemaName)
	}

	result, err := schema.Validate(docLoader)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	res := &Result{Valid: result.Valid()}
	if !result.Valid() {
		for _, verr := range result.Errors() {
			field := verr.Field()
			if field == "" || field == "(root)" {
				field = "root"
			}
			res.Errors = append(res.Errors, ValidationError{
				Path:    field,
				Message: verr.Description(),
			})
		}
		sort.SliceStable(res.Errors, func(i, j int) bool { return res.Errors[i].Path < res.Errors[j].Path })
	}

	return res, nil
}
