package selection

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

const schemaBaseURL = "https://ngui-mcp.local/schemas/"

const fieldDef = `{
	"type": "object",
	"properties": {
		"name": {"type": ["string", "number", "null"]},
		"data_path": {"type": "string"}
	}
}`

// Required keys are checked before validation so they map to
// selection.missing_field; the schemas only reject wrong shapes.
var schemaSources = map[string]string{
	"component.json": `{
	"type": "object",
	"properties": {
		"component": {"type": "string"},
		"title": {"type": ["string", "number"]},
		"reason_for_selection": {"type": ["string", "null"]},
		"confidence_score": {"type": ["string", "number", "null"]},
		"chart_type": {"type": ["string", "null"]},
		"fields": {"type": "array", "items": {"$ref": "field.json"}}
	}
}`,
	"fields.json": `{
	"type": "array",
	"items": {"$ref": "field.json"}
}`,
	"field.json": fieldDef,
}

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func compileSchemas() (map[string]*jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		for name, src := range schemaSources {
			if err := c.AddResource(schemaBaseURL+name, strings.NewReader(src)); err != nil {
				schemasErr = fmt.Errorf("failed to load schema %s: %w", name, err)
				return
			}
		}
		schemas = make(map[string]*jsonschema.Schema)
		for _, name := range []string{"component.json", "fields.json"} {
			s, err := c.Compile(schemaBaseURL + name)
			if err != nil {
				schemasErr = fmt.Errorf("failed to compile schema %s: %w", name, err)
				return
			}
			schemas[name] = s
		}
	})
	return schemas, schemasErr
}

// validateShape checks v against the named response schema.
func validateShape(name string, v any) error {
	s, err := compileSchemas()
	if err != nil {
		return types.WrapError(types.CodeInternal, err, "response schemas are broken")
	}
	if err := s[name].Validate(v); err != nil {
		return types.WrapError(types.CodeSelectionMalformedJSON, err, "model response has an unexpected shape")
	}
	return nil
}
