package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// breakdownSchema validates the JSON the model returns for a breakdown
// request. The model is also handed an equivalent response schema in the
// request, but its output is not trusted without a local check.
const breakdownSchema = `{
  "type": "object",
  "properties": {
    "steps": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "step": {"type": "string", "minLength": 1},
          "description": {"type": "string"}
        },
        "required": ["step", "description"]
      },
      "minItems": 1
    }
  },
  "required": ["steps"]
}`

var compiledBreakdownSchema = mustCompileSchema("breakdown.json", breakdownSchema)

func mustCompileSchema(name, src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
		panic(fmt.Sprintf("add schema resource %s: %v", name, err))
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("compile schema %s: %v", name, err))
	}
	return schema
}

// validateBreakdownJSON checks raw model output against the breakdown schema.
func validateBreakdownJSON(raw []byte) error {
	var obj interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("parse breakdown response: %w", err)
	}
	if err := compiledBreakdownSchema.Validate(obj); err != nil {
		return fmt.Errorf("breakdown response does not match schema: %w", err)
	}
	return nil
}

// responseSchema is the schema sent to the model in generationConfig so it
// answers with structured JSON, mirroring the local validation schema.
func responseSchema() map[string]any {
	return map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"steps": map[string]any{
				"type": "ARRAY",
				"items": map[string]any{
					"type": "OBJECT",
					"properties": map[string]any{
						"step":        map[string]any{"type": "STRING"},
						"description": map[string]any{"type": "STRING"},
					},
					"required": []string{"step", "description"},
				},
			},
		},
		"required": []string{"steps"},
	}
}
