package manifest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	sigsyaml "sigs.k8s.io/yaml"
)

// manifestSchemaJSON is the JSON Schema a decoded manifest document (root or
// imported module) must satisfy before it is trusted for graph building.
// Kept loose on purpose: the tagged FileEntry union and BuildMode union are
// checked with Go code in validate.go, since JSON Schema's oneOf reporting
// is unreadable compared to a direct Go error.
const manifestSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "name": {"type": "string"},
    "description": {"type": "string"},
    "requires": {"type": "array", "items": {"type": "string"}},
    "image": {
      "type": "object",
      "properties": {
        "label": {"type": "string"},
        "description": {"type": "string"},
        "size": {"type": "integer", "minimum": 1},
        "format": {"type": "string", "enum": ["raw", "qcow2", ""]},
        "partition": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["label", "size"],
            "properties": {
              "label": {"type": "string"},
              "size": {"type": "integer"},
              "filesystem": {"type": "string"},
              "setup": {"type": "string"},
              "requires": {"type": "array", "items": {"type": "string"}},
              "file": {"type": "array"}
            }
          }
        }
      }
    },
    "component": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string"},
          "requires": {"type": "array", "items": {"type": "string"}},
          "yields": {"type": "array", "items": {"type": "string"}},
          "caching": {"type": "string", "enum": ["aggressive", "normal", "transient", ""]},
          "cargo": {"type": "array", "items": {"type": "string"}},
          "shell": {"type": "string"}
        }
      }
    }
  }
}`

var compiledSchema *jsonschema.Schema

func compileSchema() (*jsonschema.Schema, error) {
	if compiledSchema != nil {
		return compiledSchema, nil
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("manifest.json", strings.NewReader(manifestSchemaJSON)); err != nil {
		return nil, fmt.Errorf("compiling manifest schema: %w", err)
	}
	s, err := c.Compile("manifest.json")
	if err != nil {
		return nil, fmt.Errorf("compiling manifest schema: %w", err)
	}
	compiledSchema = s
	return s, nil
}

// validateAgainstSchema converts a TOML-decoded generic document to JSON via
// sigs.k8s.io/yaml (the same round-trip Kubernetes manifests use to validate
// YAML/TOML-sourced config against OpenAPI/JSON schemas) and runs it through
// the compiled JSON Schema.
func validateAgainstSchema(raw map[string]interface{}) error {
	schema, err := compileSchema()
	if err != nil {
		return err
	}

	yamlBytes, err := sigsyaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("re-encoding manifest for schema validation: %w", err)
	}
	jsonBytes, err := sigsyaml.YAMLToJSON(yamlBytes)
	if err != nil {
		return fmt.Errorf("re-encoding manifest for schema validation: %w", err)
	}

	var doc interface{}
	if err := json.Unmarshal(jsonBytes, &doc); err != nil {
		return fmt.Errorf("decoding re-encoded manifest: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("manifest failed schema validation: %w", err)
	}
	return nil
}
