package config

import (
	"encoding/json"
	"strings"

	verrors "github.com/veilstream/veil/internal/errors"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// definitionSchema validates the structural shape of veil.yaml before the
// typed unmarshal is trusted. Store-specific config keys are free-form, so
// secretStores entries only pin the common fields.
const definitionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "version": {"type": "integer", "minimum": 0, "maximum": 0},
    "masking": {
      "type": "object",
      "properties": {
        "token": {"type": "string", "minLength": 1}
      },
      "additionalProperties": false
    },
    "secretStores": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "type": {"type": "string", "minLength": 1},
          "timeout_ms": {"type": "integer", "minimum": 1}
        },
        "required": ["type"]
      }
    },
    "scopes": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "additionalProperties": {
          "type": "object",
          "properties": {
            "from": {
              "type": "object",
              "properties": {
                "store": {"type": "string", "minLength": 1},
                "key": {"type": "string", "minLength": 1},
                "version": {"type": "string"}
              },
              "required": ["store", "key"],
              "additionalProperties": false
            },
            "literal": {"type": "string"},
            "optional": {"type": "boolean"}
          },
          "additionalProperties": false
        }
      }
    }
  },
  "additionalProperties": false
}`

// validateDefinition checks raw veil.yaml bytes against the schema
func validateDefinition(data []byte) error {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return verrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}

	// Schema validation works on JSON documents
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return verrors.UserError{
			Message:    "Failed to prepare configuration for validation",
			Details:    err.Error(),
			Suggestion: "Check veil.yaml for values that cannot be represented as JSON",
			Err:        err,
		}
	}

	schemaLoader := gojsonschema.NewStringLoader(definitionSchema)
	documentLoader := gojsonschema.NewBytesLoader(jsonData)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return verrors.UserError{
			Message: "Schema validation error",
			Details: err.Error(),
			Err:     err,
		}
	}

	if !result.Valid() {
		var errorMessages []string
		for _, desc := range result.Errors() {
			errorMessages = append(errorMessages, desc.String())
		}
		return verrors.ConfigError{
			Message:    "configuration does not match the expected structure:\n  - " + strings.Join(errorMessages, "\n  - "),
			Suggestion: "Fix the listed fields in veil.yaml",
		}
	}

	return nil
}
