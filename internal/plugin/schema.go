// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooltrain Authors

package plugin

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// SchemaID is the published $id for plugin.yaml manifests.
const SchemaID = "https://tooltrain.dev/schemas/plugin.schema.json"

// GetSchemaID returns the schema $id for use in plugin.yaml files.
func GetSchemaID() string { return SchemaID }

// GenerateSchema reflects the Manifest struct into a JSON Schema
// document.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{DoNotReference: true}
	sch := r.Reflect(&Manifest{})
	sch.ID = jsonschema.ID(SchemaID)
	sch.Title = "Tooltrain Plugin Manifest"
	sch.Description = "Schema for plugin.yaml manifest files"

	data, err := json.MarshalIndent(sch, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}

// manifestSchema caches the compiled validator. The schema is derived
// from the Manifest struct, so one compilation serves the process.
var manifestSchema struct {
	mu       sync.Mutex
	compiled *jschema.Schema
}

func compiledSchema() (*jschema.Schema, error) {
	manifestSchema.mu.Lock()
	defer manifestSchema.mu.Unlock()
	if manifestSchema.compiled != nil {
		return manifestSchema.compiled, nil
	}

	raw, err := GenerateSchema()
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema JSON: %w", err)
	}

	c := jschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	sch, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	manifestSchema.compiled = sch
	return sch, nil
}

// ResetSchemaCache drops the compiled validator. Used for testing.
func ResetSchemaCache() {
	manifestSchema.mu.Lock()
	defer manifestSchema.mu.Unlock()
	manifestSchema.compiled = nil
}

// ValidateSchema checks YAML manifest data against the generated JSON
// Schema. It reports structural problems; ParseManifest still applies
// the semantic rules afterwards.
func ValidateSchema(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("manifest data is empty")
	}

	var parsed any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}

	sch, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}
	if err := sch.Validate(toJSONValue(parsed)); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// toJSONValue normalizes YAML-decoded values into the shapes the JSON
// Schema validator expects.
func toJSONValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = toJSONValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = toJSONValue(item)
		}
		return out
	case string, int, int64, float64, bool, nil:
		return val
	default:
		// Round-trip anything exotic through JSON.
		if b, err := json.Marshal(val); err == nil {
			var out any
			if err := json.Unmarshal(b, &out); err == nil {
				return out
			}
		}
		return val
	}
}

// FormatSchemaError renders a validation error for CLI display, without
// the wrapping prefix.
func FormatSchemaError(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimPrefix(err.Error(), "schema validation failed: ")
}
