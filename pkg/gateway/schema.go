package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaFor reflects a JSON Schema (as a JSON-decoded map, the shape
// Request.OutputSchema expects) from a Go type, using the same
// invopop/jsonschema reflector the teacher codebase uses for its config
// builder UI schema (cmd/hector schema command). v should be a pointer to
// the zero value of the target type, e.g. SchemaFor(&RankedFile{}).
func SchemaFor(v any) (map[string]any, error) {
	reflector := &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}

	schema := reflector.Reflect(v)
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("gateway: marshal reflected schema: %w", err)
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("gateway: decode reflected schema: %w", err)
	}
	return out, nil
}

// ValidateAgainstSchema performs a structural check of a decoded JSON value
// against a JSON Schema map: object "type"/"properties"/"required", array
// "items", and "enum"/"type" leaf constraints. It intentionally does not
// implement the full JSON Schema spec (no $ref, no oneOf/anyOf/allOf,
// no format validators) — the schemas the gateway validates against are
// always produced by SchemaFor or by the discovery/generator prompts
// themselves, never by an untrusted third party, so this subset is
// sufficient to catch the failure mode the spec cares about: the model
// returned JSON that merely resembles the requested shape.
func ValidateAgainstSchema(value any, schema map[string]any) error {
	return validateNode(value, schema, "$")
}

func validateNode(value any, schema map[string]any, path string) error {
	if schema == nil {
		return nil
	}

	if rawType, ok := schema["type"]; ok {
		if err := validateType(value, rawType, path); err != nil {
			return err
		}
	}

	if rawEnum, ok := schema["enum"]; ok {
		if err := validateEnum(value, rawEnum, path); err != nil {
			return err
		}
	}

	switch typed := value.(type) {
	case map[string]any:
		if err := validateObject(typed, schema, path); err != nil {
			return err
		}
	case []any:
		if items, ok := schema["items"].(map[string]any); ok {
			for i, elem := range typed {
				if err := validateNode(elem, items, fmt.Sprintf("%s[%d]", path, i)); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func validateObject(obj map[string]any, schema map[string]any, path string) error {
	required, _ := schema["required"].([]any)
	for _, r := range required {
		name, ok := r.(string)
		if !ok {
			continue
		}
		if _, present := obj[name]; !present {
			return fmt.Errorf("%s: missing required field %q", path, name)
		}
	}

	properties, _ := schema["properties"].(map[string]any)
	for name, propSchemaRaw := range properties {
		v, present := obj[name]
		if !present {
			continue
		}
		propSchema, ok := propSchemaRaw.(map[string]any)
		if !ok {
			continue
		}
		if err := validateNode(v, propSchema, fmt.Sprintf("%s.%s", path, name)); err != nil {
			return err
		}
	}

	return nil
}

func validateType(value any, rawType any, path string) error {
	wantedTypes := toStringSlice(rawType)
	if len(wantedTypes) == 0 {
		return nil
	}

	for _, want := range wantedTypes {
		if matchesJSONType(value, want) {
			return nil
		}
	}
	return fmt.Errorf("%s: value %#v does not match type %v", path, value, wantedTypes)
}

func toStringSlice(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func matchesJSONType(value any, want string) bool {
	switch want {
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "number":
		_, ok := value.(float64)
		return ok
	case "integer":
		f, ok := value.(float64)
		return ok && f == float64(int64(f))
	case "null":
		return value == nil
	default:
		return true
	}
}

func validateEnum(value any, rawEnum any, path string) error {
	options, ok := rawEnum.([]any)
	if !ok {
		return nil
	}
	for _, opt := range options {
		if opt == value {
			return nil
		}
	}
	return fmt.Errorf("%s: value %#v not among enum %v", path, value, options)
}
