package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAgainstSchema_RequiredFieldMissing(t *testing.T) {
	schema := map[string]any{
		"type":     "object",
		"required": []any{"name", "score"},
		"properties": map[string]any{
			"name":  map[string]any{"type": "string"},
			"score": map[string]any{"type": "number"},
		},
	}

	err := ValidateAgainstSchema(map[string]any{"name": "x"}, schema)
	assert.ErrorContains(t, err, "score")
}

func TestValidateAgainstSchema_Valid(t *testing.T) {
	schema := map[string]any{
		"type":     "object",
		"required": []any{"name", "score"},
		"properties": map[string]any{
			"name":  map[string]any{"type": "string"},
			"score": map[string]any{"type": "number"},
		},
	}

	err := ValidateAgainstSchema(map[string]any{"name": "x", "score": 0.8}, schema)
	assert.NoError(t, err)
}

func TestValidateAgainstSchema_TypeMismatch(t *testing.T) {
	schema := map[string]any{"type": "string"}
	err := ValidateAgainstSchema(float64(3), schema)
	assert.Error(t, err)
}

func TestValidateAgainstSchema_Enum(t *testing.T) {
	schema := map[string]any{"enum": []any{"pass", "fail"}}
	assert.NoError(t, ValidateAgainstSchema("pass", schema))
	assert.Error(t, ValidateAgainstSchema("maybe", schema))
}

func TestValidateAgainstSchema_ArrayItems(t *testing.T) {
	schema := map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	}
	assert.NoError(t, ValidateAgainstSchema([]any{"a", "b"}, schema))
	assert.Error(t, ValidateAgainstSchema([]any{"a", float64(2)}, schema))
}

func TestValidateAgainstSchema_NestedObject(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"verdict": map[string]any{
				"type":     "object",
				"required": []any{"passed"},
				"properties": map[string]any{
					"passed": map[string]any{"type": "boolean"},
				},
			},
		},
	}
	assert.NoError(t, ValidateAgainstSchema(map[string]any{
		"verdict": map[string]any{"passed": true},
	}, schema))
	assert.Error(t, ValidateAgainstSchema(map[string]any{
		"verdict": map[string]any{},
	}, schema))
}

type schemaFixture struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

func TestSchemaFor_ProducesObjectSchema(t *testing.T) {
	schema, err := SchemaFor(&schemaFixture{})
	assert.NoError(t, err)
	assert.Equal(t, "object", schema["type"])
	_, hasProps := schema["properties"]
	assert.True(t, hasProps)
}
