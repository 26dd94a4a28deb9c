package schema

import "github.com/joseph-ayodele/termsheet-validator/internal/fields"

var nullableString = map[string]any{"type": []any{"string", "null"}}

var numeric = map[string]any{
	"oneOf": []any{
		map[string]any{"type": "number"},
		map[string]any{"type": "string", "pattern": `^\s*-?[\d,]+(\.\d+)?\s*$`},
		map[string]any{"type": "null"},
	},
}

func fieldMapSchema() map[string]any {
	props := map[string]any{}
	for _, n := range fields.Vocabulary {
		k, _ := fields.KindOf(n)
		if k == fields.KindDecimal {
			props[string(n)] = numeric
		} else {
			props[string(n)] = nullableString
		}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
}

var issueSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"rule_id":     map[string]any{"type": "string"},
		"description": map[string]any{"type": "string"},
		"severity":    map[string]any{"type": "string"},
	},
}

// FieldMap validates the body of the field evaluation endpoint.
var FieldMap = MustCompile("field_map", fieldMapSchema())

// DetailedChat validates /api/term-sheets/chat bodies.
var DetailedChat = MustCompile("term_sheet_chat", map[string]any{
	"type":     "object",
	"required": []any{"message"},
	"properties": map[string]any{
		"message":         map[string]any{"type": "string", "minLength": 1},
		"term_sheet_data": map[string]any{"type": []any{"object", "null"}},
		"validation_results": map[string]any{
			"type": []any{"object", "null"},
			"properties": map[string]any{
				"is_valid":   map[string]any{"type": "boolean"},
				"risk_score": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
				"issues":     map[string]any{"type": "array", "items": issueSchema},
			},
		},
		"chat_history": map[string]any{
			"type": []any{"array", "null"},
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"role":    map[string]any{"type": "string"},
					"content": map[string]any{"type": "string"},
				},
			},
		},
	},
})

// SummaryChat validates /api/chat bodies.
var SummaryChat = MustCompile("chat", map[string]any{
	"type":     "object",
	"required": []any{"message"},
	"properties": map[string]any{
		"message": map[string]any{"type": "string", "minLength": 1},
		"termSheetData": map[string]any{
			"type": []any{"object", "null"},
			"properties": map[string]any{
				"status":    map[string]any{"type": "string"},
				"riskScore": map[string]any{"type": "number"},
				"issues": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"severity":    map[string]any{"type": "string"},
							"description": map[string]any{"type": "string"},
						},
					},
				},
			},
		},
		"validation_results": map[string]any{"type": []any{"object", "null"}},
	},
})
