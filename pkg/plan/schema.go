package plan

// Document is the JSON schema a plan must satisfy before it is even
// unmarshaled. Malformed plans are refused outright: there is no repair
// pass and no fallback plan, a planner failure must surface as one.
const Document = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["name", "steps"],
	"properties": {
		"workflow_id": {"type": "string"},
		"name": {"type": "string", "minLength": 1},
		"steps": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["step_id", "type", "name"],
				"properties": {
					"step_id": {"type": "string", "minLength": 1},
					"description": {"type": "string"},
					"type": {"type": "string", "enum": ["tool", "handler"]},
					"name": {"type": "string", "minLength": 1},
					"inputs": {"type": "object"},
					"outputs": {
						"type": "array",
						"items": {"type": "string"}
					},
					"depends_on": {
						"type": "array",
						"items": {
							"oneOf": [
								{"type": "string", "minLength": 1},
								{
									"type": "object",
									"required": ["task_id"],
									"properties": {
										"task_id": {"type": "string", "minLength": 1},
										"tolerate_failure": {"type": "boolean"}
									}
								}
							]
						}
					},
					"max_retries": {"type": "integer", "minimum": 0},
					"retry_delay_seconds": {"type": "number", "minimum": 0}
				}
			}
		}
	}
}`
