package runtime

import "github.com/ShayCichocki/plexus/internal/schema"

// stepSchemaDoc is the JSON Schema fragment for one pipeline step.
var stepSchemaDoc = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"plugin_id": map[string]any{
			"type":        "string",
			"description": "id of the plugin owning the executor",
		},
		"action": map[string]any{
			"type":        "string",
			"description": "name of the executor to run",
		},
	},
	"required":             []any{"plugin_id", "action"},
	"additionalProperties": false,
}

// pipelineSchema validates the model-generated plan for a task.
var pipelineSchema = schema.MustNew(
	"pipeline",
	"An ordered plan of plugin actions for handling a trigger event, plus a free-text summary of the memories considered relevant.",
	map[string]any{
		"type": "object",
		"properties": map[string]any{
			"steps": map[string]any{
				"type":        "array",
				"description": "ordered plugin invocations to perform",
				"items":       stepSchemaDoc,
			},
			"related_memories": map[string]any{
				"type":        "string",
				"description": "free-text summary of relevant memories",
			},
		},
		"required":             []any{"steps", "related_memories"},
		"additionalProperties": false,
	},
)

// modificationSchema validates the model's decision about replacing the
// unexecuted tail of a running pipeline.
var modificationSchema = schema.MustNew(
	"pipeline_modification",
	"A decision about whether the steps remaining after the current one should be replaced, and if so by what.",
	map[string]any{
		"type": "object",
		"properties": map[string]any{
			"should_modify": map[string]any{
				"type":        "boolean",
				"description": "whether the remaining steps should change",
			},
			"explanation": map[string]any{
				"type":        "string",
				"description": "reasoning for the decision",
			},
			"modified_steps": map[string]any{
				"description": "replacement for the remaining steps, or null for no change",
				"oneOf": []any{
					map[string]any{"type": "null"},
					map[string]any{"type": "array", "items": stepSchemaDoc},
				},
			},
		},
		"required":             []any{"should_modify", "explanation", "modified_steps"},
		"additionalProperties": false,
	},
)
