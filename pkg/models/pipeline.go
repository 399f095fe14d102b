package models

import (
	"encoding/json"
	"fmt"
)

// PipelineStep is a late-bound reference to one plugin executor. The pair is
// resolved against the plugin registry at execution time, so an invalid
// reference is a runtime error rather than a construction error.
type PipelineStep struct {
	// PluginID names the plugin owning the executor.
	PluginID string `json:"plugin_id"`
	// Action names the executor within the plugin.
	Action string `json:"action"`
}

// String returns the step as "pluginID:action".
func (s PipelineStep) String() string {
	return fmt.Sprintf("%s:%s", s.PluginID, s.Action)
}

// Pipeline is the model-generated plan for a task.
type Pipeline struct {
	// Steps is the ordered list of plugin invocations to perform.
	Steps []PipelineStep `json:"steps"`
	// RelatedMemories is a free-text summary of memories the model judged
	// relevant while planning, kept for relevance grounding.
	RelatedMemories string `json:"related_memories"`
}

// PipelineModification is the model's decision, after a step has executed,
// about whether the remaining steps should be replaced.
type PipelineModification struct {
	// ShouldModify indicates whether the unexecuted tail should change.
	ShouldModify bool `json:"should_modify"`
	// Explanation is the model's reasoning for the decision.
	Explanation string `json:"explanation"`
	// ModifiedSteps replaces every step after the current one when
	// ShouldModify is true. Nil means no replacement even if ShouldModify
	// was set.
	ModifiedSteps []PipelineStep `json:"modified_steps"`
}

// PluginResult is the outcome of executing one plugin executor.
type PluginResult struct {
	// Success indicates whether the executor completed its action.
	Success bool `json:"success"`
	// Data holds the executor's output fields on success.
	Data map[string]any `json:"data,omitempty"`
	// Error is the failure description when Success is false.
	Error string `json:"error,omitempty"`
}

// EncodeData returns the JSON encoding of the result data, or an empty
// string when there is none.
func (r PluginResult) EncodeData() string {
	if len(r.Data) == 0 {
		return ""
	}
	b, err := json.Marshal(r.Data)
	if err != nil {
		return ""
	}
	return string(b)
}
