package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/plexus/internal/capability"
	"github.com/ShayCichocki/plexus/internal/memory"
	"github.com/ShayCichocki/plexus/internal/plugin"
	"github.com/ShayCichocki/plexus/pkg/models"
)

// planningTemperature keeps pipeline generation deterministic rather than
// creative.
const planningTemperature = 0.2

// timeNow is stubbed in tests.
var timeNow = time.Now

// Processor generates a pipeline for a task, executes its steps in order,
// and re-evaluates the remaining steps after each one.
type Processor struct {
	plugins *plugin.Registry
	memory  memory.Manager
	objects *ObjectClient
}

// NewProcessor creates a Processor.
func NewProcessor(plugins *plugin.Registry, mem memory.Manager, objects *ObjectClient) *Processor {
	return &Processor{plugins: plugins, memory: mem, objects: objects}
}

// Spawn runs the full pipeline lifecycle for a task: generation, execution,
// and per-step re-planning. The context chain accumulated so far is always
// returned, alongside any fatal error, so the caller can persist a partial
// record when a step reference fails to resolve.
func (p *Processor) Spawn(ctx context.Context, task *models.AgentTask) ([]models.Context, error) {
	pipeline := p.generatePipeline(ctx, task)
	debugLog("[processor] pipeline for space %s: %d steps", task.Space.ID, len(pipeline.Steps))

	if err := p.executePipeline(ctx, task, pipeline); err != nil {
		return task.ContextChain, err
	}
	return task.ContextChain, nil
}

// pluginSummary is the planner-facing description of one registered plugin.
type pluginSummary struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Executors   []executorSummary `json:"executors"`
}

type executorSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// generatePipeline plans the step sequence for a task. The only vocabulary
// the model may use is the currently-registered plugin executors. A planning
// failure is recoverable: the task degrades to an empty pipeline and
// completes with just its trigger in the context chain.
func (p *Processor) generatePipeline(ctx context.Context, task *models.AgentTask) models.Pipeline {
	summaries := make([]pluginSummary, 0)
	for _, pl := range p.plugins.Plugins() {
		summary := pluginSummary{
			ID:          pl.ID,
			Name:        pl.Name,
			Description: pl.Description,
			Executors:   make([]executorSummary, 0, len(pl.Executors)),
		}
		for _, exec := range pl.Executors {
			summary.Executors = append(summary.Executors, executorSummary{
				Name:        exec.Name,
				Description: exec.Description,
			})
		}
		summaries = append(summaries, summary)
	}

	var history []memory.ConversationMessage
	if task.Trigger.IsUserInput() {
		user := metadataString(task.Trigger.Metadata, "user")
		platform := metadataString(task.Trigger.Metadata, "platform")
		fetched, err := p.memory.GetRecentConversationHistory(ctx, user, platform)
		if err != nil {
			debugLog("[processor] conversation history fetch failed: %v", err)
		} else {
			history = fetched
		}
	}

	prompt := fmt.Sprintf(pipelineGenerationPrompt,
		encodeForPrompt(task.Trigger),
		encodeForPrompt(summaries),
		encodeForPrompt(history),
	)

	raw, err := p.objects.GetObject(ctx, pipelineSchema, prompt,
		capability.WithConfig(map[string]any{"temperature": planningTemperature}))
	if err != nil {
		debugLog("[processor] pipeline generation failed, using empty pipeline: %v", err)
		return models.Pipeline{}
	}

	var pipeline models.Pipeline
	if err := json.Unmarshal(raw, &pipeline); err != nil {
		debugLog("[processor] pipeline decode failed, using empty pipeline: %v", err)
		return models.Pipeline{}
	}
	return pipeline
}

// executePipeline walks the pipeline one step at a time. After every step
// the remaining steps are re-evaluated; a modification replaces only the
// tail strictly after the current index, so already-executed steps are never
// re-run or removed. The loop bound is re-read each iteration, so a
// modification that grows the tail extends execution and one that shrinks it
// ends the task earlier.
func (p *Processor) executePipeline(ctx context.Context, task *models.AgentTask, pipeline models.Pipeline) error {
	steps := append([]models.PipelineStep(nil), pipeline.Steps...)

	for i := 0; i < len(steps); i++ {
		step := steps[i]
		if step.PluginID == "" {
			// A hole left by an earlier mutation; skip it rather than fail.
			debugLog("[processor] skipping empty step at index %d", i)
			continue
		}

		exec, err := p.plugins.Resolve(step.PluginID, step.Action)
		if err != nil {
			// Unresolvable references are fatal to the task, not the queue.
			return fmt.Errorf("resolve step %d (%s): %w", i, step, err)
		}

		result, execErr := exec.Fn(ctx, task)
		if execErr != nil {
			result = models.PluginResult{Success: false, Error: execErr.Error()}
		}
		p.appendStepResult(task, step, result)

		mod := p.evaluateModification(ctx, task, step, steps)
		if mod.ShouldModify && mod.ModifiedSteps != nil {
			// Full-slice expression so the frozen prefix is never shared
			// with the replaced tail.
			steps = append(steps[:i+1:i+1], mod.ModifiedSteps...)
			debugLog("[processor] pipeline modified after step %d: %s (now %d steps)", i, mod.Explanation, len(steps))
		}
	}
	return nil
}

// appendStepResult records a step outcome on the context chain. Failures
// become error items fed forward so later steps and modifications can react;
// successes carry the result data merged into the item.
func (p *Processor) appendStepResult(task *models.AgentTask, step models.PipelineStep, result models.PluginResult) {
	if !result.Success {
		failed := step
		task.ContextChain = append(task.ContextChain, models.Context{
			ID:         uuid.NewString(),
			PluginID:   step.PluginID,
			Type:       models.ContextTypeError,
			Action:     step.Action,
			Content:    result.Error,
			Error:      result.Error,
			FailedStep: &failed,
			Timestamp:  timeNow(),
		})
		return
	}
	if result.Data == nil {
		return
	}
	task.ContextChain = append(task.ContextChain, models.Context{
		ID:        uuid.NewString(),
		PluginID:  step.PluginID,
		Type:      step.Action,
		Action:    step.Action,
		Content:   result.EncodeData(),
		Data:      result.Data,
		Timestamp: timeNow(),
	})
}

// evaluateModification asks the model whether the unexecuted tail should
// change. Failures here are never fatal; they degrade to "no change".
func (p *Processor) evaluateModification(ctx context.Context, task *models.AgentTask, current models.PipelineStep, steps []models.PipelineStep) models.PipelineModification {
	prompt := fmt.Sprintf(pipelineModificationPrompt,
		encodeForPrompt(task.ContextChain),
		encodeForPrompt(current),
		encodeForPrompt(steps),
	)

	raw, err := p.objects.GetObject(ctx, modificationSchema, prompt,
		capability.WithConfig(map[string]any{"temperature": planningTemperature}))
	if err != nil {
		debugLog("[processor] modification evaluation failed, keeping pipeline: %v", err)
		return models.PipelineModification{}
	}

	var mod models.PipelineModification
	if err := json.Unmarshal(raw, &mod); err != nil {
		debugLog("[processor] modification decode failed, keeping pipeline: %v", err)
		return models.PipelineModification{}
	}
	return mod
}

// encodeForPrompt renders a value as indented JSON for prompt inclusion.
func encodeForPrompt(v any) string {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(encoded)
}

func metadataString(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	if v, ok := metadata[key].(string); ok {
		return v
	}
	return ""
}
