package runtime

// Prompt templates for structured-output calls. The schema document is
// appended separately by the object client; these set up the task framing.

// generateObjectPrompt frames the first attempt at producing a JSON value.
const generateObjectPrompt = `You are a JSON generator. Produce a single JSON value that satisfies the schema below.

%s

Task:
%s

IMPORTANT:
- Respond with the JSON value only
- Do not include any text before or after the JSON
- Do not wrap the JSON in markdown code fences
- Ensure the JSON is valid and complete`

// retryObjectPrompt frames attempts after a failed parse or validation. It
// carries the previous raw response and the validation error so the model
// can self-correct.
const retryObjectPrompt = `You are a JSON generator. Your previous attempt to produce a JSON value did not satisfy the schema below.

%s

Task:
%s

Your previous response:
%s

The problem with it:
%s

IMPORTANT:
- Fix the problem and respond with the corrected JSON value only
- Do not include any text before or after the JSON
- Do not wrap the JSON in markdown code fences`

// pipelineGenerationPrompt asks the model to plan a pipeline for a trigger.
// Available plugins and conversation history are rendered as JSON.
const pipelineGenerationPrompt = `You are the planner for a plugin pipeline runtime. A trigger event arrived and you must plan the ordered sequence of plugin actions that handles it.

Trigger:
%s

Available plugins and their executors (the only actions you may reference):
%s

Recent conversation history:
%s

Plan the pipeline. Reference plugins and actions exactly by the ids and names listed above. Prefer the shortest pipeline that fully handles the trigger. If nothing needs to happen, return an empty steps array. Summarize any memories you relied on in related_memories.`

// pipelineModificationPrompt asks the model whether the remaining steps
// should change after one step has executed.
const pipelineModificationPrompt = `You are supervising a running plugin pipeline. One step just executed; decide whether the remaining steps still make sense.

Context chain so far:
%s

Step that just executed:
%s

Current pipeline:
%s

Only the steps after the one that just executed may change; everything already executed is fixed. If the remaining steps are still right, set should_modify to false and leave modified_steps null. If they should change, set should_modify to true and put the full replacement for the remaining steps in modified_steps.`
