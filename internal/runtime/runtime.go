package runtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ShayCichocki/plexus/internal/capability"
	"github.com/ShayCichocki/plexus/internal/memory"
	"github.com/ShayCichocki/plexus/internal/plugin"
	"github.com/ShayCichocki/plexus/internal/schema"
	"github.com/ShayCichocki/plexus/pkg/models"
)

// Runtime is the surface plugins and the processor program against. Plugins
// receive it by explicit constructor injection; there is no mutable
// back-reference bound after construction.
type Runtime struct {
	resolver  *capability.Resolver
	plugins   *plugin.Registry
	memory    memory.Manager
	objects   *ObjectClient
	processor *Processor
	scheduler *Scheduler
	logger    *DebugLogger
}

// Option configures a Runtime.
type Option func(*options)

type options struct {
	maxRetries int
	logPath    string
}

// WithMaxRetries overrides how many attempts GetObject makes.
func WithMaxRetries(n int) Option {
	return func(o *options) { o.maxRetries = n }
}

// WithDebugLog enables file-backed debug logging at the given path.
func WithDebugLog(path string) Option {
	return func(o *options) { o.logPath = path }
}

// New wires the scheduler, processor, and object client over the supplied
// collaborators. baseCtx bounds all background task processing.
func New(baseCtx context.Context, resolver *capability.Resolver, plugins *plugin.Registry, mem memory.Manager, opts ...Option) (*Runtime, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger, err := NewDebugLogger(o.logPath)
	if err != nil {
		return nil, fmt.Errorf("create debug logger: %w", err)
	}
	setPackageLogger(logger)

	objects := NewObjectClient(resolver, o.maxRetries)
	processor := NewProcessor(plugins, mem, objects)
	scheduler := NewScheduler(baseCtx, processor, mem)

	return &Runtime{
		resolver:  resolver,
		plugins:   plugins,
		memory:    mem,
		objects:   objects,
		processor: processor,
		scheduler: scheduler,
		logger:    logger,
	}, nil
}

// ExecuteCapability invokes a capability through the resolution and
// transform protocol.
func (r *Runtime) ExecuteCapability(ctx context.Context, capabilityID string, input any, opts ...capability.ExecuteOption) (any, error) {
	return r.resolver.ExecuteCapability(ctx, capabilityID, input, opts...)
}

// GetObject obtains a schema-validated JSON value from the text-generation
// capability.
func (r *Runtime) GetObject(ctx context.Context, s schema.Schema, prompt string, opts ...capability.ExecuteOption) (json.RawMessage, error) {
	return r.objects.GetObject(ctx, s, prompt, opts...)
}

// CreateEvent queues a new task for a trigger. It returns immediately; the
// task runs on the scheduler's worker cycle.
func (r *Runtime) CreateEvent(trigger models.Context, space models.Space) {
	r.scheduler.QueueTask(trigger, space)
}

// Memory exposes the memory manager to plugins that need history or
// cross-space queries.
func (r *Runtime) Memory() memory.Manager {
	return r.memory
}

// Wait blocks until all queued tasks have been processed.
func (r *Runtime) Wait() {
	r.scheduler.Wait()
}

// Close flushes and closes the debug logger after draining in-flight work.
func (r *Runtime) Close() error {
	r.scheduler.Wait()
	return r.logger.Close()
}
