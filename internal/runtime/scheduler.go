package runtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ShayCichocki/plexus/internal/memory"
	"github.com/ShayCichocki/plexus/pkg/models"
)

// Scheduler owns the task queue. Tasks are processed strictly in enqueue
// order by a single cooperative worker: at most one task is in flight at any
// time, and a slow step delays everything queued behind it. That head-of-line
// blocking is deliberate; ordering beats throughput here.
type Scheduler struct {
	processor *Processor
	memory    memory.Manager
	baseCtx   context.Context

	mu      sync.Mutex
	queue   []*models.AgentTask
	running bool
	wg      sync.WaitGroup
}

// NewScheduler creates a Scheduler. baseCtx bounds all task processing; a
// nil context defaults to context.Background().
func NewScheduler(baseCtx context.Context, processor *Processor, mem memory.Manager) *Scheduler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Scheduler{processor: processor, memory: mem, baseCtx: baseCtx}
}

// QueueTask constructs a task for the trigger, enqueues it, and kicks the
// worker cycle if it is idle. The call never blocks waiting for the task to
// complete.
func (s *Scheduler) QueueTask(trigger models.Context, space models.Space) {
	task := models.NewAgentTask(trigger, space)

	s.mu.Lock()
	s.queue = append(s.queue, task)
	s.wg.Add(1)
	start := !s.running
	if start {
		s.running = true
	}
	s.mu.Unlock()

	if start {
		go s.cycle()
	}
}

// Pending returns how many tasks are waiting in the queue.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Wait blocks until every task queued so far has finished processing.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// cycle drains the queue one task at a time. The running flag ensures a
// concurrent enqueue never starts a second cycle; it is cleared only when
// the queue is observed empty under the lock.
func (s *Scheduler) cycle() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		task := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.execute(task)
		s.wg.Done()
	}
}

// execute processes one task: persist the initial record, run the pipeline,
// persist the final context chain. A failure anywhere is logged and the
// cycle moves on; a failing task is never retried or re-queued.
//
// When Spawn fails mid-pipeline the chain accumulated so far is still
// persisted, with the failure recorded in the memory metadata, so the stored
// record is never left empty.
func (s *Scheduler) execute(task *models.AgentTask) {
	memoryID, err := s.memory.StoreMemory(s.baseCtx, task)
	if err != nil {
		debugLog("[scheduler] store memory failed for space %s: %v", task.Space.ID, err)
		return
	}

	chain, spawnErr := s.processor.Spawn(s.baseCtx, task)
	if spawnErr != nil {
		debugLog("[scheduler] task failed in space %s: %v", task.Space.ID, spawnErr)
	}

	serialized, err := json.Marshal(chain)
	if err != nil {
		debugLog("[scheduler] serialize context chain failed for memory %s: %v", memoryID, err)
		return
	}

	patch := memory.Patch{Context: ptr(string(serialized))}
	if spawnErr != nil {
		patch.Metadata = map[string]any{"error": spawnErr.Error()}
	}
	if err := s.memory.UpdateMemory(s.baseCtx, memoryID, patch); err != nil {
		debugLog("[scheduler] update memory %s failed: %v", memoryID, err)
	}
}

func ptr(s string) *string {
	return &s
}
