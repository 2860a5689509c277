package taskcomposer

import "sync"

// TaskDependencies tracks how many predecessor tasks must still
// complete before this dependency node is satisfied, plus the
// condition variable Wait needs to block a synchronous caller.
// Mirrors Luna/Include/Luna/Threading/Threading.hpp's TaskDependencies,
// generalized from its intrusive-refcounted notify list to a plain
// slice of callbacks -- Go's GC removes the need for the refcounting
// Luna does to keep a TaskDependencies alive while callbacks still
// reference it.
type TaskDependencies struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending int
	done    bool
	onDone  []func()
}

// NewTaskDependencies returns an empty dependency node with no pending
// predecessors; the zero value is not usable because cond must be bound
// to mu.
func NewTaskDependencies() *TaskDependencies {
	d := &TaskDependencies{}
	d.cond = sync.NewCond(&d.mu)
	return d
}

func (d *TaskDependencies) addPending(n int) {
	d.mu.Lock()
	d.pending += n
	d.mu.Unlock()
}

// onComplete registers fn to run once every pending predecessor has
// completed. If the node is already done, fn runs immediately (on the
// caller's goroutine) instead of being queued.
func (d *TaskDependencies) onComplete(fn func()) {
	d.mu.Lock()
	if d.done {
		d.mu.Unlock()
		fn()
		return
	}
	d.onDone = append(d.onDone, fn)
	d.mu.Unlock()
}

// seal marks the node done immediately if no tasks were ever attached
// to it (pending == 0); a TaskGroup that collects zero tasks between
// two pipeline stages must still unblock its dependents and its own
// Wait callers.
func (d *TaskDependencies) seal() {
	d.complete()
}

// TaskCompleted is invoked by the worker pool once a task carrying this
// dependency node finishes running.
func (d *TaskDependencies) TaskCompleted() {
	d.mu.Lock()
	d.pending--
	d.mu.Unlock()
	d.complete()
}

func (d *TaskDependencies) complete() {
	d.mu.Lock()
	if d.done || d.pending > 0 {
		d.mu.Unlock()
		return
	}
	d.done = true
	callbacks := d.onDone
	d.onDone = nil
	d.mu.Unlock()

	d.cond.Broadcast()
	for _, fn := range callbacks {
		fn()
	}
}

// Wait blocks the calling goroutine until every task registered against
// this node has completed.
func (d *TaskDependencies) Wait() {
	d.mu.Lock()
	for !d.done {
		d.cond.Wait()
	}
	d.mu.Unlock()
}

// joinOn fires `fire` once every TaskDependencies in preds has
// completed; fires synchronously if preds is empty.
func joinOn(preds []*TaskDependencies, fire func()) {
	if len(preds) == 0 {
		fire()
		return
	}
	remaining := len(preds)
	var mu sync.Mutex
	arrive := func() {
		mu.Lock()
		remaining--
		done := remaining == 0
		mu.Unlock()
		if done {
			fire()
		}
	}
	for _, p := range preds {
		p.onComplete(arrive)
	}
}

// TaskGroup batches tasks that all become eligible to run once the same
// set of predecessor groups has finished, per spec.md §4.7. Mirrors
// Luna's TaskGroup.
type TaskGroup struct {
	pool *WorkerPool
	deps *TaskDependencies

	mu               sync.Mutex
	tasks            []*Task
	sealed           bool
	released         bool
	predecessorsDone bool
}

// newTaskGroup creates a group gated on preds completing. Release
// (submission to the pool) additionally requires the group to be
// sealed -- a predecessor may finish before the caller has had a chance
// to Enqueue anything into the new group, and Enqueue must still be
// legal until the caller explicitly closes the stage.
func newTaskGroup(pool *WorkerPool, preds []*TaskDependencies) *TaskGroup {
	g := &TaskGroup{pool: pool, deps: NewTaskDependencies()}
	if len(preds) == 0 {
		g.predecessorsDone = true
	} else {
		joinOn(preds, g.markPredecessorsDone)
	}
	return g
}

func (g *TaskGroup) markPredecessorsDone() {
	g.mu.Lock()
	g.predecessorsDone = true
	sealed := g.sealed
	g.mu.Unlock()
	if sealed {
		g.release()
	}
}

// Enqueue adds fn as one task in this group. Enqueue after the group
// has been sealed (by a later BeginPipelineStage or GetOutgoingTask
// call) is a programmer error, mirroring the §4.3 CommandBuffer
// discipline of not returning per-call results for precondition
// violations -- it panics rather than silently dropping the task.
func (g *TaskGroup) Enqueue(fn func(threadID int)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sealed {
		panic("taskcomposer: Enqueue after TaskGroup was sealed")
	}
	g.deps.addPending(1)
	g.tasks = append(g.tasks, &Task{Dependencies: g.deps, Function: fn})
}

// seal freezes the task list; no further Enqueue calls are accepted.
// Safe to call more than once.
func (g *TaskGroup) seal() {
	g.mu.Lock()
	if g.sealed {
		g.mu.Unlock()
		return
	}
	g.sealed = true
	empty := len(g.tasks) == 0
	predsDone := g.predecessorsDone
	g.mu.Unlock()

	if empty {
		g.deps.seal()
	}
	if predsDone {
		g.release()
	}
}

// release submits this group's sealed tasks to the pool. A no-op past
// the first call; only takes effect once both sealed and
// predecessorsDone are true.
func (g *TaskGroup) release() {
	g.mu.Lock()
	if g.released {
		g.mu.Unlock()
		return
	}
	g.released = true
	tasks := g.tasks
	g.mu.Unlock()
	if len(tasks) > 0 {
		g.pool.SubmitTasks(tasks)
	}
}

// Wait blocks until every task enqueued into this group has completed.
func (g *TaskGroup) Wait() { g.deps.Wait() }

// TaskComposer chains a sequence of pipeline stages on top of a shared
// WorkerPool: tasks enqueued into the group returned by
// BeginPipelineStage never start before every task from the previous
// stage (plus any deferred groups attached since) has completed.
// Mirrors spec.md §4.7 and Luna's TaskComposer.
type TaskComposer struct {
	pool     *WorkerPool
	current  *TaskGroup
	deferred []*TaskGroup
}

// NewTaskComposer returns a composer with no stages yet begun; the
// first BeginPipelineStage call returns a group with no predecessors.
func NewTaskComposer(pool *WorkerPool) *TaskComposer {
	return &TaskComposer{pool: pool}
}

// BeginPipelineStage seals the current stage (if any) together with
// every group registered via GetDeferredEnqueueHandle since the last
// call, and returns a fresh TaskGroup gated on all of them completing.
func (c *TaskComposer) BeginPipelineStage() *TaskGroup {
	var preds []*TaskGroup
	if c.current != nil {
		preds = append(preds, c.current)
	}
	preds = append(preds, c.deferred...)
	c.deferred = nil

	predDeps := make([]*TaskDependencies, len(preds))
	for i, p := range preds {
		predDeps[i] = p.deps
		p.seal()
	}

	next := newTaskGroup(c.pool, predDeps)
	c.current = next
	return next
}

// GetOutgoingTask finalizes the chain: seals the current stage (running
// it immediately if it has no predecessor left to wait on) and returns
// it so the caller can attach further external dependencies -- e.g.
// Wait for the whole chain, or feed the group into another composer's
// GetDeferredEnqueueHandle.
func (c *TaskComposer) GetOutgoingTask() *TaskGroup {
	if c.current == nil {
		c.current = newTaskGroup(c.pool, nil)
	}
	c.current.seal()
	return c.current
}

// GetDeferredEnqueueHandle returns a TaskGroup the caller may Enqueue
// into at any point before the next BeginPipelineStage call; that call
// folds this group into the next stage's predecessor set alongside the
// stage being closed out. Used for work that must finish before the
// next stage starts but that does not itself belong to the current
// stage (e.g. a background upload kicked off mid-stage).
func (c *TaskComposer) GetDeferredEnqueueHandle() *TaskGroup {
	g := newTaskGroup(c.pool, nil)
	// A deferred handle's own tasks are the only thing gating it, so it
	// has no predecessors at creation; sealing (and release, once its
	// own tasks are enqueued) happens when the next BeginPipelineStage
	// call folds it in.
	c.deferred = append(c.deferred, g)
	return g
}
