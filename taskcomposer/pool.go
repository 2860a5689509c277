// Package taskcomposer implements a fixed-size worker pool and the
// dependency-graph/pipeline-stage chaining built on top of it. Grounded
// on Luna/Include/Luna/Threading/Threading.hpp: Luna's intrusive-pointer
// refcounted Task/TaskGroup/TaskDependencies triad is re-expressed with
// plain Go pointers (the garbage collector already does what
// IntrusivePtr hand-rolls in C++) and a condition-variable wait per
// TaskDependencies, matching the original's wait discipline exactly.
package taskcomposer

import (
	"sync"
)

// Task is one unit of work: a function to run and the dependency token
// that must be satisfied before a worker picks it up. Function receives
// the id of the worker thread executing it, since command buffers
// recorded by a render graph pass must stay bound to the command pool
// of the thread that recorded them (spec.md §5's single-thread-owner
// invariant for CommandBuffer).
type Task struct {
	Dependencies *TaskDependencies
	Function     func(threadID int)
}

// WorkerPool runs Tasks across a fixed number of goroutines, matching
// Luna's Threading module (one OS thread per entry in _workerThreads).
// A WorkerThreads count of 0 in vkcore.DeviceTuning means "auto": the
// caller is expected to resolve that to runtime.NumCPU()-1 before
// constructing a WorkerPool, since taskcomposer itself has no opinion
// about the host's topology.
type WorkerPool struct {
	mu        sync.Mutex
	cond      *sync.Cond
	queue     []*Task
	running   bool
	wg        sync.WaitGroup
	completed int
	total     int
	waitCond  *sync.Cond
	waitMu    sync.Mutex
}

// NewWorkerPool starts workerCount goroutines waiting for work. A count
// less than 1 is clamped to 1: a pool with zero workers would deadlock
// every TaskGroup.Wait call forever.
func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	p := &WorkerPool{running: true}
	p.cond = sync.NewCond(&p.mu)
	p.waitCond = sync.NewCond(&p.waitMu)
	for i := 0; i < workerCount; i++ {
		p.wg.Add(1)
		go p.workerLoop(i)
	}
	return p
}

func (p *WorkerPool) workerLoop(id int) {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && p.running {
			p.cond.Wait()
		}
		if len(p.queue) == 0 && !p.running {
			p.mu.Unlock()
			return
		}
		t := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.runTask(t, id)
	}
}

func (p *WorkerPool) runTask(t *Task, id int) {
	if t.Function != nil {
		t.Function(id)
	}
	if t.Dependencies != nil {
		t.Dependencies.TaskCompleted()
	}

	p.waitMu.Lock()
	p.completed++
	if p.completed >= p.total {
		p.waitCond.Broadcast()
	}
	p.waitMu.Unlock()
}

// SubmitTasks enqueues tasks for the next idle worker to pick up.
// Mirrors Threading::SubmitTasks.
func (p *WorkerPool) SubmitTasks(tasks []*Task) {
	if len(tasks) == 0 {
		return
	}
	p.waitMu.Lock()
	p.total += len(tasks)
	p.waitMu.Unlock()

	p.mu.Lock()
	p.queue = append(p.queue, tasks...)
	p.mu.Unlock()
	p.cond.Broadcast()
}

// WaitIdle blocks until every task submitted so far has completed.
// Mirrors Threading::WaitIdle.
func (p *WorkerPool) WaitIdle() {
	p.waitMu.Lock()
	for p.completed < p.total {
		p.waitCond.Wait()
	}
	p.waitMu.Unlock()
}

// Destroy stops every worker goroutine once the current queue drains.
// Pending TaskGroup.Wait calls on tasks already submitted still
// complete normally; only the workers themselves shut down.
func (p *WorkerPool) Destroy() {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
}
