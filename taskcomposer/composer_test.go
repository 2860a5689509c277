package taskcomposer

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPoolRunsAllSubmittedTasks(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Destroy()

	var counter int64
	const n = 200
	tasks := make([]*Task, n)
	for i := 0; i < n; i++ {
		tasks[i] = &Task{Function: func(threadID int) { atomic.AddInt64(&counter, 1) }}
	}
	pool.SubmitTasks(tasks)
	pool.WaitIdle()

	assert.EqualValues(t, n, atomic.LoadInt64(&counter))
}

func TestTaskGroupWaitBlocksUntilTasksComplete(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Destroy()

	composer := NewTaskComposer(pool)
	stage := composer.BeginPipelineStage()

	var ran int32
	stage.Enqueue(func(threadID int) { atomic.AddInt32(&ran, 1) })
	stage.Enqueue(func(threadID int) { atomic.AddInt32(&ran, 1) })
	composer.GetOutgoingTask()

	stage.Wait()
	assert.EqualValues(t, 2, ran)
}

// Order guarantee (spec.md §4.7): a task in stage N cannot start before
// every task in stage N-1 has completed.
func TestPipelineStagesRunInOrder(t *testing.T) {
	pool := NewWorkerPool(8)
	defer pool.Destroy()

	composer := NewTaskComposer(pool)

	var mu sync.Mutex
	var order []int

	stage1 := composer.BeginPipelineStage()
	for i := 0; i < 10; i++ {
		stage1.Enqueue(func(threadID int) {
			time.Sleep(time.Millisecond)
			mu.Lock()
			order = append(order, 1)
			mu.Unlock()
		})
	}

	stage2 := composer.BeginPipelineStage()
	for i := 0; i < 10; i++ {
		stage2.Enqueue(func(threadID int) {
			mu.Lock()
			order = append(order, 2)
			mu.Unlock()
		})
	}

	final := composer.GetOutgoingTask()
	final.Wait()

	require.Len(t, order, 20)
	for i, v := range order {
		if i < 10 {
			assert.Equal(t, 1, v)
		} else {
			assert.Equal(t, 2, v)
		}
	}
}

// GetDeferredEnqueueHandle: a deferred group's tasks must complete
// before the next stage begun after it starts, even though the deferred
// group was never the "current" stage.
func TestDeferredEnqueueHandleGatesNextStage(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Destroy()

	composer := NewTaskComposer(pool)
	stage1 := composer.BeginPipelineStage()
	stage1.Enqueue(func(threadID int) {})

	deferred := composer.GetDeferredEnqueueHandle()
	var deferredRan int32
	deferred.Enqueue(func(threadID int) {
		time.Sleep(2 * time.Millisecond)
		atomic.StoreInt32(&deferredRan, 1)
	})

	stage2 := composer.BeginPipelineStage()
	stage2.Enqueue(func(threadID int) {
		assert.EqualValues(t, 1, atomic.LoadInt32(&deferredRan), "stage2 must not start before the deferred handle completes")
	})

	composer.GetOutgoingTask().Wait()
}

func TestTaskGroupWithNoTasksUnblocksWait(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Destroy()

	composer := NewTaskComposer(pool)
	empty := composer.BeginPipelineStage()
	next := composer.BeginPipelineStage()

	done := make(chan struct{})
	go func() {
		empty.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("empty TaskGroup.Wait never returned")
	}

	next.Enqueue(func(threadID int) {})
	composer.GetOutgoingTask().Wait()
}
