package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTaskRetention is how long a finished task stays queryable.
const DefaultTaskRetention = 15 * time.Minute

// TaskStatus defines the possible states of a task.
type TaskStatus string

const (
	TaskStatusStarted   TaskStatus = "started"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Task is a background remaining-work estimate. The foreground never reads
// its result before the task reports completion.
type Task struct {
	mu        sync.RWMutex
	id        string
	status    TaskStatus
	remaining int
	err       string
}

// TaskSnapshot is the JSON view of a Task.
type TaskSnapshot struct {
	ID        string     `json:"id"`
	Status    TaskStatus `json:"status"`
	Remaining *int       `json:"remaining,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// TaskManager tracks asynchronous tasks. A finished task is forgotten once
// its retention period has passed.
type TaskManager struct {
	tasks     map[string]*Task
	mu        sync.RWMutex
	wg        sync.WaitGroup
	retention time.Duration
}

// NewTaskManager creates a new task manager.
func NewTaskManager() *TaskManager {
	return &TaskManager{
		tasks:     make(map[string]*Task),
		retention: DefaultTaskRetention,
	}
}

// Start registers a task and runs fn on its own goroutine.
func (tm *TaskManager) Start(fn func() (int, error)) *Task {
	task := &Task{
		id:     uuid.NewString(),
		status: TaskStatusStarted,
	}

	tm.mu.Lock()
	tm.tasks[task.id] = task
	tm.mu.Unlock()

	tm.wg.Add(1)
	go func() {
		defer tm.wg.Done()
		defer time.AfterFunc(tm.retention, func() { tm.forget(task.id) })

		task.setStatus(TaskStatusRunning)
		n, err := fn()
		if err != nil {
			task.setError(err)
			return
		}
		task.complete(n)
	}()
	return task
}

func (tm *TaskManager) forget(id string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	delete(tm.tasks, id)
}

// Len returns the number of tracked tasks.
func (tm *TaskManager) Len() int {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return len(tm.tasks)
}

// GetTask safely retrieves a task by its ID.
func (tm *TaskManager) GetTask(id string) (*Task, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	task, found := tm.tasks[id]
	return task, found
}

// Wait blocks until every started task has finished.
func (tm *TaskManager) Wait() {
	tm.wg.Wait()
}

// --- Methods for updating a Task ---

func (t *Task) setStatus(status TaskStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
}

func (t *Task) setError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = TaskStatusFailed
	t.err = err.Error()
}

func (t *Task) complete(remaining int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = TaskStatusCompleted
	t.remaining = remaining
}

// ID returns the task id.
func (t *Task) ID() string { return t.id }

// Snapshot returns a consistent copy of the task state.
func (t *Task) Snapshot() TaskSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := TaskSnapshot{ID: t.id, Status: t.status, Error: t.err}
	if t.status == TaskStatusCompleted {
		n := t.remaining
		snap.Remaining = &n
	}
	return snap
}
