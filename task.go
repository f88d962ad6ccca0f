package neverliie

import (
	"sync"

	"github.com/google/uuid"
)

// taskEntry is the Task Table's value: the cancellation signal for one
// in-flight streaming task. The entry exists iff a streaming handler for
// that task id is still producing values.
type taskEntry struct {
	cancel func()
}

// taskTable maps task-id to its cancellation signal. Mutated only under mu,
// which is held only around map operations and signal firing, never across
// I/O.
type taskTable struct {
	mu    sync.Mutex
	tasks map[string]*taskEntry
}

func newTaskTable() *taskTable {
	return &taskTable{tasks: make(map[string]*taskEntry)}
}

// start mints a fresh, globally-unique task id and registers it with cancel
// as its cancellation signal.
func (t *taskTable) start(cancel func()) string {
	id := uuid.NewString()
	t.mu.Lock()
	t.tasks[id] = &taskEntry{cancel: cancel}
	t.mu.Unlock()
	return id
}

// cancel fires the cancellation signal for id, if an entry still exists. A
// late cancel for a task already removed is a no-op, and firing an entry's
// signal twice is safe (cancel funcs built from context.CancelFunc are
// idempotent).
func (t *taskTable) cancel(id string) {
	t.mu.Lock()
	entry, ok := t.tasks[id]
	t.mu.Unlock()
	if ok {
		entry.cancel()
	}
}

// remove deletes the entry for id, if any. Called exactly once per task, on
// normal completion, on cancellation, or on client disconnect.
func (t *taskTable) remove(id string) {
	t.mu.Lock()
	delete(t.tasks, id)
	t.mu.Unlock()
}

// removeAll cancels and removes every outstanding task. Used during node
// shutdown so that in-flight streams observe the cancellation signal.
func (t *taskTable) removeAll() {
	t.mu.Lock()
	entries := t.tasks
	t.tasks = make(map[string]*taskEntry)
	t.mu.Unlock()
	for _, e := range entries {
		e.cancel()
	}
}

func (t *taskTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tasks)
}
