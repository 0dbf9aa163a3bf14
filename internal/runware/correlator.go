package runware

import (
	"sync"
)

// Continuation receives the outcome of a Pending Task. err is a *TaskError
// when the server flagged the item as failed.
type Continuation func(item Item, err error)

type pendingTask struct {
	resolve Continuation
}

// Correlator maps outbound task identifiers to the callers waiting on them.
// Each entry is removed before its continuation runs, so a task resolves at
// most once no matter how many matching items arrive.
type Correlator struct {
	mu      sync.Mutex
	pending map[string]*pendingTask
}

// NewCorrelator creates an empty correlation table.
func NewCorrelator() *Correlator {
	return &Correlator{pending: make(map[string]*pendingTask)}
}

// Submit registers resolve under taskUUID. The caller sends the matching
// frame afterwards.
func (c *Correlator) Submit(taskUUID string, resolve Continuation) error {
	if taskUUID == "" || resolve == nil {
		return ErrInvalidTask
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.pending[taskUUID]; exists {
		return ErrDuplicateTask
	}
	c.pending[taskUUID] = &pendingTask{resolve: resolve}
	return nil
}

// Dispatch resolves the Pending Task the item refers to. It returns false
// when no entry matched; authentication acknowledgements never match.
func (c *Correlator) Dispatch(item Item) bool {
	if item.IsAuthentication() || item.TaskUUID == "" {
		return false
	}

	c.mu.Lock()
	task, ok := c.pending[item.TaskUUID]
	if ok {
		delete(c.pending, item.TaskUUID)
	}
	c.mu.Unlock()

	if !ok {
		return false
	}

	if item.Error {
		task.resolve(item, &TaskError{TaskUUID: item.TaskUUID, Message: item.ErrorMessage})
	} else {
		task.resolve(item, nil)
	}
	return true
}

// Abandon removes an entry without invoking it.
func (c *Correlator) Abandon(taskUUID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.pending[taskUUID]; !ok {
		return false
	}
	delete(c.pending, taskUUID)
	return true
}

// FailAll removes every entry and rejects it with err.
func (c *Correlator) FailAll(err error) int {
	c.mu.Lock()
	tasks := c.pending
	c.pending = make(map[string]*pendingTask)
	c.mu.Unlock()

	for id, task := range tasks {
		task.resolve(Item{TaskUUID: id}, err)
	}
	return len(tasks)
}

// Len returns the number of Pending Tasks.
func (c *Correlator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// authWaiter is the one-shot subscription for the handshake acknowledgement.
type authWaiter struct {
	once sync.Once
	ch   chan authResult
}

type authResult struct {
	item Item
	err  error
}

func newAuthWaiter() *authWaiter {
	return &authWaiter{ch: make(chan authResult, 1)}
}

// deliver completes the waiter; later calls are ignored.
func (w *authWaiter) deliver(item Item, err error) {
	w.once.Do(func() {
		w.ch <- authResult{item: item, err: err}
	})
}
