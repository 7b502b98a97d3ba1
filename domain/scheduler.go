package domain

import "context"

// Scheduler is the external worker-pool collaborator the core dispatches
// dispatched documents to. The core's interaction with it is limited to a
// single Submit per claimed document; the scheduler owns running the
// handler and may reject a submission (queue full) without the core
// knowing anything about its internals.
type Scheduler interface {
	// Submit enqueues task for asynchronous execution. It returns
	// promptly: either the task has been accepted (nil error) or the
	// pool is saturated and the caller must compensate (non-nil error).
	Submit(task func()) error

	// Close drains in-flight tasks and stops accepting new ones. It
	// should respect ctx's deadline and return once draining completes
	// or the deadline passes, whichever is first.
	Close(ctx context.Context) error
}
