package core

import "context"

// Task is everything a worker receives for one run.
type Task struct {
	RequestID string
	Subject   string
	Mode      Mode
	// Selectors are forwarded unmodified from the Request.
	Selectors map[string]string
	// Prior holds the payloads of predecessors that already succeeded. It is
	// always empty in parallel mode.
	Prior map[Role]Payload
	// Predecessors holds the terminal status of every role that ran before
	// this one. A role missing from it has not run.
	Predecessors map[Role]Status
}

// PredecessorStatus returns the status role ended with before this run, or
// StatusPending when it has not run.
func (t Task) PredecessorStatus(role Role) Status {
	if st, ok := t.Predecessors[role]; ok {
		return st
	}
	return StatusPending
}

// Selector returns the selector value for key, or def when absent.
func (t Task) Selector(key, def string) string {
	if v, ok := t.Selectors[key]; ok && v != "" {
		return v
	}
	return def
}

// Worker is the uniform contract every research role satisfies.
//
// Run must honour ctx cancellation and deadlines. Internal retries against
// external sources are the worker's own business; whatever happens inside,
// Run reports either a payload or an error and never expects the caller to
// retry. Workers never touch the state store: the engine relays their result.
type Worker interface {
	Role() Role
	Run(ctx context.Context, task Task) (Payload, error)
}

// Validator is optionally implemented by workers that can detect missing
// configuration before dispatch. A non-nil error is reported as a
// ConfigurationError and the request is not dispatched.
type Validator interface {
	Validate() error
}

// WorkerFunc adapts a plain function into a Worker for the given role.
type WorkerFunc struct {
	R  Role
	Fn func(ctx context.Context, task Task) (Payload, error)
}

// Role implements Worker.
func (w WorkerFunc) Role() Role { return w.R }

// Run implements Worker.
func (w WorkerFunc) Run(ctx context.Context, task Task) (Payload, error) { return w.Fn(ctx, task) }
