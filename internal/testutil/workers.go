package testutil

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hupe1980/literaryfinder/core"
)

// FakeWorker is a configurable core.Worker. Zero Delay returns immediately.
// Create it with NewFakeWorker.
type FakeWorker struct {
	R       core.Role
	Payload core.Payload
	Err     error
	Delay   time.Duration
	// IgnoreCancel keeps sleeping for Delay even after ctx is done, simulating
	// a worker that does not honour cancellation.
	IgnoreCancel bool
	Panic        any
	ValidateErr  error

	calls atomic.Int32
	// LastTask is the task of the most recent run.
	LastTask atomic.Pointer[core.Task]
	done     chan struct{}
}

// NewFakeWorker returns a worker that succeeds with the sample payload of role.
func NewFakeWorker(role core.Role) *FakeWorker {
	return &FakeWorker{R: role, Payload: SamplePayload(role), done: make(chan struct{}, 1)}
}

// Role implements core.Worker.
func (w *FakeWorker) Role() core.Role { return w.R }

// Validate implements core.Validator.
func (w *FakeWorker) Validate() error { return w.ValidateErr }

// Calls returns how many times Run was invoked.
func (w *FakeWorker) Calls() int { return int(w.calls.Load()) }

// Done is signalled when a run returns, including abandoned runs. It is nil
// unless the worker was created by NewFakeWorker.
func (w *FakeWorker) Done() <-chan struct{} { return w.done }

// Run implements core.Worker.
func (w *FakeWorker) Run(ctx context.Context, task core.Task) (core.Payload, error) {
	w.calls.Add(1)
	w.LastTask.Store(&task)
	defer func() {
		select {
		case w.done <- struct{}{}:
		default:
		}
	}()

	if w.Delay > 0 {
		if w.IgnoreCancel {
			time.Sleep(w.Delay)
		} else {
			select {
			case <-time.After(w.Delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if w.Panic != nil {
		panic(w.Panic)
	}
	if w.Err != nil {
		return nil, w.Err
	}
	return w.Payload, nil
}
