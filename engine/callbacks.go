package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/literaryfinder/core"
)

// CallbackType defines the lifecycle points where callbacks are executed.
//
// Callbacks hook into the request pipeline without modifying engine logic:
//   - BeforeWorker/AfterWorker: around each worker run
//   - OnPhase: whenever the request moves to a new Phase
//   - OnLateWrite: when an abandoned worker returns after its slot was finalized
//
// Callbacks observe; they never change outcomes. A callback error is logged
// at warn level and the request carries on.
type CallbackType string

const (
	// CallbackBeforeWorker is triggered after a slot moved to running and
	// before the worker is invoked.
	CallbackBeforeWorker CallbackType = "before_worker"

	// CallbackAfterWorker is triggered once a slot reached a terminal status.
	CallbackAfterWorker CallbackType = "after_worker"

	// CallbackOnPhase is triggered on every request phase change.
	CallbackOnPhase CallbackType = "on_phase"

	// CallbackOnLateWrite is triggered when a worker result arrives after its
	// slot was already finalized and the write was rejected.
	CallbackOnLateWrite CallbackType = "on_late_write"
)

// CallbackContext carries what a callback may inspect. Fields that do not
// apply to a callback type are left zero.
type CallbackContext struct {
	RequestID string
	Subject   string
	Mode      core.Mode

	// Role and Status describe the slot for worker callbacks.
	Role   core.Role
	Status core.Status
	// Err is the slot failure, if any.
	Err error
	// Latency is the worker run time for AfterWorker and OnLateWrite.
	Latency time.Duration

	// Phase is the new phase for OnPhase.
	Phase Phase

	CallbackType CallbackType
}

// Callback defines the interface for execution lifecycle hooks.
//
// Implementations should be fast: callbacks run synchronously on the
// goroutine that triggered them, which for worker callbacks is the
// supervisor of that slot.
type Callback interface {
	Type() CallbackType
	Execute(ctx context.Context, callbackCtx *CallbackContext) error
}

// FunctionCallback wraps a function as a callback implementation.
//
// Example:
//
//	progress := NewFunctionCallback(
//	    CallbackAfterWorker,
//	    func(ctx context.Context, cc *CallbackContext) error {
//	        fmt.Printf("%s finished: %s\n", cc.Role, cc.Status)
//	        return nil
//	    },
//	)
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, callbackCtx *CallbackContext) error
}

// NewFunctionCallback creates a new function-based callback.
func NewFunctionCallback(
	callbackType CallbackType,
	fn func(ctx context.Context, callbackCtx *CallbackContext) error,
) *FunctionCallback {
	return &FunctionCallback{
		callbackType: callbackType,
		fn:           fn,
	}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() CallbackType {
	return c.callbackType
}

// Execute calls the wrapped function with the provided context.
func (c *FunctionCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	return c.fn(ctx, callbackCtx)
}

// CallbackManager is the registry of callbacks used by an Engine.
//
// Callbacks of one type run in registration order. Unlike a validation
// pipeline, a failing callback does not stop the ones after it: every error
// is collected and returned together. The manager is safe for concurrent use
// because parallel supervisors fire worker callbacks at the same time.
type CallbackManager struct {
	mu        sync.RWMutex
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates an empty callback manager.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{
		callbacks: make(map[CallbackType][]Callback),
	}
}

// RegisterCallback adds a callback for its type.
//
// Example:
//
//	manager := NewCallbackManager()
//	manager.RegisterCallback(progressCallback)
func (cm *CallbackManager) RegisterCallback(callback Callback) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	callbackType := callback.Type()
	cm.callbacks[callbackType] = append(cm.callbacks[callbackType], callback)
}

// ExecuteCallbacks executes all callbacks registered for callbackType and
// returns the errors they reported, if any.
func (cm *CallbackManager) ExecuteCallbacks(
	ctx context.Context,
	callbackType CallbackType,
	callbackCtx *CallbackContext,
) []error {
	if cm == nil {
		return nil
	}
	cm.mu.RLock()
	callbacks := append([]Callback(nil), cm.callbacks[callbackType]...)
	cm.mu.RUnlock()

	callbackCtx.CallbackType = callbackType

	var errs []error
	for _, callback := range callbacks {
		if err := callback.Execute(ctx, callbackCtx); err != nil {
			errs = append(errs, fmt.Errorf("%s callback: %w", callbackType, err))
		}
	}
	return errs
}

// LoggingCallback forwards lifecycle events to a logging function in a
// consistent one line format.
//
// Example:
//
//	callback := NewLoggingCallback(CallbackAfterWorker, func(msg string) {
//	    log.Printf("[ENGINE] %s", msg)
//	})
type LoggingCallback struct {
	callbackType CallbackType
	logger       func(message string)
}

// NewLoggingCallback creates a new logging callback for the given type.
func NewLoggingCallback(callbackType CallbackType, logger func(message string)) *LoggingCallback {
	return &LoggingCallback{
		callbackType: callbackType,
		logger:       logger,
	}
}

// Type returns the callback type this logger handles.
func (c *LoggingCallback) Type() CallbackType {
	return c.callbackType
}

// Execute formats the callback context and forwards it to the logger.
func (c *LoggingCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	var message string
	switch callbackCtx.CallbackType {
	case CallbackOnPhase:
		message = fmt.Sprintf("[%s] request %s: phase %s", callbackCtx.CallbackType, callbackCtx.RequestID, callbackCtx.Phase)
	case CallbackBeforeWorker:
		message = fmt.Sprintf("[%s] request %s: %s started", callbackCtx.CallbackType, callbackCtx.RequestID, callbackCtx.Role)
	default:
		message = fmt.Sprintf("[%s] request %s: %s %s in %s", callbackCtx.CallbackType, callbackCtx.RequestID,
			callbackCtx.Role, callbackCtx.Status, callbackCtx.Latency.Round(time.Millisecond))
		if callbackCtx.Err != nil {
			message += fmt.Sprintf(" (%v)", callbackCtx.Err)
		}
	}

	c.logger(message)
	return nil
}
