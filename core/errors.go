package core

import (
	"fmt"
	"time"
)

// ValidationError reports a malformed request. It is fatal and raised before
// any worker is dispatched.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConfigurationError reports missing credentials or an incomplete worker
// setup. It is fatal and raised before dispatch.
type ConfigurationError struct {
	Key     string
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	msg := e.Message
	if e.Key != "" {
		msg = fmt.Sprintf("%s: %s", e.Key, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", msg, e.Err)
	}
	return "configuration error: " + msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// WorkerExecutionError is a slot scoped failure inside a worker run. It never
// aborts the request.
type WorkerExecutionError struct {
	Role Role
	Err  error
}

func (e *WorkerExecutionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Role, e.Err)
}

func (e *WorkerExecutionError) Unwrap() error { return e.Err }

// TimeoutError is the WorkerExecutionError recorded when a worker misses its
// deadline. errors.As matches it as *TimeoutError; its Unwrap chain exposes
// the underlying *WorkerExecutionError.
type TimeoutError struct {
	Role    Role
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %s", e.Role, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return &WorkerExecutionError{Role: e.Role, Err: fmt.Errorf("deadline of %s exceeded", e.Timeout)}
}

// SynthesisFatalError is returned when no slot succeeded so there is nothing
// to synthesize.
type SynthesisFatalError struct {
	Failed int
}

func (e *SynthesisFatalError) Error() string {
	return fmt.Sprintf("synthesis failed: all %d workers failed, no content available", e.Failed)
}
