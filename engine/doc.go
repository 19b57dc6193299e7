// Package engine implements the request orchestration layer of the literary
// finder.
//
// An Engine owns one worker per role and turns a core.Request into a
// Response. Every request gets its own state.Store; nothing is shared between
// concurrent requests except the (stateless) workers.
//
// # Lifecycle
//
//	INITIALIZED ──▶ DISPATCHED ──▶ AWAITING ──▶ SYNTHESIZING ──▶ COMPLETED
//	     │
//	     └──▶ FAILED   (validation or configuration error, nothing dispatched)
//
// # Scheduling
//
// Parallel mode starts one supervisor goroutine per role and joins them with a
// conc.WaitGroup. Sequential mode runs the same supervisor for each role in
// core.Roles order and hands every worker the payloads of the predecessors
// that succeeded. A failed predecessor never blocks its successors.
//
// Each supervisor gives its worker an independent deadline
// (Config.WorkerTimeout). When it expires the slot is failed with a
// *core.TimeoutError and the supervisor returns at once: the worker's context
// is cancelled but the engine does not wait for it to acknowledge. If the
// worker returns later its result is handed to the store, which rejects it
// with state.ErrLateWrite, so a finalized slot never changes.
//
// Workers run behind a panic guard. A panic, an error or a missing payload all
// end in a failed slot holding a *core.WorkerExecutionError; none of them can
// fail the request. The engine never retries a worker.
//
// # Outcome
//
// After the join the store is frozen. If at least one slot succeeded the
// report is synthesized and Success is true; otherwise Success is false with a
// *core.SynthesisFatalError in Errors. The performance report is attached in
// both cases when Config.Evaluate is set, and the response is handed to the
// optional Archive.
//
// # Extensibility
//
// A CallbackManager observes phase changes, worker starts and finishes, and
// rejected late writes. Callbacks cannot influence the outcome.
package engine
