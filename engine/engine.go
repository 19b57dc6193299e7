package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/hupe1980/literaryfinder/core"
	"github.com/hupe1980/literaryfinder/evaluation"
	"github.com/hupe1980/literaryfinder/logging"
	"github.com/hupe1980/literaryfinder/report"
	"github.com/hupe1980/literaryfinder/state"
)

// Phase is the lifecycle state of one request.
type Phase string

const (
	PhaseInitialized  Phase = "INITIALIZED"
	PhaseDispatched   Phase = "DISPATCHED"
	PhaseAwaiting     Phase = "AWAITING"
	PhaseSynthesizing Phase = "SYNTHESIZING"
	PhaseCompleted    Phase = "COMPLETED"
	PhaseFailed       Phase = "FAILED"
)

// Config defines tuning parameters for the Engine.
//
// Example:
//
//	cfg := Config{
//	    WorkerTimeout: 45 * time.Second,
//	    Evaluate:      true,
//	    Thresholds:    evaluation.DefaultThresholds,
//	}
type Config struct {
	// WorkerTimeout is the deadline of each individual worker run. Every
	// worker gets its own deadline, in both modes.
	WorkerTimeout time.Duration

	// Evaluate attaches a performance report to every completed response.
	Evaluate bool

	// Thresholds drive the evaluator's recommendations.
	Thresholds evaluation.Thresholds
}

// DefaultConfig provides production defaults: a 60s deadline per worker and
// evaluation enabled.
var DefaultConfig = Config{
	WorkerTimeout: 60 * time.Second,
	Evaluate:      true,
	Thresholds:    evaluation.DefaultThresholds,
}

// Archive receives every completed response. It is a write-only sink: the
// engine never reads it back.
type Archive interface {
	Save(ctx context.Context, resp *Response) error
}

// Options configures an Engine instance using the functional options pattern.
//
// Example:
//
//	eng := engine.New(func(o *engine.Options) {
//	    o.Workers = []core.Worker{historian, cartographer, connector}
//	    o.Logger = logger
//	})
type Options struct {
	// Workers must provide exactly one worker per role. A later worker for
	// the same role replaces an earlier one.
	Workers []core.Worker

	// Config contains operational parameters. Defaults to DefaultConfig.
	Config Config

	// Logger defaults to a no-op logger.
	Logger logging.Logger

	// Archive is optional.
	Archive Archive

	// Callbacks are optional lifecycle hooks.
	Callbacks *CallbackManager

	// Clock defaults to time.Now. It is called from concurrent supervisors.
	Clock func() time.Time

	// NewID generates request IDs. Defaults to random UUIDs.
	NewID func() string
}

// Engine runs analysis requests: it dispatches the three workers against a
// per-request state store, joins them, synthesizes the report and evaluates
// the run.
//
// An Engine holds no per-request state and is safe for concurrent use. Each
// call to Analyze owns its own store and trace.
type Engine struct {
	workers   map[core.Role]core.Worker
	config    Config
	logger    logging.Logger
	archive   Archive
	callbacks *CallbackManager
	clock     func() time.Time
	newID     func() string
}

// New creates an Engine.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config: DefaultConfig,
		Logger: logging.NoOpLogger{},
		Clock:  time.Now,
		NewID:  uuid.NewString,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Config.WorkerTimeout <= 0 {
		opts.Config.WorkerTimeout = DefaultConfig.WorkerTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	workers := make(map[core.Role]core.Worker, len(opts.Workers))
	for _, w := range opts.Workers {
		if w != nil {
			workers[w.Role()] = w
		}
	}

	return &Engine{
		workers:   workers,
		config:    opts.Config,
		logger:    opts.Logger,
		archive:   opts.Archive,
		callbacks: opts.Callbacks,
		clock:     opts.Clock,
		newID:     opts.NewID,
	}
}

// Response is the outcome of one request.
//
// Success is false only for validation, configuration and synthesis
// failures; individual worker failures show up in Slots and Errors while the
// request itself still succeeds.
type Response struct {
	RequestID             string             `json:"request_id" yaml:"request_id"`
	Subject               string             `json:"subject" yaml:"subject"`
	Mode                  core.Mode          `json:"mode" yaml:"mode"`
	Success               bool               `json:"success" yaml:"success"`
	FinalReport           *string            `json:"final_report" yaml:"final_report"`
	ProcessingTimeSeconds float64            `json:"processing_time_seconds" yaml:"processing_time_seconds"`
	Errors                []string           `json:"errors" yaml:"errors"`
	PerformanceReport     *evaluation.Report `json:"performance_report,omitempty" yaml:"performance_report,omitempty"`
	Phase                 Phase              `json:"phase" yaml:"phase"`
	Slots                 state.Snapshot     `json:"slots" yaml:"slots"`
	CompletedAt           time.Time          `json:"completed_at" yaml:"completed_at"`
}

// Analyze runs one request to completion. It never panics and always returns
// a response; fatal problems are reported through Success and Errors.
func (e *Engine) Analyze(ctx context.Context, req core.Request) *Response {
	start := e.clock()
	req = req.Normalize()

	resp := &Response{
		RequestID: e.newID(),
		Subject:   req.Subject,
		Mode:      req.Mode,
		Errors:    []string{},
		Phase:     PhaseInitialized,
	}
	log := e.requestLogger(resp.RequestID, req.Subject)
	e.phase(ctx, resp, PhaseInitialized)

	if err := e.preflight(req); err != nil {
		log.Error("request rejected: %v", err)
		resp.Errors = append(resp.Errors, err.Error())
		resp.Phase = PhaseFailed
		e.phase(ctx, resp, PhaseFailed)
		e.finish(ctx, resp, start, log, err)
		return resp
	}

	store := state.New(req, func(o *state.Options) {
		o.Clock = e.clock
		o.Logger = log
	})
	task := core.Task{
		RequestID: resp.RequestID,
		Subject:   req.Subject,
		Mode:      req.Mode,
		Selectors: req.Selectors,
	}

	e.phase(ctx, resp, PhaseDispatched)
	switch req.Mode {
	case core.ModeSequential:
		e.runSequential(ctx, store, task, resp, log)
	default:
		e.runParallel(ctx, store, task, resp, log)
	}

	snap, trace := store.Freeze()
	resp.Slots = snap
	e.phase(ctx, resp, PhaseSynthesizing)

	var fatal error
	if snap.Succeeded() == 0 {
		fatal = &core.SynthesisFatalError{Failed: len(core.Roles) - snap.Succeeded()}
		log.Error("%v", fatal)
	} else {
		md := report.Synthesize(req.Subject, snap).Markdown()
		resp.FinalReport = &md
		resp.Success = true
	}

	resp.Errors = append(resp.Errors, snap.Errors...)
	if fatal != nil {
		resp.Errors = append(resp.Errors, fatal.Error())
	}

	if e.config.Evaluate {
		resp.PerformanceReport = evaluation.Evaluate(snap, trace, resp.FinalReport, req.Mode, e.config.Thresholds)
	}

	e.phase(ctx, resp, PhaseCompleted)
	e.finish(ctx, resp, start, log, fatal)
	return resp
}

// preflight checks the request and the worker set before anything runs.
func (e *Engine) preflight(req core.Request) error {
	if err := req.Validate(); err != nil {
		return err
	}
	for _, role := range core.Roles {
		w, ok := e.workers[role]
		if !ok {
			return &core.ConfigurationError{Key: "workers." + string(role), Message: "no worker configured"}
		}
		if v, ok := w.(core.Validator); ok {
			if err := v.Validate(); err != nil {
				return &core.ConfigurationError{Key: "workers." + string(role), Message: "worker not ready", Err: err}
			}
		}
	}
	return nil
}

func (e *Engine) runParallel(ctx context.Context, store *state.Store, task core.Task, resp *Response, log logging.Logger) {
	var wg conc.WaitGroup
	for _, role := range core.Roles {
		w := e.workers[role]
		wg.Go(func() {
			e.supervise(ctx, store, w, task, log)
		})
	}
	e.phase(ctx, resp, PhaseAwaiting)
	wg.Wait()
}

func (e *Engine) runSequential(ctx context.Context, store *state.Store, task core.Task, resp *Response, log logging.Logger) {
	e.phase(ctx, resp, PhaseAwaiting)
	prior := map[core.Role]core.Payload{}
	ran := map[core.Role]core.Status{}
	for _, role := range core.Roles {
		t := task
		t.Prior = make(map[core.Role]core.Payload, len(prior))
		for r, p := range prior {
			t.Prior[r] = p.Clone()
		}
		t.Predecessors = make(map[core.Role]core.Status, len(ran))
		for r, st := range ran {
			t.Predecessors[r] = st
		}

		e.supervise(ctx, store, e.workers[role], t, log)

		slot := store.Snapshot().Slot(role)
		ran[role] = slot.Status
		if slot.Status == core.StatusSucceeded {
			prior[role] = slot.Payload
		}
	}
}

type outcome struct {
	payload core.Payload
	err     error
	latency time.Duration
}

// supervise runs one worker under its own deadline and finalizes its slot.
// On deadline expiry the slot is failed immediately and supervise returns
// without waiting for the worker; whatever the worker returns later is handed
// to the store, which rejects it because the slot is already terminal.
//
// The slot is always finalized before abandoned is closed, so a late result
// can never reach a running slot.
func (e *Engine) supervise(ctx context.Context, store *state.Store, w core.Worker, task core.Task, log logging.Logger) {
	role := w.Role()
	if err := store.Begin(role); err != nil {
		log.Warn("cannot start %s: %v", role, err)
		return
	}
	e.fire(ctx, CallbackBeforeWorker, &CallbackContext{
		RequestID: task.RequestID, Subject: task.Subject, Mode: task.Mode, Role: role, Status: core.StatusRunning,
	}, log)

	wctx, cancel := context.WithTimeout(ctx, e.config.WorkerTimeout)
	defer cancel()

	done := make(chan outcome)
	abandoned := make(chan struct{})
	started := e.clock()

	go func() {
		p, err := invoke(wctx, w, task, log)
		o := outcome{payload: p, err: err, latency: e.clock().Sub(started)}
		select {
		case done <- o:
		case <-abandoned:
			e.relayLate(ctx, store, task, role, o, log)
		}
	}()

	select {
	case o := <-done:
		if wctx.Err() == nil {
			e.settle(ctx, store, task, role, o, log)
			return
		}
		// The deadline fired while the result was being handed over: the
		// run still timed out and a payload it carries is late.
		e.settle(ctx, store, task, role, outcome{err: e.interruption(ctx, wctx, role), latency: o.latency}, log)
		if o.err == nil {
			e.relayLate(ctx, store, task, role, o, log)
		}
	case <-wctx.Done():
		e.settle(ctx, store, task, role, outcome{err: e.interruption(ctx, wctx, role), latency: e.clock().Sub(started)}, log)
		close(abandoned)
	}
}

// interruption describes why wctx ended: the worker's own deadline or the
// caller cancelling the whole request.
func (e *Engine) interruption(ctx, wctx context.Context, role core.Role) error {
	if errors.Is(wctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return &core.TimeoutError{Role: role, Timeout: e.config.WorkerTimeout}
	}
	return &core.WorkerExecutionError{Role: role, Err: fmt.Errorf("cancelled: %w", context.Cause(ctx))}
}

// invoke calls the worker behind a panic guard. A panic is logged with the
// stack of the panicking goroutine and becomes an error.
func invoke(ctx context.Context, w core.Worker, task core.Task, log logging.Logger) (p core.Payload, err error) {
	var pc panics.Catcher
	pc.Try(func() { p, err = w.Run(ctx, task) })
	if r := pc.Recovered(); r != nil {
		err = fmt.Errorf("worker panicked: %v", r.Value)
		if ll, ok := log.(*logging.LiteraryLogger); ok {
			ll.ErrorWithStack(err, r.Stack, "%s panicked", w.Role())
		} else {
			log.Error("%s panicked: %v", w.Role(), r.Value)
		}
		return nil, err
	}
	return p, err
}

// settle writes the outcome of a supervised run into the store.
func (e *Engine) settle(ctx context.Context, store *state.Store, task core.Task, role core.Role, o outcome, log logging.Logger) {
	cause := o.err
	if cause == nil && o.payload == nil {
		cause = errors.New("worker returned no payload")
	}

	if cause == nil {
		if err := store.Complete(role, o.payload); err != nil {
			if !errors.Is(err, state.ErrRoleMismatch) {
				log.Warn("%s result dropped: %v", role, err)
				return
			}
			cause = err
		}
	}

	if cause != nil {
		var te *core.TimeoutError
		var we *core.WorkerExecutionError
		if !errors.As(cause, &te) && !errors.As(cause, &we) {
			cause = &core.WorkerExecutionError{Role: role, Err: cause}
		}
		if err := store.Fail(role, cause); err != nil {
			log.Warn("%s failure dropped: %v", role, err)
			return
		}
		store.AddError(cause.Error())
	}

	status := store.Status(role)
	if ll, ok := log.(*logging.LiteraryLogger); ok {
		ll.LogWorkerRun(string(role), o.latency, string(status), cause)
	} else {
		log.Info("%s %s in %s", role, status, o.latency)
	}
	e.fire(ctx, CallbackAfterWorker, &CallbackContext{
		RequestID: task.RequestID, Subject: task.Subject, Mode: task.Mode,
		Role: role, Status: status, Err: cause, Latency: o.latency,
	}, log)
}

// relayLate hands an abandoned worker's result to the store. The write-once
// guard rejects it; this only records that it happened.
func (e *Engine) relayLate(ctx context.Context, store *state.Store, task core.Task, role core.Role, o outcome, log logging.Logger) {
	var err error
	if o.err == nil && o.payload != nil {
		err = store.Complete(role, o.payload)
	} else {
		cause := o.err
		if cause == nil {
			cause = errors.New("worker returned no payload")
		}
		err = store.Fail(role, cause)
	}
	if err == nil {
		// Unreachable: supervise finalizes the slot before abandoning it.
		log.Error("late %s result was accepted", role)
		return
	}
	log.Warn("late %s result after %s ignored: %v", role, o.latency.Round(time.Millisecond), err)
	e.fire(ctx, CallbackOnLateWrite, &CallbackContext{
		RequestID: task.RequestID, Subject: task.Subject, Mode: task.Mode,
		Role: role, Status: store.Status(role), Err: err, Latency: o.latency,
	}, log)
}

func (e *Engine) phase(ctx context.Context, resp *Response, p Phase) {
	resp.Phase = p
	e.fire(ctx, CallbackOnPhase, &CallbackContext{
		RequestID: resp.RequestID, Subject: resp.Subject, Mode: resp.Mode, Phase: p,
	}, e.logger)
}

func (e *Engine) fire(ctx context.Context, t CallbackType, cc *CallbackContext, log logging.Logger) {
	for _, err := range e.callbacks.ExecuteCallbacks(ctx, t, cc) {
		log.Warn("%v", err)
	}
}

func (e *Engine) finish(ctx context.Context, resp *Response, start time.Time, log logging.Logger, fatal error) {
	resp.CompletedAt = e.clock()
	resp.ProcessingTimeSeconds = resp.CompletedAt.Sub(start).Seconds()

	succeeded := resp.Slots.Succeeded()
	if ll, ok := log.(*logging.LiteraryLogger); ok {
		ll.LogAnalysis(string(resp.Mode), succeeded, len(core.Roles), resp.CompletedAt.Sub(start), resp.Success, fatal)
	} else {
		log.Info("analysis finished: success=%t succeeded=%d/%d", resp.Success, succeeded, len(core.Roles))
	}

	if e.archive == nil {
		return
	}
	if err := e.archive.Save(context.WithoutCancel(ctx), resp); err != nil {
		log.Warn("archive response: %v", err)
	}
}

func (e *Engine) requestLogger(requestID, subject string) logging.Logger {
	if ll, ok := e.logger.(*logging.LiteraryLogger); ok {
		return ll.WithComponent("engine").WithRequest(requestID, subject)
	}
	return e.logger
}
