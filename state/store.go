package state

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/literaryfinder/core"
	"github.com/hupe1980/literaryfinder/logging"
)

var (
	// ErrConflict is returned when a transition is requested from the wrong
	// status, e.g. Begin on a slot that is already running.
	ErrConflict = errors.New("slot transition conflict")
	// ErrLateWrite is returned when a slot is already terminal or the store is
	// frozen. The write is dropped.
	ErrLateWrite = errors.New("late write rejected")
	// ErrUnknownRole is returned for roles outside core.Roles.
	ErrUnknownRole = errors.New("unknown role")
	// ErrRoleMismatch is returned when a payload of one role is written to
	// another role's slot.
	ErrRoleMismatch = errors.New("payload role mismatch")
)

// Options configures a Store.
type Options struct {
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
	// Logger receives conflict and late write notices. Defaults to NoOpLogger.
	Logger logging.Logger
}

type cell struct {
	mu      sync.Mutex
	slot    Slot
	history []Transition
}

// Store is the exclusive, race safe home of one request's shared state.
type Store struct {
	req    core.Request
	clock  func() time.Time
	logger logging.Logger

	// cells is never modified after New; only the cells themselves are.
	cells map[core.Role]*cell

	seq     atomic.Uint64
	frozen  atomic.Bool
	created time.Time

	errMu  sync.Mutex
	errors []string
}

// New initializes a Store for req with every role pending.
func New(req core.Request, optFns ...func(o *Options)) *Store {
	opts := Options{
		Clock:  time.Now,
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Store{
		req:    req,
		clock:  opts.Clock,
		logger: opts.Logger,
		cells:  make(map[core.Role]*cell, len(core.Roles)),
	}
	s.created = s.clock()
	for _, role := range core.Roles {
		s.cells[role] = &cell{slot: Slot{Role: role, Status: core.StatusPending}}
	}
	return s
}

// Request returns the request the store was created for.
func (s *Store) Request() core.Request { return s.req }

// Begin moves role from pending to running.
func (s *Store) Begin(role core.Role) error {
	return s.transition(role, func(c *cell, now time.Time) error {
		if c.slot.Status != core.StatusPending {
			s.logger.Warn("state conflict: begin %s while %s", role, c.slot.Status)
			return fmt.Errorf("begin %s from %s: %w", role, c.slot.Status, ErrConflict)
		}
		c.slot.StartedAt = now
		s.record(c, core.StatusRunning, now)
		return nil
	})
}

// Complete moves role from running to succeeded and stores payload.
func (s *Store) Complete(role core.Role, payload core.Payload) error {
	if payload == nil {
		return fmt.Errorf("complete %s: nil payload: %w", role, ErrConflict)
	}
	if payload.Role() != role {
		return fmt.Errorf("complete %s with %s payload: %w", role, payload.Role(), ErrRoleMismatch)
	}
	return s.transition(role, func(c *cell, now time.Time) error {
		if err := s.checkFinalizable(c, role, false); err != nil {
			return err
		}
		c.slot.Payload = payload.Clone()
		c.slot.FinishedAt = now
		s.record(c, core.StatusSucceeded, now)
		return nil
	})
}

// Fail moves role to failed and records cause. Failing a pending slot is
// allowed so a worker that never started still ends up terminal.
func (s *Store) Fail(role core.Role, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return s.transition(role, func(c *cell, now time.Time) error {
		if err := s.checkFinalizable(c, role, true); err != nil {
			return err
		}
		if c.slot.StartedAt.IsZero() {
			c.slot.StartedAt = now
		}
		c.slot.Error = msg
		c.slot.FinishedAt = now
		s.record(c, core.StatusFailed, now)
		return nil
	})
}

// AddError appends a request level error message.
func (s *Store) AddError(msg string) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	s.errors = append(s.errors, msg)
}

// Status returns the current status of role.
func (s *Store) Status(role core.Role) core.Status {
	c, ok := s.cells[role]
	if !ok {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slot.Status
}

// Snapshot returns an immutable copy of the current shared state.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		Subject: s.req.Subject,
		Mode:    s.req.Mode,
		Slots:   make(map[core.Role]Slot, len(s.cells)),
	}
	for _, role := range core.Roles {
		c := s.cells[role]
		c.mu.Lock()
		snap.Slots[role] = c.slot.clone()
		c.mu.Unlock()
	}
	s.errMu.Lock()
	snap.Errors = append([]string(nil), s.errors...)
	s.errMu.Unlock()
	return snap
}

// Freeze terminates the store. Every later write is rejected with
// ErrLateWrite. It returns the final snapshot and the ordered trace.
func (s *Store) Freeze() (Snapshot, Trace) {
	s.frozen.Store(true)
	snap := s.Snapshot()

	trace := Trace{Started: s.created, Finished: s.clock()}
	for _, role := range core.Roles {
		c := s.cells[role]
		c.mu.Lock()
		trace.Transitions = append(trace.Transitions, c.history...)
		c.mu.Unlock()
	}
	sort.Slice(trace.Transitions, func(i, j int) bool {
		return trace.Transitions[i].Seq < trace.Transitions[j].Seq
	})
	return snap, trace
}

// Frozen reports whether Freeze has been called.
func (s *Store) Frozen() bool { return s.frozen.Load() }

func (s *Store) transition(role core.Role, fn func(c *cell, now time.Time) error) error {
	c, ok := s.cells[role]
	if !ok {
		return fmt.Errorf("%q: %w", role, ErrUnknownRole)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.frozen.Load() {
		s.logger.Warn("state late write: %s after request terminated", role)
		return fmt.Errorf("%s: store frozen: %w", role, ErrLateWrite)
	}
	return fn(c, s.clock())
}

func (s *Store) checkFinalizable(c *cell, role core.Role, allowPending bool) error {
	switch {
	case c.slot.Status.Terminal():
		s.logger.Warn("state late write: %s already %s", role, c.slot.Status)
		return fmt.Errorf("%s already %s: %w", role, c.slot.Status, ErrLateWrite)
	case c.slot.Status == core.StatusPending && !allowPending:
		s.logger.Warn("state conflict: finalize %s before begin", role)
		return fmt.Errorf("finalize %s from pending: %w", role, ErrConflict)
	}
	return nil
}

// record must be called with c.mu held.
func (s *Store) record(c *cell, to core.Status, now time.Time) {
	c.history = append(c.history, Transition{
		Seq:  s.seq.Add(1),
		Role: c.slot.Role,
		From: c.slot.Status,
		To:   to,
		At:   now,
	})
	c.slot.Status = to
}
