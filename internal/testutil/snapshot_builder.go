package testutil

import (
	"errors"
	"time"

	"github.com/hupe1980/literaryfinder/core"
	"github.com/hupe1980/literaryfinder/state"
)

// Epoch is the start time of every built trace.
var Epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type outcome struct {
	role    core.Role
	payload core.Payload
	err     error
	latency time.Duration
	running bool
}

// SnapshotBuilder drives a real state.Store to produce consistent snapshots
// and traces. Example:
//
//	snap, trace := NewSnapshotBuilder("Toni Morrison").
//		Succeed(core.RoleHistorian, SampleAuthorContext(), 2*time.Second).
//		Fail(core.RoleConnector, "boom", time.Second).
//		Build()
type SnapshotBuilder struct {
	req      core.Request
	outcomes []outcome
}

// NewSnapshotBuilder creates a builder for a parallel request on subject.
func NewSnapshotBuilder(subject string) *SnapshotBuilder {
	return &SnapshotBuilder{req: core.Request{Subject: subject, Mode: core.ModeParallel}}
}

// Mode sets the request mode (chainable).
func (b *SnapshotBuilder) Mode(m core.Mode) *SnapshotBuilder { b.req.Mode = m; return b }

// Succeed completes role with payload after latency (chainable).
func (b *SnapshotBuilder) Succeed(role core.Role, p core.Payload, latency time.Duration) *SnapshotBuilder {
	b.outcomes = append(b.outcomes, outcome{role: role, payload: p, latency: latency})
	return b
}

// Fail fails role with msg after latency (chainable).
func (b *SnapshotBuilder) Fail(role core.Role, msg string, latency time.Duration) *SnapshotBuilder {
	b.outcomes = append(b.outcomes, outcome{role: role, err: errors.New(msg), latency: latency})
	return b
}

// Running leaves role in the running state (chainable).
func (b *SnapshotBuilder) Running(role core.Role) *SnapshotBuilder {
	b.outcomes = append(b.outcomes, outcome{role: role, running: true})
	return b
}

// Build applies the outcomes in parallel-mode timing (all roles start at
// Epoch) or sequential timing (each role starts when the previous finished)
// and freezes the store.
func (b *SnapshotBuilder) Build() (state.Snapshot, state.Trace) {
	now := Epoch
	clock := func() time.Time { return now }
	st := state.New(b.req, func(o *state.Options) { o.Clock = clock })

	cursor := Epoch
	end := Epoch
	for _, o := range b.outcomes {
		start := Epoch
		if b.req.Mode == core.ModeSequential {
			start = cursor
		}
		now = start
		_ = st.Begin(o.role)
		if o.running {
			continue
		}
		now = start.Add(o.latency)
		if o.err != nil {
			_ = st.Fail(o.role, o.err)
			st.AddError(o.err.Error())
		} else {
			_ = st.Complete(o.role, o.payload)
		}
		cursor = now
		if now.After(end) {
			end = now
		}
	}
	now = end
	return st.Freeze()
}
