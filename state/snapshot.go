package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/literaryfinder/core"
)

// Slot is one role's progress record.
type Slot struct {
	Role       core.Role    `json:"role" yaml:"role"`
	Status     core.Status  `json:"status" yaml:"status"`
	Payload    core.Payload `json:"payload,omitempty" yaml:"payload,omitempty"`
	Error      string       `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt  time.Time    `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	FinishedAt time.Time    `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
}

// Latency is FinishedAt - StartedAt, or zero while the slot is not terminal.
func (s Slot) Latency() time.Duration {
	if s.StartedAt.IsZero() || s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// UnmarshalJSON decodes the payload into the concrete kind of the slot's role.
func (s *Slot) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role       core.Role       `json:"role"`
		Status     core.Status     `json:"status"`
		Payload    json.RawMessage `json:"payload"`
		Error      string          `json:"error"`
		StartedAt  time.Time       `json:"started_at"`
		FinishedAt time.Time       `json:"finished_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Slot{
		Role:       raw.Role,
		Status:     raw.Status,
		Error:      raw.Error,
		StartedAt:  raw.StartedAt,
		FinishedAt: raw.FinishedAt,
	}
	if len(raw.Payload) == 0 || string(raw.Payload) == "null" {
		return nil
	}
	p, err := core.NewPayload(raw.Role)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw.Payload, p); err != nil {
		return fmt.Errorf("decode %s payload: %w", raw.Role, err)
	}
	s.Payload = p
	return nil
}

func (s Slot) clone() Slot {
	out := s
	if s.Payload != nil {
		out.Payload = s.Payload.Clone()
	}
	return out
}

// Snapshot is an immutable copy of a request's shared state. It always holds
// all roles in core.Roles.
type Snapshot struct {
	Subject string             `json:"subject" yaml:"subject"`
	Mode    core.Mode          `json:"mode" yaml:"mode"`
	Slots   map[core.Role]Slot `json:"slots" yaml:"slots"`
	Errors  []string           `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Slot returns the slot of role. The zero Slot is returned for unknown roles.
func (s Snapshot) Slot(role core.Role) Slot {
	return s.Slots[role]
}

// Ordered returns the slots in core.Roles order.
func (s Snapshot) Ordered() []Slot {
	out := make([]Slot, 0, len(core.Roles))
	for _, role := range core.Roles {
		out = append(out, s.Slots[role])
	}
	return out
}

// Succeeded counts slots in StatusSucceeded.
func (s Snapshot) Succeeded() int {
	n := 0
	for _, slot := range s.Slots {
		if slot.Status == core.StatusSucceeded {
			n++
		}
	}
	return n
}

// Terminal reports whether every slot reached a terminal status.
func (s Snapshot) Terminal() bool {
	for _, role := range core.Roles {
		if !s.Slots[role].Status.Terminal() {
			return false
		}
	}
	return true
}

// Payloads returns the payloads of all succeeded slots keyed by role.
func (s Snapshot) Payloads() map[core.Role]core.Payload {
	out := map[core.Role]core.Payload{}
	for role, slot := range s.Slots {
		if slot.Status == core.StatusSucceeded && slot.Payload != nil {
			out[role] = slot.Payload.Clone()
		}
	}
	return out
}

// Transition is one recorded status change.
type Transition struct {
	Seq  uint64      `json:"seq" yaml:"seq"`
	Role core.Role   `json:"role" yaml:"role"`
	From core.Status `json:"from" yaml:"from"`
	To   core.Status `json:"to" yaml:"to"`
	At   time.Time   `json:"at" yaml:"at"`
}

// Trace is the ordered execution history of a request. It is produced once
// by Store.Freeze and never changes afterwards.
type Trace struct {
	Started     time.Time    `json:"started" yaml:"started"`
	Finished    time.Time    `json:"finished" yaml:"finished"`
	Transitions []Transition `json:"transitions" yaml:"transitions"`
}

// Span returns the first running and the last terminal timestamp recorded
// for role. ok is false when the role never reached a terminal status.
func (t Trace) Span(role core.Role) (start, end time.Time, ok bool) {
	for _, tr := range t.Transitions {
		if tr.Role != role {
			continue
		}
		if tr.To == core.StatusRunning && start.IsZero() {
			start = tr.At
		}
		if tr.To.Terminal() {
			end = tr.At
			ok = true
			if start.IsZero() {
				start = tr.At
			}
		}
	}
	return start, end, ok
}

// Latency returns the running time of role as recorded in the trace.
func (t Trace) Latency(role core.Role) time.Duration {
	start, end, ok := t.Span(role)
	if !ok {
		return 0
	}
	return end.Sub(start)
}
