package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/literaryfinder/engine"
)

// Memory is a volatile Store keeping responses in a process local map. It is
// safe for concurrent access. Responses are stored encoded, so a returned
// response never aliases the one that was saved or another caller's copy.
type Memory struct {
	mu        sync.RWMutex
	responses map[string][]byte
	bySubject map[string][]string
}

// NewMemory constructs an empty in-memory archive.
func NewMemory() *Memory {
	return &Memory{
		responses: make(map[string][]byte),
		bySubject: make(map[string][]string),
	}
}

// Save stores a copy of resp. Saving the same request ID again replaces the
// earlier copy.
func (m *Memory) Save(_ context.Context, resp *engine.Response) error {
	if resp == nil || resp.RequestID == "" {
		return ErrMissingRequestID
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response %s: %w", resp.RequestID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.responses[resp.RequestID]; !ok {
		key := subjectKey(resp.Subject)
		m.bySubject[key] = append(m.bySubject[key], resp.RequestID)
	}
	m.responses[resp.RequestID] = data
	return nil
}

// Get returns a copy of the response of requestID.
func (m *Memory) Get(_ context.Context, requestID string) (*engine.Response, error) {
	m.mu.RLock()
	data, ok := m.responses[requestID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", requestID, ErrNotFound)
	}
	return decode(data)
}

// ListBySubject returns copies of all responses for subject, oldest first.
func (m *Memory) ListBySubject(_ context.Context, subject string) ([]*engine.Response, error) {
	m.mu.RLock()
	ids := m.bySubject[subjectKey(subject)]
	encoded := make([][]byte, 0, len(ids))
	for _, id := range ids {
		encoded = append(encoded, m.responses[id])
	}
	m.mu.RUnlock()

	out := make([]*engine.Response, 0, len(encoded))
	for _, data := range encoded {
		resp, err := decode(data)
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.Before(out[j].CompletedAt)
	})
	return out, nil
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *Memory) Close() error { return nil }

func decode(data []byte) (*engine.Response, error) {
	var resp engine.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}
