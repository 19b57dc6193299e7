package archive

import (
	"context"
	"errors"
	"strings"

	"github.com/hupe1980/literaryfinder/engine"
)

// ErrNotFound is returned by Get for unknown or expired request IDs.
var ErrNotFound = errors.New("response not found")

// ErrMissingRequestID is returned by Save for responses without an ID.
var ErrMissingRequestID = errors.New("response has no request id")

// Store persists completed responses.
type Store interface {
	engine.Archive

	// Get returns the response of requestID or ErrNotFound.
	Get(ctx context.Context, requestID string) (*engine.Response, error)

	// ListBySubject returns the archived responses for subject, oldest first.
	// Subjects match case-insensitively.
	ListBySubject(ctx context.Context, subject string) ([]*engine.Response, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Redis)(nil)
)

func subjectKey(subject string) string {
	return strings.ToLower(strings.Join(strings.Fields(subject), " "))
}
