package core

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_Normalize(t *testing.T) {
	sel := map[string]string{"model": "gpt-4o"}
	req := Request{Subject: "  Toni Morrison\n", Selectors: sel}.Normalize()

	assert.Equal(t, "Toni Morrison", req.Subject)
	assert.Equal(t, ModeParallel, req.Mode)
	assert.Equal(t, sel, req.Selectors)

	req.Selectors["model"] = "changed"
	assert.Equal(t, "gpt-4o", sel["model"])

	assert.Nil(t, Request{Subject: "x"}.Normalize().Selectors)
	assert.Equal(t, ModeSequential, Request{Subject: "x", Mode: ModeSequential}.Normalize().Mode)
}

func TestRequest_Validate(t *testing.T) {
	assert.NoError(t, Request{Subject: "Toni Morrison"}.Validate())
	assert.NoError(t, Request{Subject: "Toni Morrison", Mode: ModeSequential}.Validate())

	for _, subject := range []string{"", "   ", "\t\n"} {
		err := Request{Subject: subject}.Validate()
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "subject", ve.Field)
		assert.Equal(t, "subject is required and cannot be empty", err.Error())
	}

	err := Request{Subject: "Toni Morrison", Mode: "batch"}.Validate()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "mode", ve.Field)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeParallel, m)

	m, err = ParseMode("sequential")
	require.NoError(t, err)
	assert.Equal(t, ModeSequential, m)

	_, err = ParseMode("Parallel")
	assert.Error(t, err)
}

func TestRole(t *testing.T) {
	for _, r := range Roles {
		assert.True(t, r.Valid())
		assert.NotEqual(t, "Unknown Role", r.Description())
		assert.NotEmpty(t, r.Tools())
	}
	assert.False(t, Role("critic").Valid())
	assert.Nil(t, Role("critic").Tools())
	assert.Equal(t, []Role{RoleHistorian, RoleCartographer, RoleConnector}, Roles)
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusSucceeded.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestErrors(t *testing.T) {
	t.Run("configuration", func(t *testing.T) {
		cause := errors.New("missing key")
		err := &ConfigurationError{Key: "workers.historian", Message: "worker not ready", Err: cause}
		assert.Equal(t, "configuration error: workers.historian: worker not ready: missing key", err.Error())
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "configuration error: no key", (&ConfigurationError{Message: "no key"}).Error())
	})

	t.Run("timeout is a worker execution error", func(t *testing.T) {
		var err error = &TimeoutError{Role: RoleConnector, Timeout: 30 * time.Second}
		assert.Equal(t, "connector: timed out after 30s", err.Error())

		var te *TimeoutError
		require.True(t, errors.As(err, &te))
		var we *WorkerExecutionError
		require.True(t, errors.As(err, &we))
		assert.Equal(t, RoleConnector, we.Role)
	})

	t.Run("worker execution", func(t *testing.T) {
		cause := errors.New("quota exceeded")
		err := &WorkerExecutionError{Role: RoleCartographer, Err: cause}
		assert.Equal(t, "cartographer: quota exceeded", err.Error())
		assert.ErrorIs(t, err, cause)
	})

	t.Run("synthesis", func(t *testing.T) {
		assert.Equal(t, "synthesis failed: all 3 workers failed, no content available",
			(&SynthesisFatalError{Failed: 3}).Error())
	})
}

func TestNewPayload(t *testing.T) {
	for _, r := range Roles {
		p, err := NewPayload(r)
		require.NoError(t, err)
		assert.Equal(t, r, p.Role())
	}
	_, err := NewPayload("critic")
	assert.Error(t, err)
}

func TestPayload_CloneIsDeep(t *testing.T) {
	t.Run("author context", func(t *testing.T) {
		orig := &AuthorContext{BirthYear: 1931, LiteraryMovements: []string{"Postmodernism"}, KeyInfluences: []string{"Faulkner"}}
		c := orig.Clone().(*AuthorContext)
		assert.Equal(t, orig, c)
		c.LiteraryMovements[0] = "changed"
		c.KeyInfluences = append(c.KeyInfluences, "Woolf")
		assert.Equal(t, "Postmodernism", orig.LiteraryMovements[0])
		assert.Len(t, orig.KeyInfluences, 1)
	})

	t.Run("reading map", func(t *testing.T) {
		e := ReadingEntry{Title: "Beloved", Year: 1987, Category: "Fiction"}
		orig := &ReadingMap{
			StartHere:      []ReadingEntry{e},
			Chronological:  []ReadingEntry{e},
			CompleteWorks:  []ReadingEntry{e},
			ThematicGroups: map[string][]ReadingEntry{"Fiction": {e}},
		}
		c := orig.Clone().(*ReadingMap)
		assert.Equal(t, orig, c)
		c.StartHere[0].Title = "changed"
		c.ThematicGroups["Fiction"][0].Title = "changed"
		c.ThematicGroups["Other"] = nil
		assert.Equal(t, "Beloved", orig.StartHere[0].Title)
		assert.Equal(t, "Beloved", orig.ThematicGroups["Fiction"][0].Title)
		assert.Len(t, orig.ThematicGroups, 1)
	})

	t.Run("legacy analysis", func(t *testing.T) {
		orig := &LegacyAnalysis{RecurringThemes: []string{"memory"}, SimilarAuthors: []SimilarAuthor{{Name: "James Baldwin"}}}
		c := orig.Clone().(*LegacyAnalysis)
		assert.Equal(t, orig, c)
		c.SimilarAuthors[0].Name = "changed"
		c.RecurringThemes[0] = "changed"
		assert.Equal(t, "James Baldwin", orig.SimilarAuthors[0].Name)
		assert.Equal(t, "memory", orig.RecurringThemes[0])
	})

	t.Run("nil", func(t *testing.T) {
		var ac *AuthorContext
		assert.Nil(t, ac.Clone().(*AuthorContext))
	})
}

func TestCallLimiter(t *testing.T) {
	l := NewCallLimiter(2)
	assert.Equal(t, 2, l.Remaining())
	require.NoError(t, l.Increment())
	require.NoError(t, l.Increment())
	err := l.Increment()
	require.Error(t, err)
	assert.Equal(t, "exceeded max external calls: 2", err.Error())
	assert.Equal(t, 3, l.Count())

	unlimited := NewCallLimiter(0)
	for i := 0; i < 100; i++ {
		require.NoError(t, unlimited.Increment())
	}
	assert.Equal(t, -1, unlimited.Remaining())
}

func TestCallLimiter_Concurrent(t *testing.T) {
	l := NewCallLimiter(50)
	var wg sync.WaitGroup
	var mu sync.Mutex
	failures := 0
	for i := 0; i < 80; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Increment() != nil {
				mu.Lock()
				failures++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 80, l.Count())
	assert.Equal(t, 30, failures)
}

func TestTask_Selector(t *testing.T) {
	task := Task{Selectors: map[string]string{"model": "gpt-4o", "empty": ""}}
	assert.Equal(t, "gpt-4o", task.Selector("model", "default"))
	assert.Equal(t, "default", task.Selector("missing", "default"))
	assert.Equal(t, "default", Task{}.Selector("model", "default"))
}
