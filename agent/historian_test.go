package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/literaryfinder/core"
	"github.com/hupe1980/literaryfinder/model"
)

var fastRetry = RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func withFastRetry(o *Options) { o.Retry = fastRetry }

const structuredBiography = `Birth year: 1931
Death year: 2019
Nationality: American
Literary movements:
- African American literature
- Postmodernism
Key influences:
- James Baldwin
- William Faulkner
Historical context: Civil rights era America.
Summary: Toni Morrison was a Nobel laureate novelist.`

func TestHistorian_StructuredOutput(t *testing.T) {
	m := model.NewMockModel("mock", "test")
	m.SetFallback(func(model.Request) (string, error) { return structuredBiography, nil })

	h := NewHistorian(m, withFastRetry)
	assert.Equal(t, core.RoleHistorian, h.Role())
	require.NoError(t, h.Validate())

	p, err := h.Run(context.Background(), newTestTask())
	require.NoError(t, err)

	ac, ok := p.(*core.AuthorContext)
	require.True(t, ok)
	assert.Equal(t, 1931, ac.BirthYear)
	assert.Equal(t, 2019, ac.DeathYear)
	assert.Equal(t, "American", ac.Nationality)
	assert.Equal(t, []string{"African American literature", "Postmodernism"}, ac.LiteraryMovements)
	assert.Equal(t, []string{"James Baldwin", "William Faulkner"}, ac.KeyInfluences)
	assert.Equal(t, "Civil rights era America.", ac.HistoricalContext)
	assert.Equal(t, "Toni Morrison was a Nobel laureate novelist.", ac.BiographicalSummary)

	calls := m.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "Toni Morrison")
	assert.Contains(t, calls[0].Instructions, "Contextual Historian")
}

func TestHistorian_FreeTextFallback(t *testing.T) {
	text := "Gabriel García Márquez, a Colombian novelist, was born in 1927 in Aracataca and died in 2014 in Mexico City."
	ac := parseAuthorContext(text)

	assert.Equal(t, 1927, ac.BirthYear)
	assert.Equal(t, 2014, ac.DeathYear)
	assert.Equal(t, "Colombian", ac.Nationality)
	assert.Equal(t, text, ac.BiographicalSummary)
}

func TestHistorian_LivingAuthorKeepsDeathYearUnset(t *testing.T) {
	ac := parseAuthorContext("Birth year: 1949\nDeath year: Unknown\nNationality: Japanese\nSummary: Born 1949, still writing.")
	assert.Equal(t, 1949, ac.BirthYear)
	assert.Zero(t, ac.DeathYear)
}

func TestHistorian_ModelSelectorOverride(t *testing.T) {
	m := model.NewMockModel("mock", "test")
	m.SetFallback(func(model.Request) (string, error) { return structuredBiography, nil })

	task := newTestTask()
	task.Selectors = map[string]string{"model": "gpt-4o"}
	_, err := NewHistorian(m, withFastRetry).Run(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", m.Calls()[0].Model)
}

func TestHistorian_RetriesTransientFailures(t *testing.T) {
	m := model.NewMockModel("mock", "test")
	attempts := 0
	m.SetFallback(func(model.Request) (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("rate limited")
		}
		return structuredBiography, nil
	})

	p, err := NewHistorian(m, withFastRetry).Run(context.Background(), newTestTask())
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 1931, p.(*core.AuthorContext).BirthYear)
}

func TestHistorian_ExhaustedRetries(t *testing.T) {
	m := model.NewMockModel("mock", "test")
	m.SetFallback(func(model.Request) (string, error) { return "", errors.New("service unavailable") })

	_, err := NewHistorian(m, withFastRetry).Run(context.Background(), newTestTask())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service unavailable")
	assert.Len(t, m.Calls(), 3)
}

func TestHistorian_CallBudget(t *testing.T) {
	m := model.NewMockModel("mock", "test")
	m.SetFallback(func(model.Request) (string, error) { return "", errors.New("flaky") })

	_, err := NewHistorian(m, withFastRetry, func(o *Options) { o.MaxCalls = 1 }).Run(context.Background(), newTestTask())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeded max external calls")
	assert.Len(t, m.Calls(), 1)
}

func TestHistorian_ContextCancelled(t *testing.T) {
	m := model.NewMockModel("mock", "test")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHistorian(m, withFastRetry).Run(ctx, newTestTask())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHistorian_ValidateWithoutModel(t *testing.T) {
	assert.Error(t, NewHistorian(nil).Validate())
}

func TestHistorian_CustomInstruction(t *testing.T) {
	m := model.NewMockModel("mock", "test")
	m.SetFallback(func(model.Request) (string, error) { return structuredBiography, nil })

	h := NewHistorian(m, withFastRetry, func(o *Options) {
		o.Instruction = NewInstructionFromFunc(func(task core.Task) (string, error) {
			return "Focus on " + task.Subject, nil
		})
	})
	_, err := h.Run(context.Background(), newTestTask())
	require.NoError(t, err)
	assert.Equal(t, "Focus on Toni Morrison", m.Calls()[0].Instructions)
}
