package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/literaryfinder/books"
	"github.com/hupe1980/literaryfinder/core"
)

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) SearchByAuthor(ctx context.Context, author string) ([]books.Volume, error) {
	args := m.Called(ctx, author)
	vs, _ := args.Get(0).([]books.Volume)
	return vs, args.Error(1)
}

func morrisonVolumes() []books.Volume {
	long := strings.Repeat("A haunting novel about memory and slavery. ", 3)
	return []books.Volume{
		{Title: "Beloved", PublishedDate: "1987-09-02", Description: long, ISBN13: "9781400033416", Categories: []string{"Fiction"}},
		{Title: "The Bluest Eye", PublishedDate: "1970", Description: long, ISBN10: "0375411550", Categories: []string{"Fiction"}},
		{Title: "Playing in the Dark", PublishedDate: "1992", Description: "Essays.", Categories: []string{"Literary Criticism"}},
		{Title: "Collected Interviews", Description: long},
		{Title: "Song of Solomon", PublishedDate: "1977", Description: long, Categories: []string{"Fiction"}},
	}
}

func TestCartographer_BuildsReadingMap(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("SearchByAuthor", mock.Anything, "Toni Morrison").Return(morrisonVolumes(), nil).Once()

	c := NewCartographer(catalog, withFastRetry)
	assert.Equal(t, core.RoleCartographer, c.Role())
	require.NoError(t, c.Validate())

	p, err := c.Run(context.Background(), newTestTask())
	require.NoError(t, err)
	catalog.AssertExpectations(t)

	rm, ok := p.(*core.ReadingMap)
	require.True(t, ok)

	assert.Len(t, rm.CompleteWorks, 5)
	assert.Equal(t, "Beloved", rm.CompleteWorks[0].Title)

	var chrono []string
	for _, e := range rm.Chronological {
		chrono = append(chrono, e.Title)
	}
	assert.Equal(t, []string{"The Bluest Eye", "Song of Solomon", "Beloved", "Playing in the Dark"}, chrono)

	var start []string
	for _, e := range rm.StartHere {
		start = append(start, e.Title)
	}
	assert.Equal(t, []string{"The Bluest Eye", "Song of Solomon", "Beloved"}, start)

	assert.Len(t, rm.ThematicGroups["Fiction"], 3)
	assert.Len(t, rm.ThematicGroups["Literary Criticism"], 1)
	assert.Len(t, rm.ThematicGroups["General"], 1)

	assert.Equal(t, "9781400033416", rm.CompleteWorks[0].ISBN)
	assert.Equal(t, "0375411550", rm.CompleteWorks[1].ISBN)
}

func TestCartographer_TruncatesDescriptions(t *testing.T) {
	rm := buildReadingMap([]books.Volume{{Title: "Long", PublishedDate: "2000", Description: strings.Repeat("x", 250)}})
	require.Len(t, rm.CompleteWorks, 1)
	assert.Equal(t, strings.Repeat("x", 200)+"...", rm.CompleteWorks[0].Description)
}

func TestCartographer_StartHereFallsBackToChronological(t *testing.T) {
	rm := buildReadingMap([]books.Volume{
		{Title: "B", PublishedDate: "1990"},
		{Title: "A", PublishedDate: "1980"},
	})
	require.Len(t, rm.StartHere, 2)
	assert.Equal(t, "A", rm.StartHere[0].Title)
}

func TestCartographer_NoWorks(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("SearchByAuthor", mock.Anything, "Toni Morrison").Return([]books.Volume{}, nil)

	_, err := NewCartographer(catalog, withFastRetry).Run(context.Background(), newTestTask())
	assert.ErrorIs(t, err, ErrNoWorks)
}

func TestCartographer_RetriesServerErrors(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("SearchByAuthor", mock.Anything, "Toni Morrison").
		Return(nil, &books.StatusError{StatusCode: 503, Body: "busy"}).Once()
	catalog.On("SearchByAuthor", mock.Anything, "Toni Morrison").
		Return(morrisonVolumes(), nil).Once()

	p, err := NewCartographer(catalog, withFastRetry).Run(context.Background(), newTestTask())
	require.NoError(t, err)
	assert.NotNil(t, p)
	catalog.AssertNumberOfCalls(t, "SearchByAuthor", 2)
}

func TestCartographer_ClientErrorIsPermanent(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("SearchByAuthor", mock.Anything, "Toni Morrison").
		Return(nil, &books.StatusError{StatusCode: 400, Body: "bad query"})

	_, err := NewCartographer(catalog, withFastRetry).Run(context.Background(), newTestTask())
	require.Error(t, err)

	var se *books.StatusError
	assert.True(t, errors.As(err, &se))
	catalog.AssertNumberOfCalls(t, "SearchByAuthor", 1)
}

func TestCartographer_ValidateWithoutCatalog(t *testing.T) {
	assert.Error(t, NewCartographer(nil).Validate())
}
