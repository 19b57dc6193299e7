package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSections_MarkdownDecoration(t *testing.T) {
	text := "Intro line\n## Birth year: 1931\n**Nationality:** American\n1. Key influences:\n- Faulkner\n- Woolf\nSummary: first\nsecond"
	s := sections(text, "birth year", "nationality", "key influences", "summary")

	assert.Equal(t, "1931", s["birth year"])
	assert.Equal(t, "American", s["nationality"])
	assert.Equal(t, "- Faulkner\n- Woolf", s["key influences"])
	assert.Equal(t, "first\nsecond", s["summary"])
	assert.NotContains(t, s, "intro line")
}

func TestListItems(t *testing.T) {
	assert.Equal(t, []string{"Faulkner", "Woolf"}, listItems("- Faulkner\n* **Woolf**"))
	assert.Equal(t, []string{"Modernism", "Southern Gothic"}, listItems("Modernism, Southern Gothic."))
	assert.Equal(t, []string{"One", "Two"}, listItems("1. One\n2) Two"))
	assert.Nil(t, listItems("Unknown"))
	assert.Nil(t, listItems(""))
}

func TestFirstYear(t *testing.T) {
	assert.Equal(t, 1931, firstYear("February 18, 1931"))
	assert.Equal(t, 0, firstYear("Unknown"))
	assert.Equal(t, 2019, firstYear("died in 2019"))
}

func TestParagraph(t *testing.T) {
	assert.Equal(t, "", paragraph(" N/A "))
	assert.Equal(t, "text", paragraph("\ntext\n"))
}
