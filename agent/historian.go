package agent

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/hupe1980/literaryfinder/core"
	"github.com/hupe1980/literaryfinder/model"
)

const historianInstruction = `You are the Contextual Historian, a research specialist focused on the biographical and historical context surrounding literary authors.

Gather key life details (birth and death, nationality, formative experiences), the socio-political and cultural climate of the author's era, and the writers, thinkers and movements that shaped the work. Prefer authoritative sources and connect life to literature.`

const historianPrompt = `Research the biographical and historical context for author: {{.subject}}

Answer using exactly these labelled sections, one label per line:

Birth year: <four digit year or Unknown>
Death year: <four digit year, or Unknown if still living>
Nationality: <nationality>
Literary movements:
- <movement>
Key influences:
- <writer or thinker>
Historical context: <a paragraph on the era and its events>
Summary: <a biographical narrative connecting life and work>`

var (
	bornPattern        = regexp.MustCompile(`(?is)(?:born|birth).{0,20}?(\d{4})`)
	diedPattern        = regexp.MustCompile(`(?is)(?:died|death).{0,20}?(\d{4})`)
	nationalityPattern = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:nationality|was|born).{0,30}?\b(American|British|French|German|Russian|Italian|Spanish|Irish|Scottish|English|Canadian|Nigerian|Colombian|Japanese)\b`),
		regexp.MustCompile(`(?i)\b(American|British|French|German|Russian|Italian|Spanish|Irish|Scottish|English|Canadian|Nigerian|Colombian|Japanese)\s+(?:author|writer|novelist|poet)`),
	}
)

// Historian researches an author's life and era and yields *core.AuthorContext.
type Historian struct {
	BaseWorker
}

// NewHistorian creates the historian backed by m.
func NewHistorian(m model.Model, optFns ...func(o *Options)) *Historian {
	return &Historian{BaseWorker: newBaseWorker(core.RoleHistorian, m, historianInstruction, historianPrompt, optFns)}
}

// Tools lists the research capabilities the historian covers.
func (h *Historian) Tools() []string {
	return core.RoleHistorian.Tools()
}

// Run implements core.Worker.
func (h *Historian) Run(ctx context.Context, task core.Task) (core.Payload, error) {
	text, err := h.generate(ctx, task, map[string]any{"subject": task.Subject})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("historian: empty research output")
	}
	return parseAuthorContext(text), nil
}

func parseAuthorContext(text string) *core.AuthorContext {
	s := sections(text,
		"birth year", "death year", "nationality", "literary movements",
		"key influences", "historical context", "summary", "biographical summary",
	)

	ac := &core.AuthorContext{
		BirthYear:         firstYear(s["birth year"]),
		DeathYear:         firstYear(s["death year"]),
		Nationality:       paragraph(s["nationality"]),
		LiteraryMovements: listItems(s["literary movements"]),
		KeyInfluences:     listItems(s["key influences"]),
		HistoricalContext: paragraph(s["historical context"]),
	}

	ac.BiographicalSummary = paragraph(s["summary"])
	if ac.BiographicalSummary == "" {
		ac.BiographicalSummary = paragraph(s["biographical summary"])
	}

	// Free-form answers: fall back to pattern matching over the whole text.
	if ac.BirthYear == 0 {
		ac.BirthYear = submatchYear(bornPattern, text)
	}
	if ac.DeathYear == 0 && s["death year"] == "" {
		ac.DeathYear = submatchYear(diedPattern, text)
	}
	if ac.Nationality == "" {
		for _, p := range nationalityPattern {
			if m := p.FindStringSubmatch(text); m != nil {
				ac.Nationality = m[1]
				break
			}
		}
	}
	if ac.BiographicalSummary == "" && len(s) == 0 {
		ac.BiographicalSummary = strings.TrimSpace(text)
	}
	return ac
}

func submatchYear(p *regexp.Regexp, text string) int {
	m := p.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	y, _ := strconv.Atoi(m[1])
	return y
}
