package agent

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/hupe1980/literaryfinder/core"
	"github.com/hupe1980/literaryfinder/model"
)

const connectorInstruction = `You are the Legacy Connector, a literary critic who analyses an author's legacy.

Identify the author's key writing techniques and stylistic innovations, the recurring themes and concerns of the work, the author's significance in literary history and why the work still matters. Suggest other authors readers may enjoy.`

const connectorPrompt = `Analyze the literary legacy of author: {{.subject}}
{{- if .context}}

Known context from earlier research:
{{.context}}
{{- end}}

Answer using exactly these labelled sections, one label per line:

Stylistic innovations:
- <innovation>
Recurring themes:
- <theme>
Similar authors:
- <Name> - <why readers of {{.subject}} would enjoy them>
Literary significance: <a paragraph>
Modern relevance: <a paragraph>`

const maxLegacyItems = 5

var unavailableFindings = map[core.Role]string{
	core.RoleHistorian:    "Biographical research",
	core.RoleCartographer: "Bibliography",
}

var (
	similarSeparator = regexp.MustCompile(`\s+[-–—]\s+|:\s+`)
	relevancePattern = regexp.MustCompile(`(?i)(?:modern|contemporary|relevant|today).{0,200}`)
)

// Connector analyses an author's critical legacy and yields
// *core.LegacyAnalysis. In sequential mode it folds in the findings of the
// roles that ran before it.
type Connector struct {
	BaseWorker
}

// NewConnector creates the connector backed by m.
func NewConnector(m model.Model, optFns ...func(o *Options)) *Connector {
	return &Connector{BaseWorker: newBaseWorker(core.RoleConnector, m, connectorInstruction, connectorPrompt, optFns)}
}

// Tools lists the research capabilities the connector covers.
func (c *Connector) Tools() []string {
	return core.RoleConnector.Tools()
}

// Run implements core.Worker.
func (c *Connector) Run(ctx context.Context, task core.Task) (core.Payload, error) {
	text, err := c.generate(ctx, task, map[string]any{
		"subject": task.Subject,
		"context": priorContext(task),
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("connector: empty analysis output")
	}
	return parseLegacyAnalysis(text), nil
}

// priorContext summarises predecessor payloads for the prompt.
func priorContext(task core.Task) string {
	prior := task.Prior
	var b strings.Builder
	for _, role := range core.Roles {
		if task.PredecessorStatus(role) == core.StatusFailed {
			b.WriteString("- " + unavailableFindings[role] + " unavailable, rely on your own knowledge\n")
		}
	}
	if ac, ok := prior[core.RoleHistorian].(*core.AuthorContext); ok && ac != nil {
		if ac.Nationality != "" {
			b.WriteString("- Nationality: " + ac.Nationality + "\n")
		}
		if len(ac.LiteraryMovements) > 0 {
			b.WriteString("- Movements: " + strings.Join(ac.LiteraryMovements, ", ") + "\n")
		}
		if len(ac.KeyInfluences) > 0 {
			b.WriteString("- Influences: " + strings.Join(ac.KeyInfluences, ", ") + "\n")
		}
	}
	if rm, ok := prior[core.RoleCartographer].(*core.ReadingMap); ok && rm != nil {
		titles := make([]string, 0, maxLegacyItems)
		for _, e := range rm.Chronological {
			titles = append(titles, e.Title)
			if len(titles) == maxLegacyItems {
				break
			}
		}
		if len(titles) > 0 {
			b.WriteString("- Major works: " + strings.Join(titles, "; ") + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func parseLegacyAnalysis(text string) *core.LegacyAnalysis {
	s := sections(text,
		"stylistic innovations", "innovations", "recurring themes", "themes",
		"similar authors", "literary significance", "significance", "modern relevance",
	)

	la := &core.LegacyAnalysis{
		StylisticInnovations: limit(listItems(first(s, "stylistic innovations", "innovations")), maxLegacyItems),
		RecurringThemes:      limit(listItems(first(s, "recurring themes", "themes")), maxLegacyItems),
		LiterarySignificance: paragraph(first(s, "literary significance", "significance")),
		ModernRelevance:      paragraph(s["modern relevance"]),
	}
	for _, item := range listItems(s["similar authors"]) {
		la.SimilarAuthors = append(la.SimilarAuthors, parseSimilarAuthor(item))
	}

	if la.LiterarySignificance == "" {
		la.LiterarySignificance = strings.TrimSpace(text)
	}
	if la.ModernRelevance == "" && len(s) == 0 {
		la.ModernRelevance = strings.TrimSpace(relevancePattern.FindString(text))
	}
	return la
}

func parseSimilarAuthor(item string) core.SimilarAuthor {
	parts := similarSeparator.Split(item, 2)
	sa := core.SimilarAuthor{Name: strings.Trim(strings.TrimSpace(parts[0]), "*_")}
	if len(parts) == 2 {
		sa.Reason = strings.TrimSpace(parts[1])
	}
	return sa
}

func first(s map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := s[k]; v != "" {
			return v
		}
	}
	return ""
}
