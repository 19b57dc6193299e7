package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hupe1980/literaryfinder/core"
	"github.com/hupe1980/literaryfinder/state"
)

const (
	maxChronological = 15
	maxPerTheme      = 5
)

// Footer closes every report.
const Footer = "_Generated by The Literary Finder - A Multi-Agent System for Deep Literary Discovery_"

// Section is the rendered contribution of one role.
type Section struct {
	Role      core.Role `json:"role" yaml:"role"`
	Title     string    `json:"title" yaml:"title"`
	Body      string    `json:"body" yaml:"body"`
	Available bool      `json:"available" yaml:"available"`
}

// Report is the synthesized result for one subject.
type Report struct {
	Subject  string    `json:"subject" yaml:"subject"`
	Sections []Section `json:"sections" yaml:"sections"`
}

// Available returns the number of sections backed by a successful slot.
func (r Report) Available() int {
	n := 0
	for _, s := range r.Sections {
		if s.Available {
			n++
		}
	}
	return n
}

// Section returns the section for role.
func (r Report) Section(role core.Role) (Section, bool) {
	for _, s := range r.Sections {
		if s.Role == role {
			return s, true
		}
	}
	return Section{}, false
}

// Synthesize builds the report from a snapshot. It never mutates snap.
func Synthesize(subject string, snap state.Snapshot) Report {
	r := Report{Subject: subject, Sections: make([]Section, 0, len(core.Roles))}
	for _, role := range core.Roles {
		r.Sections = append(r.Sections, section(role, snap.Slot(role)))
	}
	return r
}

func section(role core.Role, slot state.Slot) Section {
	s := Section{Role: role, Title: Title(role)}
	if slot.Status != core.StatusSucceeded || slot.Payload == nil {
		s.Body = unavailable(slot)
		return s
	}

	var body string
	switch p := slot.Payload.(type) {
	case *core.AuthorContext:
		body = renderAuthorContext(p)
	case *core.ReadingMap:
		body = renderReadingMap(p)
	case *core.LegacyAnalysis:
		body = renderLegacy(p)
	default:
		s.Body = unavailable(state.Slot{Status: core.StatusFailed, Error: fmt.Sprintf("unsupported payload %T", p)})
		return s
	}
	if strings.TrimSpace(body) == "" {
		body = "_No details were found._\n"
	}
	s.Body = body
	s.Available = true
	return s
}

// Heading opens every report, followed by the subject.
const Heading = "# The Literary Finder:"

// Title returns the section heading for role.
func Title(role core.Role) string {
	switch role {
	case core.RoleHistorian:
		return "📚 Author Biography & Historical Context"
	case core.RoleCartographer:
		return "📖 Reading Map & Bibliography"
	case core.RoleConnector:
		return "🎯 Literary Legacy & Analysis"
	default:
		return string(role)
	}
}

func unavailable(slot state.Slot) string {
	switch {
	case slot.Status == core.StatusFailed && slot.Error != "":
		return fmt.Sprintf("_Data unavailable: %s_\n", slot.Error)
	case slot.Status == core.StatusFailed:
		return "_Data unavailable._\n"
	default:
		return fmt.Sprintf("_Data unavailable (%s)._\n", slot.Status)
	}
}

// Markdown renders the full report document.
func (r Report) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n\n", Heading, r.Subject)
	b.WriteString("_A comprehensive guide to the author's life, works, and literary legacy_\n\n")
	b.WriteString("---\n\n")
	for _, s := range r.Sections {
		fmt.Fprintf(&b, "## %s\n\n", s.Title)
		b.WriteString(s.Body)
		b.WriteString("\n")
	}
	b.WriteString("---\n\n")
	b.WriteString(Footer + "\n")
	return b.String()
}

func renderAuthorContext(ac *core.AuthorContext) string {
	var b strings.Builder
	if ac.BiographicalSummary != "" {
		b.WriteString(ac.BiographicalSummary + "\n\n")
	}
	if years := lifespan(ac.BirthYear, ac.DeathYear); years != "" {
		fmt.Fprintf(&b, "**Years:** %s\n\n", years)
	}
	if ac.Nationality != "" {
		fmt.Fprintf(&b, "**Nationality:** %s\n\n", ac.Nationality)
	}
	if len(ac.LiteraryMovements) > 0 {
		fmt.Fprintf(&b, "**Literary Movements:** %s\n\n", strings.Join(ac.LiteraryMovements, ", "))
	}
	if len(ac.KeyInfluences) > 0 {
		fmt.Fprintf(&b, "**Key Influences:** %s\n\n", strings.Join(ac.KeyInfluences, ", "))
	}
	if ac.HistoricalContext != "" {
		b.WriteString("### Historical Context\n\n" + ac.HistoricalContext + "\n\n")
	}
	return b.String()
}

func lifespan(born, died int) string {
	switch {
	case born > 0 && died > 0:
		return fmt.Sprintf("%d - %d", born, died)
	case born > 0:
		return strconv.Itoa(born)
	case died > 0:
		return fmt.Sprintf("? - %d", died)
	default:
		return ""
	}
}

func renderReadingMap(rm *core.ReadingMap) string {
	var b strings.Builder

	if len(rm.StartHere) > 0 {
		b.WriteString("### 🌟 Start Here\n_Essential works for new readers_\n\n")
		for _, e := range rm.StartHere {
			b.WriteString("- **" + e.Title + "**" + year(e.Year))
			if e.InfoLink != "" {
				fmt.Fprintf(&b, " - [📖 View on Google Books](%s)", e.InfoLink)
			}
			if e.PreviewLink != "" {
				fmt.Fprintf(&b, " - [🔍 Preview](%s)", e.PreviewLink)
			}
			if e.Description != "" {
				b.WriteString("\n  - " + e.Description)
			}
			b.WriteString("\n\n")
		}
	}

	if len(rm.Chronological) > 0 {
		b.WriteString("### 📅 Chronological Bibliography\n_Complete works in order of publication_\n\n")
		for i, e := range rm.Chronological {
			if i == maxChronological {
				fmt.Fprintf(&b, "- ... and %d more works\n", len(rm.Chronological)-maxChronological)
				break
			}
			b.WriteString("- **" + e.Title + "**" + year(e.Year) + link(e.InfoLink) + "\n")
		}
		b.WriteString("\n")
	}

	if len(rm.ThematicGroups) > 0 {
		themes := make([]string, 0, len(rm.ThematicGroups))
		for theme, entries := range rm.ThematicGroups {
			if len(entries) > 0 {
				themes = append(themes, theme)
			}
		}
		sort.Strings(themes)
		if len(themes) > 0 {
			b.WriteString("### 🎭 Thematic Collections\n\n")
		}
		for _, theme := range themes {
			fmt.Fprintf(&b, "**%s:**\n", theme)
			for i, e := range rm.ThematicGroups[theme] {
				if i == maxPerTheme {
					break
				}
				b.WriteString("- " + e.Title + year(e.Year) + link(e.InfoLink) + "\n")
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderLegacy(la *core.LegacyAnalysis) string {
	var b strings.Builder
	bullets := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		b.WriteString("### " + title + "\n")
		for _, it := range items {
			b.WriteString("- " + it + "\n")
		}
		b.WriteString("\n")
	}
	bullets("✨ Stylistic Innovations", la.StylisticInnovations)
	bullets("🔍 Recurring Themes", la.RecurringThemes)

	if len(la.SimilarAuthors) > 0 {
		b.WriteString("### 🔗 If You Like This Author, Try...\n\n")
		for _, a := range la.SimilarAuthors {
			reason := a.Reason
			if reason == "" {
				reason = "Similar style or themes"
			}
			fmt.Fprintf(&b, "- **%s** - %s\n", a.Name, reason)
		}
		b.WriteString("\n")
	}
	if la.LiterarySignificance != "" {
		b.WriteString("### 📜 Critical Assessment\n\n" + la.LiterarySignificance + "\n\n")
	}
	if la.ModernRelevance != "" {
		b.WriteString("### 🌍 Modern Relevance\n\n" + la.ModernRelevance + "\n\n")
	}
	return b.String()
}

func year(y int) string {
	if y <= 0 {
		return ""
	}
	return fmt.Sprintf(" (%d)", y)
}

func link(u string) string {
	if u == "" {
		return ""
	}
	return fmt.Sprintf(" - [📖 Link](%s)", u)
}
