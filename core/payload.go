package core

import "fmt"

// Payload is the structured result of a successful worker run. It is a closed
// set: *AuthorContext, *ReadingMap and *LegacyAnalysis.
type Payload interface {
	// Role returns the role that produces this payload kind.
	Role() Role
	// Clone returns a deep copy so snapshots never alias live results.
	Clone() Payload
}

// NewPayload returns an empty payload of the kind produced by role, ready to
// be decoded into.
func NewPayload(role Role) (Payload, error) {
	switch role {
	case RoleHistorian:
		return &AuthorContext{}, nil
	case RoleCartographer:
		return &ReadingMap{}, nil
	case RoleConnector:
		return &LegacyAnalysis{}, nil
	default:
		return nil, fmt.Errorf("no payload kind for role %q", role)
	}
}

// AuthorContext is the historian's biographical and historical findings.
type AuthorContext struct {
	BirthYear           int      `json:"birth_year,omitempty" yaml:"birth_year,omitempty"`
	DeathYear           int      `json:"death_year,omitempty" yaml:"death_year,omitempty"`
	Nationality         string   `json:"nationality,omitempty" yaml:"nationality,omitempty"`
	LiteraryMovements   []string `json:"literary_movements,omitempty" yaml:"literary_movements,omitempty"`
	KeyInfluences       []string `json:"key_influences,omitempty" yaml:"key_influences,omitempty"`
	HistoricalContext   string   `json:"historical_context,omitempty" yaml:"historical_context,omitempty"`
	BiographicalSummary string   `json:"biographical_summary,omitempty" yaml:"biographical_summary,omitempty"`
}

// Role implements Payload.
func (*AuthorContext) Role() Role { return RoleHistorian }

// Clone implements Payload.
func (a *AuthorContext) Clone() Payload {
	if a == nil {
		return (*AuthorContext)(nil)
	}
	c := *a
	c.LiteraryMovements = cloneStrings(a.LiteraryMovements)
	c.KeyInfluences = cloneStrings(a.KeyInfluences)
	return &c
}

// ReadingEntry is a single work in a reading map.
type ReadingEntry struct {
	Title       string `json:"title" yaml:"title"`
	Year        int    `json:"year,omitempty" yaml:"year,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	ISBN        string `json:"isbn,omitempty" yaml:"isbn,omitempty"`
	Category    string `json:"category,omitempty" yaml:"category,omitempty"`
	InfoLink    string `json:"info_link,omitempty" yaml:"info_link,omitempty"`
	PreviewLink string `json:"preview_link,omitempty" yaml:"preview_link,omitempty"`
}

// ReadingMap is the cartographer's structured bibliography.
type ReadingMap struct {
	StartHere      []ReadingEntry            `json:"start_here,omitempty" yaml:"start_here,omitempty"`
	Chronological  []ReadingEntry            `json:"chronological,omitempty" yaml:"chronological,omitempty"`
	ThematicGroups map[string][]ReadingEntry `json:"thematic_groups,omitempty" yaml:"thematic_groups,omitempty"`
	CompleteWorks  []ReadingEntry            `json:"complete_works,omitempty" yaml:"complete_works,omitempty"`
}

// Role implements Payload.
func (*ReadingMap) Role() Role { return RoleCartographer }

// Clone implements Payload.
func (m *ReadingMap) Clone() Payload {
	if m == nil {
		return (*ReadingMap)(nil)
	}
	c := &ReadingMap{
		StartHere:     cloneEntries(m.StartHere),
		Chronological: cloneEntries(m.Chronological),
		CompleteWorks: cloneEntries(m.CompleteWorks),
	}
	if m.ThematicGroups != nil {
		c.ThematicGroups = make(map[string][]ReadingEntry, len(m.ThematicGroups))
		for k, v := range m.ThematicGroups {
			c.ThematicGroups[k] = cloneEntries(v)
		}
	}
	return c
}

// SimilarAuthor is a "if you like this, try..." suggestion.
type SimilarAuthor struct {
	Name   string `json:"name" yaml:"name"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// LegacyAnalysis is the connector's critical assessment.
type LegacyAnalysis struct {
	StylisticInnovations []string        `json:"stylistic_innovations,omitempty" yaml:"stylistic_innovations,omitempty"`
	RecurringThemes      []string        `json:"recurring_themes,omitempty" yaml:"recurring_themes,omitempty"`
	LiterarySignificance string          `json:"literary_significance,omitempty" yaml:"literary_significance,omitempty"`
	ModernRelevance      string          `json:"modern_relevance,omitempty" yaml:"modern_relevance,omitempty"`
	SimilarAuthors       []SimilarAuthor `json:"similar_authors,omitempty" yaml:"similar_authors,omitempty"`
}

// Role implements Payload.
func (*LegacyAnalysis) Role() Role { return RoleConnector }

// Clone implements Payload.
func (l *LegacyAnalysis) Clone() Payload {
	if l == nil {
		return (*LegacyAnalysis)(nil)
	}
	c := *l
	c.StylisticInnovations = cloneStrings(l.StylisticInnovations)
	c.RecurringThemes = cloneStrings(l.RecurringThemes)
	if l.SimilarAuthors != nil {
		c.SimilarAuthors = append([]SimilarAuthor(nil), l.SimilarAuthors...)
	}
	return &c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneEntries(in []ReadingEntry) []ReadingEntry {
	if in == nil {
		return nil
	}
	return append([]ReadingEntry(nil), in...)
}
