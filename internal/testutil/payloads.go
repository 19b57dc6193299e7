package testutil

import "github.com/hupe1980/literaryfinder/core"

// SampleAuthorContext returns a fully populated historian payload.
func SampleAuthorContext() *core.AuthorContext {
	return &core.AuthorContext{
		BirthYear:           1931,
		DeathYear:           2019,
		Nationality:         "American",
		LiteraryMovements:   []string{"African American literature", "Postmodernism"},
		KeyInfluences:       []string{"James Baldwin", "William Faulkner"},
		HistoricalContext:   "Segregation, the civil rights movement and its aftermath.",
		BiographicalSummary: "Toni Morrison was an American novelist and Nobel laureate.",
	}
}

// SampleReadingMap returns a fully populated cartographer payload.
func SampleReadingMap() *core.ReadingMap {
	bluest := core.ReadingEntry{Title: "The Bluest Eye", Year: 1970, Category: "Fiction", Description: "Her first novel, about a young girl who longs for blue eyes."}
	song := core.ReadingEntry{Title: "Song of Solomon", Year: 1977, Category: "Fiction", Description: "A coming of age story following Milkman Dead."}
	beloved := core.ReadingEntry{Title: "Beloved", Year: 1987, Category: "Fiction", Description: "A former slave is haunted by the ghost of her daughter.", InfoLink: "https://books.example/beloved"}
	playing := core.ReadingEntry{Title: "Playing in the Dark", Year: 1992, Category: "Literary Criticism"}
	return &core.ReadingMap{
		StartHere:     []core.ReadingEntry{bluest, song, beloved},
		Chronological: []core.ReadingEntry{bluest, song, beloved, playing},
		ThematicGroups: map[string][]core.ReadingEntry{
			"Fiction":            {beloved, bluest, song},
			"Literary Criticism": {playing},
		},
		CompleteWorks: []core.ReadingEntry{beloved, bluest, playing, song},
	}
}

// SampleLegacyAnalysis returns a fully populated connector payload.
func SampleLegacyAnalysis() *core.LegacyAnalysis {
	return &core.LegacyAnalysis{
		StylisticInnovations: []string{"Polyphonic narration", "Nonlinear time"},
		RecurringThemes:      []string{"Memory", "Identity", "Community"},
		LiterarySignificance: "Reshaped the American canon.",
		ModernRelevance:      "Central to debates on history and memory.",
		SimilarAuthors:       []core.SimilarAuthor{{Name: "Zora Neale Hurston", Reason: "Black womanhood"}},
	}
}

// SamplePayload returns the sample payload for role.
func SamplePayload(role core.Role) core.Payload {
	switch role {
	case core.RoleHistorian:
		return SampleAuthorContext()
	case core.RoleCartographer:
		return SampleReadingMap()
	default:
		return SampleLegacyAnalysis()
	}
}
