package evaluation

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/literaryfinder/core"
	"github.com/hupe1980/literaryfinder/internal/testutil"
	"github.com/hupe1980/literaryfinder/report"
)

func richAuthorContext() *core.AuthorContext {
	ac := testutil.SampleAuthorContext()
	ac.BiographicalSummary = "Toni Morrison was an American novelist, essayist, editor and professor whose work explored Black American life with unmatched lyricism."
	return ac
}

func richLegacy() *core.LegacyAnalysis {
	la := testutil.SampleLegacyAnalysis()
	la.LiterarySignificance = "Morrison reshaped the American canon by centring Black interior lives, and her novels are now fixtures of university curricula."
	return la
}

// structuredReport has the title and every section heading, followed by body.
func structuredReport(body string) *string {
	md := report.Heading + " Toni Morrison\n\n"
	for _, role := range core.Roles {
		md += "## " + report.Title(role) + "\n\n"
	}
	md += body
	return &md
}

func TestEvaluate_AllSucceededParallel(t *testing.T) {
	snap, trace := testutil.NewSnapshotBuilder("Toni Morrison").
		Succeed(core.RoleHistorian, richAuthorContext(), 2*time.Second).
		Succeed(core.RoleCartographer, testutil.SampleReadingMap(), 3*time.Second).
		Succeed(core.RoleConnector, richLegacy(), time.Second).
		Build()

	md := structuredReport(strings.Repeat("Beloved. ", 120) + "https://books.google.com/books?id=beloved")
	r := Evaluate(snap, trace, md, core.ModeParallel, DefaultThresholds)

	require.Len(t, r.PerRole, 3)
	assert.Equal(t, 1.0, r.System.SuccessRate)
	assert.Equal(t, 3, r.System.Succeeded)
	assert.Equal(t, 0, r.System.Failed)
	assert.Equal(t, int64(3000), r.System.TotalTimeMS)
	assert.Equal(t, int64(3000), r.System.WallTimeMS)
	assert.InDelta(t, 1.0, r.System.OverallQualityScore, 1e-9)
	assert.Equal(t, QualityMetrics{
		BiographicalCompleteness: 1, BibliographyCoverage: 1, AnalysisDepth: 1,
		CitationQuality: 1, NarrativeCoherence: 1, OverallQuality: 1,
	}, r.Quality)
	assert.Equal(t, []string{OptimalRecommendation}, r.Recommendations)

	h := r.PerRole[core.RoleHistorian]
	assert.Equal(t, int64(2000), h.LatencyMS)
	assert.True(t, h.Success)
	assert.Equal(t, core.RoleHistorian.Description(), h.Description)
	assert.Equal(t, core.RoleHistorian.Tools(), h.Tools)
	assert.Equal(t, 1.0, h.DataCompleteness)
}

func TestEvaluate_SequentialSumsLatencies(t *testing.T) {
	snap, trace := testutil.NewSnapshotBuilder("Toni Morrison").
		Mode(core.ModeSequential).
		Succeed(core.RoleHistorian, richAuthorContext(), 2*time.Second).
		Succeed(core.RoleCartographer, testutil.SampleReadingMap(), 3*time.Second).
		Succeed(core.RoleConnector, richLegacy(), time.Second).
		Build()

	r := Evaluate(snap, trace, structuredReport(""), core.ModeSequential, DefaultThresholds)
	assert.Equal(t, int64(6000), r.System.TotalTimeMS)
	assert.Equal(t, int64(6000), r.System.WallTimeMS)
	assert.Equal(t, core.ModeSequential, r.System.Mode)
}

func TestEvaluate_PartialFailure(t *testing.T) {
	snap, trace := testutil.NewSnapshotBuilder("Toni Morrison").
		Succeed(core.RoleHistorian, richAuthorContext(), time.Second).
		Fail(core.RoleCartographer, "catalog search: boom", time.Second).
		Succeed(core.RoleConnector, richLegacy(), time.Second).
		Build()

	r := Evaluate(snap, trace, structuredReport(""), core.ModeParallel, DefaultThresholds)
	assert.InDelta(t, 2.0/3.0, r.System.SuccessRate, 1e-9)
	assert.Equal(t, 1, r.System.Failed)
	assert.Zero(t, r.Quality.BibliographyCoverage)
	assert.InDelta(t, 0.7, r.Quality.CitationQuality, 1e-9)
	assert.InDelta(t, 0.8, r.Quality.NarrativeCoherence, 1e-9)
	// 0.20*1 + 0.25*0 + 0.25*1 + 0.15*0.7 + 0.15*0.8
	assert.InDelta(t, 0.675, r.System.OverallQualityScore, 1e-9)

	c := r.PerRole[core.RoleCartographer]
	assert.False(t, c.Success)
	assert.Equal(t, "catalog search: boom", c.Error)
	assert.Zero(t, c.QualityScore)

	assert.Equal(t, []string{
		"System success rate is 66.7%. Consider improving error handling and retry mechanisms.",
		"Workers cartographer failed. Review error logs and improve error recovery.",
	}, r.Recommendations)
}

func TestEvaluate_SlowAndLowQuality(t *testing.T) {
	snap, trace := testutil.NewSnapshotBuilder("Toni Morrison").
		Succeed(core.RoleHistorian, &core.AuthorContext{Nationality: "American"}, 65*time.Second).
		Succeed(core.RoleCartographer, testutil.SampleReadingMap(), time.Second).
		Succeed(core.RoleConnector, richLegacy(), 31*time.Second).
		Build()

	r := Evaluate(snap, trace, nil, core.ModeParallel, DefaultThresholds)
	assert.Equal(t, []string{
		"Execution time is 65.0s. Consider optimizing API calls or implementing caching.",
		"Workers historian, connector are slow. Consider optimizing search queries and API usage.",
		"Biographical data is incomplete. Enhance search strategies for birth/death dates, nationality, and biographical details.",
	}, r.Recommendations)
}

func TestEvaluate_DoesNotMutateSnapshot(t *testing.T) {
	snap, trace := testutil.NewSnapshotBuilder("Toni Morrison").
		Succeed(core.RoleHistorian, richAuthorContext(), time.Second).
		Build()
	before := snap.Slot(core.RoleHistorian)

	_ = Evaluate(snap, trace, nil, core.ModeParallel, DefaultThresholds)
	assert.Equal(t, before, snap.Slot(core.RoleHistorian))
}

func TestQuality(t *testing.T) {
	assert.Equal(t, 0.6, Quality(testutil.SampleAuthorContext()))
	assert.Equal(t, 1.0, Quality(testutil.SampleReadingMap()))
	assert.Equal(t, 0.8, Quality(testutil.SampleLegacyAnalysis()))
	assert.Equal(t, 0.0, Quality(&core.ReadingMap{}))
	assert.Equal(t, 0.0, Quality(nil))
}

func TestReport_SummaryAndExport(t *testing.T) {
	snap, trace := testutil.NewSnapshotBuilder("Toni Morrison").
		Succeed(core.RoleHistorian, richAuthorContext(), 2*time.Second).
		Fail(core.RoleCartographer, "timed out", time.Second).
		Succeed(core.RoleConnector, richLegacy(), time.Second).
		Build()
	r := Evaluate(snap, trace, structuredReport(""), core.ModeParallel, DefaultThresholds)

	summary := r.Summary()
	assert.Contains(t, summary, "Performance Report: Toni Morrison")
	assert.Contains(t, summary, "Success Rate: 66.7%")
	assert.Contains(t, summary, "Workers: 2/3 successful")
	assert.Contains(t, summary, "Parallel Execution: Yes")
	assert.Contains(t, summary, "✗ Failed")
	assert.Contains(t, summary, "Error: timed out")
	assert.Contains(t, summary, "Citation Quality: 70.0%")
	assert.Contains(t, summary, "Narrative Coherence: 80.0%")
	assert.Contains(t, summary, "=== RECOMMENDATIONS ===\n1. ")

	raw, err := r.JSON()
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	perRole := decoded["per_role"].(map[string]any)
	assert.Contains(t, perRole, "historian")
	assert.Equal(t, float64(2000), perRole["historian"].(map[string]any)["latency_ms"])
	assert.Contains(t, decoded["system"].(map[string]any), "success_rate")
	assert.Contains(t, decoded["quality"].(map[string]any), "narrative_coherence")

	y, err := r.YAML()
	require.NoError(t, err)
	var back Report
	require.NoError(t, yaml.Unmarshal(y, &back))
	assert.Equal(t, r.System, back.System)
	assert.Equal(t, r.Quality, back.Quality)
	assert.Equal(t, r.Recommendations, back.Recommendations)
	assert.Equal(t, r.PerRole[core.RoleConnector].QualityScore, back.PerRole[core.RoleConnector].QualityScore)
}

func TestEvaluate_WithoutReport(t *testing.T) {
	snap, trace := testutil.NewSnapshotBuilder("Toni Morrison").
		Fail(core.RoleHistorian, "a", time.Second).
		Fail(core.RoleCartographer, "b", time.Second).
		Fail(core.RoleConnector, "c", time.Second).
		Build()

	r := Evaluate(snap, trace, nil, core.ModeParallel, DefaultThresholds)
	assert.Equal(t, QualityMetrics{}, r.Quality)
	assert.Zero(t, r.System.OverallQualityScore)
}

func TestCitationQuality(t *testing.T) {
	link := "See https://books.google.com/books?id=beloved"
	tests := []struct {
		name   string
		report string
		errs   int
		want   float64
	}{
		{"no report", "", 0, 0},
		{"report without errors", "body", 0, 0.8},
		{"three errors", "body", 3, 0.5},
		{"penalty is capped", "body", 9, 0.3},
		{"google books link", link, 0, 1},
		{"link with errors", link, 2, 0.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CitationQuality(tt.report, tt.errs), 1e-9)
		})
	}
}

func TestNarrativeCoherence(t *testing.T) {
	assert.Zero(t, NarrativeCoherence(""))
	assert.InDelta(t, 0.2, NarrativeCoherence(report.Heading+" Toni Morrison"), 1e-9)
	assert.InDelta(t, 0.8, NarrativeCoherence(*structuredReport("")), 1e-9)
	assert.InDelta(t, 1.0, NarrativeCoherence(*structuredReport(strings.Repeat("x", 1001))), 1e-9)

	// Length counts characters, not bytes.
	assert.Zero(t, NarrativeCoherence(strings.Repeat("é", 600)))
}

func TestEvaluate_ScoresSynthesizedReport(t *testing.T) {
	snap, trace := testutil.NewSnapshotBuilder("Toni Morrison").
		Succeed(core.RoleHistorian, richAuthorContext(), time.Second).
		Succeed(core.RoleCartographer, testutil.SampleReadingMap(), time.Second).
		Succeed(core.RoleConnector, richLegacy(), time.Second).
		Build()
	md := report.Synthesize("Toni Morrison", snap).Markdown()

	r := Evaluate(snap, trace, &md, core.ModeParallel, DefaultThresholds)
	assert.GreaterOrEqual(t, r.Quality.NarrativeCoherence, 0.8)
	assert.InDelta(t, 0.8, r.Quality.CitationQuality, 1e-9)
}
