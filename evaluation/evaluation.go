// Package evaluation measures a finished request: per worker latency, success
// and output quality, system wide aggregates and recommendations.
package evaluation

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/literaryfinder/core"
	"github.com/hupe1980/literaryfinder/report"
	"github.com/hupe1980/literaryfinder/state"
)

// Weights of each quality dimension in the overall quality score.
const (
	WeightBiographical = 0.20
	WeightBibliography = 0.25
	WeightAnalysis     = 0.25
	WeightCitation     = 0.15
	WeightNarrative    = 0.15
)

// reportMinLength is the length above which a report counts as substantial.
const reportMinLength = 1000

// Thresholds drive the recommendation rules.
type Thresholds struct {
	MinSuccessRate float64       `json:"min_success_rate" yaml:"min_success_rate"`
	MaxTotalTime   time.Duration `json:"max_total_time" yaml:"max_total_time"`
	SlowRole       time.Duration `json:"slow_role" yaml:"slow_role"`
	MinQuality     float64       `json:"min_quality" yaml:"min_quality"`
}

// DefaultThresholds are the production defaults.
var DefaultThresholds = Thresholds{
	MinSuccessRate: 0.8,
	MaxTotalTime:   60 * time.Second,
	SlowRole:       30 * time.Second,
	MinQuality:     0.7,
}

// OptimalRecommendation is the single recommendation emitted when no rule fires.
const OptimalRecommendation = "System performance is optimal. Continue monitoring for consistency."

// RoleMetrics describes one worker's run.
type RoleMetrics struct {
	Role             core.Role `json:"role" yaml:"role"`
	Description      string    `json:"description" yaml:"description"`
	Tools            []string  `json:"tools_used" yaml:"tools_used"`
	Status           string    `json:"status" yaml:"status"`
	Success          bool      `json:"success" yaml:"success"`
	Error            string    `json:"error,omitempty" yaml:"error,omitempty"`
	LatencyMS        int64     `json:"latency_ms" yaml:"latency_ms"`
	QualityScore     float64   `json:"quality_score" yaml:"quality_score"`
	DataCompleteness float64   `json:"data_completeness" yaml:"data_completeness"`
}

// Latency returns LatencyMS as a duration.
func (m RoleMetrics) Latency() time.Duration { return time.Duration(m.LatencyMS) * time.Millisecond }

// SystemMetrics aggregates the whole request.
type SystemMetrics struct {
	Mode                core.Mode `json:"mode" yaml:"mode"`
	TotalTimeMS         int64     `json:"total_time_ms" yaml:"total_time_ms"`
	WallTimeMS          int64     `json:"wall_time_ms" yaml:"wall_time_ms"`
	SuccessRate         float64   `json:"success_rate" yaml:"success_rate"`
	Succeeded           int       `json:"succeeded" yaml:"succeeded"`
	Failed              int       `json:"failed" yaml:"failed"`
	Total               int       `json:"total" yaml:"total"`
	OverallQualityScore float64   `json:"overall_quality_score" yaml:"overall_quality_score"`
}

// TotalTime returns TotalTimeMS as a duration.
func (m SystemMetrics) TotalTime() time.Duration {
	return time.Duration(m.TotalTimeMS) * time.Millisecond
}

// QualityMetrics scores the content of a request. The first three
// dimensions come from the payloads, the last two from the final report.
type QualityMetrics struct {
	BiographicalCompleteness float64 `json:"biographical_completeness" yaml:"biographical_completeness"`
	BibliographyCoverage     float64 `json:"bibliography_coverage" yaml:"bibliography_coverage"`
	AnalysisDepth            float64 `json:"analysis_depth" yaml:"analysis_depth"`
	CitationQuality          float64 `json:"citation_quality" yaml:"citation_quality"`
	NarrativeCoherence       float64 `json:"narrative_coherence" yaml:"narrative_coherence"`
	OverallQuality           float64 `json:"overall_quality" yaml:"overall_quality"`
}

// Report is the performance evaluation of one request.
type Report struct {
	Subject         string                    `json:"subject" yaml:"subject"`
	GeneratedAt     time.Time                 `json:"generated_at" yaml:"generated_at"`
	PerRole         map[core.Role]RoleMetrics `json:"per_role" yaml:"per_role"`
	System          SystemMetrics             `json:"system" yaml:"system"`
	Quality         QualityMetrics            `json:"quality" yaml:"quality"`
	Recommendations []string                  `json:"recommendations" yaml:"recommendations"`
}

// Evaluate measures a finished request from snap, trace and the synthesized
// report. finalReport is nil when synthesis produced nothing.
func Evaluate(snap state.Snapshot, trace state.Trace, finalReport *string, mode core.Mode, th Thresholds) *Report {
	r := &Report{
		Subject:     snap.Subject,
		GeneratedAt: trace.Finished,
		PerRole:     make(map[core.Role]RoleMetrics, len(core.Roles)),
		System:      SystemMetrics{Mode: mode, Total: len(core.Roles)},
	}

	var maxLatency, sumLatency time.Duration
	for _, role := range core.Roles {
		slot := snap.Slot(role)
		m := RoleMetrics{
			Role:        role,
			Description: role.Description(),
			Tools:       role.Tools(),
			Status:      string(slot.Status),
			Success:     slot.Status == core.StatusSucceeded,
			Error:       slot.Error,
		}
		latency := trace.Latency(role)
		if latency == 0 {
			latency = slot.Latency()
		}
		m.LatencyMS = latency.Milliseconds()
		if m.Success {
			m.QualityScore = Quality(slot.Payload)
			m.DataCompleteness = Completeness(slot.Payload)
			r.System.Succeeded++
		} else {
			r.System.Failed++
		}

		sumLatency += latency
		if latency > maxLatency {
			maxLatency = latency
		}
		r.PerRole[role] = m
	}

	if mode == core.ModeSequential {
		r.System.TotalTimeMS = sumLatency.Milliseconds()
	} else {
		r.System.TotalTimeMS = maxLatency.Milliseconds()
	}
	if !trace.Finished.IsZero() && !trace.Started.IsZero() {
		r.System.WallTimeMS = trace.Finished.Sub(trace.Started).Milliseconds()
	}
	r.System.SuccessRate = float64(r.System.Succeeded) / float64(r.System.Total)

	var md string
	if finalReport != nil {
		md = *finalReport
	}
	r.Quality = QualityMetrics{
		BiographicalCompleteness: r.PerRole[core.RoleHistorian].QualityScore,
		BibliographyCoverage:     r.PerRole[core.RoleCartographer].QualityScore,
		AnalysisDepth:            r.PerRole[core.RoleConnector].QualityScore,
		CitationQuality:          CitationQuality(md, len(snap.Errors)),
		NarrativeCoherence:       NarrativeCoherence(md),
	}
	r.Quality.OverallQuality = clamp(
		WeightBiographical*r.Quality.BiographicalCompleteness +
			WeightBibliography*r.Quality.BibliographyCoverage +
			WeightAnalysis*r.Quality.AnalysisDepth +
			WeightCitation*r.Quality.CitationQuality +
			WeightNarrative*r.Quality.NarrativeCoherence)
	r.System.OverallQualityScore = r.Quality.OverallQuality

	r.Recommendations = recommend(r, th)
	return r
}

// CitationQuality scores the sourcing of a report: 0.8 for having one, less
// 0.1 per request error (at most 0.5), plus 0.2 when it links Google Books.
func CitationQuality(finalReport string, errCount int) float64 {
	if finalReport == "" {
		return 0
	}
	score := 0.8 - math.Min(float64(errCount)*0.1, 0.5)
	if strings.Contains(finalReport, "google.com/books") {
		score += 0.2
	}
	return clamp(score)
}

// NarrativeCoherence scores the structure of a report: 0.2 for the title and
// for each role section heading, plus 0.2 when it is substantial.
func NarrativeCoherence(finalReport string) float64 {
	if finalReport == "" {
		return 0
	}
	score := 0.0
	if strings.Contains(finalReport, report.Heading) {
		score += 0.2
	}
	for _, role := range core.Roles {
		if strings.Contains(finalReport, "## "+report.Title(role)) {
			score += 0.2
		}
	}
	if utf8.RuneCountInString(finalReport) > reportMinLength {
		score += 0.2
	}
	return clamp(score)
}

func recommend(r *Report, th Thresholds) []string {
	var recs []string
	sys := r.System

	if sys.SuccessRate < th.MinSuccessRate {
		recs = append(recs, fmt.Sprintf(
			"System success rate is %.1f%%. Consider improving error handling and retry mechanisms.",
			sys.SuccessRate*100))
	}
	if th.MaxTotalTime > 0 && sys.TotalTime() > th.MaxTotalTime {
		recs = append(recs, fmt.Sprintf(
			"Execution time is %.1fs. Consider optimizing API calls or implementing caching.",
			sys.TotalTime().Seconds()))
	}

	var failed, slow []string
	for _, role := range core.Roles {
		m := r.PerRole[role]
		if !m.Success {
			failed = append(failed, string(role))
		}
		if th.SlowRole > 0 && m.Latency() > th.SlowRole {
			slow = append(slow, string(role))
		}
	}
	if len(failed) > 0 {
		recs = append(recs, fmt.Sprintf("Workers %s failed. Review error logs and improve error recovery.", strings.Join(failed, ", ")))
	}
	if len(slow) > 0 {
		recs = append(recs, fmt.Sprintf("Workers %s are slow. Consider optimizing search queries and API usage.", strings.Join(slow, ", ")))
	}

	for _, role := range core.Roles {
		m := r.PerRole[role]
		if m.Success && m.QualityScore < th.MinQuality {
			recs = append(recs, qualityAdvice(role))
		}
	}

	if len(recs) == 0 {
		recs = append(recs, OptimalRecommendation)
	}
	return recs
}

func qualityAdvice(role core.Role) string {
	switch role {
	case core.RoleHistorian:
		return "Biographical data is incomplete. Enhance search strategies for birth/death dates, nationality, and biographical details."
	case core.RoleCartographer:
		return "Bibliography coverage is limited. Improve Google Books API queries and result processing."
	default:
		return "Literary analysis lacks depth. Enhance search for academic criticism and thematic analysis."
	}
}

// Quality scores a payload between 0 and 1 from field presence.
func Quality(p core.Payload) float64 {
	score := 0.0
	switch v := p.(type) {
	case *core.AuthorContext:
		if v == nil {
			return 0
		}
		if v.BirthYear > 0 {
			score += 0.2
		}
		if v.DeathYear > 0 {
			score += 0.2
		}
		if v.Nationality != "" {
			score += 0.2
		}
		if len(v.BiographicalSummary) > 100 {
			score += 0.4
		}
	case *core.ReadingMap:
		if v == nil {
			return 0
		}
		if len(v.Chronological) >= 3 {
			score += 0.4
		}
		if len(v.StartHere) >= 2 {
			score += 0.3
		}
		if len(v.ThematicGroups) >= 1 {
			score += 0.3
		}
	case *core.LegacyAnalysis:
		if v == nil {
			return 0
		}
		if len(v.StylisticInnovations) >= 2 {
			score += 0.4
		}
		if len(v.RecurringThemes) >= 2 {
			score += 0.4
		}
		if len(v.LiterarySignificance) > 100 {
			score += 0.2
		}
	}
	return clamp(score)
}

// Completeness is the share of populated payload fields, saturating at five.
func Completeness(p core.Payload) float64 {
	var present []bool
	switch v := p.(type) {
	case *core.AuthorContext:
		if v == nil {
			return 0
		}
		present = []bool{v.BirthYear > 0, v.DeathYear > 0, v.Nationality != "", len(v.LiteraryMovements) > 0,
			len(v.KeyInfluences) > 0, v.HistoricalContext != "", v.BiographicalSummary != ""}
	case *core.ReadingMap:
		if v == nil {
			return 0
		}
		present = []bool{len(v.StartHere) > 0, len(v.Chronological) > 0, len(v.ThematicGroups) > 0, len(v.CompleteWorks) > 0}
	case *core.LegacyAnalysis:
		if v == nil {
			return 0
		}
		present = []bool{len(v.StylisticInnovations) > 0, len(v.RecurringThemes) > 0, v.LiterarySignificance != "",
			v.ModernRelevance != "", len(v.SimilarAuthors) > 0}
	}
	n := 0
	for _, ok := range present {
		if ok {
			n++
		}
	}
	return clamp(float64(n) / 5.0)
}

// clamp bounds f to [0, 1] and rounds to three decimals.
func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return float64(int(f*1000+0.5)) / 1000
	}
}

// Summary renders a human readable performance summary.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Performance Report: %s\n", r.Subject)
	if !r.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "Generated: %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05"))
	}
	b.WriteString("\n=== SYSTEM PERFORMANCE ===\n")
	fmt.Fprintf(&b, "Execution Time: %.2fs\n", r.System.TotalTime().Seconds())
	fmt.Fprintf(&b, "Success Rate: %.1f%%\n", r.System.SuccessRate*100)
	fmt.Fprintf(&b, "Workers: %d/%d successful\n", r.System.Succeeded, r.System.Total)
	fmt.Fprintf(&b, "Parallel Execution: %s\n\n", yesNo(r.System.Mode != core.ModeSequential))

	b.WriteString("=== WORKER PERFORMANCE ===\n")
	for _, role := range r.roles() {
		m := r.PerRole[role]
		status := "✓ Success"
		if !m.Success {
			status = "✗ Failed"
		}
		fmt.Fprintf(&b, "• %s (%s)\n", m.Role, m.Description)
		fmt.Fprintf(&b, "  Status: %s\n", status)
		fmt.Fprintf(&b, "  Time: %.2fs\n", m.Latency().Seconds())
		if m.Error != "" {
			fmt.Fprintf(&b, "  Error: %s\n", m.Error)
		}
		fmt.Fprintf(&b, "  Quality: %.1f%%\n", m.QualityScore*100)
		fmt.Fprintf(&b, "  Tools: %d used\n\n", len(m.Tools))
	}

	b.WriteString("=== QUALITY ASSESSMENT ===\n")
	fmt.Fprintf(&b, "Overall Quality: %.1f%%\n", r.Quality.OverallQuality*100)
	fmt.Fprintf(&b, "Biographical Completeness: %.1f%%\n", r.Quality.BiographicalCompleteness*100)
	fmt.Fprintf(&b, "Bibliography Coverage: %.1f%%\n", r.Quality.BibliographyCoverage*100)
	fmt.Fprintf(&b, "Analysis Depth: %.1f%%\n", r.Quality.AnalysisDepth*100)
	fmt.Fprintf(&b, "Citation Quality: %.1f%%\n", r.Quality.CitationQuality*100)
	fmt.Fprintf(&b, "Narrative Coherence: %.1f%%\n\n", r.Quality.NarrativeCoherence*100)

	if len(r.Recommendations) > 0 {
		b.WriteString("=== RECOMMENDATIONS ===\n")
		for i, rec := range r.Recommendations {
			fmt.Fprintf(&b, "%d. %s\n", i+1, rec)
		}
	}
	return b.String()
}

// roles returns the known roles first in core.Roles order, then any others sorted.
func (r *Report) roles() []core.Role {
	out := make([]core.Role, 0, len(r.PerRole))
	seen := map[core.Role]bool{}
	for _, role := range core.Roles {
		if _, ok := r.PerRole[role]; ok {
			out = append(out, role)
			seen[role] = true
		}
	}
	var extra []core.Role
	for role := range r.PerRole {
		if !seen[role] {
			extra = append(extra, role)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

// JSON encodes the report as indented JSON.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// YAML encodes the report as YAML.
func (r *Report) YAML() ([]byte, error) {
	return yaml.Marshal(r)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
