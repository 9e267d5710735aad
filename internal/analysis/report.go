package analysis

import (
	"strings"

	"github.com/claimwise/cli/internal/api"
)

// Severity buckets derived from highlight colors
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// SeverityOf maps a highlight color to a severity
func SeverityOf(color string) Severity {
	switch strings.ToLower(color) {
	case "red":
		return SeverityHigh
	case "orange":
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Favorable reports whether a highlight marks a clause in the user's favor
func Favorable(h api.Highlight) bool {
	return strings.EqualFold(h.Color, "green")
}

// Preview shortens text to at most n runes, adding an ellipsis when cut
func Preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if n <= 3 || len(r) <= n {
		return text
	}
	return string(r[:n-3]) + "..."
}

// Finding is a highlight prepared for display
type Finding struct {
	ID          string
	Severity    Severity
	Category    string
	Preview     string
	Statute     string
	Explanation string
	Damages     string
	Page        int
}

// Report is the presentation of an analysis
type Report struct {
	DocumentID        string
	Title             string
	DocumentType      string
	OverallRisk       string
	IssuesFound       int
	EstimatedRecovery string
	Counts            map[Severity]int
	Favorable         int
	Findings          []Finding
	TopIssues         []api.TopIssue
	Redactions        map[string]int
}

// Summarize builds the report shown on the results screen
func Summarize(a *api.AnalysisData) Report {
	r := Report{
		DocumentID:        a.DocumentID,
		Title:             a.DocumentMetadata.FileName,
		DocumentType:      a.DocumentMetadata.DocumentType,
		OverallRisk:       a.AnalysisSummary.OverallRisk,
		IssuesFound:       a.AnalysisSummary.IssuesFound,
		EstimatedRecovery: CalculateEstimatedRecovery(a.Highlights, a.AnalysisSummary.EstimatedRecovery),
		Counts:            map[Severity]int{},
		TopIssues:         a.AnalysisSummary.TopIssues,
		Redactions:        a.DeidentificationSummary.RedactedEntities,
	}
	if r.Title == "" {
		r.Title = a.DocumentID
	}

	for _, h := range a.Highlights {
		if Favorable(h) {
			r.Favorable++
		}
		sev := SeverityOf(h.Color)
		r.Counts[sev]++

		f := Finding{
			ID:          h.ID,
			Severity:    sev,
			Category:    h.Category,
			Preview:     Preview(h.Text, 80),
			Explanation: h.Explanation,
			Page:        h.PageNumber,
		}
		if h.Statute != nil {
			f.Statute = *h.Statute
		}
		if h.DamagesEstimate != nil {
			f.Damages = FormatDollars(*h.DamagesEstimate)
		}
		r.Findings = append(r.Findings, f)
	}

	if r.IssuesFound == 0 {
		r.IssuesFound = len(a.Highlights) - r.Favorable
	}
	return r
}
