package tui

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/claimwise/cli/internal/activity"
	"github.com/claimwise/cli/internal/analysis"
	"github.com/claimwise/cli/internal/api"
	"github.com/claimwise/cli/internal/notify"
)

type panel int

const (
	panelNone panel = iota
	panelLetter
	panelCase
)

// resultsView shows the analysis of one document
type resultsView struct {
	app      *App
	doc      *api.DocumentResponse
	report   analysis.Report
	selected int
	panel    panel
	letter   *letterPanel
}

func newResultsView(app *App, doc *api.DocumentResponse) *resultsView {
	r := &resultsView{app: app, doc: doc}
	if doc.Analysis != nil {
		r.report = analysis.Summarize(doc.Analysis)
	}
	app.setViewDocument(doc.FileID)
	app.setAnalysis(doc.Analysis)
	return r
}

func (r *resultsView) capturing() bool {
	return r.panel == panelLetter && r.letter.capturing()
}

// back closes an open panel
func (r *resultsView) back() bool {
	if r.panel == panelNone {
		return false
	}
	r.panel = panelNone
	return true
}

func (r *resultsView) update(msg tea.Msg) tea.Cmd {
	if r.letter != nil {
		if _, ok := msg.(tea.KeyMsg); !ok || r.panel == panelLetter {
			if cmd, handled := r.letter.update(msg); handled {
				return cmd
			}
		}
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}

	if r.panel == panelCase {
		if key.String() == "enter" {
			r.panel = panelNone
			r.app.deps.Notices.Notify(notify.LevelSuccess, "Case opened", r.report.Title)
			return tea.Batch(
				r.app.record(activity.KindCase, r.doc.FileID, "Case opened", r.report.Title),
				switchTo(screenCases),
			)
		}
		return nil
	}

	switch key.String() {
	case "j", "down":
		if r.selected < len(r.report.Findings)-1 {
			r.selected++
		}
	case "k", "up":
		if r.selected > 0 {
			r.selected--
		}
	case "l":
		if r.doc.Analysis == nil {
			return nil
		}
		if r.letter == nil {
			r.letter = newLetterPanel(r.app, r.doc.Analysis)
		}
		r.panel = panelLetter
		return r.letter.focusFirst()
	case "o":
		r.panel = panelCase
	case "t":
		return switchTo(screenChat)
	}
	return nil
}

func (r *resultsView) view() string {
	if r.doc.Analysis == nil {
		return fmt.Sprintf("%s\n\n%s", titleStyle.Render(r.doc.Filename),
			helpStyle.Render(fmt.Sprintf("Status: %s. The analysis is not ready yet.", r.doc.Status)))
	}

	switch r.panel {
	case panelLetter:
		return r.letter.view()
	case panelCase:
		return r.caseView()
	}

	rep := r.report
	var lines []string
	lines = append(lines, titleStyle.Render(rep.Title))
	header := fmt.Sprintf("Estimated recovery: %s   Risk: %s   Issues: %d",
		successStyle.Render(rep.EstimatedRecovery),
		severityStyle(analysis.Severity(strings.ToLower(rep.OverallRisk))).Render(orDash(rep.OverallRisk)),
		rep.IssuesFound,
	)
	lines = append(lines, header)
	lines = append(lines, fmt.Sprintf("%s %d   %s %d   %s %d",
		errorStyle.Render("high"), rep.Counts[analysis.SeverityHigh],
		warnStyle.Render("medium"), rep.Counts[analysis.SeverityMedium],
		successStyle.Render("low"), rep.Counts[analysis.SeverityLow],
	))
	if len(rep.Redactions) > 0 {
		lines = append(lines, helpStyle.Render("Redacted before analysis: "+redactions(rep.Redactions)))
	}
	lines = append(lines, "")

	if len(rep.Findings) == 0 {
		lines = append(lines, helpStyle.Render("No findings."))
	}
	for i, f := range rep.Findings {
		marker := "  "
		if i == r.selected {
			marker = selectedStyle.Render("> ")
		}
		line := fmt.Sprintf("%s%s p.%d %s", marker, severityStyle(f.Severity).Render(fmt.Sprintf("%-6s", f.Severity)), f.Page, f.Category)
		if f.Damages != "" {
			line += "  " + successStyle.Render(f.Damages)
		}
		lines = append(lines, line)
	}

	if r.selected < len(rep.Findings) {
		f := rep.Findings[r.selected]
		var detail []string
		detail = append(detail, f.Preview)
		if f.Statute != "" {
			detail = append(detail, accentStyle.Render(f.Statute))
		}
		if f.Explanation != "" {
			detail = append(detail, f.Explanation)
		}
		lines = append(lines, "", boxStyle.Width(72).Render(strings.Join(detail, "\n")))
	}

	lines = append(lines, "", help("j/k: Navigate | l: Demand letter | o: Open case | t: Ask about this document | Esc: Back"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (r *resultsView) caseView() string {
	rep := r.report
	body := fmt.Sprintf("%s\n\nType: %s\nEstimated recovery: %s\nRisk: %s\nIssues found: %d",
		titleStyle.Render(rep.Title),
		orDash(rep.DocumentType),
		successStyle.Render(rep.EstimatedRecovery),
		orDash(rep.OverallRisk),
		rep.IssuesFound,
	)
	for _, issue := range rep.TopIssues {
		body += fmt.Sprintf("\n  - %s", issue.Title)
		if issue.Amount != "" {
			body += " " + successStyle.Render(issue.Amount)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		accentStyle.Render("Create case"),
		boxStyle.Render(body),
		"",
		help("Enter: Open case | Esc: Cancel"),
	)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func redactions(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", strings.ToLower(strings.ReplaceAll(k, "_", " ")), m[k]))
	}
	return strings.Join(parts, ", ")
}
