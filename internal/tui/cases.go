package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/claimwise/cli/internal/activity"
	"github.com/claimwise/cli/internal/analysis"
	"github.com/claimwise/cli/internal/api"
	"github.com/claimwise/cli/internal/cases"
	"github.com/claimwise/cli/internal/notify"
)

// casesView lists uploaded documents as cases
type casesView struct {
	app     *App
	spinner spinner.Model
	search  textinput.Model

	loading  bool
	all      []cases.Case
	totals   cases.Totals
	filter   int
	selected int
	confirm  bool
	err      string

	opening string
	detail  *resultsView
}

type casesLoadedMsg struct {
	cases  []cases.Case
	totals cases.Totals
	err    error
}

type caseOpenedMsg struct {
	doc *api.DocumentResponse
	err error
}

type caseDeletedMsg struct {
	c   cases.Case
	err error
}

func newCasesView(app *App) *casesView {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = accentStyle

	in := textinput.New()
	in.Placeholder = "Search cases"
	in.Prompt = "/ "
	in.Width = 40

	return &casesView{app: app, spinner: s, search: in}
}

func (c *casesView) init() tea.Cmd {
	if c.detail != nil {
		return nil
	}
	c.loading = true
	return tea.Batch(c.spinner.Tick, c.load)
}

func (c *casesView) capturing() bool {
	if c.detail != nil {
		return c.detail.capturing()
	}
	return c.search.Focused() || c.confirm
}

func (c *casesView) back() bool {
	switch {
	case c.detail != nil:
		if !c.detail.back() {
			c.detail = nil
			c.app.setViewDocument("")
			c.app.setAnalysis(nil)
		}
		return true
	case c.confirm:
		c.confirm = false
		return true
	case c.search.Focused():
		c.search.Blur()
		return true
	}
	return false
}

func (c *casesView) load() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	list, err := c.app.deps.Client.ListDocuments(ctx)
	if err != nil {
		return casesLoadedMsg{err: err}
	}
	cs := cases.FromDocuments(list.Documents)
	totals, err := cases.Summarize(ctx, c.app.deps.Cache, cs, 4)
	if err != nil {
		// the list is still useful without the recovery amounts
		c.app.logger.Warn("failed to summarize cases", "error", err)
	}
	return casesLoadedMsg{cases: cs, totals: totals}
}

func (c *casesView) visible() []cases.Case {
	return cases.Apply(c.all, cases.Filters[c.filter], c.search.Value())
}

func (c *casesView) current() (cases.Case, bool) {
	v := c.visible()
	if c.selected < 0 || c.selected >= len(v) {
		return cases.Case{}, false
	}
	return v[c.selected], true
}

func (c *casesView) open(cs cases.Case) tea.Cmd {
	c.opening = cs.FileID
	cache := c.app.deps.Cache
	return tea.Batch(c.spinner.Tick, func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		doc, err := cache.Get(ctx, cs.FileID)
		return caseOpenedMsg{doc: doc, err: err}
	})
}

func (c *casesView) remove(cs cases.Case) tea.Cmd {
	client := c.app.deps.Client
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		return caseDeletedMsg{c: cs, err: client.DeleteDocument(ctx, cs.FileID)}
	}
}

func (c *casesView) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case casesLoadedMsg:
		c.loading = false
		if msg.err != nil {
			c.err = api.UserMessage(msg.err)
			c.app.logger.Error("failed to load cases", "error", msg.err)
			return nil
		}
		c.err = ""
		c.all = msg.cases
		c.totals = msg.totals
		if n := len(c.visible()); c.selected >= n {
			c.selected = max(n-1, 0)
		}
		return nil

	case caseOpenedMsg:
		if c.opening == "" {
			return nil
		}
		c.opening = ""
		if msg.err != nil {
			c.err = api.UserMessage(msg.err)
			c.app.deps.Notices.Notify(notify.LevelError, "Could not open case", c.err)
			return nil
		}
		c.err = ""
		c.detail = newResultsView(c.app, msg.doc)
		return nil

	case caseDeletedMsg:
		if msg.err != nil {
			c.app.deps.Notices.Notify(notify.LevelError, "Delete failed", api.UserMessage(msg.err))
			return nil
		}
		c.app.deps.Cache.Invalidate(msg.c.FileID)
		c.app.deps.Notices.Notify(notify.LevelSuccess, "Document deleted", msg.c.Title)
		return tea.Batch(
			c.app.record(activity.KindDeletion, msg.c.FileID, "Deleted "+msg.c.Title, ""),
			c.init(),
		)

	case spinner.TickMsg:
		if c.loading || c.opening != "" {
			var cmd tea.Cmd
			c.spinner, cmd = c.spinner.Update(msg)
			return cmd
		}

	case tea.KeyMsg:
		return c.onKey(msg)
	}

	if c.detail != nil {
		return c.detail.update(msg)
	}
	return nil
}

func (c *casesView) onKey(msg tea.KeyMsg) tea.Cmd {
	if c.detail != nil {
		return c.detail.update(msg)
	}

	if c.confirm {
		c.confirm = false
		if msg.String() != "y" {
			return nil
		}
		if cs, ok := c.current(); ok {
			return c.remove(cs)
		}
		return nil
	}

	if c.search.Focused() {
		switch msg.String() {
		case "enter":
			c.search.Blur()
			return nil
		}
		var cmd tea.Cmd
		c.search, cmd = c.search.Update(msg)
		c.selected = 0
		return cmd
	}

	switch msg.String() {
	case "tab":
		c.filter = (c.filter + 1) % len(cases.Filters)
		c.selected = 0
	case "shift+tab":
		c.filter = (c.filter - 1 + len(cases.Filters)) % len(cases.Filters)
		c.selected = 0
	case "/":
		return c.search.Focus()
	case "j", "down":
		if c.selected < len(c.visible())-1 {
			c.selected++
		}
	case "k", "up":
		if c.selected > 0 {
			c.selected--
		}
	case "enter":
		if cs, ok := c.current(); ok && c.opening == "" {
			return c.open(cs)
		}
	case "d":
		if _, ok := c.current(); ok {
			c.confirm = true
		}
	case "r":
		return c.init()
	case "u":
		return switchTo(screenUpload)
	}
	return nil
}

func (c *casesView) view() string {
	if c.detail != nil {
		return c.detail.view()
	}

	var lines []string
	lines = append(lines, titleStyle.Render("My cases"))

	counts := cases.Counts(c.all)
	var tabs []string
	for i, f := range cases.Filters {
		label := fmt.Sprintf("%s (%d)", f.Label(), counts[f])
		if i == c.filter {
			tabs = append(tabs, selectedStyle.Render(label))
		} else {
			tabs = append(tabs, helpStyle.Render(label))
		}
	}
	lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, joinWith(tabs, "  ")...))
	if c.search.Focused() || c.search.Value() != "" {
		lines = append(lines, c.search.View())
	}
	lines = append(lines, "")

	switch {
	case c.loading:
		lines = append(lines, c.spinner.View()+" Loading cases...")
	case c.err != "":
		lines = append(lines, errorStyle.Render("Error: "+c.err))
	}

	visible := c.visible()
	if !c.loading && len(visible) == 0 {
		lines = append(lines, helpStyle.Render("No cases match."))
	}
	for i, cs := range visible {
		marker := "  "
		title := fmt.Sprintf("%-40s", cs.Title)
		if i == c.selected {
			marker = selectedStyle.Render("> ")
			title = selectedStyle.Render(title)
		}
		recovery := ""
		if cs.Recovery > 0 {
			recovery = successStyle.Render(analysis.FormatDollars(cs.Recovery))
		}
		lines = append(lines, fmt.Sprintf("%s%s %-13s %s  %s  %s %s",
			marker, title, cs.Type, statusStyle(cs.Status).Render(string(cs.Status)),
			helpStyle.Render(humanize.Bytes(uint64(cs.Size))), helpStyle.Render(cs.LastActivity()), recovery))
	}

	if c.opening != "" {
		lines = append(lines, "", c.spinner.View()+" Opening case...")
	}
	if c.confirm {
		if cs, ok := c.current(); ok {
			lines = append(lines, "", warnStyle.Render(fmt.Sprintf("Delete %s? This cannot be undone. (y/n)", cs.Title)))
		}
	}

	lines = append(lines, "",
		helpStyle.Render(fmt.Sprintf("%d cases, %d analysed, %s potential refunds", c.totals.Cases, c.totals.Analyzed, c.totals.RefundsLabel())),
		help("Tab: Filter | /: Search | j/k: Navigate | Enter: Open | d: Delete | r: Reload | u: Upload"),
	)
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func statusStyle(s cases.Status) lipgloss.Style {
	switch s {
	case cases.StatusReady:
		return successStyle
	case cases.StatusAttention:
		return errorStyle
	default:
		return warnStyle
	}
}

func joinWith(parts []string, sep string) []string {
	out := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			out = append(out, sep)
		}
		out = append(out, p)
	}
	return out
}
