package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/claimwise/cli/internal/activity"
	"github.com/claimwise/cli/internal/api"
	"github.com/claimwise/cli/internal/cases"
)

// dashboardView shows the headline numbers and recent activity
type dashboardView struct {
	app     *App
	spinner spinner.Model
	loading bool
	totals  cases.Totals
	recent  []activity.Event
	err     string
}

type dashboardLoadedMsg struct {
	totals cases.Totals
	recent []activity.Event
	err    error
}

func newDashboardView(app *App) *dashboardView {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = accentStyle
	return &dashboardView{app: app, spinner: s}
}

func (d *dashboardView) init() tea.Cmd {
	d.loading = true
	return tea.Batch(d.spinner.Tick, d.load)
}

func (d *dashboardView) capturing() bool { return false }
func (d *dashboardView) back() bool      { return false }

// load fetches the document list and totals the analysed recoveries
func (d *dashboardView) load() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var msg dashboardLoadedMsg
	if d.app.deps.Activity != nil {
		recent, err := d.app.deps.Activity.Recent(ctx, 8)
		if err != nil {
			d.app.logger.Warn("failed to load activity", "error", err)
		}
		msg.recent = recent
	}

	list, err := d.app.deps.Client.ListDocuments(ctx)
	if err != nil {
		msg.err = err
		return msg
	}
	cs := cases.FromDocuments(list.Documents)
	totals, err := cases.Summarize(ctx, d.app.deps.Cache, cs, 4)
	if err != nil {
		msg.err = err
		return msg
	}
	msg.totals = totals
	return msg
}

func (d *dashboardView) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case dashboardLoadedMsg:
		d.loading = false
		d.recent = msg.recent
		if msg.err != nil {
			d.err = api.UserMessage(msg.err)
			d.app.logger.Error("dashboard load failed", "error", msg.err)
			return nil
		}
		d.err = ""
		d.totals = msg.totals
		return nil
	case spinner.TickMsg:
		if !d.loading {
			return nil
		}
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)
		return cmd
	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			return d.init()
		case "u":
			return switchTo(screenUpload)
		case "c":
			return switchTo(screenCases)
		case "t":
			return switchTo(screenChat)
		case "n":
			return switchTo(screenNotifications)
		case "s":
			return switchTo(screenSettings)
		}
	}
	return nil
}

func (d *dashboardView) view() string {
	var lines []string
	lines = append(lines, titleStyle.Render("Welcome back"))
	lines = append(lines, "Find money you are owed in your lease or medical bills.")
	lines = append(lines, "")

	switch {
	case d.loading:
		lines = append(lines, d.spinner.View()+" Loading your cases...")
	case d.err != "":
		lines = append(lines, errorStyle.Render("Error: "+d.err))
	default:
		stats := fmt.Sprintf("Cases: %s\nDocuments analysed: %s\nPotential refunds: %s\nUnread notifications: %s",
			accentStyle.Render(fmt.Sprint(d.totals.Cases)),
			accentStyle.Render(fmt.Sprint(d.totals.Analyzed)),
			successStyle.Render(d.totals.RefundsLabel()),
			accentStyle.Render(fmt.Sprint(d.app.deps.Notices.UnreadCount())),
		)
		lines = append(lines, boxStyle.Render(stats))
	}

	lines = append(lines, "")
	lines = append(lines, accentStyle.Render("Recent activity"))
	if len(d.recent) == 0 {
		lines = append(lines, helpStyle.Render("Nothing yet. Upload a document to get started."))
	}
	for _, ev := range d.recent {
		line := fmt.Sprintf("%-28s %s", ev.Title, helpStyle.Render(humanize.Time(ev.CreatedAt)))
		if ev.Detail != "" {
			line += "  " + ev.Detail
		}
		lines = append(lines, line)
	}

	lines = append(lines, "")
	lines = append(lines, help(strings.Join([]string{
		"u: Upload", "c: Cases", "t: Chat", "n: Notifications", "s: Settings", "r: Reload", "q: Quit",
	}, " | ")))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
