package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/claimwise/cli/internal/notify"
)

// notificationsView is the inbox of everything raised as a toast
type notificationsView struct {
	app        *App
	unreadOnly bool
	selected   int
}

func newNotificationsView(app *App) *notificationsView {
	return &notificationsView{app: app}
}

func (n *notificationsView) init() tea.Cmd { return nil }
func (n *notificationsView) capturing() bool { return false }
func (n *notificationsView) back() bool      { return false }

func (n *notificationsView) items() []notify.Notification {
	if n.unreadOnly {
		return n.app.deps.Notices.Unread()
	}
	return n.app.deps.Notices.All()
}

func (n *notificationsView) update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	items := n.items()
	switch key.String() {
	case "tab", "f":
		n.unreadOnly = !n.unreadOnly
		n.selected = 0
	case "j", "down":
		if n.selected < len(items)-1 {
			n.selected++
		}
	case "k", "up":
		if n.selected > 0 {
			n.selected--
		}
	case "enter", "m":
		if n.selected < len(items) {
			n.app.deps.Notices.MarkRead(items[n.selected].ID)
			if n.unreadOnly && n.selected >= len(items)-1 {
				n.selected = max(n.selected-1, 0)
			}
		}
	case "a":
		n.app.deps.Notices.MarkAllRead()
		n.selected = 0
	}
	return nil
}

func (n *notificationsView) view() string {
	var lines []string
	filter := "All"
	if n.unreadOnly {
		filter = "Unread"
	}
	lines = append(lines, titleStyle.Render("Notifications")+"  "+helpStyle.Render(fmt.Sprintf("%s, %d unread", filter, n.app.deps.Notices.UnreadCount())))
	lines = append(lines, "")

	items := n.items()
	if len(items) == 0 {
		lines = append(lines, helpStyle.Render("You're all caught up."))
	}
	for i, item := range items {
		marker := "  "
		if i == n.selected {
			marker = selectedStyle.Render("> ")
		}
		dot := " "
		if !item.Read {
			dot = accentStyle.Render("•")
		}
		line := fmt.Sprintf("%s%s %s", marker, dot, levelStyle(item.Level).Render(item.Title))
		if item.Message != "" {
			line += " " + item.Message
		}
		line += "  " + helpStyle.Render(humanize.Time(item.CreatedAt))
		lines = append(lines, line)
	}

	lines = append(lines, "", help("Tab: All/Unread | j/k: Navigate | Enter: Mark read | a: Mark all read"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
