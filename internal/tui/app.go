package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/claimwise/cli/config"
	"github.com/claimwise/cli/internal/activity"
	"github.com/claimwise/cli/internal/api"
	"github.com/claimwise/cli/internal/auth"
	"github.com/claimwise/cli/internal/chat"
	"github.com/claimwise/cli/internal/documents"
	"github.com/claimwise/cli/internal/notify"
	"github.com/claimwise/cli/internal/voice"
)

type screen int

const (
	screenDashboard screen = iota
	screenUpload
	screenCases
	screenChat
	screenNotifications
	screenSettings
)

var screenNames = map[screen]string{
	screenDashboard:     "Dashboard",
	screenUpload:        "Upload",
	screenCases:         "Cases",
	screenChat:          "Chat",
	screenNotifications: "Notifications",
	screenSettings:      "Settings",
}

// Deps are the services the screens use
type Deps struct {
	Config   *config.Config
	Client   *api.Client
	Session  *auth.Session
	Cache    *documents.Cache
	Notices  *notify.Center
	Activity activity.Store
	Device   voice.Device
	Player   voice.Player
	Logger   *slog.Logger
	// FileID scopes chat and voice questions to a document given on the command line
	FileID string
}

// view is one screen of the application
type view interface {
	init() tea.Cmd
	update(msg tea.Msg) tea.Cmd
	view() string
	// capturing reports whether a text input has focus, so global keys pass through
	capturing() bool
	// back closes whatever the screen has open and reports whether it did
	back() bool
}

// App is the root bubbletea model
type App struct {
	deps    Deps
	logger  *slog.Logger
	program atomic.Pointer[tea.Program]

	poller *documents.Poller
	chat   *chat.Session
	voice  *voice.Pipeline

	ctxMu  sync.Mutex
	docCtx voice.DocumentContext

	screen screen
	width  int
	height int
	views  map[screen]view
}

type toastTickMsg time.Time

// statusMsg carries a poll response for progress display
type statusMsg api.StatusResponse

// voiceEventMsg forwards pipeline events into the update loop
type voiceEventMsg voice.Event

// switchMsg changes screen
type switchMsg struct{ to screen }

func switchTo(s screen) tea.Cmd {
	return func() tea.Msg { return switchMsg{to: s} }
}

// NewApp creates the application
func NewApp(deps Deps) *App {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	a := &App{
		deps:   deps,
		logger: deps.Logger.With("component", "tui"),
		docCtx: voice.DocumentContext{URLFileID: deps.FileID},
	}

	a.poller = documents.NewPoller(deps.Client, deps.Config.Polling.Interval, deps.Logger,
		documents.WithStatusHook(func(st api.StatusResponse) { a.send(statusMsg(st)) }))

	a.chat = chat.NewSession(deps.Client, func() string { return a.documentContext().FileID() }, deps.Notices, deps.Logger)

	if deps.Device != nil {
		vc := deps.Config.Voice
		a.voice = voice.New(voice.Config{
			Device:     deps.Device,
			Submitter:  deps.Client,
			Player:     deps.Player,
			Transcript: a.chat,
			Context:    a.documentContext,
			Notifier:   deps.Notices,
			Listener:   func(ev voice.Event) { a.send(voiceEventMsg(ev)) },
			Options: voice.Options{
				MaxDuration: vc.MaxDuration,
				Slice:       vc.Slice,
				MinBytes:    vc.MinBytes,
				SettleDelay: vc.SettleDelay,
			},
			Logger: deps.Logger,
		})
	}

	a.views = map[screen]view{
		screenDashboard:     newDashboardView(a),
		screenUpload:        newUploadView(a),
		screenCases:         newCasesView(a),
		screenChat:          newChatView(a),
		screenNotifications: newNotificationsView(a),
		screenSettings:      newSettingsView(a),
	}
	return a
}

// Run starts the TUI and blocks until the user quits
func (a *App) Run(ctx context.Context) error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(ctx))
	a.program.Store(p)
	defer a.program.Store(nil)

	_, err := p.Run()
	if a.voice != nil {
		_ = a.voice.Close()
	}
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

// send delivers a message from a background goroutine
func (a *App) send(msg tea.Msg) {
	if p := a.program.Load(); p != nil {
		p.Send(msg)
	}
}

func (a *App) documentContext() voice.DocumentContext {
	a.ctxMu.Lock()
	defer a.ctxMu.Unlock()
	return a.docCtx
}

// setViewDocument records the document the current screen is about
func (a *App) setViewDocument(fileID string) {
	a.ctxMu.Lock()
	a.docCtx.ViewFileID = fileID
	a.ctxMu.Unlock()
}

// setAnalysis records the analysis currently loaded
func (a *App) setAnalysis(data *api.AnalysisData) {
	a.ctxMu.Lock()
	a.docCtx.Analysis = data
	a.ctxMu.Unlock()
}

// record adds an activity entry in the background
func (a *App) record(kind activity.Kind, fileID, title, detail string) tea.Cmd {
	if a.deps.Activity == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := a.deps.Activity.Record(ctx, activity.Event{Kind: kind, FileID: fileID, Title: title, Detail: detail}); err != nil {
			a.logger.Warn("failed to record activity", "kind", kind, "error", err)
		}
		return nil
	}
}

// requestContext bounds background work started from a screen
func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Minute)
}

func toastTick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg { return toastTickMsg(t) })
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.views[a.screen].init(), toastTick())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		return a, a.broadcast(msg)

	case toastTickMsg:
		return a, toastTick()

	case switchMsg:
		return a, a.enter(msg.to)

	case tea.KeyMsg:
		current := a.views[a.screen]
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "esc":
			if current.back() || a.screen == screenDashboard {
				return a, nil
			}
			return a, a.enter(screenDashboard)
		}
		if current.capturing() {
			return a, current.update(msg)
		}
		switch msg.String() {
		case "q":
			if a.screen == screenDashboard {
				return a, tea.Quit
			}
		case "0":
			return a, a.enter(screenDashboard)
		case "1":
			return a, a.enter(screenUpload)
		case "2":
			return a, a.enter(screenCases)
		case "3":
			return a, a.enter(screenChat)
		case "4":
			return a, a.enter(screenNotifications)
		case "5":
			return a, a.enter(screenSettings)
		}
		return a, current.update(msg)
	}

	return a, a.broadcast(msg)
}

// broadcast hands a non-key message to every screen; each ignores what it
// did not ask for
func (a *App) broadcast(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	for _, v := range a.views {
		cmds = append(cmds, v.update(msg))
	}
	return tea.Batch(cmds...)
}

func (a *App) enter(s screen) tea.Cmd {
	a.screen = s
	a.logger.Debug("screen", "name", screenNames[s])
	return a.views[s].init()
}

func (a *App) View() string {
	var b strings.Builder

	b.WriteString(a.header())
	b.WriteString("\n\n")
	b.WriteString(a.views[a.screen].view())

	if toasts := a.toasts(); toasts != "" {
		b.WriteString("\n\n")
		b.WriteString(toasts)
	}
	return b.String()
}

func (a *App) header() string {
	var tabs []string
	for s := screenDashboard; s <= screenSettings; s++ {
		label := fmt.Sprintf("%d %s", int(s), screenNames[s])
		if s == screenNotifications {
			if n := a.deps.Notices.UnreadCount(); n > 0 {
				label = fmt.Sprintf("%s (%d)", label, n)
			}
		}
		if s == a.screen {
			tabs = append(tabs, selectedStyle.Render(label))
		} else {
			tabs = append(tabs, helpStyle.Render(label))
		}
	}
	return titleStyle.Render("Claimwise") + "  " + strings.Join(tabs, helpStyle.Render(" | "))
}

func (a *App) toasts() string {
	active := a.deps.Notices.Active()
	if len(active) == 0 {
		return ""
	}
	var lines []string
	for _, n := range active {
		style := levelStyle(n.Level)
		text := style.Render(n.Title)
		if n.Message != "" {
			text += " " + n.Message
		}
		lines = append(lines, toastStyle.BorderForeground(style.GetForeground()).Render(text))
	}
	return lipgloss.JoinVertical(lipgloss.Right, lines...)
}
