package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/claimwise/cli/config"
	"github.com/claimwise/cli/internal/notify"
)

type settingField struct {
	label string
	get   func(*config.Config) string
	set   func(*config.Config, string)
}

var settingFields = []settingField{
	{"API URL", func(c *config.Config) string { return c.API.BaseURL }, func(c *config.Config, v string) { c.API.BaseURL = v }},
	{"Letters directory", func(c *config.Config) string { return c.Paths.LettersDir }, func(c *config.Config, v string) { c.Paths.LettersDir = expandHome(v) }},
	{"Activity database", func(c *config.Config) string { return c.Activity.DatabaseURL }, func(c *config.Config, v string) { c.Activity.DatabaseURL = v }},
}

// settingsView displays and edits the config file
type settingsView struct {
	app     *App
	inputs  []textinput.Model
	token   textinput.Model
	focus   int
	editing bool
	status  string
	failed  bool
}

func newSettingsView(app *App) *settingsView {
	s := &settingsView{app: app}
	for range settingFields {
		in := textinput.New()
		in.Prompt = ""
		in.Width = 56
		s.inputs = append(s.inputs, in)
	}
	s.token = textinput.New()
	s.token.Prompt = ""
	s.token.Placeholder = "paste a new access token"
	s.token.EchoMode = textinput.EchoPassword
	s.token.Width = 56
	s.load(app.deps.Config)
	return s
}

// load fills the inputs from cfg
func (s *settingsView) load(cfg *config.Config) {
	for i, f := range settingFields {
		s.inputs[i].SetValue(f.get(cfg))
	}
	s.token.SetValue("")
}

func (s *settingsView) fields() []*textinput.Model {
	out := make([]*textinput.Model, 0, len(s.inputs)+1)
	for i := range s.inputs {
		out = append(out, &s.inputs[i])
	}
	return append(out, &s.token)
}

func (s *settingsView) init() tea.Cmd   { return nil }
func (s *settingsView) capturing() bool { return s.editing }

func (s *settingsView) back() bool {
	if !s.editing {
		return false
	}
	s.editing = false
	s.fields()[s.focus].Blur()
	s.load(s.app.deps.Config)
	return true
}

func (s *settingsView) move(delta int) tea.Cmd {
	fields := s.fields()
	fields[s.focus].Blur()
	s.focus = (s.focus + delta + len(fields)) % len(fields)
	return fields[s.focus].Focus()
}

// save validates the edited values, writes the config file and applies
// what can change without a restart
func (s *settingsView) save() {
	current := s.app.deps.Config
	next := *current
	for i, f := range settingFields {
		f.set(&next, strings.TrimSpace(s.inputs[i].Value()))
	}
	if err := next.Validate(); err != nil {
		s.status, s.failed = err.Error(), true
		return
	}
	if err := next.Save(); err != nil {
		s.status, s.failed = err.Error(), true
		s.app.logger.Error("failed to save settings", "error", err)
		return
	}

	restart := next.API.BaseURL != current.API.BaseURL || next.Activity.DatabaseURL != current.Activity.DatabaseURL
	current.Paths.LettersDir = next.Paths.LettersDir
	s.status, s.failed = "Settings saved.", false
	if restart {
		s.status += " Restart to connect to the new server or database."
	}

	if token := strings.TrimSpace(s.token.Value()); token != "" {
		if err := s.app.deps.Session.Set(token); err != nil {
			s.status, s.failed = err.Error(), true
			return
		}
		s.token.SetValue("")
		s.app.deps.Notices.Notify(notify.LevelSuccess, "Signed in", "")
	}
	s.app.deps.Notices.Notify(notify.LevelSuccess, "Settings saved", "")
}

func (s *settingsView) update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}

	if !s.editing {
		switch key.String() {
		case "e", "enter":
			s.editing = true
			s.status = ""
			return s.fields()[s.focus].Focus()
		case "d":
			s.load(config.Default())
			s.status, s.failed = "Defaults loaded. Press e then ctrl+s to keep them.", false
		case "ctrl+l":
			if err := s.app.deps.Session.Clear(); err != nil {
				s.status, s.failed = err.Error(), true
				return nil
			}
			s.status, s.failed = "Signed out.", false
			s.app.deps.Notices.Notify(notify.LevelInfo, "Signed out", "")
		}
		return nil
	}

	switch key.String() {
	case "tab", "down":
		return s.move(1)
	case "shift+tab", "up":
		return s.move(-1)
	case "ctrl+s":
		s.save()
		if !s.failed {
			s.editing = false
			s.fields()[s.focus].Blur()
		}
		return nil
	}
	fields := s.fields()
	var cmd tea.Cmd
	*fields[s.focus], cmd = fields[s.focus].Update(key)
	return cmd
}

func (s *settingsView) view() string {
	cfg := s.app.deps.Config
	var lines []string
	lines = append(lines, titleStyle.Render("Settings"), "")

	labels := make([]string, 0, len(settingFields)+1)
	for _, f := range settingFields {
		labels = append(labels, f.label)
	}
	labels = append(labels, "Access token")
	for i, field := range s.fields() {
		label := fmt.Sprintf("%-18s", labels[i])
		if s.editing && i == s.focus {
			label = selectedStyle.Render(label)
		} else {
			label = helpStyle.Render(label)
		}
		lines = append(lines, label+" "+field.View())
	}
	lines = append(lines, "")

	info := fmt.Sprintf("Config file: %s\nRetries: %d, delay %s, timeout %s\nPolling every %s\nUpload limit: %s\nVoice: %s (%s %s), up to %s\nLog: %s (%s)",
		config.Path(),
		cfg.API.Retries, cfg.API.RetryDelay, cfg.API.Timeout,
		cfg.Polling.Interval,
		humanize.Bytes(uint64(cfg.Upload.MaxSize)),
		cfg.Voice.FFmpegPath, cfg.Voice.InputFormat, cfg.Voice.InputDevice, cfg.Voice.MaxDuration,
		orDash(cfg.Logging.File), cfg.Logging.Level,
	)
	lines = append(lines, boxStyle.Render(info), "", s.account())

	if s.status != "" {
		style := successStyle
		if s.failed {
			style = errorStyle
		}
		lines = append(lines, "", style.Render(s.status))
	}

	if s.editing {
		lines = append(lines, "", help("Tab: Next field | ctrl+s: Save | Esc: Cancel"))
	} else {
		lines = append(lines, "", help("e: Edit | d: Defaults | ctrl+l: Sign out"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (s *settingsView) account() string {
	claims, err := s.app.deps.Session.Claims()
	if err != nil {
		return helpStyle.Render("Not signed in. Requests are sent without a token.")
	}
	line := "Signed in"
	if claims.Subject != "" {
		line += " as " + accentStyle.Render(claims.Subject)
	}
	switch {
	case claims.ExpiresAt.IsZero():
	case claims.Expired(time.Now()):
		line += ", " + errorStyle.Render("token expired "+humanize.Time(claims.ExpiresAt))
	default:
		line += ", token expires " + humanize.Time(claims.ExpiresAt)
	}
	return line
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~") {
		return filepath.Join(os.Getenv("HOME"), strings.TrimPrefix(p, "~"))
	}
	return p
}
