package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/claimwise/cli/internal/chat"
	"github.com/claimwise/cli/internal/voice"
)

// chatView is the question and answer screen, typed or spoken
type chatView struct {
	app     *App
	input   textinput.Model
	spinner spinner.Model

	// offset scrolls the transcript up from the newest message
	offset int

	voiceState voice.State
	voiceNote  string
	language   string
}

type chatAnsweredMsg struct{}

type voiceTickMsg time.Time

// voiceResultMsg ends a Start or Stop issued from the screen
type voiceResultMsg struct {
	starting bool
	err      error
}

func newChatView(app *App) *chatView {
	in := textinput.New()
	in.Placeholder = "Ask about your document or your rights..."
	in.Prompt = "> "
	in.CharLimit = 2000
	in.Width = 72

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = accentStyle

	return &chatView{app: app, input: in, spinner: s, voiceState: voice.StateIdle}
}

func (c *chatView) init() tea.Cmd {
	cmds := []tea.Cmd{c.input.Focus()}
	if c.app.chat.Pending() || c.voiceBusy() {
		cmds = append(cmds, c.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

func (c *chatView) capturing() bool { return true }

func (c *chatView) back() bool {
	if c.offset > 0 {
		c.offset = 0
		return true
	}
	return false
}

func (c *chatView) voiceBusy() bool {
	switch c.voiceState {
	case voice.StateIdle, voice.StateError, voice.StateRecording:
		return false
	}
	return true
}

func (c *chatView) send() tea.Cmd {
	text := strings.TrimSpace(c.input.Value())
	if text == "" || c.app.chat.Pending() {
		return nil
	}
	c.input.SetValue("")
	c.offset = 0
	session := c.app.chat
	return tea.Batch(c.spinner.Tick, func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		session.Send(ctx, text)
		return chatAnsweredMsg{}
	})
}

// toggleVoice starts or stops a recording. Both run off the update loop
// because the pipeline reports progress through the program.
func (c *chatView) toggleVoice() tea.Cmd {
	p := c.app.voice
	if p == nil {
		c.voiceNote = "Voice input needs ffmpeg. Set voice.ffmpeg_path in the config."
		return nil
	}
	if c.voiceState == voice.StateRecording {
		return func() tea.Msg {
			ctx, cancel := requestContext()
			defer cancel()
			_, err := p.Stop(ctx)
			return voiceResultMsg{err: err}
		}
	}
	if c.voiceBusy() {
		return nil
	}
	c.voiceNote = ""
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return voiceResultMsg{starting: true, err: p.Start(ctx)}
	}
}

func voiceTick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg { return voiceTickMsg(t) })
}

func (c *chatView) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case chatAnsweredMsg:
		return nil

	case voiceEventMsg:
		return c.onVoiceEvent(voice.Event(msg))

	case voiceResultMsg:
		if msg.err != nil && !errors.Is(msg.err, voice.ErrNotRecording) && !errors.Is(msg.err, voice.ErrBusy) && !errors.Is(msg.err, voice.ErrClosed) {
			// the pipeline has already raised a notification
			c.app.logger.Debug("voice action ended with error", "starting", msg.starting, "error", msg.err)
		}
		return nil

	case voiceTickMsg:
		if c.voiceState == voice.StateRecording {
			return voiceTick()
		}
		return nil

	case spinner.TickMsg:
		if !c.app.chat.Pending() && !c.voiceBusy() {
			return nil
		}
		var cmd tea.Cmd
		c.spinner, cmd = c.spinner.Update(msg)
		return cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			return c.send()
		case "ctrl+r":
			return c.toggleVoice()
		case "pgup", "ctrl+u":
			c.offset++
			return nil
		case "pgdown", "ctrl+d":
			if c.offset > 0 {
				c.offset--
			}
			return nil
		}
		var cmd tea.Cmd
		c.input, cmd = c.input.Update(msg)
		return cmd
	}
	return nil
}

func (c *chatView) onVoiceEvent(ev voice.Event) tea.Cmd {
	switch ev.Kind {
	case voice.EventState:
		prev := c.voiceState
		c.voiceState = ev.State
		switch {
		case ev.State == voice.StateRecording:
			c.voiceNote = ""
			return voiceTick()
		case c.voiceBusy() && prev != ev.State:
			return c.spinner.Tick
		}
	case voice.EventTurn:
		c.offset = 0
		if ev.Turn != nil {
			c.language = ev.Turn.Language
		}
	case voice.EventError, voice.EventNotice:
		c.voiceNote = ev.Message
	case voice.EventPlaybackEnded:
		c.voiceState = voice.StateIdle
	}
	return nil
}

func (c *chatView) voiceStatus() string {
	switch c.voiceState {
	case voice.StateRecording:
		elapsed := time.Duration(0)
		if c.app.voice != nil {
			elapsed = c.app.voice.Elapsed().Truncate(time.Second)
		}
		return errorStyle.Render("● Recording") + fmt.Sprintf(" %s  (ctrl+r to stop)", elapsed)
	case voice.StateStopping, voice.StateValidating:
		return c.spinner.View() + " Processing audio..."
	case voice.StateSubmitting:
		return c.spinner.View() + " Getting an answer..."
	case voice.StatePlaying:
		return accentStyle.Render("♪ Playing answer")
	}
	return ""
}

func (c *chatView) transcript(messages []chat.Message) []string {
	var lines []string
	for _, m := range messages {
		var who string
		switch {
		case m.Role == chat.RoleUser:
			who = accentStyle.Render("You")
		case m.Error:
			who = errorStyle.Render("Assistant")
		default:
			who = successStyle.Render("Assistant")
		}
		lines = append(lines, fmt.Sprintf("%s %s", who, helpStyle.Render(m.CreatedAt.Format("15:04"))))
		lines = append(lines, lipgloss.NewStyle().Width(80).Render(m.Content))
		for _, src := range m.Sources {
			cite := strings.TrimSpace(strings.Join([]string{src.Chapter, src.Section}, " "))
			if src.Relevance != "" {
				cite += " (" + src.Relevance + ")"
			}
			lines = append(lines, helpStyle.Render("  source: "+cite))
		}
		lines = append(lines, "")
	}
	return lines
}

func (c *chatView) view() string {
	var lines []string
	lines = append(lines, titleStyle.Render("Ask Claimwise"))
	if id := c.app.documentContext().FileID(); id != "" {
		lines = append(lines, helpStyle.Render("Asking about document "+shortID(id)))
	} else {
		lines = append(lines, helpStyle.Render("General questions. Open a case to ask about a document."))
	}
	lines = append(lines, "")

	body := c.transcript(c.app.chat.Messages())
	height := c.app.height - 14
	if height < 8 {
		height = 8
	}
	end := len(body) - c.offset
	if end < 0 {
		end = 0
		c.offset = len(body)
	}
	start := max(end-height, 0)
	lines = append(lines, body[start:end]...)

	if c.app.chat.Pending() {
		lines = append(lines, c.spinner.View()+" Thinking...")
	}
	if s := c.voiceStatus(); s != "" {
		lines = append(lines, s)
	}
	if c.voiceNote != "" {
		lines = append(lines, warnStyle.Render(c.voiceNote))
	}
	if c.language != "" && c.language != "en" {
		lines = append(lines, helpStyle.Render("Last spoken question detected as "+c.language))
	}

	lines = append(lines, c.input.View(), "",
		help("Enter: Send | ctrl+r: Voice | PgUp/PgDn: Scroll | Esc: Back"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
