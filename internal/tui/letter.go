package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/claimwise/cli/internal/activity"
	"github.com/claimwise/cli/internal/api"
	"github.com/claimwise/cli/internal/notify"
)

var letterLabels = []string{"Your name", "Your address", "Recipient", "Recipient address"}

// letterPanel drafts a demand letter from an analysis
type letterPanel struct {
	app      *App
	analysis *api.AnalysisData
	inputs   []textinput.Model
	focus    int
	spinner  spinner.Model
	busy     bool
	saving   bool
	letter   string
	saved    string
	err      string
}

type letterMsg struct {
	resp *api.DemandLetterResponse
	err  error
}

type letterSavedMsg struct {
	path string
	err  error
}

func newLetterPanel(app *App, data *api.AnalysisData) *letterPanel {
	p := &letterPanel{app: app, analysis: data, spinner: spinner.New()}
	p.spinner.Spinner = spinner.Dot
	for range letterLabels {
		in := textinput.New()
		in.Prompt = ""
		in.Width = 48
		p.inputs = append(p.inputs, in)
	}
	p.inputs[0].SetValue(data.KeyDetails.Tenant)
	p.inputs[2].SetValue(data.KeyDetails.Landlord)
	return p
}

func (p *letterPanel) capturing() bool { return !p.busy }

func (p *letterPanel) focusFirst() tea.Cmd {
	for i := range p.inputs {
		p.inputs[i].Blur()
	}
	p.focus = 0
	return p.inputs[0].Focus()
}

func (p *letterPanel) party(name, address int) *api.LetterParty {
	n := strings.TrimSpace(p.inputs[name].Value())
	a := strings.TrimSpace(p.inputs[address].Value())
	if n == "" && a == "" {
		return nil
	}
	return &api.LetterParty{Name: n, Address: a}
}

func (p *letterPanel) generate() tea.Cmd {
	p.busy = true
	p.err = ""
	req := api.DemandLetterRequest{
		AnalysisJSON: p.analysis,
		Sender:       p.party(0, 1),
		Recipient:    p.party(2, 3),
	}
	client := p.app.deps.Client
	return tea.Batch(p.spinner.Tick, func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		resp, err := client.GenerateDemandLetter(ctx, req)
		return letterMsg{resp: resp, err: err}
	})
}

func (p *letterPanel) save() tea.Cmd {
	dir := p.app.deps.Config.Paths.LettersDir
	name := fmt.Sprintf("demand-letter-%s-%s.txt", shortID(p.analysis.DocumentID), time.Now().Format("20060102-150405"))
	letter := p.letter
	p.saving = true
	return func() tea.Msg {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return letterSavedMsg{err: fmt.Errorf("failed to create letters directory: %w", err)}
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(letter), 0644); err != nil {
			return letterSavedMsg{err: fmt.Errorf("failed to write letter: %w", err)}
		}
		return letterSavedMsg{path: path}
	}
}

// update reports whether the message belonged to the panel
func (p *letterPanel) update(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case letterMsg:
		if !p.busy {
			return nil, false
		}
		p.busy = false
		if msg.err != nil {
			p.err = api.UserMessage(msg.err)
			p.app.deps.Notices.Notify(notify.LevelError, "Letter failed", p.err)
			return nil, true
		}
		p.letter = msg.resp.Letter
		p.app.deps.Notices.Notify(notify.LevelSuccess, "Letter ready", "Press ctrl+s to save it.")
		return p.app.record(activity.KindLetter, p.analysis.DocumentID, "Demand letter drafted", ""), true

	case letterSavedMsg:
		if !p.saving {
			return nil, false
		}
		p.saving = false
		if msg.err != nil {
			p.err = msg.err.Error()
			p.app.deps.Notices.Notify(notify.LevelError, "Save failed", p.err)
			return nil, true
		}
		p.saved = msg.path
		p.app.deps.Notices.Notify(notify.LevelSuccess, "Letter saved", msg.path)
		return nil, true

	case spinner.TickMsg:
		if !p.busy {
			return nil, false
		}
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return cmd, cmd != nil

	case tea.KeyMsg:
		if p.busy {
			return nil, true
		}
		switch msg.String() {
		case "tab", "down":
			p.inputs[p.focus].Blur()
			p.focus = (p.focus + 1) % len(p.inputs)
			return p.inputs[p.focus].Focus(), true
		case "shift+tab", "up":
			p.inputs[p.focus].Blur()
			p.focus = (p.focus - 1 + len(p.inputs)) % len(p.inputs)
			return p.inputs[p.focus].Focus(), true
		case "ctrl+g", "enter":
			return p.generate(), true
		case "ctrl+s":
			if p.letter == "" {
				return nil, true
			}
			return p.save(), true
		}
		var cmd tea.Cmd
		p.inputs[p.focus], cmd = p.inputs[p.focus].Update(msg)
		return cmd, true
	}
	return nil, false
}

func (p *letterPanel) view() string {
	var lines []string
	lines = append(lines, accentStyle.Render("Demand letter"))
	for i, label := range letterLabels {
		l := fmt.Sprintf("%-18s", label)
		if i == p.focus {
			l = selectedStyle.Render(l)
		} else {
			l = helpStyle.Render(l)
		}
		lines = append(lines, l+" "+p.inputs[i].View())
	}
	lines = append(lines, "")

	switch {
	case p.busy:
		lines = append(lines, p.spinner.View()+" Drafting your letter...")
	case p.err != "":
		lines = append(lines, errorStyle.Render("Error: "+p.err))
	}
	if p.letter != "" {
		lines = append(lines, boxStyle.Width(80).Render(p.letter))
	}
	if p.saved != "" {
		lines = append(lines, successStyle.Render("Saved to "+p.saved))
	}

	lines = append(lines, "", help("Tab: Next field | Enter: Generate | ctrl+s: Save | Esc: Close"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "document"
	}
	return id
}
