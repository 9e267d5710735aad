package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/claimwise/cli/internal/api"
	"github.com/claimwise/cli/internal/documents"
)

type reviewField struct {
	label    string
	required bool
	get      func(api.KeyDetails) string
	set      func(*api.KeyDetails, string)
}

var reviewFields = []reviewField{
	{"Landlord", true, func(d api.KeyDetails) string { return d.Landlord }, func(d *api.KeyDetails, v string) { d.Landlord = v }},
	{"Tenant", true, func(d api.KeyDetails) string { return d.Tenant }, func(d *api.KeyDetails, v string) { d.Tenant = v }},
	{"Property address", true, func(d api.KeyDetails) string { return d.PropertyAddress }, func(d *api.KeyDetails, v string) { d.PropertyAddress = v }},
	{"Lease term", false, func(d api.KeyDetails) string { return d.LeaseTerm }, func(d *api.KeyDetails, v string) { d.LeaseTerm = v }},
	{"Rent amount", false, func(d api.KeyDetails) string { return d.RentAmount }, func(d *api.KeyDetails, v string) { d.RentAmount = v }},
	{"Security deposit", false, func(d api.KeyDetails) string { return d.SecurityDeposit }, func(d *api.KeyDetails, v string) { d.SecurityDeposit = v }},
	{"Start date", false, func(d api.KeyDetails) string { return d.StartDate }, func(d *api.KeyDetails, v string) { d.StartDate = v }},
	{"End date", false, func(d api.KeyDetails) string { return d.EndDate }, func(d *api.KeyDetails, v string) { d.EndDate = v }},
	{"Property info", false, func(d api.KeyDetails) string { return d.PropertyInfo }, func(d *api.KeyDetails, v string) { d.PropertyInfo = v }},
	{"Parties", false,
		func(d api.KeyDetails) string { return strings.Join(d.Parties, ", ") },
		func(d *api.KeyDetails, v string) { d.Parties = documents.SplitList(v) }},
	{"Special clauses", false,
		func(d api.KeyDetails) string { return strings.Join(d.SpecialClauses, ", ") },
		func(d *api.KeyDetails, v string) { d.SpecialClauses = documents.SplitList(v) }},
}

// reviewForm lets the user correct the extracted key details before they
// are confirmed. It is discarded once the confirmation succeeds.
type reviewForm struct {
	inputs []textinput.Model
	focus  int
	err    string
}

func newReviewForm(details api.KeyDetails) *reviewForm {
	f := &reviewForm{}
	for _, field := range reviewFields {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 256
		in.Width = 48
		in.SetValue(field.get(details))
		f.inputs = append(f.inputs, in)
	}
	f.inputs[0].Focus()
	return f
}

// values reads the form back into key details
func (f *reviewForm) values() api.KeyDetails {
	var d api.KeyDetails
	for i, field := range reviewFields {
		field.set(&d, f.inputs[i].Value())
	}
	return d
}

func (f *reviewForm) move(delta int) {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Focus()
}

// update handles a key and reports whether the user asked to confirm
func (f *reviewForm) update(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		f.move(1)
		return false, nil
	case "shift+tab", "up":
		f.move(-1)
		return false, nil
	case "ctrl+s":
		return true, nil
	case "enter":
		if f.focus == len(f.inputs)-1 {
			return true, nil
		}
		f.move(1)
		return false, nil
	}

	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return false, cmd
}

func (f *reviewForm) view() string {
	var lines []string
	for i, field := range reviewFields {
		label := field.label
		if field.required {
			label += " *"
		}
		label = fmt.Sprintf("%-18s", label)
		if i == f.focus {
			label = selectedStyle.Render(label)
		} else {
			label = helpStyle.Render(label)
		}
		lines = append(lines, label+" "+f.inputs[i].View())
	}
	if f.err != "" {
		lines = append(lines, "", errorStyle.Render(f.err))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
