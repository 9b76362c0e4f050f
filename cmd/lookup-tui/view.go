package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pthm/hxlookup/lib/createflow"
)

var (
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	pillStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("4")).
			Padding(0, 1)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("5")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("6")).
			Padding(0, 1)
)

// View implements tea.Model.
func (m model) View() string {
	var b strings.Builder
	snap := m.snap
	cfg := m.w.Config()

	if cfg.ShowLabel {
		b.WriteString(labelStyle.Render(snap.EntityLabel))
		b.WriteString("\n")
	}

	switch {
	case snap.Loading && !snap.Selection.IsSet:
		b.WriteString(dimStyle.Render("Loading…"))
		b.WriteString("\n")
	case snap.Selection.IsSet:
		b.WriteString(pillStyle.Render(snap.Selection.Label))
		if !cfg.ReadOnly {
			b.WriteString(dimStyle.Render("  ctrl+d to remove"))
		}
		b.WriteString("\n")
	case cfg.ReadOnly:
		b.WriteString(dimStyle.Render("(none)"))
		b.WriteString("\n")
	default:
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(m.dropdownView())
	}

	if snap.Create.Open() {
		b.WriteString(modalStyle.Render(m.createView()))
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.status)
		b.WriteString("\n")
	}
	if len(m.log) > 0 {
		b.WriteString("\n")
		for _, line := range m.log {
			b.WriteString(dimStyle.Render(line))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.help()))
	return b.String()
}

func (m model) dropdownView() string {
	snap := m.snap
	if !snap.Open {
		return ""
	}
	var b strings.Builder
	switch {
	case snap.Searching:
		b.WriteString(dimStyle.Render("  Searching…"))
		b.WriteString("\n")
	case len(snap.Candidates) == 0:
		b.WriteString(dimStyle.Render("  No results"))
		b.WriteString("\n")
	}
	for i, c := range snap.Candidates {
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> " + c.Label))
		} else {
			b.WriteString("  " + c.Label)
		}
		b.WriteString("\n")
	}
	if snap.Notice != "" {
		b.WriteString(errorStyle.Render("  Results could not be loaded. Try again."))
		b.WriteString("\n")
	}
	return b.String()
}

func (m model) createView() string {
	cv := m.snap.Create
	var b strings.Builder
	b.WriteString(labelStyle.Render("New " + m.snap.EntityLabel))
	b.WriteString("\n")

	if cv.State == createflow.ChoosingRecordType {
		for i, rt := range cv.Options {
			if i == m.rtCursor {
				b.WriteString(cursorStyle.Render("(•) " + rt.Name))
			} else {
				b.WriteString("( ) " + rt.Name)
			}
			b.WriteString("\n")
		}
		return b.String()
	}

	if cv.Stencil {
		b.WriteString(dimStyle.Render("Loading form…"))
		b.WriteString("\n")
	}
	for i, f := range m.snap.Create.FormFields {
		label := f.Label
		if f.Required {
			label += " *"
		}
		b.WriteString(label)
		b.WriteString("\n")
		if i < len(m.fields) {
			b.WriteString(m.fields[i].View())
			b.WriteString("\n")
		}
	}
	switch {
	case cv.Failed:
		b.WriteString(errorStyle.Render("Error saving the record"))
		b.WriteString("\n")
	case cv.State == createflow.Submitting:
		b.WriteString(dimStyle.Render("Saving…"))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m model) help() string {
	cv := m.snap.Create
	switch {
	case cv.State == createflow.ChoosingRecordType:
		return "↑/↓ choose type • enter next • esc cancel"
	case cv.Failed:
		return "r retry • esc dismiss"
	case cv.State == createflow.FillingForm:
		return "tab next field • enter save • esc cancel"
	case cv.Open():
		return "saving…"
	case m.w.Config().ReadOnly:
		return "read only • ctrl+c quit"
	}
	return "type to search • ↑/↓ move • enter select • ctrl+n new • esc close • ctrl+c quit"
}
