package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pthm/hxlookup/lib/createflow"
	"github.com/pthm/hxlookup/lib/widget"
)

const maxLog = 6

type (
	snapshotMsg widget.Snapshot
	closedMsg   struct{}
	effectsMsg  struct {
		eff widget.Effects
		err error
	}
)

// model is the bubbletea model around one widget. Widget calls are quick
// loop round trips and run inline; only form submission runs as a command.
type model struct {
	w       *widget.Widget
	updates <-chan widget.Snapshot
	cancel  func()
	snap    widget.Snapshot

	input  textinput.Model
	cursor int

	rtCursor   int
	fields     []textinput.Model
	fieldNames []string
	fieldFocus int

	log    []string
	status string
	width  int
}

func newModel(w *widget.Widget) (model, error) {
	updates, cancel, err := w.Subscribe()
	if err != nil {
		return model{}, err
	}
	ti := textinput.New()
	ti.Placeholder = w.Config().Placeholder
	ti.CharLimit = 80
	ti.Width = 40
	ti.Focus()
	return model{w: w, updates: updates, cancel: cancel, input: ti, width: 80}, nil
}

func waitSnapshot(ch <-chan widget.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return snapshotMsg(snap)
	}
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitSnapshot(m.updates), tea.SetWindowTitle("lookup"))
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case snapshotMsg:
		m.applySnapshot(widget.Snapshot(msg))
		return m, waitSnapshot(m.updates)
	case closedMsg:
		return m, tea.Quit
	case effectsMsg:
		m.record(msg.eff, msg.err)
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			return m, tea.Quit
		}
		if m.snap.Create.Open() {
			return m.updateCreate(msg)
		}
		return m.updateSearch(msg)
	}
	return m, nil
}

func (m *model) applySnapshot(snap widget.Snapshot) {
	m.snap = snap
	if m.cursor >= len(snap.Candidates) {
		m.cursor = max(len(snap.Candidates)-1, 0)
	}
	switch snap.Create.State {
	case createflow.Closed, createflow.ChoosingRecordType:
		m.fields, m.fieldNames, m.fieldFocus = nil, nil, 0
		if m.rtCursor >= len(snap.Create.Options) {
			m.rtCursor = 0
		}
	default:
		if m.fields == nil {
			m.buildForm(snap.Create)
		}
	}
}

func (m *model) buildForm(cv widget.CreateView) {
	m.fields = make([]textinput.Model, len(cv.FormFields))
	m.fieldNames = make([]string, len(cv.FormFields))
	for i, f := range cv.FormFields {
		ti := textinput.New()
		ti.Placeholder = f.Label
		ti.CharLimit = 120
		ti.Width = 40
		ti.SetValue(cv.Values[f.Name])
		m.fields[i] = ti
		m.fieldNames[i] = f.Name
	}
	m.fieldFocus = 0
	m.focusField()
}

func (m *model) focusField() {
	for i := range m.fields {
		if i == m.fieldFocus {
			m.fields[i].Focus()
		} else {
			m.fields[i].Blur()
		}
	}
}

// record appends the events and toasts of one operation to the log.
func (m *model) record(eff widget.Effects, err error) {
	for _, ev := range eff.Events {
		m.appendLog(fmt.Sprintf("%s %v", ev.Name, ev.Data))
	}
	for _, t := range eff.Toasts {
		m.status = t.Title + ": " + t.Message
	}
	if err != nil && !widget.IsSubmissionError(err) {
		m.status = err.Error()
	}
}

func (m *model) appendLog(line string) {
	m.log = append(m.log, line)
	if len(m.log) > maxLog {
		m.log = m.log[len(m.log)-maxLog:]
	}
}

func (m model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down":
		if m.cursor < len(m.snap.Candidates)-1 {
			m.cursor++
		}
		return m, nil
	case "enter":
		if !m.snap.Open || m.cursor >= len(m.snap.Candidates) {
			return m, nil
		}
		eff, err := m.w.Choose(m.snap.Candidates[m.cursor].ID)
		m.record(eff, err)
		if err == nil {
			m.input.SetValue("")
		}
		return m, nil
	case "ctrl+d":
		eff, err := m.w.Clear()
		m.record(eff, err)
		return m, nil
	case "ctrl+n":
		eff, err := m.w.OpenCreate()
		m.record(eff, err)
		return m, nil
	case "esc":
		_, err := m.w.Blur()
		m.record(widget.Effects{}, err)
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() == before {
		return m, cmd
	}
	if !m.snap.Open {
		if _, err := m.w.Focus(); err != nil {
			m.record(widget.Effects{}, err)
			return m, cmd
		}
	}
	if _, err := m.w.Type(m.input.Value()); err != nil {
		m.record(widget.Effects{}, err)
	}
	m.cursor = 0
	return m, cmd
}

func (m model) updateCreate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cv := m.snap.Create
	key := msg.String()
	if key == "esc" {
		var (
			eff widget.Effects
			err error
		)
		if cv.Failed {
			eff, err = m.w.AcknowledgeCreateError()
		} else {
			eff, err = m.w.CancelCreate()
		}
		m.record(eff, err)
		return m, nil
	}

	switch cv.State {
	case createflow.ChoosingRecordType:
		switch key {
		case "up":
			if m.rtCursor > 0 {
				m.rtCursor--
			}
		case "down":
			if m.rtCursor < len(cv.Options)-1 {
				m.rtCursor++
			}
		case "enter":
			if len(cv.Options) == 0 {
				return m, nil
			}
			err := m.w.ChooseRecordType(cv.Options[m.rtCursor].ID)
			if err == nil {
				err = m.w.ContinueCreate()
			}
			m.record(widget.Effects{}, err)
		}
		return m, nil

	case createflow.FillingForm:
		switch key {
		case "tab", "down":
			m.fieldFocus = (m.fieldFocus + 1) % max(len(m.fields), 1)
			m.focusField()
			return m, nil
		case "shift+tab", "up":
			m.fieldFocus = (m.fieldFocus - 1 + len(m.fields)) % max(len(m.fields), 1)
			m.focusField()
			return m, nil
		case "enter":
			return m, m.submit()
		}
		if len(m.fields) == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.fields[m.fieldFocus], cmd = m.fields[m.fieldFocus].Update(msg)
		return m, cmd

	case createflow.Submitting:
		if cv.Failed && (key == "enter" || key == "r") {
			return m, m.submit()
		}
	}
	return m, nil
}

// submit sends the form. The submission blocks on the provider, so it runs
// as a command.
func (m model) submit() tea.Cmd {
	values := make(map[string]string, len(m.fields))
	for i, f := range m.fields {
		values[m.fieldNames[i]] = f.Value()
	}
	w := m.w
	return func() tea.Msg {
		eff, err := w.SubmitCreate(context.Background(), values)
		return effectsMsg{eff: eff, err: err}
	}
}
