// Package tui is the terminal rendition of the analysis form.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dyike/StockAnalyzer/internal/form"
)

const (
	fieldCredential = iota
	fieldTicker
	fieldSubmit
	fieldCount
)

const missingInputNotice = "Enter an API key and a stock name to analyze."

// resultMsg carries a finished submission back into the event loop.
type resultMsg struct {
	sub *form.Submission
	out form.Outcome
}

// Model drives a form.Controller from bubbletea's event loop. All state
// transitions happen inside Update; the request itself runs as a tea.Cmd.
type Model struct {
	controller *form.Controller
	ctx        context.Context

	inputs  []textinput.Model
	focus   int
	spinner spinner.Model
	help    help.Model
	keys    keyMap

	notice   string
	quitting bool
}

func New(ctx context.Context, controller *form.Controller) Model {
	credential := textinput.New()
	credential.Placeholder = "sk-..."
	credential.EchoMode = textinput.EchoPassword
	credential.EchoCharacter = '•'
	credential.Prompt = "› "
	credential.SetValue(controller.Credential().Reveal())
	credential.Focus()

	ticker := textinput.New()
	ticker.Placeholder = "Enter stock name"
	ticker.Prompt = "› "
	ticker.SetValue(controller.Ticker())

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		controller: controller,
		ctx:        ctx,
		inputs:     []textinput.Model{credential, ticker},
		spinner:    sp,
		help:       help.New(),
		keys:       defaultKeyMap(),
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.help.Width = msg.Width
		}
		return m, nil

	case resultMsg:
		m.controller.Resolve(msg.sub, msg.out)
		return m, nil

	case spinner.TickMsg:
		if !m.controller.State().Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Submit):
			return m.submit()
		case key.Matches(msg, m.keys.Next):
			return m, m.setFocus((m.focus + 1) % fieldCount)
		case key.Matches(msg, m.keys.Prev):
			return m, m.setFocus((m.focus + fieldCount - 1) % fieldCount)
		}
	}

	return m, m.updateInputs(msg)
}

// submit mirrors pressing the form's submit button.
func (m Model) submit() (tea.Model, tea.Cmd) {
	sub, err := m.controller.Begin()
	switch {
	case errors.Is(err, form.ErrInFlight):
		return m, nil
	case errors.Is(err, form.ErrMissingInput):
		m.notice = missingInputNotice
		return m, nil
	case err != nil:
		return m, nil
	}

	m.notice = ""
	ctx := m.ctx
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		return resultMsg{sub: sub, out: sub.Run(ctx)}
	})
}

func (m *Model) setFocus(field int) tea.Cmd {
	m.focus = field
	var cmds []tea.Cmd
	for i := range m.inputs {
		if i == field {
			cmds = append(cmds, m.inputs[i].Focus())
			continue
		}
		m.inputs[i].Blur()
	}
	return tea.Batch(cmds...)
}

func (m *Model) updateInputs(msg tea.Msg) tea.Cmd {
	cmds := make([]tea.Cmd, len(m.inputs))
	for i := range m.inputs {
		m.inputs[i], cmds[i] = m.inputs[i].Update(msg)
	}

	m.controller.SetCredential(form.Credential(m.inputs[fieldCredential].Value()))
	m.controller.SetTicker(m.inputs[fieldTicker].Value())
	if m.notice != "" && m.controller.CanSubmit() {
		m.notice = ""
	}
	return tea.Batch(cmds...)
}

func (m Model) View() string {
	var b strings.Builder
	st := m.controller.State()

	b.WriteString(titleStyle.Render("Stock Analyzer"))
	b.WriteString("\n")

	b.WriteString(m.label("OpenAI API Key", fieldCredential))
	b.WriteString("\n")
	b.WriteString(m.inputs[fieldCredential].View())
	b.WriteString("\n\n")

	b.WriteString(m.label("Stock Name", fieldTicker))
	b.WriteString("\n")
	b.WriteString(m.inputs[fieldTicker].View())
	b.WriteString("\n")

	b.WriteString(m.button(st))
	b.WriteString("\n")

	if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteString("\n")
	}

	if msg, ok := st.ErrorMessage(); ok {
		b.WriteString(errorPanelStyle.Render(msg))
		b.WriteString("\n")
	}

	if text, ok := st.AnalysisText(); ok {
		b.WriteString(resultPanelStyle.Render(resultTitleStyle.Render(form.ResultTitle) + "\n" + text))
		b.WriteString("\n")
	}

	if !m.quitting {
		b.WriteString("\n")
		b.WriteString(m.help.View(m.keys))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) label(text string, field int) string {
	if m.focus == field {
		return focusedLabelStyle.Render(text)
	}
	return labelStyle.Render(text)
}

func (m Model) button(st form.State) string {
	if st.Busy() {
		return disabledButtonStyle.Render(m.spinner.View() + " " + st.SubmitLabel())
	}
	if !m.controller.CanSubmit() {
		return disabledButtonStyle.Render(st.SubmitLabel())
	}
	if m.focus == fieldSubmit {
		return focusedButtonStyle.Render(st.SubmitLabel())
	}
	return buttonStyle.Render(st.SubmitLabel())
}

// Run starts the terminal form and blocks until the user quits. Cancelling
// ctx, or quitting, aborts an in-flight request.
func Run(ctx context.Context, controller *form.Controller) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(New(ctx, controller), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
