package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	orchestration "github.com/voicewire/duplex-core/core"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#5F5FD7")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5FAFFF")).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4444"))

	interimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

type (
	conversationMsg []orchestration.ConversationEntry
	interimMsg      string
	speakingMsg     bool
	playingMsg      bool
	phaseMsg        string
	micModeMsg      string
	bargeInMsg      string
)

type model struct {
	orchestrator *orchestration.Orchestrator

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	entries  []orchestration.ConversationEntry
	interim  string
	speaking bool
	playing  bool
	phase    string
	micMode  string
	notice   string

	width  int
	height int
	ready  bool
}

func newModel(orchestrator *orchestration.Orchestrator) model {
	input := textinput.New()
	input.Placeholder = "Type a prompt, or just speak"
	input.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#5F5FD7"))

	return model{
		orchestrator: orchestrator,
		input:        input,
		spinner:      s,
		phase:        string(orchestration.PhaseIdle),
		micMode:      string(orchestration.ModeIdle),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			m.orchestrator.CancelTurn()
			m.notice = "turn cancelled"
			return m, nil
		case "enter":
			prompt := strings.TrimSpace(m.input.Value())
			if prompt != "" {
				m.orchestrator.SendPrompt(prompt)
				m.input.Reset()
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		contentHeight := msg.Height - 6
		if contentHeight < 3 {
			contentHeight = 3
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, contentHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = contentHeight
		}
		m.refreshTranscript()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case conversationMsg:
		m.entries = msg
		m.refreshTranscript()

	case interimMsg:
		m.interim = string(msg)
		m.refreshTranscript()

	case speakingMsg:
		m.speaking = bool(msg)
		if !m.speaking {
			m.interim = ""
			m.refreshTranscript()
		}

	case playingMsg:
		m.playing = bool(msg)

	case phaseMsg:
		m.phase = string(msg)

	case micModeMsg:
		m.micMode = string(msg)

	case bargeInMsg:
		m.notice = fmt.Sprintf("interrupted: %q", string(msg))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *model) refreshTranscript() {
	if !m.ready {
		return
	}

	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	for _, entry := range m.entries {
		label, style := speakerStyle(entry.Speaker)
		text := entry.Text()
		if entry.Streaming {
			text += " …"
		}
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(style.Render(wordwrap.String(text, width)))
		b.WriteString("\n\n")
	}
	if m.interim != "" {
		b.WriteString(userStyle.Render("you"))
		b.WriteString("\n")
		b.WriteString(interimStyle.Render(wordwrap.String(m.interim, width)))
		b.WriteString("\n")
	}

	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(b.String())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func speakerStyle(speaker orchestration.Speaker) (string, lipgloss.Style) {
	switch speaker {
	case orchestration.SpeakerUser:
		return userStyle.Render("you"), assistantStyle
	case orchestration.SpeakerAssistant:
		return activeStyle.Render("assistant"), assistantStyle
	case orchestration.SpeakerError:
		return errStyle.Render("error"), errStyle
	default:
		return statusStyle.Render(string(speaker)), statusStyle
	}
}

func (m model) View() string {
	if !m.ready {
		return "starting…"
	}

	var status []string
	status = append(status, statusStyle.Render("mic: ")+activeStyle.Render(m.micMode))
	if m.phase != string(orchestration.PhaseIdle) {
		status = append(status, m.spinner.View()+" "+activeStyle.Render(m.phase))
	} else {
		status = append(status, statusStyle.Render("phase: ")+m.phase)
	}
	if m.speaking {
		status = append(status, activeStyle.Render("● listening"))
	}
	if m.playing {
		status = append(status, activeStyle.Render("▶ speaking"))
	}
	if m.notice != "" {
		status = append(status, statusStyle.Render(m.notice))
	}

	return strings.Join([]string{
		titleStyle.Render("duplex"),
		strings.Join(status, "  │  "),
		m.viewport.View(),
		m.input.View(),
		helpStyle.Render("enter: send  esc: cancel turn  ctrl+c: quit"),
	}, "\n")
}
