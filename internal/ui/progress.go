// Package ui renders setup progress in an interactive terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"matforge/internal/setup"
)

type progressModel struct {
	title      string
	events     <-chan setup.Event
	spinner    spinner.Model
	prog       progress.Model
	items      []item
	index      map[string]int
	stageLabel string
	width      int
	done       bool
	failed     int
}

type item struct {
	label  string
	status string
	stage  setup.Stage
}

type eventMsg setup.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders setup progress.
// items are the library paths and material labels known up front; events
// for other items are appended as they arrive.
func NewProgressModel(title string, items []string, events <-chan setup.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	m := &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   make([]item, 0, len(items)),
		index:   make(map[string]int, len(items)),
		width:   80,
	}
	for _, label := range items {
		m.add(label)
	}
	return m
}

func (m *progressModel) add(label string) int {
	if idx, ok := m.index[label]; ok {
		return idx
	}
	m.items = append(m.items, item{label: label, status: "queued"})
	m.index[label] = len(m.items) - 1
	return len(m.items) - 1
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(setup.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case progress.FrameMsg:
		pm, cmd := m.prog.Update(msg)
		m.prog = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 && m.stageLabel == "" {
		return ""
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.stageLabel != "" {
		header = fmt.Sprintf("%s (%s)", header, m.stageLabel)
	}
	switch {
	case m.done && m.failed > 0:
		header = fmt.Sprintf("failed: %s, %d error(s)", header, m.failed)
	case m.done:
		header = fmt.Sprintf("done: %s", header)
	default:
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	statusWidth := 12
	nameWidth := max(m.width-statusWidth-4, 20)
	for _, it := range m.items {
		status := styleStatus(it.status).Render(fmt.Sprintf("%12s", it.status))
		fmt.Fprintf(&b, "  %s %s\n", status, truncate(it.label, nameWidth))
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev setup.Event) tea.Cmd {
	label := statusLabel(ev.Stage, ev.Status)
	if ev.Item == "" {
		if label != "" {
			m.stageLabel = string(ev.Stage) + ": " + label
		}
		return nil
	}
	idx := m.add(ev.Item)
	if label != "" {
		m.items[idx].status = label
		m.items[idx].stage = ev.Stage
	}
	if ev.Status == setup.StatusError {
		m.failed++
	}

	total := 0.0
	for _, it := range m.items {
		if it.status == "done" || it.status == "error" {
			total += 1.0
		} else {
			total += progressFromStage(it.stage)
		}
	}
	return m.prog.SetPercent(total / float64(len(m.items)))
}

func progressFromStage(stage setup.Stage) float64 {
	switch stage {
	case setup.StageLoad:
		return 0.3
	case setup.StageDraft:
		return 0.4
	case setup.StageRegister:
		return 0.8
	default:
		return 0.0
	}
}

func statusLabel(stage setup.Stage, status setup.Status) string {
	switch status {
	case setup.StatusQueued:
		return "queued"
	case setup.StatusDone:
		return "done"
	case setup.StatusError:
		return "error"
	case setup.StatusWorking:
		return stageLabel(stage)
	default:
		return ""
	}
}

func stageLabel(stage setup.Stage) string {
	switch stage {
	case setup.StageLoad:
		return "loading"
	case setup.StageDraft:
		return "drafting"
	case setup.StageRegister:
		return "resolving"
	case setup.StageCells:
		return "linking"
	case setup.StageSeal:
		return "sealing"
	default:
		return ""
	}
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case "done":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case "error":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case "loading", "drafting", "resolving", "linking", "sealing":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
