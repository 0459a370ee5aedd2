// Package tui renders a sort run in the terminal.
package tui

import (
	"strings"

	"sortmedia/internal/runstate"
	"sortmedia/internal/tui/components"
	"sortmedia/internal/tui/messages"
	"sortmedia/internal/tui/styles"
	"sortmedia/internal/worker"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	defaultWidth  = 80
	defaultHeight = 15

	// title, bar, status, help and the output border
	chromeHeight = 8

	msgQuitRefused = "Sorting is still in progress, wait until it is done"
)

// Model is the progress program of one run
type Model struct {
	title    string
	output   strings.Builder
	viewport viewport.Model
	bar      progress.Model
	status   *components.StatusBar

	percent  float64
	closable bool
	finished bool
	notice   string
}

func NewModel(title string) *Model {
	status := components.NewStatusBar()
	status.SetLoading(true)
	status.SetText("Starting...")

	vp := viewport.New(defaultWidth, defaultHeight)
	vp.Style = styles.Theme.Output

	return &Model{
		title:    title,
		viewport: vp,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(defaultWidth)),
		status:   status,
	}
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return m.status.Tick()
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc", "enter":
			if m.closable {
				return m, tea.Quit
			}
			m.notice = msgQuitRefused
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 3)
		m.bar.Width = max(msg.Width-4, 10)

	case messages.OutputMsg:
		m.output.WriteString(msg.Text)
		m.viewport.SetContent(m.output.String())
		m.viewport.GotoBottom()
		if p, ok := worker.ParseProgress(msg.Text); ok {
			m.percent = float64(p.Percent) / 100
			m.status.SetText(p.File)
		}
		if msg.Accepted != nil {
			close(msg.Accepted)
		}

	case messages.ClosableMsg:
		m.closable = msg.Closable
		if m.closable {
			m.notice = ""
		}

	case messages.StatusMsg:
		m.finished = true
		m.status.SetLoading(false)
		m.status.SetText(msg.Status)
		if msg.Status == runstate.StatusDone {
			m.status.SetStyle(styles.Theme.Done)
		} else {
			m.status.SetStyle(styles.Theme.Warning)
		}

	case spinner.TickMsg:
		return m, m.status.Update(msg)
	}

	return m, nil
}

// View implements tea.Model
func (m *Model) View() string {
	help := "Closing is disabled until the worker finishes"
	if m.closable {
		help = "[q] close"
	}

	parts := []string{
		styles.Theme.Title.Render(m.title),
		m.viewport.View(),
		m.bar.ViewAs(m.percent),
		m.status.View(),
		styles.Theme.Help.Render(help),
	}
	if m.notice != "" {
		parts = append(parts, styles.Theme.Warning.Render(m.notice))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n"
}

// Text returns all output received so far
func (m *Model) Text() string {
	return m.output.String()
}

// Percent returns the last reported progress in [0, 1]
func (m *Model) Percent() float64 {
	return m.percent
}

// Closable reports whether the user may quit
func (m *Model) Closable() bool {
	return m.closable
}

// Status returns the status line text
func (m *Model) Status() string {
	return m.status.Text()
}

// Notice returns the hint shown after a refused quit
func (m *Model) Notice() string {
	return m.notice
}

// Finished reports whether the terminal status was set
func (m *Model) Finished() bool {
	return m.finished
}
