package tui

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"sortmedia/internal/runstate"
	"sortmedia/internal/tui/messages"
	"sortmedia/pkg/testutils"

	alsrt "github.com/alecthomas/assert"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelAppendsOutput(t *testing.T) {
	m := NewModel("Sorting media")
	accepted := make(chan struct{})

	m.Update(messages.OutputMsg{Text: " 25%| IMG_0001.JPG to /photos/2021\n", Accepted: accepted})
	m.Update(messages.OutputMsg{Text: "skipping thumbs.db\n"})

	select {
	case <-accepted:
	default:
		t.Fatal("output was not accepted")
	}
	assert.Equal(t, " 25%| IMG_0001.JPG to /photos/2021\nskipping thumbs.db\n", m.Text())
	assert.InDelta(t, 0.25, m.Percent(), 0.001)
	assert.Equal(t, "IMG_0001.JPG", m.Status())

	view := testutils.StripANSI(m.View())
	alsrt.Contains(t, view, "Sorting media")
	alsrt.Contains(t, view, "skipping thumbs.db")
	alsrt.Contains(t, view, "Closing is disabled")
}

func TestModelRefusesQuitUntilClosable(t *testing.T) {
	m := NewModel("Sorting media")

	for _, k := range []string{"q", "ctrl+c", "esc"} {
		_, cmd := m.Update(key(k))
		assert.Nil(t, cmd, "quit must be refused for %q", k)
		assert.Equal(t, msgQuitRefused, m.Notice())
	}

	m.Update(messages.ClosableMsg{Closable: true})
	assert.Empty(t, m.Notice())

	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModelStatus(t *testing.T) {
	m := NewModel("Sorting media")
	assert.False(t, m.Finished())

	m.Update(messages.StatusMsg{Status: runstate.StatusDone})
	assert.True(t, m.Finished())
	assert.Equal(t, "done", m.Status())
	alsrt.Contains(t, testutils.StripANSI(m.View()), "done")
}

func TestModelResize(t *testing.T) {
	m := NewModel("Sorting media")
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 120, m.viewport.Width)
	assert.Equal(t, 40-chromeHeight, m.viewport.Height)

	m.Update(tea.WindowSizeMsg{Width: 20, Height: 4})
	assert.Equal(t, 3, m.viewport.Height)
}

func TestSurfaceRoundTrip(t *testing.T) {
	s := NewSurface("Sorting media", tea.WithInput(nil), tea.WithOutput(io.Discard))

	// the controller disables closing before showing the surface
	s.SetClosable(false)
	s.Show()

	for i := 0; i < 3; i++ {
		s.Append(testutils.ProgressLine(i, 3))
	}
	s.SetStatus(runstate.StatusDone)
	s.SetClosable(true)
	s.program.Send(key("q"))

	done := make(chan error, 1)
	go func() { done <- s.Wait() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("program did not quit")
	}

	m := s.Model()
	assert.Equal(t, testutils.ProgressLine(0, 3)+testutils.ProgressLine(1, 3)+testutils.ProgressLine(2, 3), m.Text())
	assert.Equal(t, "done", m.Status())
	assert.True(t, m.Closable())

	// a finished program no longer blocks appends
	s.Append("late\n")
}

func TestPlainSurface(t *testing.T) {
	var buf bytes.Buffer
	s := NewPlainSurface(&buf)
	s.Show()

	s.Append(" 50%| IMG_0001.JPG to /photos\n")
	s.Append("cannot read broken.jpg\n")
	s.SetStatus("done (exit code 1)")

	assert.Equal(t, " 50%| IMG_0001.JPG to /photos\ncannot read broken.jpg\n", s.Text())
	out := testutils.StripANSI(buf.String())
	alsrt.Contains(t, out, "cannot read broken.jpg")
	alsrt.Contains(t, out, "done (exit code 1)")
	assert.False(t, strings.Contains(out, " 50%| IMG_0001.JPG"), "progress lines drive the bar instead of being printed")
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	c.SetInteractive(false)
	c.Warn("Attention", "Select directories!")
	c.Error("Sort failed", errors.New("worker not found"))

	out := testutils.StripANSI(buf.String())
	alsrt.Contains(t, out, "Attention: Select directories!")
	alsrt.Contains(t, out, "Sort failed: worker not found")
}
