package tui

import (
	"sync"

	"sortmedia/internal/log"
	"sortmedia/internal/tui/messages"

	tea "github.com/charmbracelet/bubbletea"
)

// Surface shows one run in a Bubble Tea program. Show starts the program;
// Wait blocks until the user quits it.
type Surface struct {
	model   *Model
	program *tea.Program

	mu      sync.Mutex
	started bool
	exited  chan struct{}
	err     error
}

// NewSurface creates a surface; opts are passed to tea.NewProgram
func NewSurface(title string, opts ...tea.ProgramOption) *Surface {
	m := NewModel(title)
	return &Surface{
		model:   m,
		program: tea.NewProgram(m, opts...),
		exited:  make(chan struct{}),
	}
}

// Show starts the program
func (s *Surface) Show() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	go func() {
		defer close(s.exited)
		if _, err := s.program.Run(); err != nil {
			s.err = err
			log.LogWithError(err).Error("Progress display failed")
		}
	}()
}

// Append hands text to the model and returns once the model has taken it.
// It returns immediately if the program has already exited.
func (s *Surface) Append(text string) {
	accepted := make(chan struct{})
	if !s.send(messages.OutputMsg{Text: text, Accepted: accepted}) {
		return
	}
	select {
	case <-accepted:
	case <-s.exited:
	}
}

func (s *Surface) SetClosable(closable bool) {
	s.send(messages.ClosableMsg{Closable: closable})
}

func (s *Surface) SetStatus(status string) {
	s.send(messages.StatusMsg{Status: status})
}

// send delivers msg to the program. Before Show the model is updated
// directly since nothing else reads it yet.
func (s *Surface) send(msg tea.Msg) bool {
	s.mu.Lock()
	if !s.started {
		s.model.Update(msg)
		s.mu.Unlock()
		return true
	}
	s.mu.Unlock()

	select {
	case <-s.exited:
		return false
	default:
	}
	s.program.Send(msg)
	return true
}

// Wait blocks until the program exits and returns its error
func (s *Surface) Wait() error {
	<-s.exited
	return s.err
}

// Model returns the underlying model. Only read it after Wait.
func (s *Surface) Model() *Model {
	return s.model
}
