package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"sortmedia/internal/log"
	"sortmedia/internal/worker"

	"github.com/schollz/progressbar/v3"
)

// PlainSurface prints a run as a single progress bar for terminals without
// an alternate screen or for piped output. Text that is not a progress line
// is printed above the bar.
type PlainSurface struct {
	w   io.Writer
	bar *progressbar.ProgressBar

	mu   sync.Mutex
	text strings.Builder
}

func NewPlainSurface(w io.Writer) *PlainSurface {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Sorting"),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowDescriptionAtLineEnd(),
	)
	return &PlainSurface{w: w, bar: bar}
}

func (s *PlainSurface) Show() {
	if err := s.bar.RenderBlank(); err != nil {
		log.LogWithError(err).Debug("Progress bar render failed")
	}
}

// Append prints text and moves the bar to the last progress line in it
func (s *PlainSurface) Append(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text.WriteString(text)

	var other []string
	for _, line := range strings.SplitAfter(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if _, ok := worker.ParseProgress(line); !ok {
			other = append(other, line)
		}
	}
	if len(other) > 0 {
		s.bar.Clear()
		fmt.Fprint(s.w, strings.Join(other, ""))
		if !strings.HasSuffix(other[len(other)-1], "\n") {
			fmt.Fprintln(s.w)
		}
	}

	if p, ok := worker.ParseProgress(text); ok {
		s.bar.Describe(p.File)
		if err := s.bar.Set(p.Percent); err != nil {
			log.LogWithError(err).Debug("Progress bar render failed")
		}
	}
}

func (s *PlainSurface) SetClosable(bool) {}

// SetStatus finishes the bar and prints the terminal status
func (s *PlainSurface) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bar.Describe("")
	if err := s.bar.Finish(); err != nil {
		log.LogWithError(err).Debug("Progress bar render failed")
	}
	fmt.Fprintf(s.w, "\n%s\n", status)
}

// Text returns all output received so far
func (s *PlainSurface) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.String()
}
