package tui

import (
	"fmt"
	"io"

	"sortmedia/internal/log"
	"sortmedia/internal/tui/styles"
)

// Console is the host of a terminal run. There are no controls to lock, so
// it only reports notices on w.
type Console struct {
	w io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) SetInteractive(enabled bool) {
	log.LogWithFields(log.F("interactive", enabled)).Debug("Console host state")
}

func (c *Console) Warn(title, message string) {
	fmt.Fprintf(c.w, "%s %s\n", styles.Theme.Warning.Render(title+":"), message)
}

func (c *Console) Error(title string, err error) {
	fmt.Fprintf(c.w, "%s %v\n", styles.Theme.Error.Render(title+":"), err)
}
