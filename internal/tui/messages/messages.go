// Package messages holds the Bubble Tea messages the progress program
// receives from the run goroutine.
package messages

// OutputMsg carries one decoded chunk of worker output. Accepted is closed
// once the model has taken the text.
type OutputMsg struct {
	Text     string
	Accepted chan struct{}
}

// ClosableMsg enables or disables quitting
type ClosableMsg struct {
	Closable bool
}

// StatusMsg sets the terminal status line
type StatusMsg struct {
	Status string
}
