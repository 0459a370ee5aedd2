package worker

import "os/exec"

// WithStartHook replaces the process start, so tests can delay it
func WithStartHook(start func(*exec.Cmd) error) Option {
	return func(l *Launcher) {
		l.start = start
	}
}
