// Package worker starts the external sort-media worker and tracks the
// lifecycle of the process.
package worker

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"time"

	"sortmedia/internal/config"
	"sortmedia/internal/errors"
	"sortmedia/internal/log"
)

// Launcher starts worker processes
type Launcher struct {
	executable   string
	startTimeout time.Duration
	leadingArgs  []string
	env          []string
	lookPath     func(string) (string, error)
	start        func(*exec.Cmd) error
}

// Option configures a Launcher
type Option func(*Launcher)

// WithLeadingArgs inserts args before the worker flags, for workers that are
// started through an interpreter or wrapper.
func WithLeadingArgs(args ...string) Option {
	return func(l *Launcher) {
		l.leadingArgs = append(l.leadingArgs, args...)
	}
}

// WithEnv adds environment variables to the worker environment
func WithEnv(env ...string) Option {
	return func(l *Launcher) {
		l.env = append(l.env, env...)
	}
}

// NewLauncher creates a launcher from the worker settings
func NewLauncher(settings config.WorkerSettings, opts ...Option) *Launcher {
	l := &Launcher{
		executable:   settings.Executable,
		startTimeout: settings.StartTimeout,
		lookPath:     exec.LookPath,
		start:        (*exec.Cmd).Start,
	}
	if l.startTimeout <= 0 {
		l.startTimeout = 5 * time.Second
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Executable returns the configured worker name
func (l *Launcher) Executable() string {
	return l.executable
}

// Launch starts the worker for run. The caller is expected to have validated
// run already. The returned handle is Running; on error the process is not
// left behind.
func (l *Launcher) Launch(ctx context.Context, run config.RunConfiguration) (*Handle, error) {
	path, err := l.lookPath(l.executable)
	if err != nil {
		return nil, errors.NewLaunchError("worker executable not found ("+installHint()+")", l.executable, errors.WorkerNotFound, err)
	}

	args := append(append([]string(nil), l.leadingArgs...), BuildArgs(run)...)
	cmd := exec.Command(path, args...)
	if len(l.env) > 0 {
		cmd.Env = append(os.Environ(), l.env...)
	}
	h := newHandle(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		h.setState(FailedToStart)
		return nil, errors.NewLaunchError("failed to open worker stdin", l.executable, errors.WorkerStartFailed, err)
	}

	// stdout and stderr share one pipe so error output is shown in order
	// with progress. The parent closes its copy of the write end after
	// start so end-of-stream follows the worker's exit.
	outR, outW, err := os.Pipe()
	if err != nil {
		stdin.Close()
		h.setState(FailedToStart)
		return nil, errors.NewLaunchError("failed to open worker stdout", l.executable, errors.WorkerStartFailed, err)
	}
	cmd.Stdout = outW
	cmd.Stderr = outW
	h.stdin = stdin
	h.output = outR

	h.setState(Starting)
	started := make(chan error, 1)
	go func() {
		started <- l.start(cmd)
	}()

	timer := time.NewTimer(l.startTimeout)
	defer timer.Stop()

	var startErr error
	select {
	case startErr = <-started:
	case <-timer.C:
		startErr = errors.NewLaunchError("worker did not start in time", l.executable, errors.WorkerStartTimeout, nil)
		go reapLate(started, h, outW)
	case <-ctx.Done():
		startErr = errors.NewLaunchError("launch cancelled", l.executable, errors.WorkerStartFailed, ctx.Err())
		go reapLate(started, h, outW)
	}

	if startErr != nil {
		h.setState(FailedToStart)
		if errors.IsLaunch(startErr) {
			return nil, startErr
		}
		outW.Close()
		outR.Close()
		stdin.Close()
		return nil, errors.NewLaunchError("failed to start worker", l.executable, errors.WorkerStartFailed, startErr)
	}

	outW.Close()
	h.setState(Running)
	log.LogWithFields(
		log.F("executable", path),
		log.F("pid", h.Pid()),
		log.F("args", args),
	).Info("Worker started")

	return h, nil
}

// reapLate waits for a start that outlived the timeout and kills the process
// if it came up after all.
func reapLate(started <-chan error, h *Handle, outW *os.File) {
	err := <-started
	outW.Close()
	if err == nil {
		log.LogWithFields(log.F("pid", h.Pid())).Warn("Killing worker that started after the timeout")
		h.Kill()
		h.cmd.Wait()
	}
	h.stdin.Close()
	h.output.Close()
}

func installHint() string {
	switch runtime.GOOS {
	case "windows":
		return "place sort-media.exe next to sortmedia.exe or add it to PATH"
	default:
		return "build it with: go install ./cmd/sort-media, or set worker.executable"
	}
}
