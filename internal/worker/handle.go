package worker

import (
	"io"
	"os"
	"os/exec"
	"sync"

	"sortmedia/internal/errors"
	"sortmedia/internal/log"
)

// State is the lifecycle state of a worker process
type State int

const (
	NotStarted State = iota
	Starting
	Running
	Exited
	FailedToStart
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Exited:
		return "exited"
	case FailedToStart:
		return "failed_to_start"
	default:
		return "unknown"
	}
}

// Handle is one worker process. Its stdout and stderr arrive merged on
// Stdout; Stdin carries acknowledgements back.
type Handle struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	output *os.File

	mu       sync.Mutex
	state    State
	exitCode int

	waitOnce sync.Once
	waitErr  error
}

func newHandle(cmd *exec.Cmd) *Handle {
	return &Handle{cmd: cmd, state: NotStarted, exitCode: -1}
}

// Stdout returns the merged output stream of the worker
func (h *Handle) Stdout() io.Reader {
	return h.output
}

// Stdin returns the acknowledgement channel to the worker
func (h *Handle) Stdin() io.Writer {
	return h.stdin
}

// Args returns the full argument vector, executable first
func (h *Handle) Args() []string {
	return append([]string(nil), h.cmd.Args...)
}

// Pid returns the process id, or 0 before the process started
func (h *Handle) Pid() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// State returns the current lifecycle state
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// ExitCode returns the exit code once the handle is Exited, -1 otherwise
func (h *Handle) ExitCode() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitCode
}

func (h *Handle) setState(s State) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
}

// Wait blocks until the worker exits and returns its exit code. A non-zero
// exit is not an error; the error is set only when waiting itself failed.
// Wait may be called more than once.
func (h *Handle) Wait() (int, error) {
	h.waitOnce.Do(func() {
		err := h.cmd.Wait()
		code := -1
		if h.cmd.ProcessState != nil {
			code = h.cmd.ProcessState.ExitCode()
		}
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			h.waitErr = errors.Wrap(err, "waiting for worker failed")
		}
		h.output.Close()

		h.mu.Lock()
		h.state = Exited
		h.exitCode = code
		h.mu.Unlock()

		log.LogWithFields(log.F("pid", h.Pid()), log.F("exit_code", code)).Info("Worker exited")
	})
	return h.ExitCode(), h.waitErr
}

// Kill terminates the worker. The host never cancels a run itself; this is
// used when the host process shuts down or a late start has to be undone.
func (h *Handle) Kill() error {
	if h.cmd.Process == nil {
		return nil
	}
	return h.cmd.Process.Kill()
}
