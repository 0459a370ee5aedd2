// Package runstate owns the modal state machine of a sort run: it disables
// the host while a worker runs, creates the progress surface, relays the
// worker output into it and restores interactivity when the worker exits.
package runstate

import (
	"context"
	"fmt"
	"io"
	"sync"

	"sortmedia/internal/config"
	"sortmedia/internal/errors"
	"sortmedia/internal/log"
	"sortmedia/internal/relay"
	"sortmedia/internal/worker"
)

// State of the controller
type State int

const (
	Idle State = iota
	Running
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// StatusDone is shown on the progress surface when a run has finished.
const StatusDone = "done"

// Host is the window whose controls are locked while a run is active
type Host interface {
	SetInteractive(enabled bool)
}

// ProgressView is the modal surface of one run
type ProgressView interface {
	relay.Surface
	Show()
	SetClosable(closable bool)
	SetStatus(status string)
}

// Notifier shows modal messages to the user
type Notifier interface {
	Warn(title, message string)
	Error(title string, err error)
}

// Process is a started worker
type Process interface {
	Stdout() io.Reader
	Stdin() io.Writer
	Wait() (int, error)
	Kill() error
}

// Launcher starts a worker for a validated run configuration
type Launcher interface {
	Launch(ctx context.Context, run config.RunConfiguration) (Process, error)
}

// WorkerLauncher adapts worker.Launcher to Launcher
type WorkerLauncher struct {
	*worker.Launcher
}

func (w WorkerLauncher) Launch(ctx context.Context, run config.RunConfiguration) (Process, error) {
	h, err := w.Launcher.Launch(ctx, run)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Options wires a Controller
type Options struct {
	Launcher Launcher
	Relay    *relay.Relay
	Host     Host
	Notifier Notifier
	// NewView creates a fresh progress surface for each run
	NewView func() ProgressView
	// Context stops relaying when the host process shuts down
	Context context.Context
}

// Controller runs at most one worker at a time
type Controller struct {
	opts Options
	ctx  context.Context

	mu        sync.Mutex
	state     State
	launching bool
	observers []func(from, to State)
}

func New(opts Options) *Controller {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return &Controller{opts: opts, ctx: ctx, state: Idle}
}

// State returns the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnTransition registers fn to be called after every state change.
func (c *Controller) OnTransition(fn func(from, to State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

func (c *Controller) transition(to State) {
	c.mu.Lock()
	from := c.state
	c.state = to
	observers := append([]func(from, to State){}, c.observers...)
	c.mu.Unlock()

	log.LogWithFields(log.F("from", from.String()), log.F("to", to.String())).Info("Run state changed")
	for _, fn := range observers {
		fn(from, to)
	}
}

// Start validates run, launches the worker and returns the active run.
// Validation and launch failures are shown to the user and returned; the
// controller stays Idle for both.
func (c *Controller) Start(run config.RunConfiguration) (*Run, error) {
	if err := run.Validate(); err != nil {
		log.LogWithError(err).Warn("Run refused")
		c.opts.Notifier.Warn("Attention", "Select directories!")
		return nil, err
	}

	c.mu.Lock()
	if c.state == Running || c.launching {
		c.mu.Unlock()
		return nil, errors.ErrRunInProgress
	}
	c.launching = true
	c.mu.Unlock()

	c.opts.Host.SetInteractive(false)

	proc, err := c.opts.Launcher.Launch(c.ctx, run)
	if err != nil {
		c.mu.Lock()
		c.launching = false
		c.mu.Unlock()

		log.LogWithError(err).Error("Worker launch failed")
		c.opts.Host.SetInteractive(true)
		c.opts.Notifier.Error("Sort failed", err)
		return nil, err
	}

	view := c.opts.NewView()
	view.SetClosable(false)
	view.Show()

	c.mu.Lock()
	c.launching = false
	c.mu.Unlock()
	c.transition(Running)

	r := &Run{done: make(chan struct{})}
	go c.supervise(r, proc, view)
	return r, nil
}

// supervise relays output until the worker closes it, then waits for exit
// and completes the run. When the host shuts down the worker is killed, so
// its output ends and Wait returns even if it is blocked on an
// acknowledgement.
func (c *Controller) supervise(r *Run, proc Process, view ProgressView) {
	stop := context.AfterFunc(c.ctx, func() {
		log.Warn("Host is shutting down, stopping worker")
		if err := proc.Kill(); err != nil {
			log.LogWithError(err).Debug("Worker kill failed")
		}
	})
	res := c.opts.Relay.Run(c.ctx, proc.Stdout(), proc.Stdin(), view)
	code, waitErr := proc.Wait()
	stop()

	r.outcome = Outcome{
		ExitCode: code,
		Chunks:   res.Chunks,
		Acks:     res.Acks,
		AckErr:   res.AckErr,
		ReadErr:  res.ReadErr,
		WaitErr:  waitErr,
	}

	view.SetStatus(r.outcome.Status())
	view.SetClosable(true)
	// unlock before observers run; one of them may start the next run
	c.opts.Host.SetInteractive(true)
	c.transition(Completed)

	if err := r.outcome.Err(); err != nil {
		log.LogWithError(err).Warn("Run completed with errors")
	}
	close(r.done)
}

// Outcome is the result of a finished run
type Outcome struct {
	ExitCode int
	Chunks   int
	Acks     int
	AckErr   error
	ReadErr  error
	WaitErr  error
}

// Err returns the first error of the run, if any. A non-zero exit code is
// reported by the worker itself and is not an error here.
func (o Outcome) Err() error {
	for _, err := range []error{o.AckErr, o.ReadErr, o.WaitErr} {
		if err != nil {
			return err
		}
	}
	return nil
}

// Status is the terminal text shown on the progress surface
func (o Outcome) Status() string {
	status := StatusDone
	if o.AckErr != nil {
		status += " (worker stopped reading acknowledgements)"
	}
	if o.ReadErr != nil || o.WaitErr != nil {
		status += " (output incomplete)"
	}
	if o.ExitCode != 0 {
		status += fmt.Sprintf(" (exit code %d)", o.ExitCode)
	}
	return status
}

// Run is one launched worker
type Run struct {
	done    chan struct{}
	outcome Outcome
}

// Done is closed when the run reaches Completed
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run is completed and returns its outcome
func (r *Run) Wait() Outcome {
	<-r.done
	return r.outcome
}
