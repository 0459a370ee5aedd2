package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"sortmedia/internal/config"
	"sortmedia/internal/errors"
	"sortmedia/internal/log"
	"sortmedia/internal/runstate"
)

// Runner starts sort runs. *runstate.Controller implements it.
type Runner interface {
	Start(run config.RunConfiguration) (*runstate.Run, error)
}

// DaemonStatus represents the current status of the daemon
type DaemonStatus struct {
	Running      bool      // Whether the daemon is currently active
	Directory    string    // Source directory being watched
	LastActivity time.Time // Time of last file activity
	Runs         int       // Runs started by the daemon
	Pending      int       // Files seen since the last run was started
}

// Daemon starts a run whenever files land in the source directory. Events
// are debounced and never start a run while another one is active; files
// that arrive during a run trigger one more run after it completes.
type Daemon struct {
	run      config.RunConfiguration
	debounce time.Duration
	runner   Runner
	watcher  *Watcher

	// Called with every run the daemon starts
	onRun func(*runstate.Run)

	mutex        sync.RWMutex
	running      bool
	runs         int
	pending      int
	lastActivity time.Time
}

// NewDaemon creates a daemon for run's source directory
func NewDaemon(run config.RunConfiguration, settings config.WatchSettings, runner Runner) (*Daemon, error) {
	if err := run.Validate(); err != nil {
		return nil, err
	}
	watcher, err := New(settings.Ignore...)
	if err != nil {
		return nil, err
	}
	return &Daemon{
		run:      run,
		debounce: settings.Debounce,
		runner:   runner,
		watcher:  watcher,
	}, nil
}

// SetCallback sets a function to be called with every run the daemon starts
func (d *Daemon) SetCallback(cb func(*runstate.Run)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.onRun = cb
}

// Status returns the current status of the daemon
func (d *Daemon) Status() DaemonStatus {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	return DaemonStatus{
		Running:      d.running,
		Directory:    d.run.SourceDir,
		LastActivity: d.lastActivity,
		Runs:         d.runs,
		Pending:      d.pending,
	}
}

// Run watches the source directory until ctx is done
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.watcher.AddDirectory(d.run.SourceDir); err != nil {
		return fmt.Errorf("error adding watch directory %s: %w", d.run.SourceDir, err)
	}
	if err := d.watcher.Start(); err != nil {
		return fmt.Errorf("error starting watcher: %w", err)
	}
	defer d.watcher.Stop()

	d.setRunning(true)
	defer d.setRunning(false)

	events := d.watcher.FileChannel()
	var fire <-chan time.Time
	var active <-chan struct{}

	for {
		select {
		case <-ctx.Done():
			return nil

		case mod, ok := <-events:
			if !ok {
				return nil
			}
			if d.isDestination(mod.Path) {
				continue
			}
			d.noteActivity(mod)
			if active == nil {
				fire = time.After(d.debounce)
			}

		case <-fire:
			fire = nil
			r, err := d.runner.Start(d.run)
			if errors.Is(err, errors.ErrRunInProgress) {
				fire = time.After(d.debounce)
				continue
			}
			if err != nil {
				log.LogWithError(err).Error("Watch run failed to start")
				continue
			}
			active = r.Done()
			d.startedRun(r)

		case <-active:
			active = nil
			if d.Status().Pending > 0 {
				fire = time.After(d.debounce)
			}
		}
	}
}

func (d *Daemon) setRunning(running bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.running = running
}

func (d *Daemon) noteActivity(mod FileModification) {
	d.mutex.Lock()
	d.pending++
	d.lastActivity = mod.Timestamp
	pending := d.pending
	d.mutex.Unlock()

	log.LogWithFields(log.F("file", mod.Path), log.F("pending", pending)).Debug("New file in source directory")
}

func (d *Daemon) startedRun(r *runstate.Run) {
	d.mutex.Lock()
	files := d.pending
	d.pending = 0
	d.runs++
	cb := d.onRun
	d.mutex.Unlock()

	log.LogWithFields(log.F("files", files), log.F("source", d.run.SourceDir)).Info("Watch triggered a run")
	if cb != nil {
		cb(r)
	}
}

// isDestination reports whether path lies in an export directory, which
// happens when the export directories are nested in the source directory.
func (d *Daemon) isDestination(path string) bool {
	for _, dir := range []string{d.run.ImageDir, d.run.VideoDir} {
		rel, err := filepath.Rel(dir, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
