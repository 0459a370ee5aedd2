package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"sortmedia/internal/config"
	"sortmedia/internal/errors"
	"sortmedia/internal/log"
	"sortmedia/internal/relay"
	"sortmedia/internal/runstate"
	"sortmedia/internal/tui"
	"sortmedia/internal/watch"
	"sortmedia/internal/worker"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

type runFlags struct {
	source     string
	images     string
	videos     string
	useModTime bool
	plain      bool
	watch      bool
	save       bool
}

// runCmd sorts from the terminal
func runCmd(o *options) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sort the source directory from the terminal",
		Long: `Run the worker once on the stored directories, or on the ones given as flags.

With --watch the source directory is watched and the worker runs again
whenever new files arrive.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTerminal(cmd, o, f)
		},
	}

	cmd.Flags().StringVarP(&f.source, "source", "s", "", "directory to sort")
	cmd.Flags().StringVarP(&f.images, "images", "i", "", "export directory for images")
	cmd.Flags().StringVar(&f.videos, "videos", "", "export directory for videos")
	cmd.Flags().BoolVar(&f.useModTime, "use-mod-time", false, "use the modification time when a file has no creation date")
	cmd.Flags().BoolVar(&f.plain, "plain", false, "print a progress bar instead of the full screen view")
	cmd.Flags().BoolVarP(&f.watch, "watch", "w", false, "run again whenever new files arrive")
	cmd.Flags().BoolVar(&f.save, "save", false, "store the directories for the next session")

	return cmd
}

// override applies the flags that were set on top of the stored values
func (f runFlags) override(cmd *cobra.Command, run config.RunConfiguration) config.RunConfiguration {
	flags := cmd.Flags()
	if flags.Changed("source") {
		run.SourceDir = f.source
	}
	if flags.Changed("images") {
		run.ImageDir = f.images
	}
	if flags.Changed("videos") {
		run.VideoDir = f.videos
	}
	if flags.Changed("use-mod-time") {
		run.UseModTimeAsCreated = f.useModTime
	}
	return run
}

func runTerminal(cmd *cobra.Command, o *options, f runFlags) error {
	store, err := o.store()
	if err != nil {
		return err
	}
	stored, err := store.Load()
	if err != nil {
		stored = o.cfg.Run
	}
	run := f.override(cmd, stored)
	if err := run.Validate(); err != nil {
		return err
	}
	if f.save {
		if err := store.Save(run); err != nil {
			return fmt.Errorf("failed to save directories: %w", err)
		}
	}

	r, err := relay.New(o.cfg.Worker.AckLine, o.cfg.Worker.OutputEncoding)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fullscreen := !f.plain && !f.watch
	if fullscreen {
		// the full screen view owns the terminal
		if err := o.configureLog(io.Discard); err != nil {
			return err
		}
	}

	var surface *tui.Surface
	newView := func() runstate.ProgressView {
		if fullscreen {
			surface = tui.NewSurface("Sorting media", tea.WithAltScreen())
			return surface
		}
		return tui.NewPlainSurface(cmd.OutOrStdout())
	}

	console := tui.NewConsole(cmd.ErrOrStderr())
	controller := runstate.New(runstate.Options{
		Launcher: runstate.WorkerLauncher{Launcher: worker.NewLauncher(o.cfg.Worker, o.workerOpts...)},
		Relay:    r,
		Host:     console,
		Notifier: console,
		NewView:  newView,
		Context:  ctx,
	})

	if f.watch {
		return watchSource(ctx, cmd, o, run, controller)
	}

	active, err := controller.Start(run)
	if err != nil {
		return err
	}
	outcome := active.Wait()
	if surface != nil {
		if err := surface.Wait(); err != nil {
			return err
		}
	}
	return outcomeError(outcome)
}

func watchSource(ctx context.Context, cmd *cobra.Command, o *options, run config.RunConfiguration, controller *runstate.Controller) error {
	daemon, err := watch.NewDaemon(run, o.cfg.Watch, controller)
	if err != nil {
		return err
	}
	daemon.SetCallback(func(r *runstate.Run) {
		go func() {
			if err := outcomeError(r.Wait()); err != nil {
				log.LogWithError(err).Warn("Watch run finished with errors")
			}
		}()
	})

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s, press Ctrl+C to stop\n", run.SourceDir)
	return daemon.Run(ctx)
}

// outcomeError turns a finished run into the command's error
func outcomeError(o runstate.Outcome) error {
	if err := o.Err(); err != nil {
		return err
	}
	if o.ExitCode != 0 {
		return errors.Newf("sort-media exited with code %d", o.ExitCode)
	}
	return nil
}
