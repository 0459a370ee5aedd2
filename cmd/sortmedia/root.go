package main

import (
	"fmt"
	"io"
	"os"

	"sortmedia/internal/config"
	"sortmedia/internal/log"
	"sortmedia/internal/worker"

	"github.com/spf13/cobra"
)

// options are shared by every command
type options struct {
	cfgFile string
	debug   bool

	cfg     *config.Config
	logFile *os.File

	// Extra launcher options, used by tests to substitute the worker
	workerOpts []worker.Option
}

// NewRootCmd creates the root command. Without a subcommand it opens the
// desktop window.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&options{})
}

func newRootCmd(o *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sortmedia",
		Short: "Sort photos and videos from a camera card into dated folders",
		Long: `sortmedia is a front-end for the sort-media worker.

Pick a source directory and the image and video export directories, then
let the worker move every file into place while its progress is shown.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.load(cmd.ErrOrStderr())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			o.closeLog()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGUI(o)
		},
	}

	rootCmd.PersistentFlags().StringVar(&o.cfgFile, "config", "", "config file (default ~/.config/sortmedia/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&o.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(guiCmd(o))
	rootCmd.AddCommand(runCmd(o))
	rootCmd.AddCommand(configCmd(o))

	return rootCmd
}

// path returns the config file in use
func (o *options) path() (string, error) {
	if o.cfgFile != "" {
		return o.cfgFile, nil
	}
	return config.DefaultPath()
}

// load reads the config file and sets up logging. A broken config file
// falls back to the defaults with a warning.
func (o *options) load(stderr io.Writer) error {
	path, err := o.path()
	if err != nil {
		return fmt.Errorf("cannot locate config file: %w", err)
	}

	cfg, err := config.LoadConfigFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "Warning: %v, using defaults\n", err)
		cfg = config.New()
	}
	o.cfg = cfg

	return o.configureLog(os.Stderr)
}

// configureLog points the log facade at the configured file, or at fallback
// when no file is set.
func (o *options) configureLog(fallback io.Writer) error {
	o.closeLog()
	log.SetDebug(o.debug || o.cfg.Log.Debug)

	out := fallback
	if o.cfg.Log.File != "" {
		f, err := os.OpenFile(o.cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("cannot open log file: %w", err)
		}
		o.logFile = f
		out = f
	}

	logOpts := []log.Option{log.WithOutput(out)}
	if o.cfg.Log.JSON {
		logOpts = append(logOpts, log.WithJSON())
	}
	log.Configure(logOpts...)
	return nil
}

func (o *options) closeLog() {
	if o.logFile != nil {
		o.logFile.Close()
		o.logFile = nil
	}
}

// store returns the run value store backed by the config file
func (o *options) store() (*config.FileStore, error) {
	path, err := o.path()
	if err != nil {
		return nil, err
	}
	return config.NewFileStore(path), nil
}
