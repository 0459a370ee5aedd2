package main

import (
	"sortmedia/internal/gui"

	"github.com/spf13/cobra"
)

// guiCmd opens the desktop window
func guiCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "gui",
		Short: "Open the desktop window",
		Long:  `Open the window for picking directories and watching the worker sort them.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGUI(o)
		},
	}
}

func runGUI(o *options) error {
	store, err := o.store()
	if err != nil {
		return err
	}
	app, err := gui.NewFactory(o.cfg, store, o.workerOpts...).Create()
	if err != nil {
		return err
	}
	app.Run()
	return nil
}
