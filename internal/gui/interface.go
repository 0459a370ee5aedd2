package gui

import (
	"sortmedia/internal/config"
	"sortmedia/internal/worker"

	"fyne.io/fyne/v2/app"
)

// AppID identifies the application to the desktop
const AppID = "io.github.sortmedia"

// Interface defines the contract for GUI operations
type Interface interface {
	Run()
	ShowError(title string, err error)
}

// Factory creates GUI instances
type Factory struct {
	config *config.Config
	store  config.Store
	opts   []worker.Option
}

// NewFactory creates a new GUI factory
func NewFactory(cfg *config.Config, store config.Store, opts ...worker.Option) *Factory {
	return &Factory{
		config: cfg,
		store:  store,
		opts:   opts,
	}
}

// Create returns a new GUI instance on a desktop Fyne application
func (f *Factory) Create() (Interface, error) {
	return NewApp(app.NewWithID(AppID), f.config, f.store, f.opts...)
}
