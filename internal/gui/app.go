package gui

import (
	"context"

	"sortmedia/internal/config"
	"sortmedia/internal/errors"
	"sortmedia/internal/log"
	"sortmedia/internal/relay"
	"sortmedia/internal/runstate"
	"sortmedia/internal/worker"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// Texts shown by the main window
const (
	titleAttention     = "Attention"
	msgNoDirectory     = "No directory selected"
	msgRunInProgress   = "Sorting is still in progress"
	labelSelectSource  = "Select directory to sort"
	labelSelectImages  = "Select where to put images"
	labelSelectVideos  = "Select where to put videos"
	labelModTime       = "Use modification time as creation time"
	labelParse         = "Sort files!"
	defaultWindowTitle = "Sort media"
)

// App is the GUI application
type App struct {
	fyneApp    fyne.App
	mainWindow fyne.Window
	cfg        *config.Config
	store      config.Store
	controller *runstate.Controller

	// run is only touched on the UI thread
	run config.RunConfiguration

	sourceLabel  *widget.Label
	imageLabel   *widget.Label
	videoLabel   *widget.Label
	sourceButton *widget.Button
	imageButton  *widget.Button
	videoButton  *widget.Button
	parseButton  *widget.Button
	modTimeCheck *widget.Check

	// progress is the dialog of the latest run
	progress *progressDialog

	// saved is the last run configuration written to the store
	saved *config.RunConfiguration
}

// NewApp creates the main window on fyneApp. The stored run values are
// loaded immediately; a store that cannot be read leaves them empty.
func NewApp(fyneApp fyne.App, cfg *config.Config, store config.Store, opts ...worker.Option) (*App, error) {
	r, err := relay.New(cfg.Worker.AckLine, cfg.Worker.OutputEncoding)
	if err != nil {
		return nil, err
	}

	a := &App{
		fyneApp: fyneApp,
		cfg:     cfg,
		store:   store,
	}

	run, err := store.Load()
	if err != nil {
		log.LogWithError(err).Warn("Could not load stored directories")
	}
	a.run = run

	a.mainWindow = fyneApp.NewWindow(defaultWindowTitle)
	a.controller = runstate.New(runstate.Options{
		Launcher: runstate.WorkerLauncher{Launcher: worker.NewLauncher(cfg.Worker, opts...)},
		Relay:    r,
		Host:     a,
		Notifier: a,
		NewView: func() runstate.ProgressView {
			var p *progressDialog
			fyne.DoAndWait(func() {
				p = newProgressDialog(a.mainWindow)
				a.progress = p
			})
			return p
		},
		Context: context.Background(),
	})

	a.setupMainWindow()
	return a, nil
}

// GetMainWindow returns the main window instance
func (a *App) GetMainWindow() fyne.Window {
	return a.mainWindow
}

// Controller returns the run state controller of the window
func (a *App) Controller() *runstate.Controller {
	return a.controller
}

// Run shows the main window and blocks until the application quits
func (a *App) Run() {
	a.mainWindow.Show()
	a.fyneApp.Run()
}

// setupMainWindow sets up the main window content
func (a *App) setupMainWindow() {
	a.sourceLabel = widget.NewLabel(a.run.SourceDir)
	a.imageLabel = widget.NewLabel(a.run.ImageDir)
	a.videoLabel = widget.NewLabel(a.run.VideoDir)

	a.sourceButton = widget.NewButton(labelSelectSource, func() {
		a.pickFolder(&a.run.SourceDir, a.sourceLabel)
	})
	a.imageButton = widget.NewButton(labelSelectImages, func() {
		a.pickFolder(&a.run.ImageDir, a.imageLabel)
	})
	a.videoButton = widget.NewButton(labelSelectVideos, func() {
		a.pickFolder(&a.run.VideoDir, a.videoLabel)
	})

	a.modTimeCheck = widget.NewCheck(labelModTime, func(checked bool) {
		a.run.UseModTimeAsCreated = checked
	})
	a.modTimeCheck.SetChecked(a.run.UseModTimeAsCreated)

	a.parseButton = widget.NewButton(labelParse, func() {
		run := a.run
		go a.startRun(run)
	})
	a.parseButton.Importance = widget.HighImportance

	a.mainWindow.SetContent(container.NewVBox(
		a.sourceButton,
		a.imageButton,
		a.videoButton,
		a.modTimeCheck,
		a.parseButton,
		a.sourceLabel,
		a.imageLabel,
		a.videoLabel,
	))
	a.mainWindow.Resize(fyne.NewSize(520, 320))
	a.mainWindow.SetMaster()

	a.mainWindow.SetCloseIntercept(a.onClose)
	// Quitting from the app menu skips the close intercept
	a.fyneApp.Lifecycle().SetOnStopped(a.saveRun)
}

// pickFolder asks for a directory and stores it in target
func (a *App) pickFolder(target *string, label *widget.Label) {
	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		a.folderPicked(target, label, uri, err)
	}, a.mainWindow)
}

// folderPicked applies a folder dialog result. An empty choice keeps the
// previous value.
func (a *App) folderPicked(target *string, label *widget.Label, uri fyne.ListableURI, err error) {
	if err != nil {
		a.ShowError("Folder selection failed", err)
		return
	}
	if uri == nil || uri.Path() == "" {
		dialog.ShowInformation(titleAttention, msgNoDirectory, a.mainWindow)
		return
	}
	*target = uri.Path()
	label.SetText(*target)
	log.LogWithFields(log.F("path", *target)).Debug("Directory selected")
}

// startRun hands run to the controller. It is called off the UI thread;
// every UI change it causes is marshalled by the host and the dialog.
func (a *App) startRun(run config.RunConfiguration) (*runstate.Run, error) {
	r, err := a.controller.Start(run)
	if err != nil && !errors.Is(err, errors.ErrRunInProgress) {
		log.LogWithError(err).Debug("Sort not started")
	}
	return r, err
}

// SetInteractive enables or disables every control of the main window
func (a *App) SetInteractive(enabled bool) {
	fyne.DoAndWait(func() {
		for _, w := range []fyne.Disableable{
			a.sourceButton, a.imageButton, a.videoButton, a.modTimeCheck, a.parseButton,
		} {
			if enabled {
				w.Enable()
			} else {
				w.Disable()
			}
		}
	})
}

// Warn shows a warning dialog
func (a *App) Warn(title, message string) {
	fyne.Do(func() {
		dialog.ShowInformation(title, message, a.mainWindow)
	})
}

// Error shows an error dialog
func (a *App) Error(title string, err error) {
	a.ShowError(title, err)
}

// ShowError displays an error dialog
func (a *App) ShowError(title string, err error) {
	if err == nil {
		return
	}
	log.LogWithError(err).Error(title)
	fyne.Do(func() {
		dialog.ShowError(err, a.mainWindow)
	})
}

// onClose persists the run values and closes the window. Closing is refused
// while a worker runs.
func (a *App) onClose() {
	if a.controller.State() == runstate.Running {
		dialog.ShowInformation(titleAttention, msgRunInProgress, a.mainWindow)
		return
	}
	a.saveRun()
	a.mainWindow.Close()
}

// saveRun stores the run values unless they were stored already
func (a *App) saveRun() {
	if a.saved != nil && *a.saved == a.run {
		return
	}
	if err := a.store.Save(a.run); err != nil {
		log.LogWithError(err).Error("Failed to save directories")
		return
	}
	saved := a.run
	a.saved = &saved
	log.LogWithFields(
		log.F("source", a.run.SourceDir),
		log.F("images", a.run.ImageDir),
		log.F("videos", a.run.VideoDir),
	).Debug("Directories saved")
}
