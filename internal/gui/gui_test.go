package gui

import (
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"sortmedia/internal/config"
	"sortmedia/internal/errors"
	"sortmedia/internal/runstate"
	"sortmedia/internal/worker"
	"sortmedia/pkg/testutils"

	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	testutils.RunFakeWorkerIfRequested()
	os.Exit(m.Run())
}

var storedRun = config.RunConfiguration{
	SourceDir:           "/media/card",
	ImageDir:            "/photos",
	VideoDir:            "/videos",
	UseModTimeAsCreated: true,
}

func newTestApp(t *testing.T, store config.Store, opts ...worker.Option) *App {
	t.Helper()
	cfg := config.New()
	cfg.Worker.Executable = os.Args[0]

	a, err := NewApp(test.NewTempApp(t), cfg, store, opts...)
	require.NoError(t, err)
	return a
}

func controlsDisabled(a *App) []bool {
	return []bool{
		a.sourceButton.Disabled(),
		a.imageButton.Disabled(),
		a.videoButton.Disabled(),
		a.modTimeCheck.Disabled(),
		a.parseButton.Disabled(),
	}
}

func TestNewAppLoadsStoredDirectories(t *testing.T) {
	a := newTestApp(t, config.NewMemoryStore(storedRun))

	require.NotNil(t, a.GetMainWindow())
	assert.Equal(t, "/media/card", a.sourceLabel.Text)
	assert.Equal(t, "/photos", a.imageLabel.Text)
	assert.Equal(t, "/videos", a.videoLabel.Text)
	assert.True(t, a.modTimeCheck.Checked)
	assert.Equal(t, runstate.Idle, a.Controller().State())
}

func TestNewAppRejectsUnknownEncoding(t *testing.T) {
	cfg := config.New()
	cfg.Worker.OutputEncoding = "no-such-charset"
	_, err := NewApp(test.NewTempApp(t), cfg, config.NewMemoryStore(config.RunConfiguration{}))
	assert.True(t, errors.IsInvalidConfig(err))
}

func TestFolderPicked(t *testing.T) {
	a := newTestApp(t, config.NewMemoryStore(config.RunConfiguration{}))
	dir := t.TempDir()

	uri, err := storage.ListerForURI(storage.NewFileURI(dir))
	require.NoError(t, err)

	a.folderPicked(&a.run.ImageDir, a.imageLabel, uri, nil)
	assert.Equal(t, dir, a.run.ImageDir)
	assert.Equal(t, dir, a.imageLabel.Text)
}

func TestFolderPickCancelledKeepsValue(t *testing.T) {
	a := newTestApp(t, config.NewMemoryStore(storedRun))

	a.folderPicked(&a.run.SourceDir, a.sourceLabel, nil, nil)

	assert.Equal(t, "/media/card", a.run.SourceDir)
	assert.Equal(t, "/media/card", a.sourceLabel.Text)
	assert.NotNil(t, a.mainWindow.Canvas().Overlays().Top(), "a warning is shown")
}

func TestModTimeCheckUpdatesRun(t *testing.T) {
	a := newTestApp(t, config.NewMemoryStore(config.RunConfiguration{}))
	assert.False(t, a.run.UseModTimeAsCreated)

	test.Tap(a.modTimeCheck)
	assert.True(t, a.run.UseModTimeAsCreated)
}

func TestStartRunWithoutDirectories(t *testing.T) {
	a := newTestApp(t, config.NewMemoryStore(config.RunConfiguration{SourceDir: "/a"}))

	r, err := a.startRun(a.run)
	assert.Nil(t, r)
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, []bool{false, false, false, false, false}, controlsDisabled(a))
	assert.Nil(t, a.progress)
	assert.Equal(t, runstate.Idle, a.Controller().State())
}

func TestStartRunShowsWorkerOutput(t *testing.T) {
	const n = 4
	store := config.NewMemoryStore(storedRun)
	a := newTestApp(t, store, testutils.FakeWorkerOptions(testutils.ModeHandshake, testutils.FakeChunksEnv+"="+strconv.Itoa(n))...)

	var whileRunning []bool
	var closableWhileRunning bool
	a.Controller().OnTransition(func(from, to runstate.State) {
		if to == runstate.Running {
			whileRunning = controlsDisabled(a)
			closableWhileRunning = !a.progress.closeButton.Disabled()
		}
	})

	r, err := a.startRun(a.run)
	require.NoError(t, err)
	select {
	case <-r.Done():
	case <-time.After(20 * time.Second):
		t.Fatal("run did not complete")
	}

	outcome := r.Wait()
	assert.NoError(t, outcome.Err())
	assert.Equal(t, n, outcome.Acks)

	assert.Equal(t, []bool{true, true, true, true, true}, whileRunning)
	assert.False(t, closableWhileRunning)

	var want string
	for i := 0; i < n; i++ {
		want += testutils.ProgressLine(i, n)
	}
	require.NotNil(t, a.progress)
	assert.Equal(t, want, a.progress.Text())
	assert.Equal(t, runstate.StatusDone, a.progress.status.Text)
	assert.False(t, a.progress.closeButton.Disabled())
	assert.Equal(t, []bool{false, false, false, false, false}, controlsDisabled(a))
	assert.Equal(t, runstate.Completed, a.Controller().State())
}

func TestProgressDialog(t *testing.T) {
	w := test.NewTempWindow(t, widget.NewLabel("main"))
	p := newProgressDialog(w)
	p.SetClosable(false)
	p.Show()

	p.Append(" 10%| IMG_0001.JPG to /photos/2021/07\n")
	p.Append(" 55%| CLIP_0002.MOV to /videos/2021/07\n")

	assert.Equal(t, " 10%| IMG_0001.JPG to /photos/2021/07\n 55%| CLIP_0002.MOV to /videos/2021/07\n", p.Text())
	assert.Equal(t, p.Text(), p.output.Text)
	assert.InDelta(t, 0.55, p.bar.Value, 0.001)
	assert.Equal(t, "CLIP_0002.MOV", p.status.Text)
	assert.True(t, p.closeButton.Disabled())

	p.Append("plain text without progress\n")
	assert.InDelta(t, 0.55, p.bar.Value, 0.001)

	p.SetStatus(runstate.StatusDone)
	p.SetClosable(true)
	assert.Equal(t, "done", p.status.Text)
	assert.False(t, p.closeButton.Disabled())
}

func TestProgressDialogShowsTail(t *testing.T) {
	w := test.NewTempWindow(t, widget.NewLabel("main"))
	p := newProgressDialog(w)
	p.Show()

	const n = maxVisibleLines + 100
	var want strings.Builder
	for i := 0; i < n; i++ {
		line := testutils.ProgressLine(i, n)
		want.WriteString(line)
		p.Append(line)
	}

	assert.Equal(t, want.String(), p.Text(), "the full output is kept")
	visible := strings.SplitAfter(p.output.Text, "\n")
	assert.Len(t, visible, maxVisibleLines+1) // trailing empty element
	assert.Equal(t, testutils.ProgressLine(100, n), visible[0])
	assert.Equal(t, testutils.ProgressLine(n-1, n), visible[maxVisibleLines-1])
}

func TestTailBuffer(t *testing.T) {
	b := newTailBuffer(2)
	b.Write("one\ntw")
	assert.Equal(t, "one\ntw", b.String())
	b.Write("o\nthree\nfo")
	assert.Equal(t, "two\nthree\nfo", b.String())
	b.Write("ur\n")
	assert.Equal(t, "three\nfour\n", b.String())
}

func TestCloseSavesDirectories(t *testing.T) {
	store := config.NewMemoryStore(config.RunConfiguration{})
	a := newTestApp(t, store)
	a.run = storedRun

	a.onClose()

	assert.Equal(t, 1, store.Saves())
	saved, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, storedRun, saved)
}

func TestQuitSavesDirectories(t *testing.T) {
	store := config.NewMemoryStore(config.RunConfiguration{})
	a := newTestApp(t, store)
	a.run = storedRun

	// the app quits without the window being closed
	if l, ok := a.fyneApp.Lifecycle().(interface{ TriggerStopped() }); ok {
		l.TriggerStopped()
	} else {
		a.saveRun()
	}
	saved, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, storedRun, saved)

	// closing the window first and then stopping writes once
	a.onClose()
	a.saveRun()
	assert.Equal(t, 1, store.Saves())

	a.run.VideoDir = "/clips"
	a.saveRun()
	assert.Equal(t, 2, store.Saves())
}

func TestCloseRefusedWhileRunning(t *testing.T) {
	store := config.NewMemoryStore(storedRun)
	a := newTestApp(t, store, testutils.FakeWorkerOptions(testutils.ModeSilent)...)

	a.Controller().OnTransition(func(from, to runstate.State) {
		if to == runstate.Running {
			a.onClose()
		}
	})

	r, err := a.startRun(a.run)
	require.NoError(t, err)
	r.Wait()

	assert.Equal(t, 0, store.Saves())
}
