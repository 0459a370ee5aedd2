package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sortmedia/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	store := config.NewFileStore(path)

	// Nothing saved yet: empty paths and false
	run, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, config.RunConfiguration{}, run)

	want := config.RunConfiguration{
		SourceDir:           "/home/me/DCIM",
		ImageDir:            "/home/me/Pictures",
		VideoDir:            "/home/me/Videos",
		UseModTimeAsCreated: true,
	}
	require.NoError(t, store.Save(want))

	got, err := config.NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sort_media_gui:")
	assert.Contains(t, string(data), "source_dir: /home/me/DCIM")
}

func TestFileStoreKeepsOtherSections(t *testing.T) {
	path := createTestYAML(t, `
worker:
  executable: /usr/local/bin/sort-media
log:
  json: true
`)
	store := config.NewFileStore(path)
	require.NoError(t, store.Save(config.RunConfiguration{SourceDir: "/a", ImageDir: "/b", VideoDir: "/c"}))

	cfg, err := config.LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/sort-media", cfg.Worker.Executable)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "/a", cfg.Run.SourceDir)
	assert.False(t, cfg.Run.UseModTimeAsCreated)
}

func TestFileStoreInvalidFile(t *testing.T) {
	store := config.NewFileStore(createTestYAML(t, invalidSyntaxYAML))
	_, err := store.Load()
	assert.Error(t, err)
	assert.Error(t, store.Save(config.RunConfiguration{}))
}

func TestFileStoreIgnoresBrokenSettings(t *testing.T) {
	path := createTestYAML(t, `
worker:
  output_encoding: nope
sort_media_gui:
  source_dir: /media/camera
  image_dir: /media/photos
  video_dir: /media/videos
watch:
  ignore: ["["]
`)
	_, err := config.LoadConfigFile(path)
	require.Error(t, err, "the settings themselves are invalid")

	store := config.NewFileStore(path)
	run, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, config.RunConfiguration{
		SourceDir: "/media/camera",
		ImageDir:  "/media/photos",
		VideoDir:  "/media/videos",
	}, run)

	run.SourceDir = "/media/card"
	run.UseModTimeAsCreated = true
	require.NoError(t, store.Save(run))

	got, err := config.NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, run, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "output_encoding: nope")
	assert.Less(t, strings.Index(text, "worker:"), strings.Index(text, "sort_media_gui:"), "sections keep their order")
	assert.Less(t, strings.Index(text, "sort_media_gui:"), strings.Index(text, "watch:"))
}

func TestFileStoreEmptyFile(t *testing.T) {
	path := createTestYAML(t, "")
	store := config.NewFileStore(path)

	run, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, config.RunConfiguration{}, run)

	require.NoError(t, store.Save(config.RunConfiguration{SourceDir: "/a"}))
	run, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "/a", run.SourceDir)
}

func TestMemoryStore(t *testing.T) {
	store := config.NewMemoryStore(config.RunConfiguration{SourceDir: "/a"})
	run, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "/a", run.SourceDir)

	require.NoError(t, store.Save(config.RunConfiguration{VideoDir: "/v"}))
	run, _ = store.Load()
	assert.Equal(t, config.RunConfiguration{VideoDir: "/v"}, run)
	assert.Equal(t, 1, store.Saves())
}
