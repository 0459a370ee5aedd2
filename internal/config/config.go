package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"sortmedia/internal/errors"

	"github.com/gobwas/glob"
	"golang.org/x/text/encoding/htmlindex"
	"gopkg.in/yaml.v3"
)

// GroupKey is the fixed top-level key the run values are persisted under.
const GroupKey = "sort_media_gui"

// DefaultAckLine is written to the worker after each rendered chunk.
const DefaultAckLine = "done\n"

// Config represents the application configuration structure.
// It holds the persisted run values and the settings that control how the
// worker is launched and how the front-ends behave.
type Config struct {
	Run    RunConfiguration `yaml:"sort_media_gui"`
	Worker WorkerSettings   `yaml:"worker"`
	Log    LogSettings      `yaml:"log"`
	Watch  WatchSettings    `yaml:"watch"`
}

// WorkerSettings describe the external sorting worker
type WorkerSettings struct {
	Executable     string        `yaml:"executable"`      // Worker binary name or path
	StartTimeout   time.Duration `yaml:"start_timeout"`   // Bound on start confirmation
	AckLine        string        `yaml:"ack_line"`        // Acknowledgement written after each chunk
	OutputEncoding string        `yaml:"output_encoding"` // Legacy encoding of worker output, empty for UTF-8
}

// LogSettings control the log facade
type LogSettings struct {
	Debug bool   `yaml:"debug"`
	JSON  bool   `yaml:"json"`
	File  string `yaml:"file"` // Empty logs to stderr
}

// WatchSettings control re-running the worker when the source directory changes
type WatchSettings struct {
	Debounce time.Duration `yaml:"debounce"`
	Ignore   []string      `yaml:"ignore"` // Glob patterns matched against base names
}

// DefaultExecutable returns the worker binary name for the current platform.
func DefaultExecutable() string {
	if runtime.GOOS == "windows" {
		return "sort-media.exe"
	}
	return "sort-media"
}

// DefaultPath returns ~/.config/sortmedia/config.yaml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "sortmedia", "config.yaml"), nil
}

// LoadConfig loads configuration from the default location.
func LoadConfig() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadConfigFile(path)
}

// LoadConfigFile loads configuration from a specific file path.
// If the file doesn't exist, returns default configuration.
func LoadConfigFile(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var tempCfg Config
	if err := yaml.Unmarshal(data, &tempCfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Run values have empty/false defaults, so they are taken as-is
	cfg.Run = tempCfg.Run

	if tempCfg.Worker.Executable != "" {
		cfg.Worker.Executable = tempCfg.Worker.Executable
	}
	if tempCfg.Worker.StartTimeout != 0 {
		cfg.Worker.StartTimeout = tempCfg.Worker.StartTimeout
	}
	if tempCfg.Worker.AckLine != "" {
		cfg.Worker.AckLine = tempCfg.Worker.AckLine
	}
	cfg.Worker.OutputEncoding = tempCfg.Worker.OutputEncoding

	cfg.Log = tempCfg.Log

	if tempCfg.Watch.Debounce != 0 {
		cfg.Watch.Debounce = tempCfg.Watch.Debounce
	}
	if tempCfg.Watch.Ignore != nil {
		cfg.Watch.Ignore = tempCfg.Watch.Ignore
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns the default configuration with safe defaults.
func defaultConfig() *Config {
	cfg := &Config{}

	cfg.Worker.Executable = DefaultExecutable()
	cfg.Worker.StartTimeout = 5 * time.Second
	cfg.Worker.AckLine = DefaultAckLine

	cfg.Watch.Debounce = 2 * time.Second
	cfg.Watch.Ignore = []string{".*", "*.tmp", "*.part", "*.crdownload"}

	return cfg
}

// SaveConfig saves the configuration to the specified file.
// It creates parent directories if they don't exist.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return writeFile(path, data)
}

// writeFile replaces path with data through a temp file, so a crash
// mid-save keeps the old settings.
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write config file %s", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "failed to write config file %s", path)
	}
	return nil
}

// Validate checks if the configuration is valid.
// Run values are not checked here: empty directories are a normal state
// between runs and are rejected only when a run is requested.
func (c *Config) Validate() error {
	if c == nil {
		return errors.NewConfigError("nil config", "", errors.InvalidConfig, nil)
	}

	if strings.TrimSpace(c.Worker.Executable) == "" {
		return errors.NewConfigError("worker executable is required", "worker.executable", errors.InvalidConfig, nil)
	}
	if c.Worker.StartTimeout <= 0 {
		return errors.NewConfigError("start timeout must be positive", "worker.start_timeout", errors.InvalidConfig, nil)
	}
	if !strings.HasSuffix(c.Worker.AckLine, "\n") {
		return errors.NewConfigError("acknowledgement must end with a newline", "worker.ack_line", errors.InvalidConfig, nil)
	}
	if c.Worker.OutputEncoding != "" {
		if _, err := htmlindex.Get(c.Worker.OutputEncoding); err != nil {
			return errors.NewConfigError("unknown output encoding", "worker.output_encoding", errors.InvalidConfig, err)
		}
	}

	if c.Watch.Debounce < 0 {
		return errors.NewConfigError("debounce must be >= 0", "watch.debounce", errors.InvalidConfig, nil)
	}
	for i, pattern := range c.Watch.Ignore {
		if _, err := glob.Compile(pattern); err != nil {
			return errors.NewConfigError(fmt.Sprintf("ignore pattern %d", i), "watch.ignore", errors.InvalidConfig, err)
		}
	}

	return nil
}

// New returns a configuration with default values.
func New() *Config {
	return defaultConfig()
}
