package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the prview configuration file.
type Config struct {
	BaseDir  string         `toml:"base_dir"`
	Remote   RemoteConfig   `toml:"remote"`
	Database DatabaseConfig `toml:"database"`
	Cache    CacheConfig    `toml:"cache"`
	Log      LogConfig      `toml:"log"`
	UI       UIConfig       `toml:"ui"`
	Browser  BrowserConfig  `toml:"browser"`
}

// RemoteConfig locates the command host.
type RemoteConfig struct {
	Endpoint string   `toml:"endpoint"` // ws:// or wss:// URL
	Timeout  Duration `toml:"timeout"`  // per call; zero disables
}

// DatabaseConfig selects the selection store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// CacheConfig holds how long each collection is served without revalidating.
type CacheConfig struct {
	Organizations Duration `toml:"organizations"`
	Projects      Duration `toml:"projects"`
	Repositories  Duration `toml:"repositories"`
	PullRequests  Duration `toml:"pull_requests"`
}

// LogConfig controls the rotated log file.
type LogConfig struct {
	Dir        string `toml:"dir"`
	Level      string `toml:"level"` // debug, info, warn, error
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	Theme string `toml:"theme"` // "auto", "dark" or "light"
}

// BrowserConfig overrides the command used to open pull requests.
type BrowserConfig struct {
	Launcher string `toml:"launcher,omitempty"`
}

// Duration is a time.Duration written as a string such as "100s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// NewConfig returns a Config with defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		Remote: RemoteConfig{
			Endpoint: "ws://127.0.0.1:7450/commands",
			Timeout:  Duration{30 * time.Second},
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "data"),
		},
		Cache: CacheConfig{
			Projects:     Duration{100 * time.Second},
			Repositories: Duration{100 * time.Second},
		},
		Log: LogConfig{
			Dir:        filepath.Join(baseDir, "log"),
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		UI: UIConfig{Theme: "auto"},
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.Remote.Endpoint == "" {
		return fmt.Errorf("remote.endpoint is required")
	}
	switch c.Database.Type {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("database.type must be sqlite or memory, got %q", c.Database.Type)
	}
	switch c.UI.Theme {
	case "", "auto", "dark", "light":
	default:
		return fmt.Errorf("ui.theme must be auto, dark or light, got %q", c.UI.Theme)
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from r.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes cfg to w.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads and validates the Config at path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to path, refusing to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
