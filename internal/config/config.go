// Package config loads phitodo's settings from a YAML file with
// PHITODO_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dori/phitodo/internal/reconcile"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the full phitodo configuration.
type Config struct {
	DataDir       string `yaml:"data_dir" mapstructure:"data_dir"`
	LogLevel      string `yaml:"log_level" mapstructure:"log_level"`
	Notifications bool   `yaml:"notifications" mapstructure:"notifications"`

	GitHub GitHubConfig `yaml:"github" mapstructure:"github"`
	Toggl  TogglConfig  `yaml:"toggl" mapstructure:"toggl"`
	Sync   SyncConfig   `yaml:"sync" mapstructure:"sync"`
}

// GitHubConfig configures the GitHub categories. An empty token turns
// them off.
type GitHubConfig struct {
	Token   string `yaml:"token" mapstructure:"token"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Repos limits sync to these "owner/name" repositories. Empty means
	// every repository.
	Repos []string `yaml:"repos" mapstructure:"repos"`
}

// TogglConfig configures the time entry category.
type TogglConfig struct {
	Token          string   `yaml:"token" mapstructure:"token"`
	BaseURL        string   `yaml:"base_url" mapstructure:"base_url"`
	Days           int      `yaml:"days" mapstructure:"days"`
	HiddenProjects []string `yaml:"hidden_projects" mapstructure:"hidden_projects"`
}

// SyncConfig configures reconciliation.
type SyncConfig struct {
	UntrackedPolicy string `yaml:"untracked_policy" mapstructure:"untracked_policy"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DataDir:       DefaultDataDir(),
		LogLevel:      "info",
		Notifications: true,
		GitHub: GitHubConfig{
			BaseURL: "https://api.github.com",
		},
		Toggl: TogglConfig{
			BaseURL: "https://api.track.toggl.com/api/v9",
			Days:    7,
		},
		Sync: SyncConfig{
			UntrackedPolicy: string(reconcile.UntrackedKeep),
		},
	}
}

// DefaultDataDir is where the database, lock and log files live.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".phitodo"
	}
	return filepath.Join(home, ".local", "share", "phitodo")
}

// DefaultPath is the config file location.
func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "phitodo", "config.yaml")
	}
	return filepath.Join(".phitodo", "config.yaml")
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("phitodo")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("checking config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.DataDir = expandHome(cfg.DataDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so that environment overrides are
// seen by Unmarshal even when the file omits the key.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("data_dir", cfg.DataDir)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("notifications", cfg.Notifications)
	v.SetDefault("github.token", cfg.GitHub.Token)
	v.SetDefault("github.base_url", cfg.GitHub.BaseURL)
	v.SetDefault("github.repos", cfg.GitHub.Repos)
	v.SetDefault("toggl.token", cfg.Toggl.Token)
	v.SetDefault("toggl.base_url", cfg.Toggl.BaseURL)
	v.SetDefault("toggl.days", cfg.Toggl.Days)
	v.SetDefault("toggl.hidden_projects", cfg.Toggl.HiddenProjects)
	v.SetDefault("sync.untracked_policy", cfg.Sync.UntrackedPolicy)
}

// Validate rejects values the rest of the program cannot act on.
func (c *Config) Validate() error {
	if _, err := reconcile.ParseUntrackedPolicy(c.Sync.UntrackedPolicy); err != nil {
		return fmt.Errorf("sync.untracked_policy: %w", err)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.Toggl.Days < 0 {
		return fmt.Errorf("toggl.days: must not be negative, got %d", c.Toggl.Days)
	}
	if c.DataDir == "" {
		return errors.New("data_dir: must not be empty")
	}
	return nil
}

// Policy returns the parsed untracked policy. Validate has already
// accepted it.
func (c *Config) Policy() reconcile.UntrackedPolicy {
	policy, _ := reconcile.ParseUntrackedPolicy(c.Sync.UntrackedPolicy)
	return policy
}

// DBPath is the SQLite database inside DataDir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "phitodo.db")
}

// LogPath is where the TUI writes its log.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "phitodo.log")
}

// ParseLevel maps a log_level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown level %q", s)
}

// WriteDefault writes the default configuration to path. It refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}
	content := "# phitodo configuration. Tokens may also come from\n" +
		"# PHITODO_GITHUB_TOKEN and PHITODO_TOGGL_TOKEN.\n" + string(data)

	// Tokens end up in this file; keep it private.
	return os.WriteFile(path, []byte(content), 0o600)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
