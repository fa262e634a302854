package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"darkroom/internal/engine"
)

//go:embed sample_config.toml
var sampleConfig string

// Watch contains the directory roots the engine observes and the rescan
// cadence that backstops missed filesystem events.
type Watch struct {
	Roots                 []string `toml:"roots"`
	Recursive             bool     `toml:"recursive"`
	RescanIntervalSeconds int      `toml:"rescan_interval_seconds"`
	ForceRescanReadmit    bool     `toml:"force_rescan_readmit"`
	Paused                bool     `toml:"paused"`
}

// Output contains converted-file placement and encoding settings.
type Output struct {
	Policy  string `toml:"policy"`
	Quality int    `toml:"quality"`
}

// Convert contains configuration for the external image converter.
type Convert struct {
	Binary string `toml:"binary"`
}

// Retire contains configuration for original-file retirement after a
// successful conversion under the replace policy.
type Retire struct {
	Strategy     string `toml:"strategy"`
	TrashDir     string `toml:"trash_dir"`
	SystemBinary string `toml:"system_binary"`
}

// Daemon contains daemon runtime paths.
type Daemon struct {
	DataDir          string `toml:"data_dir"`
	LogDir           string `toml:"log_dir"`
	SocketPath       string `toml:"socket_path"`
	JournalPath      string `toml:"journal_path"`
	LogRetentionDays int    `toml:"log_retention_days"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Darkroom.
//
// Configuration sections by subsystem:
//   - Watch: observed roots, recursion, rescan cadence, pause flag
//   - Output: converted-file policy (coexist/replace) and JPEG quality
//   - Convert: external converter binary
//   - Retire: original retirement strategy after replace-policy conversions
//   - Daemon: data/log/socket/journal locations
//   - Logging: log format and level
type Config struct {
	Locale  string  `toml:"locale"`
	Watch   Watch   `toml:"watch"`
	Output  Output  `toml:"output"`
	Convert Convert `toml:"convert"`
	Retire  Retire  `toml:"retire"`
	Daemon  Daemon  `toml:"daemon"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/darkroom/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = strings.TrimSpace(os.Getenv("DARKROOM_CONFIG"))
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/darkroom/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("darkroom.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// Save writes the configuration to path atomically: the TOML document goes to
// a sibling temp file first and is renamed into place, so a crash mid-write
// never leaves a truncated config behind.
func (c *Config) Save(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(expanded); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	encoded, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tempPath := expanded + ".tmp"
	if err := os.WriteFile(tempPath, encoded, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tempPath, expanded); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("publish config: %w", err)
	}
	return nil
}

// EnsureDirectories creates required directories for daemon operation. Watch
// roots are deliberately not created here; they belong to the user and are
// checked by preflight instead.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Daemon.DataDir, c.Daemon.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Retire.Strategy == RetireStrategyTrashDir && strings.TrimSpace(c.Retire.TrashDir) != "" {
		// Best-effort so config load keeps working when the trash target
		// lives on storage that is temporarily offline.
		_ = os.MkdirAll(c.Retire.TrashDir, 0o755)
	}
	return nil
}

// Snapshot builds the immutable engine view of this configuration.
func (c *Config) Snapshot() engine.Snapshot {
	return engine.Snapshot{
		Roots:              append([]string(nil), c.Watch.Roots...),
		Recursive:          c.Watch.Recursive,
		Policy:             engine.OutputPolicy(c.Output.Policy),
		Quality:            c.Output.Quality,
		RescanInterval:     time.Duration(c.Watch.RescanIntervalSeconds) * time.Second,
		Paused:             c.Watch.Paused,
		ForceRescanReadmit: c.Watch.ForceRescanReadmit,
	}
}

// ConvertBinary returns the external converter executable name.
func (c *Config) ConvertBinary() string {
	return c.Convert.Binary
}

// TrashBinary returns the system trash helper executable name.
func (c *Config) TrashBinary() string {
	return c.Retire.SystemBinary
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
