package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
)

func (c *Config) normalize() error {
	c.normalizeLocale()
	if err := c.normalizeWatch(); err != nil {
		return err
	}
	c.normalizeOutput()
	c.normalizeConvert()
	if err := c.normalizeDaemon(); err != nil {
		return err
	}
	if err := c.normalizeRetire(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

// normalizeLocale canonicalizes the UI locale to a bare base language
// ("en-US" becomes "en"). Anything unparseable falls back to English rather
// than failing the load.
func (c *Config) normalizeLocale() {
	value := strings.TrimSpace(c.Locale)
	if value == "" {
		c.Locale = defaultLocale
		return
	}
	value = strings.ReplaceAll(value, "_", "-")
	tag, err := language.Parse(value)
	if err != nil {
		c.Locale = defaultLocale
		return
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		c.Locale = defaultLocale
		return
	}
	c.Locale = base.String()
}

// normalizeWatch drops blank root entries, expands the remainder to absolute
// paths, and removes duplicates while preserving the configured order.
func (c *Config) normalizeWatch() error {
	roots := make([]string, 0, len(c.Watch.Roots))
	seen := make(map[string]struct{}, len(c.Watch.Roots))
	for _, root := range c.Watch.Roots {
		trimmed := strings.TrimSpace(root)
		if trimmed == "" {
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return fmt.Errorf("watch.roots entry %q: %w", root, err)
		}
		if _, ok := seen[expanded]; ok {
			continue
		}
		seen[expanded] = struct{}{}
		roots = append(roots, expanded)
	}
	c.Watch.Roots = roots
	return nil
}

func (c *Config) normalizeOutput() {
	c.Output.Policy = strings.ToLower(strings.TrimSpace(c.Output.Policy))
	if c.Output.Policy == "" {
		c.Output.Policy = defaultOutputPolicy
	}
	if c.Output.Quality == 0 {
		c.Output.Quality = defaultQuality
	}
}

func (c *Config) normalizeConvert() {
	c.Convert.Binary = strings.TrimSpace(c.Convert.Binary)
	if c.Convert.Binary == "" {
		c.Convert.Binary = defaultConvertBinary
	}
}

func (c *Config) normalizeDaemon() error {
	var err error
	if strings.TrimSpace(c.Daemon.DataDir) == "" {
		c.Daemon.DataDir = defaultDataDir
	}
	if c.Daemon.DataDir, err = expandPath(c.Daemon.DataDir); err != nil {
		return fmt.Errorf("daemon.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Daemon.LogDir) == "" {
		c.Daemon.LogDir = filepath.Join(c.Daemon.DataDir, logDirName)
	}
	if c.Daemon.LogDir, err = expandPath(c.Daemon.LogDir); err != nil {
		return fmt.Errorf("daemon.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Daemon.SocketPath) == "" {
		c.Daemon.SocketPath = filepath.Join(c.Daemon.DataDir, socketFileName)
	}
	if c.Daemon.SocketPath, err = expandPath(c.Daemon.SocketPath); err != nil {
		return fmt.Errorf("daemon.socket_path: %w", err)
	}
	if strings.TrimSpace(c.Daemon.JournalPath) == "" {
		c.Daemon.JournalPath = filepath.Join(c.Daemon.DataDir, journalFileName)
	}
	if c.Daemon.JournalPath, err = expandPath(c.Daemon.JournalPath); err != nil {
		return fmt.Errorf("daemon.journal_path: %w", err)
	}
	// Zero disables log pruning; only negatives are nonsense.
	if c.Daemon.LogRetentionDays < 0 {
		c.Daemon.LogRetentionDays = 0
	}
	return nil
}

func (c *Config) normalizeRetire() error {
	var err error
	c.Retire.Strategy = strings.ToLower(strings.TrimSpace(c.Retire.Strategy))
	if c.Retire.Strategy == "" {
		c.Retire.Strategy = defaultRetireStrategy
	}
	if strings.TrimSpace(c.Retire.TrashDir) == "" {
		c.Retire.TrashDir = filepath.Join(c.Daemon.DataDir, trashDirName)
	}
	if c.Retire.TrashDir, err = expandPath(c.Retire.TrashDir); err != nil {
		return fmt.Errorf("retire.trash_dir: %w", err)
	}
	c.Retire.SystemBinary = strings.TrimSpace(c.Retire.SystemBinary)
	if c.Retire.SystemBinary == "" {
		c.Retire.SystemBinary = defaultTrashBinary
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
