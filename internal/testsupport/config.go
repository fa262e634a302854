package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"darkroom/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()

	root := filepath.Join(base, "photos")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("mkdir watch root: %v", err)
	}
	cfgVal.Watch.Roots = []string{root}
	cfgVal.Daemon.DataDir = filepath.Join(base, "data")
	cfgVal.Daemon.LogDir = filepath.Join(base, "data", "logs")
	cfgVal.Daemon.SocketPath = filepath.Join(base, "data", "darkroom.sock")
	cfgVal.Daemon.JournalPath = filepath.Join(base, "data", "journal.db")
	cfgVal.Retire.TrashDir = filepath.Join(base, "data", "trash")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithRoots replaces the watch roots on the test config, creating each
// directory.
func WithRoots(roots ...string) ConfigOption {
	return func(b *configBuilder) {
		for _, root := range roots {
			if err := os.MkdirAll(root, 0o755); err != nil {
				b.t.Fatalf("mkdir watch root %s: %v", root, err)
			}
		}
		b.cfg.Watch.Roots = append([]string(nil), roots...)
	}
}

// WithPolicy sets the output policy on the test config.
func WithPolicy(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Output.Policy = policy
	}
}

// WithPaused marks the watch configuration as paused.
func WithPaused() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Watch.Paused = true
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default darkroom external
// binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"magick", "gio"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Daemon.DataDir)
}
