// Package retire moves published originals out of the watched tree once
// their conversion has been published under the replace policy. Two
// strategies exist: a dedicated trash directory the daemon owns, and the
// desktop trash via an external helper.
package retire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"darkroom/internal/fileutil"
	"darkroom/internal/services"
)

var commandContext = exec.CommandContext

// Strategy names accepted by New.
const (
	StrategyTrashDir = "trash-dir"
	StrategySystem   = "system"
)

// Retirer defines original-file retirement behaviour.
type Retirer interface {
	Retire(ctx context.Context, path string) error
}

// New builds the retirer for the configured strategy.
func New(strategy, trashDir, systemBinary string) (Retirer, error) {
	switch strategy {
	case StrategyTrashDir:
		return NewTrashDir(trashDir), nil
	case StrategySystem:
		return NewSystem(WithBinary(systemBinary)), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "retire", "new", fmt.Sprintf("unknown strategy %q", strategy), nil)
	}
}

// TrashDir retires originals by moving them into a dedicated directory.
// Cross-filesystem moves fall back to copy-then-remove.
type TrashDir struct {
	dir string
}

// NewTrashDir constructs a TrashDir retirer rooted at dir.
func NewTrashDir(dir string) *TrashDir {
	return &TrashDir{dir: dir}
}

// Retire moves path into the trash directory under a collision-free name.
func (t *TrashDir) Retire(_ context.Context, path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("path required")
	}
	if strings.TrimSpace(t.dir) == "" {
		return errors.New("trash directory required")
	}
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return fmt.Errorf("create trash directory: %w", err)
	}

	target, err := nextTrashPath(t.dir, filepath.Base(path))
	if err != nil {
		return err
	}

	renameErr := os.Rename(path, target)
	if renameErr == nil {
		return nil
	}

	// Handle cross-device moves. The original is deleted afterwards, so the
	// copy is verified before it counts.
	var linkErr *os.LinkError
	if errors.As(renameErr, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
		if copyErr := fileutil.CopyFileVerified(path, target); copyErr != nil {
			return services.Wrap(services.ErrTransient, "retire", "copy original to trash", "", copyErr)
		}
		if err := os.Remove(path); err != nil {
			// The copy landed but the original is still in place, which
			// means retirement did not actually happen.
			_ = os.Remove(target)
			return services.Wrap(services.ErrTransient, "retire", "remove original after copy", "", err)
		}
		return nil
	}

	return services.Wrap(services.ErrTransient, "retire", "move original to trash", "", renameErr)
}

// nextTrashPath finds the next available name for base inside dir, using the
// same parenthesized-counter convention as converted outputs.
func nextTrashPath(dir, base string) (string, error) {
	const maxAttempts = 10000
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		stem = base
		ext = ""
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		name := stem + ext
		if attempt > 0 {
			name = fmt.Sprintf("%s (%d)%s", stem, attempt, ext)
		}
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return candidate, nil
			}
			return "", err
		}
	}
	return "", fmt.Errorf("exhausted trash filename slots in %s", dir)
}

// Option configures the System retirer.
type Option func(*System)

// WithBinary overrides the default trash helper binary.
func WithBinary(binary string) Option {
	return func(s *System) {
		if binary != "" {
			s.binary = binary
		}
	}
}

// System hands originals to the desktop trash service (gio trash).
type System struct {
	binary string
}

// NewSystem constructs a System retirer using defaults.
func NewSystem(opts ...Option) *System {
	s := &System{binary: "gio"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Retire asks the desktop trash helper to take path.
func (s *System) Retire(ctx context.Context, path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("path required")
	}

	cmd := commandContext(ctx, s.binary, "trash", path) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		diagnostic := strings.TrimSpace(stderr.String())
		if diagnostic == "" {
			diagnostic = err.Error()
		}
		return services.Wrap(services.ErrExternalTool, "retire", "trash", diagnostic, err)
	}
	return nil
}

var (
	_ Retirer = (*TrashDir)(nil)
	_ Retirer = (*System)(nil)
)
