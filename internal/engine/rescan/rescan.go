// Package rescan implements the periodic sweep that backstops the native
// change source. OS notification facilities coalesce and drop events under
// load; the reconciler walks the watch roots on a clamped timer and yields
// every source file that still lacks its converted sibling, guaranteeing
// each pending file is eventually retried.
package rescan

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"darkroom/internal/logging"
)

// Interval bounds for the periodic sweep.
const (
	MinInterval     = 15 * time.Second
	MaxInterval     = 3600 * time.Second
	DefaultInterval = 60 * time.Second
)

// ClampInterval forces an interval into the supported range. Zero selects
// the default; out-of-range values land on the nearest bound.
func ClampInterval(interval time.Duration) time.Duration {
	switch {
	case interval == 0:
		return DefaultInterval
	case interval < MinInterval:
		return MinInterval
	case interval > MaxInterval:
		return MaxInterval
	default:
		return interval
	}
}

// Scanner walks the watch roots and collects files that still need
// conversion.
type Scanner struct {
	roots     []string
	recursive bool
	logger    *slog.Logger
}

// New builds a scanner over the given roots.
func New(roots []string, recursive bool, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scanner{
		roots:     append([]string(nil), roots...),
		recursive: recursive,
		logger:    logging.NewComponentLogger(logger, "rescan"),
	}
}

// Scan returns every pending source file across all roots: target extension,
// no plain converted sibling. Unreadable entries are logged and skipped; a
// sweep never fails as a whole.
func (s *Scanner) Scan() []string {
	var pending []string
	for _, root := range s.roots {
		s.scanRoot(root, &pending)
	}
	return pending
}

func (s *Scanner) scanRoot(root string, pending *[]string) {
	walkFn := func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			s.logger.Warn("rescan entry unreadable",
				logging.String(logging.FieldPath, path),
				logging.Error(walkErr))
			return nil
		}
		if entry.IsDir() {
			if !s.recursive && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if !isTargetFile(path) {
			return nil
		}
		if hasConvertedSibling(path) {
			return nil
		}
		*pending = append(*pending, path)
		return nil
	}
	if err := filepath.WalkDir(root, walkFn); err != nil {
		s.logger.Warn("rescan walk failed",
			logging.String(logging.FieldRoot, root),
			logging.Error(err))
	}
}

func isTargetFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".heic" || ext == ".heif"
}

// hasConvertedSibling reports whether the plain converted name already sits
// next to path. Only the undecorated sibling suppresses a yield;
// disambiguated outputs ("stem (1).jpg") do not count.
func hasConvertedSibling(path string) bool {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	_, err := os.Stat(filepath.Join(filepath.Dir(path), stem+".jpg"))
	return err == nil
}
