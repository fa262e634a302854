package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	outputExtension = ".jpg"
	tempSuffix      = ".tmp"
	lockExtension   = ".lock"

	// maxOutputAttempts caps collision probing so a pathological directory
	// cannot spin a worker forever.
	maxOutputAttempts = 10000
)

// isTargetPath reports whether path carries a convertible source extension.
func isTargetPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".heic" || ext == ".heif"
}

// isLockPath reports whether path is a lock/sidecar file.
func isLockPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), lockExtension)
}

func outputStem(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	return stem
}

// resolveOutputPath picks the final converted name for input: the plain
// sibling first, then "stem (1).jpg", "stem (2).jpg", ... until a free name
// is found. Existence is checked at resolution time only; a racing creator
// between check and publish is an accepted limitation.
func resolveOutputPath(input string) (string, error) {
	dir := filepath.Dir(input)
	stem := outputStem(input)

	for attempt := 0; attempt < maxOutputAttempts; attempt++ {
		name := stem + outputExtension
		if attempt > 0 {
			name = fmt.Sprintf("%s (%d)%s", stem, attempt, outputExtension)
		}
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return candidate, nil
			}
			return "", fmt.Errorf("stat output candidate: %w", err)
		}
	}
	return "", fmt.Errorf("exhausted output filename slots for %s", input)
}

// tempOutputPath returns the working name the converter writes to before the
// atomic rename publishes the final file.
func tempOutputPath(finalPath string) string {
	return finalPath + tempSuffix
}
