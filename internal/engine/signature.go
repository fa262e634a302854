package engine

import (
	"fmt"
	"os"
	"time"
)

// Signature summarizes the observable identity of a file at admission time.
// A file that has not actually changed produces an equal signature no matter
// how often the OS re-notifies about it.
type Signature struct {
	Size    int64
	ModTime time.Time
}

// Equal reports whether both captures describe the same file state.
func (s Signature) Equal(other Signature) bool {
	return s.Size == other.Size && s.ModTime.Equal(other.ModTime)
}

// Capture stats path and returns its signature. Non-regular files are
// rejected so directories and sockets never enter the pipeline.
func Capture(path string) (Signature, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Signature{}, err
	}
	if !info.Mode().IsRegular() {
		return Signature{}, fmt.Errorf("not a regular file: %s", path)
	}
	return Signature{Size: info.Size(), ModTime: info.ModTime()}, nil
}
