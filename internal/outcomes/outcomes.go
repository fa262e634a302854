// Package outcomes keeps the process-wide record of recent conversion
// results. The log is a fixed-capacity ring: appends evict the oldest entry
// once the capacity is reached, and reads return newest-first copies, so the
// structure stays bounded no matter how long the daemon runs.
package outcomes

import (
	"sync"
	"time"
)

// DefaultCapacity bounds the process-wide log.
const DefaultCapacity = 10

// Result classifies how a pipeline run ended.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultSkip    Result = "skip"
)

// Entry records one pipeline outcome.
type Entry struct {
	Timestamp time.Time
	Path      string
	Result    Result
	Reason    string
}

// Log is a mutex-guarded bounded ring of outcome entries. Safe for
// concurrent use by every worker and reader.
type Log struct {
	mu       sync.Mutex
	capacity int
	entries  []Entry
}

// NewLog builds a log with the given capacity; non-positive values fall back
// to DefaultCapacity.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{capacity: capacity, entries: make([]Entry, 0, capacity)}
}

// Append records an entry, evicting the oldest one at capacity. A zero
// timestamp is filled with the current time.
func (l *Log) Append(entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) >= l.capacity {
		drop := len(l.entries) - l.capacity + 1
		l.entries = append(l.entries[:0], l.entries[drop:]...)
	}
	l.entries = append(l.entries, entry)
}

// Recent returns the logged entries newest-first. The returned slice is a
// copy; mutating it does not affect the log.
func (l *Log) Recent() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	for i, entry := range l.entries {
		out[len(l.entries)-1-i] = entry
	}
	return out
}

// Len reports the number of retained entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

var (
	defaultOnce sync.Once
	defaultLog  *Log
)

// Default returns the shared process-wide log, creating it on first use.
// The log outlives any single watch session.
func Default() *Log {
	defaultOnce.Do(func() {
		defaultLog = NewLog(DefaultCapacity)
	})
	return defaultLog
}
