// Package fswatch wraps the OS change-notification facility for the engine.
// It subscribes a fixed set of roots (recursively when asked), batches raw
// create/write notifications, and forwards them on a single channel the
// dispatcher consumes. Delivery errors are logged and never terminate the
// stream; a closed events channel means the source is gone for good.
package fswatch

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"darkroom/internal/logging"
)

// Watcher forwards batched change notifications for a fixed set of roots.
type Watcher struct {
	source    *fsnotify.Watcher
	logger    *slog.Logger
	recursive bool

	events    chan []string
	quit      chan struct{}
	closeOnce sync.Once
}

// New subscribes every root and starts the forwarder. A root that cannot be
// subscribed is a hard error: the engine must not start over a watch set it
// cannot cover.
func New(roots []string, recursive bool, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	source, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		source:    source,
		logger:    logging.NewComponentLogger(logger, "fswatch"),
		recursive: recursive,
		events:    make(chan []string, 16),
		quit:      make(chan struct{}),
	}

	for _, root := range roots {
		if err := w.addRoot(root); err != nil {
			_ = source.Close()
			return nil, err
		}
	}

	go w.forward()
	return w, nil
}

// Events returns the batch channel. It is closed when the underlying source
// disconnects or Close is called.
func (w *Watcher) Events() <-chan []string {
	return w.events
}

// Close tears down the subscription. Idempotent.
func (w *Watcher) Close() {
	w.closeOnce.Do(func() {
		close(w.quit)
		_ = w.source.Close()
	})
}

func (w *Watcher) addRoot(root string) error {
	if !w.recursive {
		if err := w.source.Add(root); err != nil {
			return fmt.Errorf("watch %s: %w", root, err)
		}
		return nil
	}
	return w.addTree(root)
}

// addTree registers every directory under root. fsnotify has no recursive
// mode, so each directory is subscribed individually and new directories
// are picked up as their create events arrive.
func (w *Watcher) addTree(root string) error {
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !entry.IsDir() {
			return nil
		}
		if err := w.source.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch tree %s: %w", root, err)
	}
	return nil
}

func (w *Watcher) forward() {
	defer close(w.events)
	for {
		select {
		case <-w.quit:
			return
		case err, ok := <-w.source.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch event error", logging.Error(err))
		case event, ok := <-w.source.Events:
			if !ok {
				return
			}
			batch := w.collect(event)
			if len(batch) == 0 {
				continue
			}
			select {
			case w.events <- batch:
			case <-w.quit:
				return
			}
		}
	}
}

// collect starts a batch from one event and greedily drains whatever else is
// already queued, so a burst of notifications arrives as a single batch.
func (w *Watcher) collect(first fsnotify.Event) []string {
	var batch []string
	if path := w.accept(first); path != "" {
		batch = append(batch, path)
	}
	for {
		select {
		case event, ok := <-w.source.Events:
			if !ok {
				return batch
			}
			if path := w.accept(event); path != "" {
				batch = append(batch, path)
			}
		default:
			return batch
		}
	}
}

// accept filters a single event down to a forwardable path. Only create and
// write operations matter; a freshly created directory extends the watch set
// in recursive mode instead of being forwarded.
func (w *Watcher) accept(event fsnotify.Event) string {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return ""
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.recursive {
				if err := w.addTree(event.Name); err != nil {
					w.logger.Warn("failed to watch new directory",
						logging.String(logging.FieldPath, event.Name),
						logging.Error(err))
				}
			}
			return ""
		}
	}
	return event.Name
}
