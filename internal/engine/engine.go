package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"darkroom/internal/engine/fswatch"
	"darkroom/internal/engine/rescan"
	"darkroom/internal/logging"
	"darkroom/internal/outcomes"
	"darkroom/internal/services/convert"
	"darkroom/internal/services/retire"
)

// OutputPolicy selects what happens to the original after publication.
type OutputPolicy string

const (
	// PolicyCoexist keeps the original beside the converted output.
	PolicyCoexist OutputPolicy = "coexist"
	// PolicyReplace retires the original once the output is published.
	PolicyReplace OutputPolicy = "replace"
)

const (
	defaultWorkerCount = 2
	defaultQuality     = 92
)

// Snapshot is the immutable configuration one engine run operates on.
// Reconfiguration means stopping this engine and starting a new one with a
// fresh snapshot.
type Snapshot struct {
	Roots              []string
	Recursive          bool
	Policy             OutputPolicy
	Quality            int
	RescanInterval     time.Duration
	Paused             bool
	ForceRescanReadmit bool
}

// Recorder receives every outcome for persistent storage alongside the
// in-memory ring. Implementations must tolerate concurrent calls; failures
// are logged and never fed back into the pipeline.
type Recorder interface {
	Record(ctx context.Context, entry outcomes.Entry, runID string) error
}

// Engine owns one watch/dispatch/convert run over a fixed snapshot.
type Engine struct {
	snap  Snapshot
	runID string

	logger    *slog.Logger
	converter convert.Client
	retirer   retire.Retirer
	recorder  Recorder
	log       *outcomes.Log

	workers          int
	stabilizeWindow  time.Duration
	stabilizeRetries int
	pollTimeout      time.Duration

	watcher *fswatch.Watcher
	scanner *rescan.Scanner

	jobs        chan string
	completions chan string
	rescanKick  chan struct{}
	stop        chan struct{}
	stopOnce    sync.Once
	done        chan struct{}

	workerWG     sync.WaitGroup
	workerCtx    context.Context
	workerCancel context.CancelFunc

	mu      sync.RWMutex
	running bool
}

// Option customizes engine construction.
type Option func(*Engine)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithConverter overrides the conversion facility.
func WithConverter(client convert.Client) Option {
	return func(e *Engine) {
		if client != nil {
			e.converter = client
		}
	}
}

// WithRetirer sets the retirement facility used under the replace policy.
func WithRetirer(retirer retire.Retirer) Option {
	return func(e *Engine) {
		e.retirer = retirer
	}
}

// WithRecorder attaches a persistent outcome sink.
func WithRecorder(recorder Recorder) Option {
	return func(e *Engine) {
		e.recorder = recorder
	}
}

// WithOutcomeLog overrides the process-wide outcome ring; tests use it to
// isolate their entries.
func WithOutcomeLog(log *outcomes.Log) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithWorkerCount sets the worker pool size.
func WithWorkerCount(workers int) Option {
	return func(e *Engine) {
		if workers > 0 {
			e.workers = workers
		}
	}
}

// WithStabilization tunes the stabilization sample window and retry budget.
func WithStabilization(window time.Duration, retries int) Option {
	return func(e *Engine) {
		if window > 0 {
			e.stabilizeWindow = window
		}
		if retries > 0 {
			e.stabilizeRetries = retries
		}
	}
}

// WithPollTimeout shrinks the dispatcher and worker wait timeout; tests use
// it to keep shutdown latency low.
func WithPollTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		if timeout > 0 {
			e.pollTimeout = timeout
		}
	}
}

// Start validates the snapshot and launches the dispatcher and worker pool.
// An empty root set or a paused snapshot yields an engine that is already
// stopped: there is nothing to watch, which is a successful no-op. A change
// source subscription failure is fatal and returns an error instead.
func Start(snap Snapshot, opts ...Option) (*Engine, error) {
	e := &Engine{
		snap:             snap,
		runID:            uuid.NewString(),
		logger:           logging.NewNop(),
		log:              outcomes.Default(),
		workers:          defaultWorkerCount,
		stabilizeWindow:  stabilizeWindow,
		stabilizeRetries: stabilizeAttempts,
		pollTimeout:      defaultPollTimeout,
		rescanKick:       make(chan struct{}, 1),
		stop:             make(chan struct{}),
		done:             make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, "engine").
		With(logging.String(logging.FieldRunID, e.runID))

	if e.converter == nil {
		e.converter = convert.NewCLI()
	}
	if e.snap.Quality < 1 || e.snap.Quality > 100 {
		e.snap.Quality = defaultQuality
	}
	e.snap.RescanInterval = e.clampRescanInterval(e.snap.RescanInterval)
	e.snap.Roots = append([]string(nil), snap.Roots...)

	if e.snap.Paused || len(e.snap.Roots) == 0 {
		e.logger.Info("nothing to watch",
			logging.Bool("paused", e.snap.Paused),
			logging.Int("roots", len(e.snap.Roots)))
		close(e.done)
		return e, nil
	}

	if e.snap.Policy == PolicyReplace && e.retirer == nil {
		e.logger.Warn("replace policy without a retirement facility, originals will be kept")
	}

	watcher, err := fswatch.New(e.snap.Roots, e.snap.Recursive, e.logger)
	if err != nil {
		return nil, fmt.Errorf("subscribe change source: %w", err)
	}
	e.watcher = watcher
	e.scanner = rescan.New(e.snap.Roots, e.snap.Recursive, e.logger)

	e.jobs = make(chan string)
	e.completions = make(chan string, e.workers)
	e.workerCtx, e.workerCancel = context.WithCancel(context.Background())

	e.setRunning(true)
	for i := 0; i < e.workers; i++ {
		e.workerWG.Add(1)
		go e.runWorker(i + 1)
	}
	go e.runDispatcher()

	e.logger.Info("engine started",
		logging.Int("roots", len(e.snap.Roots)),
		logging.Int("workers", e.workers),
		logging.Duration("rescan_interval", e.snap.RescanInterval))
	return e, nil
}

func (e *Engine) clampRescanInterval(interval time.Duration) time.Duration {
	clamped := rescan.ClampInterval(interval)
	if clamped != interval {
		e.logger.Warn("rescan interval out of range, clamped",
			logging.Duration("configured", interval),
			logging.Duration("effective", clamped))
	}
	return clamped
}

// Stop signals shutdown and blocks until the dispatcher and every worker
// have exited. Safe to call more than once.
func (e *Engine) Stop() {
	e.signalStop()
	<-e.done
}

func (e *Engine) signalStop() {
	e.stopOnce.Do(func() { close(e.stop) })
}

// Running reports whether the dispatcher loop is live.
func (e *Engine) Running() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

func (e *Engine) setRunning(value bool) {
	e.mu.Lock()
	e.running = value
	e.mu.Unlock()
}

// RunID identifies this engine run in logs and journal rows.
func (e *Engine) RunID() string {
	return e.runID
}

// Workers returns the worker pool size.
func (e *Engine) Workers() int {
	return e.workers
}

// Snapshot returns a copy of the configuration this run operates on, with
// any clamping applied.
func (e *Engine) Snapshot() Snapshot {
	snap := e.snap
	snap.Roots = append([]string(nil), e.snap.Roots...)
	return snap
}

// RequestRescan kicks an immediate reconciler sweep. Kicks arriving while
// one is already pending are coalesced.
func (e *Engine) RequestRescan() {
	select {
	case e.rescanKick <- struct{}{}:
	default:
	}
}

// RecentOutcomes returns the outcome ring's entries, newest first.
func (e *Engine) RecentOutcomes() []outcomes.Entry {
	return e.log.Recent()
}
