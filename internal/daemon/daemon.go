package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"darkroom/internal/config"
	"darkroom/internal/deps"
	"darkroom/internal/engine"
	"darkroom/internal/journal"
	"darkroom/internal/logging"
	"darkroom/internal/outcomes"
	"darkroom/internal/preflight"
	"darkroom/internal/services/convert"
	"darkroom/internal/services/retire"
)

// Daemon coordinates the conversion engine and enforces single-instance
// execution. Control operations arrive over IPC and may stop, start, or
// replace the engine; the daemon lock and the outcome ring outlive any
// individual engine run.
type Daemon struct {
	baseLogger *slog.Logger
	logger     *slog.Logger
	journal    *journal.Store
	ring       *outcomes.Log

	cfgPath  string
	lockPath string
	logPath  string
	lock     *flock.Flock

	running atomic.Bool

	mu      sync.Mutex
	cfg     *config.Config
	eng     *engine.Engine
	monitor *hotplugMonitor
	done    chan struct{}
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	Paused         bool
	PID            int
	RunID          string
	Roots          []string
	Recursive      bool
	Policy         string
	Quality        int
	RescanInterval time.Duration
	Workers        int
	Hotplug        bool
	LockFilePath   string
	JournalPath    string
	OutcomeStats   map[outcomes.Result]int
	Dependencies   []deps.Status
}

// New constructs a daemon with initialized dependencies. cfgPath names the
// file pause/resume state is persisted to; it may not exist yet. A nil
// journal store disables history but not conversion.
func New(cfg *config.Config, cfgPath string, store *journal.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}

	lockPath := filepath.Join(cfg.Daemon.DataDir, "darkroom.lock")
	d := &Daemon{
		baseLogger: logger,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		journal:    store,
		ring:       outcomes.Default(),
		cfg:        cfg,
		cfgPath:    cfgPath,
		lockPath:   lockPath,
		logPath:    filepath.Join(cfg.Daemon.LogDir, "darkroom.log"),
		lock:       flock.New(lockPath),
		done:       make(chan struct{}),
	}
	d.monitor = newHotplugMonitor(logger, d.TriggerRescan, d.isPaused)
	return d, nil
}

// Start acquires the daemon lock, runs preflight checks, and launches the
// engine. A paused config or empty root set still starts successfully; the
// engine simply has nothing to do until a resume or reload.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another darkroom daemon instance is already running")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.done = make(chan struct{})
	d.logPreflight()

	if err := d.startEngineLocked(); err != nil {
		_ = d.lock.Unlock()
		return err
	}

	_ = d.monitor.Start(ctx)

	d.running.Store(true)
	d.logger.Info("darkroom daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops the engine and hotplug monitor and releases the daemon lock.
// The Done channel closes once shutdown completes.
func (d *Daemon) Stop() {
	if !d.running.CompareAndSwap(true, false) {
		return
	}

	d.monitor.Stop()

	d.mu.Lock()
	d.stopEngineLocked()
	done := d.done
	d.mu.Unlock()

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	close(done)
	d.logger.Info("darkroom daemon stopped")
}

// Done returns a channel that closes when a started daemon stops, whether
// via Stop or a stop request over IPC. Callers use it to exit the daemon
// process once the engine and lock are released.
func (d *Daemon) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.journal != nil {
		return d.journal.Close()
	}
	return nil
}

// Pause stops the engine and persists the paused flag so restarts stay
// paused. In-flight conversions finish before this returns.
func (d *Daemon) Pause(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopEngineLocked()
	d.cfg.Watch.Paused = true
	if err := d.saveConfigLocked(); err != nil {
		return err
	}
	d.logger.Info("watching paused")
	return nil
}

// Resume clears the paused flag and starts the engine if it is not running.
func (d *Daemon) Resume(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cfg.Watch.Paused = false
	if err := d.saveConfigLocked(); err != nil {
		return err
	}

	if d.eng == nil || !d.eng.Running() {
		d.stopEngineLocked()
		if err := d.startEngineLocked(); err != nil {
			return err
		}
	}
	d.logger.Info("watching resumed")
	return nil
}

// Reload re-reads the config file and restarts the engine on the new
// snapshot. A load failure leaves the current engine untouched.
func (d *Daemon) Reload(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	cfg, _, _, err := config.Load(d.cfgPath)
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	d.stopEngineLocked()
	d.cfg = cfg
	if err := d.startEngineLocked(); err != nil {
		return err
	}
	d.logger.Info("configuration reloaded", logging.Int("roots", len(cfg.Watch.Roots)))
	return nil
}

// TriggerRescan kicks an immediate sweep on the running engine. Safe to call
// at any time; without a running engine it is a no-op.
func (d *Daemon) TriggerRescan() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.eng != nil {
		d.eng.RequestRescan()
	}
}

// RecentOutcomes returns the in-memory outcome ring, newest first.
func (d *Daemon) RecentOutcomes() []outcomes.Entry {
	return d.ring.Recent()
}

// History returns persisted outcomes from the journal, newest first.
func (d *Daemon) History(ctx context.Context, limit int) ([]journal.Outcome, error) {
	if d.journal == nil {
		return nil, errors.New("outcome journal unavailable")
	}
	return d.journal.Recent(ctx, limit)
}

// JournalHealth returns detailed journal diagnostics.
func (d *Daemon) JournalHealth(ctx context.Context) (journal.Health, error) {
	if d.journal == nil {
		return journal.Health{}, errors.New("outcome journal unavailable")
	}
	return d.journal.CheckHealth(ctx)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	d.mu.Lock()
	eng := d.eng
	cfg := d.cfg
	d.mu.Unlock()

	status := Status{
		Paused:       cfg.Watch.Paused,
		PID:          os.Getpid(),
		Hotplug:      d.monitor.Running(),
		LockFilePath: d.lockPath,
	}
	if d.journal != nil {
		status.JournalPath = d.journal.Path()
		if stats, err := d.journal.Stats(ctx); err == nil {
			status.OutcomeStats = stats
		}
	}

	snap := cfg.Snapshot()
	if eng != nil {
		status.Running = eng.Running()
		status.RunID = eng.RunID()
		status.Workers = eng.Workers()
		snap = eng.Snapshot()
	}
	status.Roots = snap.Roots
	status.Recursive = snap.Recursive
	status.Policy = string(snap.Policy)
	status.Quality = snap.Quality
	status.RescanInterval = snap.RescanInterval
	status.Dependencies = preflight.CheckSystemDeps(cfg)
	return status
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

func (d *Daemon) isPaused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg.Watch.Paused
}

func (d *Daemon) startEngineLocked() error {
	converter := convert.NewCLI(convert.WithBinary(d.cfg.ConvertBinary()))
	retirer, err := retire.New(d.cfg.Retire.Strategy, d.cfg.Retire.TrashDir, d.cfg.TrashBinary())
	if err != nil {
		return fmt.Errorf("build retirer: %w", err)
	}

	opts := []engine.Option{
		engine.WithLogger(d.baseLogger),
		engine.WithConverter(converter),
		engine.WithRetirer(retirer),
		engine.WithOutcomeLog(d.ring),
	}
	if d.journal != nil {
		opts = append(opts, engine.WithRecorder(d.journal))
	}

	eng, err := engine.Start(d.cfg.Snapshot(), opts...)
	if err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	d.eng = eng
	return nil
}

func (d *Daemon) stopEngineLocked() {
	if d.eng == nil {
		return
	}
	d.eng.Stop()
	d.eng = nil
}

func (d *Daemon) saveConfigLocked() error {
	if d.cfgPath == "" {
		d.logger.Warn("no config file path, pause state is not persistent")
		return nil
	}
	if err := d.cfg.Save(d.cfgPath); err != nil {
		return fmt.Errorf("persist config: %w", err)
	}
	return nil
}

func (d *Daemon) logPreflight() {
	for _, result := range preflight.RunAll(d.cfg) {
		if result.Passed {
			d.logger.Info("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail))
			continue
		}
		d.logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "files under an unreadable root cannot be converted"))
	}

	for _, status := range preflight.CheckSystemDeps(d.cfg) {
		if status.Available {
			d.logger.Info("dependency available",
				logging.String("dependency", status.Name),
				logging.String("command", status.Command))
			continue
		}
		d.logger.Warn("dependency missing",
			logging.String("dependency", status.Name),
			logging.Bool("optional", status.Optional),
			logging.String("detail", status.Detail))
	}
}
