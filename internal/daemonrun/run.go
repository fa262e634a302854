// Package daemonrun hosts the foreground runtime loop for the darkroom
// daemon process: signal handling, per-run log files, the pid file, the
// outcome journal, and the IPC socket.
package daemonrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"darkroom/internal/config"
	"darkroom/internal/daemon"
	"darkroom/internal/ipc"
	"darkroom/internal/journal"
	"darkroom/internal/logging"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// ConfigPath names the config file pause/resume state persists to.
	// Empty keeps state changes in memory only.
	ConfigPath string
	// SocketPath overrides the configured IPC socket location.
	SocketPath  string
	LogLevel    string
	Development bool
	Diagnostic  bool
}

// Run starts the darkroom daemon runtime loop and blocks until the process
// receives SIGINT or SIGTERM or the daemon is stopped over IPC.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Daemon.LogDir, fmt.Sprintf("darkroom-%s.log", runID))

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	var sessionID string
	if opts.Diagnostic {
		level = "debug"
		sessionID = uuid.NewString()
	}

	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development || opts.Diagnostic,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if opts.Diagnostic {
		logger.Info("diagnostic mode enabled",
			logging.String(logging.FieldEventType, "diagnostic_mode_enabled"),
			logging.String("session_id", sessionID),
		)
	}

	if err := ensureCurrentLogPointer(cfg.Daemon.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update darkroom.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Daemon.LogRetentionDays,
		logging.RetentionTarget{Dir: cfg.Daemon.LogDir, Pattern: "darkroom-*.log", Exclude: []string{logPath}},
	)

	store, err := journal.Open(cfg.Daemon.JournalPath)
	if err != nil {
		logger.Warn("outcome journal unavailable",
			logging.Error(err),
			logging.String(logging.FieldEventType, "journal_open_failed"),
			logging.String(logging.FieldErrorHint, "check permissions on the data directory"),
			logging.String(logging.FieldImpact, "conversion outcomes will not be recorded"),
		)
	}

	d, err := daemon.New(cfg, opts.ConfigPath, store, logger)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	// The lock is acquired before the pid file and IPC socket are claimed
	// so a second invocation exits without disturbing either for the live
	// daemon.
	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	pidPath := filepath.Join(cfg.Daemon.DataDir, "darkroom.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	socketPath := opts.SocketPath
	if socketPath == "" {
		socketPath = cfg.Daemon.SocketPath
	}
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	select {
	case <-signalCtx.Done():
		logger.Info("darkroom daemon shutting down")
	case <-d.Done():
		logger.Info("darkroom daemon exiting after stop request")
	}
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "darkroom.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
