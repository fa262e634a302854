package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"darkroom/internal/daemon"
	"darkroom/internal/journal"
	"darkroom/internal/logging"
	"darkroom/internal/logs"
	"darkroom/internal/outcomes"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Darkroom", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String("impact", "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String("impact", "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun darkroom stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String("component", "ipc"))
}

func ringRecord(entry outcomes.Entry) OutcomeRecord {
	return OutcomeRecord{
		Timestamp: entry.Timestamp.Format(time.RFC3339),
		Path:      entry.Path,
		Result:    string(entry.Result),
		Reason:    entry.Reason,
	}
}

func journalRecord(row journal.Outcome) OutcomeRecord {
	return OutcomeRecord{
		Timestamp: row.CreatedAt.Format(time.RFC3339),
		Path:      row.Path,
		Result:    string(row.Result),
		Reason:    row.Reason,
		RunID:     row.RunID,
	}
}

func (s *service) Ping(_ PingRequest, resp *PingResponse) error {
	resp.Alive = true
	resp.PID = os.Getpid()
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.Paused = status.Paused
	resp.PID = status.PID
	resp.RunID = status.RunID
	resp.Roots = append(resp.Roots, status.Roots...)
	resp.Recursive = status.Recursive
	resp.Policy = status.Policy
	resp.Quality = status.Quality
	resp.RescanIntervalSecs = int(status.RescanInterval / time.Second)
	resp.Workers = status.Workers
	resp.HotplugMonitoring = status.Hotplug
	resp.LockPath = status.LockFilePath
	resp.JournalPath = status.JournalPath
	resp.OutcomeStats = make(map[string]int, len(status.OutcomeStats))
	for result, count := range status.OutcomeStats {
		resp.OutcomeStats[string(result)] = count
	}
	if len(status.Dependencies) > 0 {
		resp.Dependencies = make([]DependencyStatus, 0, len(status.Dependencies))
		for _, dep := range status.Dependencies {
			resp.Dependencies = append(resp.Dependencies, DependencyStatus{
				Name:        dep.Name,
				Command:     dep.Command,
				Description: dep.Description,
				Optional:    dep.Optional,
				Available:   dep.Available,
				Detail:      dep.Detail,
			})
		}
	}
	return nil
}

func (s *service) RecentOutcomes(_ RecentOutcomesRequest, resp *RecentOutcomesResponse) error {
	entries := s.daemon.RecentOutcomes()
	resp.Outcomes = make([]OutcomeRecord, 0, len(entries))
	for _, entry := range entries {
		resp.Outcomes = append(resp.Outcomes, ringRecord(entry))
	}
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	rows, err := s.daemon.History(s.ctx, req.Limit)
	if err != nil {
		return err
	}
	resp.Outcomes = make([]OutcomeRecord, 0, len(rows))
	for _, row := range rows {
		resp.Outcomes = append(resp.Outcomes, journalRecord(row))
	}
	return nil
}

func (s *service) Pause(_ PauseRequest, resp *PauseResponse) error {
	s.log().Debug("pause requested")
	if err := s.daemon.Pause(s.ctx); err != nil {
		resp.Paused = false
		resp.Message = err.Error()
		return nil
	}
	resp.Paused = true
	resp.Message = "watching paused"
	s.log().Info("watching paused via IPC",
		logging.String(logging.FieldEventType, "watch_pause"))
	return nil
}

func (s *service) Resume(_ ResumeRequest, resp *ResumeResponse) error {
	s.log().Debug("resume requested")
	if err := s.daemon.Resume(s.ctx); err != nil {
		resp.Resumed = false
		resp.Message = err.Error()
		return nil
	}
	resp.Resumed = true
	resp.Message = "watching resumed"
	s.log().Info("watching resumed via IPC",
		logging.String(logging.FieldEventType, "watch_resume"))
	return nil
}

func (s *service) Reload(_ ReloadRequest, resp *ReloadResponse) error {
	s.log().Debug("reload requested")
	if err := s.daemon.Reload(s.ctx); err != nil {
		resp.Reloaded = false
		resp.Message = err.Error()
		return nil
	}
	resp.Reloaded = true
	resp.Message = "configuration reloaded"
	s.log().Info("configuration reloaded via IPC",
		logging.String(logging.FieldEventType, "config_reload"))
	return nil
}

func (s *service) RescanNow(_ RescanRequest, resp *RescanResponse) error {
	s.log().Debug("rescan requested")
	s.daemon.TriggerRescan()
	resp.Triggered = true
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) JournalHealth(_ JournalHealthRequest, resp *JournalHealthResponse) error {
	health, err := s.daemon.JournalHealth(s.ctx)
	if err != nil && health.Error == "" {
		return err
	}
	resp.DBPath = health.DBPath
	resp.DatabaseExists = health.DatabaseExists
	resp.DatabaseReadable = health.DatabaseReadable
	resp.TableExists = health.TableExists
	resp.TotalOutcomes = health.TotalOutcomes
	resp.IntegrityCheck = health.IntegrityCheck
	resp.Error = health.Error
	if err != nil {
		return err
	}
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	options := logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, options)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}
