package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"darkroom/internal/daemon"
	"darkroom/internal/ipc"
	"darkroom/internal/logging"
	"darkroom/internal/testsupport"
)

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNewServerRequiresDaemon(t *testing.T) {
	_, err := ipc.NewServer(context.Background(), filepath.Join(t.TempDir(), "d.sock"), nil, nil)
	if err == nil {
		t.Fatal("expected error for nil daemon")
	}
}

func TestIPCServerClient(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	binDir := t.TempDir()
	script := "#!/bin/sh\nout=\"${4#jpeg:}\"\nprintf 'jpeg-data' > \"$out\"\nexit 0\n"
	if err := os.WriteFile(filepath.Join(binDir, "magick"), []byte(script), 0o755); err != nil {
		t.Fatalf("write stub magick: %v", err)
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	root := cfg.Watch.Roots[0]
	photo := filepath.Join(root, "IMG_2001.heic")
	testsupport.WriteFile(t, photo, 4096)

	store := testsupport.MustOpenJournal(t, cfg)
	cfgPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	logger := logging.NewNop()
	d, err := daemon.New(cfg, cfgPath, store, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon start: %v", err)
	}

	socket := cfg.Daemon.SocketPath
	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		srv.Close()
	})

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	ping, err := client.Ping()
	if err != nil {
		t.Fatalf("Ping RPC failed: %v", err)
	}
	if !ping.Alive || ping.PID != os.Getpid() {
		t.Fatalf("unexpected ping response: %#v", ping)
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running {
		t.Fatal("expected daemon to be running")
	}
	if status.Paused {
		t.Fatal("expected daemon to not be paused")
	}
	if len(status.Roots) != 1 || status.Roots[0] != root {
		t.Fatalf("unexpected roots: %v", status.Roots)
	}
	if !strings.HasSuffix(status.JournalPath, "journal.db") {
		t.Fatalf("unexpected journal path: %s", status.JournalPath)
	}
	if status.Workers == 0 {
		t.Fatal("expected engine workers to be reported")
	}

	waitFor(t, 5*time.Second, "conversion outcome over IPC", func() bool {
		resp, err := client.RecentOutcomes()
		if err != nil {
			return false
		}
		for _, outcome := range resp.Outcomes {
			if outcome.Path == photo && outcome.Result == "success" {
				return true
			}
		}
		return false
	})

	waitFor(t, 2*time.Second, "journal history over IPC", func() bool {
		resp, err := client.History(20)
		if err != nil {
			return false
		}
		for _, outcome := range resp.Outcomes {
			if outcome.Path == photo && outcome.RunID == status.RunID {
				return true
			}
		}
		return false
	})

	health, err := client.JournalHealth()
	if err != nil {
		t.Fatalf("JournalHealth failed: %v", err)
	}
	if !strings.HasSuffix(health.DBPath, "journal.db") {
		t.Fatalf("unexpected journal health path: %s", health.DBPath)
	}
	if !health.TableExists || !health.IntegrityCheck {
		t.Fatalf("unexpected journal health: %#v", health)
	}

	logPath := filepath.Join(cfg.Daemon.LogDir, "darkroom.log")
	if err := os.WriteFile(logPath, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}

	logResp, err := client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("LogTail initial failed: %v", err)
	}
	if len(logResp.Lines) != 2 || logResp.Lines[0] != "second" || logResp.Lines[1] != "third" {
		t.Fatalf("unexpected log tail response: %#v", logResp.Lines)
	}

	followDone := make(chan struct{})
	go func(offset int64) {
		resp, err := client.LogTail(ipc.LogTailRequest{Offset: offset, Follow: true, WaitMillis: 500})
		if err != nil {
			t.Errorf("LogTail follow error: %v", err)
			return
		}
		if len(resp.Lines) != 1 || resp.Lines[0] != "fourth" {
			t.Errorf("unexpected follow lines: %#v", resp.Lines)
		}
		close(followDone)
	}(logResp.Offset)

	time.Sleep(100 * time.Millisecond)
	if f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
		_, _ = f.WriteString("fourth\n")
		_ = f.Close()
	} else {
		t.Fatalf("append log: %v", err)
	}

	select {
	case <-followDone:
	case <-time.After(10 * time.Second):
		t.Fatal("log tail follow timed out")
	}

	pauseResp, err := client.Pause()
	if err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	if !pauseResp.Paused {
		t.Fatalf("expected pause to succeed: %s", pauseResp.Message)
	}
	status, err = client.Status()
	if err != nil {
		t.Fatalf("Status after pause failed: %v", err)
	}
	if status.Running || !status.Paused {
		t.Fatalf("after pause: Running=%v Paused=%v", status.Running, status.Paused)
	}

	rescanResp, err := client.RescanNow()
	if err != nil {
		t.Fatalf("RescanNow failed: %v", err)
	}
	if !rescanResp.Triggered {
		t.Fatal("expected rescan to be acknowledged")
	}

	resumeResp, err := client.Resume()
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if !resumeResp.Resumed {
		t.Fatalf("expected resume to succeed: %s", resumeResp.Message)
	}
	status, err = client.Status()
	if err != nil {
		t.Fatalf("Status after resume failed: %v", err)
	}
	if !status.Running || status.Paused {
		t.Fatalf("after resume: Running=%v Paused=%v", status.Running, status.Paused)
	}

	reloadResp, err := client.Reload()
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if !reloadResp.Reloaded {
		t.Fatalf("expected reload to succeed: %s", reloadResp.Message)
	}

	stopResp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop RPC failed: %v", err)
	}
	if !stopResp.Stopped {
		t.Fatal("expected stop response to be true")
	}

	status, err = client.Status()
	if err != nil {
		t.Fatalf("Status after stop failed: %v", err)
	}
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}
