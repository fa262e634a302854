package daemonctl

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"darkroom/internal/config"
	"darkroom/internal/ipc"
)

func TestDeriveDataDir(t *testing.T) {
	cfg := config.Default()
	cfg.Daemon.DataDir = "/var/lib/darkroom"

	if got := DeriveDataDir("/run/darkroom/darkroom.lock", "", &cfg); got != "/run/darkroom" {
		t.Errorf("lock path hint: got %q", got)
	}
	if got := DeriveDataDir("", "/data/journal.db", &cfg); got != "/data" {
		t.Errorf("journal path hint: got %q", got)
	}
	if got := DeriveDataDir("", "", &cfg); got != "/var/lib/darkroom" {
		t.Errorf("config fallback: got %q", got)
	}
	if got := DeriveDataDir("", "", nil); got != "" {
		t.Errorf("no hints: got %q, want empty", got)
	}
}

func TestForceKillProcessRefusesSelf(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "darkroom.pid")
	if err := os.WriteFile(pidPath, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}

	_, err := ForceKillProcess(pidPath, "", 0)
	if err == nil || !strings.Contains(err.Error(), "refusing to kill current process") {
		t.Fatalf("expected self-kill refusal, got %v", err)
	}
}

func TestProcessInfoMissingSocket(t *testing.T) {
	running, pid, err := ProcessInfo(filepath.Join(t.TempDir(), "missing.sock"))
	if err != nil {
		t.Fatalf("ProcessInfo: %v", err)
	}
	if running || pid != 0 {
		t.Fatalf("expected not running, got running=%v pid=%d", running, pid)
	}
}

func TestBuildSystemChecks(t *testing.T) {
	cfg := config.Default()
	cfg.Daemon.DataDir = t.TempDir()

	running := BuildSystemChecks(&cfg, true, false, true)
	if len(running) != 4 {
		t.Fatalf("expected 4 lines, got %d: %#v", len(running), running)
	}
	if running[0].Label != "Darkroom" || running[0].Severity != "ok" {
		t.Errorf("unexpected first line: %#v", running[0])
	}
	if running[1].Label != "Watching" || running[1].Detail != "Active" {
		t.Errorf("unexpected watching line: %#v", running[1])
	}
	if running[2].Label != "Media Detection" || running[2].Severity != "ok" {
		t.Errorf("unexpected media detection line: %#v", running[2])
	}

	paused := BuildSystemChecks(&cfg, false, true, false)
	if paused[1].Severity != "warn" || !strings.Contains(paused[1].Detail, "Paused") {
		t.Errorf("unexpected paused line: %#v", paused[1])
	}

	down := BuildSystemChecks(&cfg, false, false, false)
	if down[0].Severity != "warn" || !strings.Contains(down[0].Detail, "darkroom start") {
		t.Errorf("unexpected down line: %#v", down[0])
	}
	if down[1].Label != "Media Detection" || down[1].Severity != "info" {
		t.Errorf("unexpected media detection line when down: %#v", down[1])
	}
}

func TestBuildWatchRootChecks(t *testing.T) {
	root := t.TempDir()
	trash := t.TempDir()
	cfg := config.Default()
	cfg.Watch.Roots = []string{root, filepath.Join(root, "missing")}
	cfg.Retire.Strategy = config.RetireStrategyTrashDir
	cfg.Retire.TrashDir = trash

	lines := BuildWatchRootChecks(&cfg)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %#v", len(lines), lines)
	}
	if lines[0].Severity != "ok" {
		t.Errorf("expected existing root to pass: %#v", lines[0])
	}
	if lines[1].Severity != "error" {
		t.Errorf("expected missing root to fail: %#v", lines[1])
	}
	if lines[2].Label != trash || lines[2].Severity != "ok" {
		t.Errorf("unexpected trash line: %#v", lines[2])
	}

	cfg.Retire.Strategy = config.RetireStrategySystem
	lines = BuildWatchRootChecks(&cfg)
	if len(lines) != 2 {
		t.Fatalf("expected trash check to be skipped under system strategy, got %d lines", len(lines))
	}
}

func TestBuildDependencySummary(t *testing.T) {
	all := []ipc.DependencyStatus{
		{Name: "ImageMagick", Available: true},
		{Name: "System trash", Available: true, Optional: true},
	}
	summary := BuildDependencySummary(all)
	if summary.Severity != "ok" || summary.Detail != "2/2 available" {
		t.Errorf("unexpected summary: %#v", summary)
	}

	missingOptional := []ipc.DependencyStatus{
		{Name: "ImageMagick", Available: true},
		{Name: "System trash", Optional: true},
	}
	summary = BuildDependencySummary(missingOptional)
	if summary.Severity != "warn" || summary.MissingOptional != 1 {
		t.Errorf("unexpected summary: %#v", summary)
	}

	missingRequired := []ipc.DependencyStatus{
		{Name: "ImageMagick"},
	}
	summary = BuildDependencySummary(missingRequired)
	if summary.Severity != "error" || summary.MissingRequired != 1 {
		t.Errorf("unexpected summary: %#v", summary)
	}

	empty := BuildDependencySummary(nil)
	if empty.Severity != "info" {
		t.Errorf("unexpected empty summary: %#v", empty)
	}
}
