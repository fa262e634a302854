package retire

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"darkroom/internal/services"
)

func TestNewSelectsStrategy(t *testing.T) {
	r, err := New(StrategyTrashDir, t.TempDir(), "")
	if err != nil {
		t.Fatalf("New trash-dir returned error: %v", err)
	}
	if _, ok := r.(*TrashDir); !ok {
		t.Fatalf("expected TrashDir retirer, got %T", r)
	}

	r, err = New(StrategySystem, "", "gio")
	if err != nil {
		t.Fatalf("New system returned error: %v", err)
	}
	if _, ok := r.(*System); !ok {
		t.Fatalf("expected System retirer, got %T", r)
	}

	if _, err := New("shred", "", ""); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for unknown strategy, got %v", err)
	}
}

func TestTrashDirMovesOriginal(t *testing.T) {
	trash := filepath.Join(t.TempDir(), "trash")
	source := filepath.Join(t.TempDir(), "IMG_01.heic")
	if err := os.WriteFile(source, []byte("heic-bytes"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	retirer := NewTrashDir(trash)
	if err := retirer.Retire(context.Background(), source); err != nil {
		t.Fatalf("Retire returned error: %v", err)
	}

	if _, err := os.Stat(source); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected original to be gone, stat err: %v", err)
	}
	moved, err := os.ReadFile(filepath.Join(trash, "IMG_01.heic"))
	if err != nil {
		t.Fatalf("expected file in trash: %v", err)
	}
	if string(moved) != "heic-bytes" {
		t.Fatalf("unexpected trash content: %q", moved)
	}
}

func TestTrashDirDisambiguatesCollisions(t *testing.T) {
	trash := t.TempDir()
	sourceDir := t.TempDir()

	for _, existing := range []string{"IMG_01.heic", "IMG_01 (1).heic"} {
		if err := os.WriteFile(filepath.Join(trash, existing), []byte("old"), 0o644); err != nil {
			t.Fatalf("seed trash: %v", err)
		}
	}
	source := filepath.Join(sourceDir, "IMG_01.heic")
	if err := os.WriteFile(source, []byte("new"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	retirer := NewTrashDir(trash)
	if err := retirer.Retire(context.Background(), source); err != nil {
		t.Fatalf("Retire returned error: %v", err)
	}

	moved, err := os.ReadFile(filepath.Join(trash, "IMG_01 (2).heic"))
	if err != nil {
		t.Fatalf("expected disambiguated name in trash: %v", err)
	}
	if string(moved) != "new" {
		t.Fatalf("unexpected content at disambiguated name: %q", moved)
	}
}

func TestTrashDirRequiresConfiguration(t *testing.T) {
	if err := NewTrashDir("").Retire(context.Background(), "/photos/a.heic"); err == nil {
		t.Fatal("expected error for empty trash directory")
	}
	if err := NewTrashDir(t.TempDir()).Retire(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestSystemBuildsTrashArgs(t *testing.T) {
	var capturedName string
	var capturedArgs []string
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		capturedName = name
		capturedArgs = append([]string(nil), args...)
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "TRASH_HELPER_MODE=success")
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})

	retirer := NewSystem(WithBinary("gio"))
	if err := retirer.Retire(context.Background(), "/photos/IMG_01.heic"); err != nil {
		t.Fatalf("Retire returned error: %v", err)
	}

	if capturedName != "gio" {
		t.Fatalf("expected gio binary, got %q", capturedName)
	}
	want := []string{"trash", "/photos/IMG_01.heic"}
	if len(capturedArgs) != len(want) {
		t.Fatalf("unexpected args: %v", capturedArgs)
	}
	for i, arg := range want {
		if capturedArgs[i] != arg {
			t.Fatalf("arg %d: got %q want %q", i, capturedArgs[i], arg)
		}
	}
}

func TestSystemWrapsFailure(t *testing.T) {
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "TRASH_HELPER_MODE=failure")
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})

	err := NewSystem().Retire(context.Background(), "/photos/IMG_01.heic")
	if err == nil {
		t.Fatal("expected retirement failure")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	switch os.Getenv("TRASH_HELPER_MODE") {
	case "success":
		os.Exit(0)
	case "failure":
		fmt.Fprintln(os.Stderr, "gio: unable to trash file")
		os.Exit(1)
	default:
		os.Exit(0)
	}
}
