package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"darkroom/internal/ipc"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Darkroom", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Darkroom:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Darkroom", statusOK, "Running", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestStatusKindFromSeverity(t *testing.T) {
	cases := []struct {
		severity string
		want     statusKind
	}{
		{"ok", statusOK},
		{"OK", statusOK},
		{"warn", statusWarn},
		{"warning", statusWarn},
		{"error", statusError},
		{"info", statusInfo},
		{"", statusInfo},
		{"unexpected", statusInfo},
	}
	for _, tc := range cases {
		if got := statusKindFromSeverity(tc.severity); got != tc.want {
			t.Errorf("statusKindFromSeverity(%q) = %v, want %v", tc.severity, got, tc.want)
		}
	}
}

func TestRenderSectionHeader(t *testing.T) {
	lines := renderSectionHeader("Dependencies", false)
	if len(lines) != 2 {
		t.Fatalf("expected header and rule, got %d lines", len(lines))
	}
	if lines[0] != "== Dependencies ==" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if lines[1] != strings.Repeat("-", len(lines[0])) {
		t.Fatalf("unexpected rule: %q", lines[1])
	}
}

func TestDependencyLines(t *testing.T) {
	deps := []ipc.DependencyStatus{
		{Name: "ImageMagick", Available: false, Severity: "error"},
		{Name: "System trash", Available: true, Command: "gio"},
	}
	summary := ipc.DependencySummary{
		Total:           2,
		Available:       1,
		MissingRequired: 1,
		Severity:        "error",
		Detail:          "1/2 available (missing: 1 required, 0 optional)",
	}
	lines := dependencyLines(deps, summary, false)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "Summary") || !strings.Contains(lines[0], "[ERROR]") {
		t.Fatalf("expected summary line first, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "[ERROR] not available") {
		t.Fatalf("expected error detail in second line, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "[OK] Ready (command: gio)") {
		t.Fatalf("expected ready detail in third line, got %q", lines[2])
	}
	if !strings.Contains(lines[3], "Missing dependencies:") || !strings.Contains(lines[3], "ImageMagick") {
		t.Fatalf("expected missing dependencies summary, got %q", lines[3])
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
