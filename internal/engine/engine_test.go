package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"darkroom/internal/engine"
	"darkroom/internal/outcomes"
)

type fakeConverter struct {
	mu        sync.Mutex
	inputs    []string
	qualities []int
	fail      string
}

func (f *fakeConverter) Convert(_ context.Context, input, output string, quality int) error {
	f.mu.Lock()
	f.inputs = append(f.inputs, input)
	f.qualities = append(f.qualities, quality)
	f.mu.Unlock()

	if f.fail != "" {
		return errors.New(f.fail)
	}
	return os.WriteFile(output, []byte("jpeg-data"), 0o644)
}

func (f *fakeConverter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inputs)
}

func (f *fakeConverter) lastQuality() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.qualities) == 0 {
		return -1
	}
	return f.qualities[len(f.qualities)-1]
}

type fakeRetirer struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (f *fakeRetirer) Retire(_ context.Context, path string) error {
	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	return os.Remove(path)
}

func (f *fakeRetirer) retired() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []outcomes.Entry
	runIDs  []string
}

func (f *fakeRecorder) Record(_ context.Context, entry outcomes.Entry, runID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	f.runIDs = append(f.runIDs, runID)
	return nil
}

func (f *fakeRecorder) recorded() ([]outcomes.Entry, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]outcomes.Entry(nil), f.entries...), append([]string(nil), f.runIDs...)
}

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

func fastOptions(converter *fakeConverter) []engine.Option {
	return []engine.Option{
		engine.WithConverter(converter),
		engine.WithOutcomeLog(outcomes.NewLog(10)),
		engine.WithStabilization(5*time.Millisecond, 3),
		engine.WithPollTimeout(20 * time.Millisecond),
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestEngineConvertsSeededFiles(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "IMG_01.heic")
	if err := os.WriteFile(input, []byte("heic"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	converter := &fakeConverter{}
	e, err := engine.Start(engine.Snapshot{Roots: []string{dir}, Recursive: true, Quality: 92}, fastOptions(converter)...)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop()

	output := filepath.Join(dir, "IMG_01.jpg")
	waitFor(t, 5*time.Second, "seeded file conversion", func() bool {
		return fileExists(output)
	})

	waitFor(t, 2*time.Second, "success outcome", func() bool {
		recent := e.RecentOutcomes()
		return len(recent) == 1 && recent[0].Result == outcomes.ResultSuccess
	})
	recent := e.RecentOutcomes()
	if recent[0].Path != input {
		t.Fatalf("outcome path = %q, want %q", recent[0].Path, input)
	}
	if recent[0].Reason != "converted to IMG_01.jpg" {
		t.Fatalf("outcome reason = %q", recent[0].Reason)
	}
	if got := converter.lastQuality(); got != 92 {
		t.Fatalf("converter quality = %d, want 92", got)
	}

	e.Stop()
	if e.Running() {
		t.Fatal("engine still reports running after Stop")
	}
}

func TestEngineDetectsNewFiles(t *testing.T) {
	dir := t.TempDir()

	converter := &fakeConverter{}
	e, err := engine.Start(engine.Snapshot{Roots: []string{dir}, Recursive: true, Quality: 92}, fastOptions(converter)...)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop()

	input := filepath.Join(dir, "fresh.HEIF")
	if err := os.WriteFile(input, []byte("heif"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	waitFor(t, 5*time.Second, "event-driven conversion", func() bool {
		return fileExists(filepath.Join(dir, "fresh.jpg"))
	})
	if got := converter.callCount(); got != 1 {
		t.Fatalf("converter calls = %d, want 1", got)
	}
}

func TestEngineDoesNotReconvertExistingOutputs(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "IMG_01.heic")
	if err := os.WriteFile(input, []byte("heic"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	converter := &fakeConverter{}
	e, err := engine.Start(engine.Snapshot{Roots: []string{dir}, Quality: 92}, fastOptions(converter)...)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop()

	waitFor(t, 5*time.Second, "initial conversion", func() bool {
		return fileExists(filepath.Join(dir, "IMG_01.jpg"))
	})

	// Let the admission window lapse so the rescan below exercises the
	// sibling check rather than debouncing.
	time.Sleep(450 * time.Millisecond)
	e.RequestRescan()
	time.Sleep(150 * time.Millisecond)

	if got := converter.callCount(); got != 1 {
		t.Fatalf("converter calls after rescan = %d, want 1", got)
	}
}

func TestEngineStartWithoutRootsIsStopped(t *testing.T) {
	converter := &fakeConverter{}
	e, err := engine.Start(engine.Snapshot{Quality: 92}, fastOptions(converter)...)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if e.Running() {
		t.Fatal("engine with no roots must not run")
	}

	// Stop must return promptly and stay safe to repeat.
	e.Stop()
	e.Stop()
}

func TestEngineStartPausedConvertsNothing(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "IMG_01.heic")
	if err := os.WriteFile(input, []byte("heic"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	converter := &fakeConverter{}
	e, err := engine.Start(engine.Snapshot{Roots: []string{dir}, Paused: true, Quality: 92}, fastOptions(converter)...)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop()

	if e.Running() {
		t.Fatal("paused engine must not run")
	}
	time.Sleep(100 * time.Millisecond)
	if got := converter.callCount(); got != 0 {
		t.Fatalf("paused engine converted %d files", got)
	}
}

func TestEngineReplacePolicyRetiresOriginals(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "IMG_01.heic")
	if err := os.WriteFile(input, []byte("heic"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	converter := &fakeConverter{}
	retirer := &fakeRetirer{}
	opts := append(fastOptions(converter), engine.WithRetirer(retirer))
	e, err := engine.Start(engine.Snapshot{Roots: []string{dir}, Policy: engine.PolicyReplace, Quality: 80}, opts...)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop()

	waitFor(t, 5*time.Second, "conversion and retirement", func() bool {
		return fileExists(filepath.Join(dir, "IMG_01.jpg")) && !fileExists(input)
	})

	if got := retirer.retired(); len(got) != 1 || got[0] != input {
		t.Fatalf("retired paths = %v, want [%s]", got, input)
	}
	if got := converter.lastQuality(); got != 80 {
		t.Fatalf("converter quality = %d, want 80", got)
	}
}

func TestEngineRetirementFailureKeepsOutput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "IMG_01.heic")
	if err := os.WriteFile(input, []byte("heic"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	converter := &fakeConverter{}
	retirer := &fakeRetirer{err: errors.New("trash unavailable")}
	opts := append(fastOptions(converter), engine.WithRetirer(retirer))
	e, err := engine.Start(engine.Snapshot{Roots: []string{dir}, Policy: engine.PolicyReplace, Quality: 92}, opts...)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop()

	waitFor(t, 5*time.Second, "retirement failure outcome", func() bool {
		recent := e.RecentOutcomes()
		return len(recent) == 1 && recent[0].Result == outcomes.ResultFailure
	})

	recent := e.RecentOutcomes()
	if recent[0].Reason != "original retirement failed" {
		t.Fatalf("outcome reason = %q", recent[0].Reason)
	}
	if !fileExists(filepath.Join(dir, "IMG_01.jpg")) {
		t.Fatal("published output must survive a retirement failure")
	}
	if !fileExists(input) {
		t.Fatal("original must remain when retirement fails")
	}
}

func TestEngineRecorderReceivesOutcomes(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "IMG_01.heic")
	if err := os.WriteFile(input, []byte("heic"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	converter := &fakeConverter{}
	recorder := &fakeRecorder{}
	opts := append(fastOptions(converter), engine.WithRecorder(recorder))
	e, err := engine.Start(engine.Snapshot{Roots: []string{dir}, Quality: 92}, opts...)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop()

	waitFor(t, 5*time.Second, "recorder delivery", func() bool {
		entries, _ := recorder.recorded()
		return len(entries) == 1
	})

	entries, runIDs := recorder.recorded()
	if entries[0].Result != outcomes.ResultSuccess || entries[0].Path != input {
		t.Fatalf("recorded entry = %+v", entries[0])
	}
	if runIDs[0] != e.RunID() {
		t.Fatalf("recorded run id = %q, want %q", runIDs[0], e.RunID())
	}
}

func TestEngineFailureOutcomeWithoutOutput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "IMG_01.heic")
	if err := os.WriteFile(input, []byte("heic"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	converter := &fakeConverter{fail: "no decode delegate for this image format"}
	e, err := engine.Start(engine.Snapshot{Roots: []string{dir}, Quality: 92}, fastOptions(converter)...)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop()

	waitFor(t, 5*time.Second, "failure outcome", func() bool {
		recent := e.RecentOutcomes()
		return len(recent) == 1 && recent[0].Result == outcomes.ResultFailure
	})

	if fileExists(filepath.Join(dir, "IMG_01.jpg")) {
		t.Fatal("failed conversion must not publish an output")
	}
}
