package engine

import (
	"testing"
	"time"
)

func TestLedgerRejectsInFlightPath(t *testing.T) {
	led := newLedger()
	now := time.Now()
	sig := Signature{Size: 10, ModTime: now}

	if !led.shouldAdmit("/photos/a.heic", sig, now, false) {
		t.Fatal("expected first admission to pass")
	}
	led.admit("/photos/a.heic", sig, now)

	later := now.Add(time.Second)
	changed := Signature{Size: 20, ModTime: later}
	if led.shouldAdmit("/photos/a.heic", changed, later, false) {
		t.Fatal("expected in-flight path to be rejected even with a new signature")
	}

	led.complete("/photos/a.heic")
	if !led.shouldAdmit("/photos/a.heic", changed, later, false) {
		t.Fatal("expected admission after completion cleared the in-flight marker")
	}
}

func TestLedgerDebouncesBursts(t *testing.T) {
	led := newLedger()
	now := time.Now()
	sig := Signature{Size: 10, ModTime: now}

	led.admit("/photos/a.heic", sig, now)
	led.complete("/photos/a.heic")

	within := now.Add(debounceWindow - time.Millisecond)
	changed := Signature{Size: 99, ModTime: within}
	if led.shouldAdmit("/photos/a.heic", changed, within, false) {
		t.Fatal("expected admission inside the debounce window to be rejected")
	}

	after := now.Add(debounceWindow)
	if !led.shouldAdmit("/photos/a.heic", changed, after, false) {
		t.Fatal("expected admission once the debounce window elapsed")
	}
}

func TestLedgerRejectsUnchangedSignature(t *testing.T) {
	led := newLedger()
	now := time.Now()
	sig := Signature{Size: 10, ModTime: now}

	led.admit("/photos/a.heic", sig, now)
	led.complete("/photos/a.heic")

	later := now.Add(time.Second)
	if led.shouldAdmit("/photos/a.heic", sig, later, false) {
		t.Fatal("expected unchanged signature to be rejected outside the debounce window")
	}
	if !led.shouldAdmit("/photos/a.heic", sig, later, true) {
		t.Fatal("expected forceSignature to override the unchanged-signature rule")
	}

	changed := Signature{Size: 10, ModTime: now.Add(time.Minute)}
	if !led.shouldAdmit("/photos/a.heic", changed, later, false) {
		t.Fatal("expected changed mod time to count as a new signature")
	}
}

func TestLedgerForceDoesNotOverrideDebounce(t *testing.T) {
	led := newLedger()
	now := time.Now()
	sig := Signature{Size: 10, ModTime: now}

	led.admit("/photos/a.heic", sig, now)
	led.complete("/photos/a.heic")

	within := now.Add(debounceWindow / 2)
	if led.shouldAdmit("/photos/a.heic", sig, within, true) {
		t.Fatal("force overrides the signature rule only, not the debounce window")
	}
}

func TestLedgerTracksPathsIndependently(t *testing.T) {
	led := newLedger()
	now := time.Now()
	sig := Signature{Size: 10, ModTime: now}

	led.admit("/photos/a.heic", sig, now)

	if !led.shouldAdmit("/photos/b.heic", sig, now, false) {
		t.Fatal("expected a different path to be admissible")
	}
}

func TestSignatureEquality(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	a := Signature{Size: 100, ModTime: base}
	b := Signature{Size: 100, ModTime: base.In(time.FixedZone("JST", 9*3600))}
	if !a.Equal(b) {
		t.Fatal("expected signatures equal across time zone representations")
	}

	c := Signature{Size: 100, ModTime: base.Add(time.Nanosecond)}
	if a.Equal(c) {
		t.Fatal("expected differing mod times to compare unequal")
	}

	d := Signature{Size: 101, ModTime: base}
	if a.Equal(d) {
		t.Fatal("expected differing sizes to compare unequal")
	}

	var zero, zero2 Signature
	if !zero.Equal(zero2) {
		t.Fatal("expected zero signatures to compare equal")
	}
	if zero.Equal(a) {
		t.Fatal("expected zero signature to differ from a populated one")
	}
}

func TestCaptureRejectsNonRegularFiles(t *testing.T) {
	dir := t.TempDir()
	if _, err := Capture(dir); err == nil {
		t.Fatal("expected directory capture to fail")
	}
	if _, err := Capture(dir + "/missing.heic"); err == nil {
		t.Fatal("expected missing file capture to fail")
	}
}
