package engine

import "time"

// debounceWindow collapses bursts of change notifications for the same path
// into a single admission.
const debounceWindow = 400 * time.Millisecond

// ledger is the dispatcher's admission bookkeeping: last admission time and
// signature per path, plus the in-flight set. It is owned exclusively by the
// dispatcher goroutine; workers influence it only through completion
// notices, so no locking is needed on the admission path.
type ledger struct {
	lastAdmission map[string]time.Time
	lastSignature map[string]Signature
	inFlight      map[string]struct{}
}

func newLedger() *ledger {
	return &ledger{
		lastAdmission: make(map[string]time.Time),
		lastSignature: make(map[string]Signature),
		inFlight:      make(map[string]struct{}),
	}
}

// shouldAdmit decides whether a candidate becomes a job. A path already in
// flight is never re-admitted, a repeat notification inside the debounce
// window is dropped, and an unchanged signature is dropped unless
// forceSignature is set (rescans may force through to guarantee forward
// progress when the event stream silently missed a change).
func (l *ledger) shouldAdmit(path string, sig Signature, now time.Time, forceSignature bool) bool {
	if _, busy := l.inFlight[path]; busy {
		return false
	}
	if last, ok := l.lastAdmission[path]; ok && now.Sub(last) < debounceWindow {
		return false
	}
	if !forceSignature {
		if prev, ok := l.lastSignature[path]; ok && prev.Equal(sig) {
			return false
		}
	}
	return true
}

// admit records an accepted admission and marks the path in flight.
func (l *ledger) admit(path string, sig Signature, now time.Time) {
	l.lastAdmission[path] = now
	l.lastSignature[path] = sig
	l.inFlight[path] = struct{}{}
}

// complete clears the in-flight marker once a worker reports the path done.
func (l *ledger) complete(path string) {
	delete(l.inFlight, path)
}
