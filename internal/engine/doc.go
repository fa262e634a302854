// Package engine implements the watch/dispatch/worker core. It turns raw
// filesystem change notifications and periodic sweeps into de-duplicated
// conversion jobs, executes them on a small worker pool with stabilization
// checks and atomic publication, and records every outcome in the bounded
// outcome log.
//
// One Engine covers one run over an immutable Snapshot; reconfiguration is
// stop-then-start with a new snapshot. The dispatcher goroutine exclusively
// owns the admission ledger, and workers talk back only through the
// completion channel, so the hot admission path takes no locks. Jobs for
// distinct paths run in parallel with no ordering guarantee; jobs for the
// same path are strictly serialized by the in-flight set. Stop is
// cooperative: every goroutine observes it within one polling interval,
// workers finish the job in hand, and in-progress external conversions are
// never killed.
package engine
