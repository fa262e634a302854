// Package daemon coordinates the long-running darkroom process and system
// integration points.
//
// It wires configuration, the outcome journal, the conversion engine, and the
// hotplug monitor into a single lifecycle with flock-based locking to prevent
// multiple instances. Control operations (pause, resume, reload, rescan)
// arrive over IPC and may stop or replace the engine; the daemon lock, the
// outcome ring, and the journal outlive any individual engine run.
//
// Keep orchestration logic here: watching and conversion mechanics live in
// the engine while the daemon focuses on startup, shutdown, and high level
// coordination.
package daemon
