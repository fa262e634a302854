package engine

import (
	"time"

	"darkroom/internal/logging"
)

// defaultPollTimeout bounds how long the dispatcher and workers wait before
// re-checking the stop signal and the rescan deadline.
const defaultPollTimeout = 200 * time.Millisecond

// runDispatcher is the engine's single coordinating loop. It merges change
// batches, rescan deadlines, hotplug kicks, and completion notices, runs the
// admission policy, and hands accepted paths to the worker pool. Pending
// jobs queue up in an ordered slice so admission is never blocked by busy
// workers.
func (e *Engine) runDispatcher() {
	defer close(e.done)

	led := newLedger()
	var pending []string

	// Seed once so files already present are converted without waiting for
	// their first change event.
	e.admitBatch(led, &pending, e.scanner.Scan(), e.snap.ForceRescanReadmit, "seed")
	nextRescan := time.Now().Add(e.snap.RescanInterval)

	events := e.watcher.Events()

running:
	for {
		var (
			submit chan<- string
			next   string
		)
		if len(pending) > 0 {
			submit = e.jobs
			next = pending[0]
		}

		select {
		case <-e.stop:
			break running

		case submit <- next:
			pending = pending[1:]

		case batch, ok := <-events:
			if !ok {
				// The change source died underneath us; shut down cleanly
				// rather than run blind on rescans alone.
				e.logger.Warn("change source closed, stopping engine")
				break running
			}
			targets := batch[:0]
			for _, path := range batch {
				if isTargetPath(path) {
					targets = append(targets, path)
				}
			}
			e.admitBatch(led, &pending, targets, false, "event")

		case path := <-e.completions:
			led.complete(path)

		case <-e.rescanKick:
			e.admitBatch(led, &pending, e.scanner.Scan(), e.snap.ForceRescanReadmit, "kick")
			nextRescan = time.Now().Add(e.snap.RescanInterval)

		case <-time.After(e.pollTimeout):
		}

		if !time.Now().Before(nextRescan) {
			e.admitBatch(led, &pending, e.scanner.Scan(), e.snap.ForceRescanReadmit, "rescan")
			nextRescan = time.Now().Add(e.snap.RescanInterval)
		}
	}

	e.shutdown()
}

// admitBatch runs the admission policy over candidate paths, appending
// accepted ones to the pending queue in arrival order.
func (e *Engine) admitBatch(led *ledger, pending *[]string, paths []string, forceSignature bool, source string) {
	now := time.Now()
	for _, path := range paths {
		sig, err := Capture(path)
		if err != nil {
			e.logger.Debug("candidate not admissible",
				logging.String(logging.FieldPath, path),
				logging.Error(err))
			continue
		}
		if !led.shouldAdmit(path, sig, now, forceSignature) {
			continue
		}
		led.admit(path, sig, now)
		*pending = append(*pending, path)
		e.logger.Debug("admitted conversion job",
			logging.String(logging.FieldPath, path),
			logging.String("source", source))
	}
}

// shutdown drains the run: stop is signalled for all goroutines, the job
// channel is closed so idle workers exit, busy workers finish the job in
// hand, and the watch subscription is released last.
func (e *Engine) shutdown() {
	e.signalStop()
	close(e.jobs)
	e.workerWG.Wait()
	e.workerCancel()
	if e.watcher != nil {
		e.watcher.Close()
	}
	e.setRunning(false)
	e.logger.Info("engine stopped")
}
