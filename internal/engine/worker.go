package engine

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"darkroom/internal/logging"
	"darkroom/internal/outcomes"
	"darkroom/internal/services"
)

const (
	stabilizeWindow   = 300 * time.Millisecond
	stabilizeAttempts = 3
)

// Skip reasons surfaced in the outcome log.
const (
	reasonLockFile    = "lock file"
	reasonNoStabilize = "did not stabilize"
	reasonAccessError = "access error"
	reasonRetirement  = "original retirement failed"
)

func (e *Engine) runWorker(id int) {
	defer e.workerWG.Done()
	logger := e.logger.With(logging.Int(logging.FieldWorker, id))

	for {
		// Stop takes priority over any queued job.
		select {
		case <-e.stop:
			return
		default:
		}

		select {
		case <-e.stop:
			return
		case path, ok := <-e.jobs:
			if !ok {
				return
			}
			e.runJob(logger, path)
		}
	}
}

// runJob executes the pipeline for one admitted path and always reports a
// completion notice so the dispatcher clears the in-flight marker.
func (e *Engine) runJob(logger *slog.Logger, path string) {
	entry := e.convertOne(logger, path)
	e.record(logger, entry)

	select {
	case e.completions <- path:
	case <-e.stop:
	}
}

func (e *Engine) convertOne(logger *slog.Logger, path string) outcomes.Entry {
	entry := outcomes.Entry{Timestamp: time.Now(), Path: path}

	if isLockPath(path) {
		logger.Info("skipped lock file", logging.String(logging.FieldPath, path))
		entry.Result = outcomes.ResultSkip
		entry.Reason = reasonLockFile
		return entry
	}

	stable, err := e.waitForStableFile(path)
	if err != nil {
		logger.Warn("skipped file due to access error",
			logging.String(logging.FieldPath, path),
			logging.Error(err))
		entry.Result = outcomes.ResultSkip
		entry.Reason = reasonAccessError
		return entry
	}
	if !stable {
		logger.Warn("file did not stabilize within retry limit",
			logging.String(logging.FieldPath, path))
		entry.Result = outcomes.ResultSkip
		entry.Reason = reasonNoStabilize
		return entry
	}

	outputPath, err := resolveOutputPath(path)
	if err != nil {
		logger.Error("output path resolution failed",
			logging.String(logging.FieldPath, path),
			logging.Error(err))
		entry.Result = outcomes.ResultFailure
		entry.Reason = services.ReasonIO
		return entry
	}

	tempPath := tempOutputPath(outputPath)
	// An in-progress conversion is allowed to run to completion; stop only
	// takes effect once the worker is back at its queue wait.
	convertCtx := context.WithoutCancel(e.workerCtx)
	if err := e.converter.Convert(convertCtx, path, tempPath, e.snap.Quality); err != nil {
		_ = os.Remove(tempPath)
		reason := services.ClassifyDiagnostic(err.Error())
		logger.Error("conversion failed",
			logging.String(logging.FieldPath, path),
			logging.String(logging.FieldReason, reason),
			logging.Error(err))
		entry.Result = outcomes.ResultFailure
		entry.Reason = reason
		return entry
	}

	if err := os.Rename(tempPath, outputPath); err != nil {
		_ = os.Remove(tempPath)
		logger.Error("publishing converted file failed",
			logging.String(logging.FieldPath, path),
			logging.Error(err))
		entry.Result = outcomes.ResultFailure
		entry.Reason = services.ClassifyDiagnostic(err.Error())
		return entry
	}

	logger.Info("converted",
		logging.String(logging.FieldPath, path),
		logging.String("output", outputPath))

	if e.snap.Policy == PolicyReplace && e.retirer != nil {
		if err := e.retirer.Retire(convertCtx, path); err != nil {
			// The published output stays; only the original is left behind.
			logger.Error("original retirement failed",
				logging.String(logging.FieldPath, path),
				logging.Error(err))
			entry.Result = outcomes.ResultFailure
			entry.Reason = reasonRetirement
			return entry
		}
	}

	entry.Result = outcomes.ResultSuccess
	entry.Reason = "converted to " + filepath.Base(outputPath)
	return entry
}

// waitForStableFile samples the file size until two consecutive samples
// match. The sleep deliberately occupies this worker slot: a slow file
// serializes its own retries without blocking other workers' jobs.
func (e *Engine) waitForStableFile(path string) (bool, error) {
	for attempt := 0; attempt < e.stabilizeRetries; attempt++ {
		first, err := os.Stat(path)
		if err != nil {
			return false, err
		}
		time.Sleep(e.stabilizeWindow)
		second, err := os.Stat(path)
		if err != nil {
			return false, err
		}
		if first.Size() == second.Size() {
			return true, nil
		}
	}
	return false, nil
}

func (e *Engine) record(logger *slog.Logger, entry outcomes.Entry) {
	e.log.Append(entry)
	if e.recorder == nil {
		return
	}
	if err := e.recorder.Record(context.Background(), entry, e.runID); err != nil {
		logger.Warn("outcome journal write failed", logging.Error(err))
	}
}
