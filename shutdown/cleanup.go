package shutdown

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"gracefulexit/core"
)

// RemoveMatching returns an action that removes files matching pattern in
// dir, for example "temp_*".
//
// Order recommendation: late (after services stopped).
//
// The action:
//   - Removes every matching file, skipping directories
//   - Logs each removal (success or failure)
//   - Continues even if individual removals fail
//   - Completes without error so it never shows up as a callback failure
//
// Usage:
//
//	orchestrator.AddCallback(shutdown.RemoveMatching(logger, cfg.TempDir, "temp_*"),
//	    shutdown.WithName("temp-files"), shutdown.WithOrder(50))
func RemoveMatching(logger *zap.Logger, dir, pattern string) core.Action {
	return core.Func(func() {
		removeMatching(logger, dir, pattern)
	})
}

// RemoveDir returns an action that removes the files matching pattern and
// then dir itself. Use it when dir is purely transient.
func RemoveDir(logger *zap.Logger, dir, pattern string) core.Action {
	return core.Func(func() {
		removeMatching(logger, dir, pattern)
		removeDir(logger, dir)
	})
}

func removeMatching(logger *zap.Logger, dir, pattern string) {
	logger.Debug("Starting temp file cleanup",
		zap.String("directory", dir),
		zap.String("pattern", pattern),
	)

	glob := filepath.Join(dir, pattern)
	matches, err := filepath.Glob(glob)
	if err != nil {
		logger.Error("Failed to list temporary files",
			zap.String("pattern", glob),
			zap.Error(err),
		)
		return
	}

	if len(matches) == 0 {
		logger.Debug("No temporary files to clean up")
		return
	}

	var removedCount, failedCount int
	for _, match := range matches {
		info, err := os.Stat(match)
		if err == nil && info.IsDir() {
			continue
		}

		if err := os.Remove(match); err != nil {
			failedCount++
			logger.Warn("Failed to remove temporary file",
				zap.String("file", filepath.Base(match)),
				zap.Error(err),
			)
			continue
		}
		removedCount++
		logger.Debug("Removed temporary file",
			zap.String("file", filepath.Base(match)),
		)
	}

	logger.Info("Temp file cleanup complete",
		zap.Int("removed", removedCount),
		zap.Int("failed", failedCount),
	)
}

func removeDir(logger *zap.Logger, dir string) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		logger.Debug("Directory does not exist, nothing to remove",
			zap.String("directory", dir),
		)
		return
	}
	if err != nil {
		logger.Error("Failed to stat directory",
			zap.String("directory", dir),
			zap.Error(err),
		)
		return
	}
	if !info.IsDir() {
		logger.Warn("Path is not a directory",
			zap.String("path", dir),
		)
		return
	}

	if err := os.RemoveAll(dir); err != nil {
		logger.Error("Failed to remove directory",
			zap.String("directory", dir),
			zap.Error(err),
		)
		return
	}
	logger.Info("Removed directory", zap.String("directory", dir))
}

// Close returns an action that closes c synchronously. The close error is
// reported as the callback failure.
func Close(c io.Closer) core.Action {
	return core.Sync(c.Close)
}

// ShutdownHTTPServer returns an action that gracefully stops server on its
// own goroutine, giving in-flight requests up to grace to finish. Register it
// as Blocking so later callbacks run after the listener closed.
func ShutdownHTTPServer(server *http.Server, grace time.Duration) core.Action {
	return core.Async(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
}

// SyncLogger returns an action that flushes logger. Syncing a terminal
// (stdout, stderr) reports EINVAL or ENOTTY on most platforms; those errors
// are ignored.
func SyncLogger(logger *zap.Logger) core.Action {
	return core.Sync(func() error {
		if err := logger.Sync(); err != nil && !isIgnorableSyncError(err) {
			return err
		}
		return nil
	})
}

func isIgnorableSyncError(err error) bool {
	return errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY)
}
