package entityconfig

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// Watch calls onChange once file activity in dirs has been quiet for debounce. It
// blocks until ctx is cancelled.
func Watch(ctx context.Context, dirs []string, debounce time.Duration, logger *slog.Logger, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	watched := 0
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			logger.Warn("cannot watch config directory", "dir", dir, "error", err)
			continue
		}
		watched++
	}
	if watched == 0 {
		return fmt.Errorf("watch config: no directory could be watched")
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&watchOps == 0 {
				continue
			}
			logger.Debug("config change observed", "file", ev.Name, "op", ev.Op.String())
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)
		case <-timer.C:
			onChange()
		}
	}
}
