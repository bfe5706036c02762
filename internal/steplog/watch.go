package steplog

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

const debounce = 100 * time.Millisecond

// Watch reloads the log at path whenever it changes and hands the result
// to fn. It watches the parent directory so editors that replace the file
// are picked up. Bursts of events are debounced. Watch blocks until ctx is
// done.
func Watch(ctx context.Context, path string, logger *slog.Logger, fn func(Log, error)) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(err, "resolve step log path")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return errors.Wrapf(err, "watch %s", filepath.Dir(target))
	}

	timer := newDebounceTimer()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			resetDebounceTimer(timer)
		case <-timer.C:
			log, err := LoadFile(target)
			logger.Info("step log reloaded", "path", target, "steps", len(log.Steps), "issues", len(log.Issues), "err", err)
			fn(log, err)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("step log watcher error", "err", err)
		}
	}
}

func newDebounceTimer() *time.Timer {
	t := time.NewTimer(0)
	if !t.Stop() {
		<-t.C
	}
	return t
}

func resetDebounceTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(debounce)
}
