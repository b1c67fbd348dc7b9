// Package watch runs a best-effort fsnotify watcher over the refs
// directory so a single process can notice refs changed by a cooperating
// process and invalidate anything it cached from them. Nothing in the
// core's correctness depends on this running; single-process access is
// still the supported model.
package watch

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// RefWatcher watches a refs directory and calls onChange (with the
// changed branch name) whenever a ref file is written underneath it.
type RefWatcher struct {
	watcher *fsnotify.Watcher
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewRefWatcher starts watching headsDir. Returns an error only if the
// underlying OS watch could not be established; callers that treat the
// watcher as optional may log and continue without one.
func NewRefWatcher(headsDir string, logger *zap.Logger, onChange func(branch string)) (*RefWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(headsDir); err != nil {
		w.Close()
		return nil, err
	}

	rw := &RefWatcher{watcher: w, logger: logger}

	go rw.loop(onChange)

	return rw, nil
}

func (rw *RefWatcher) loop(onChange func(branch string)) {
	for {
		select {
		case event, ok := <-rw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			branch := filepath.Base(event.Name)
			if onChange != nil {
				onChange(branch)
			}
		case err, ok := <-rw.watcher.Errors:
			if !ok {
				return
			}
			if rw.logger != nil {
				rw.logger.Warn("ref watcher error", zap.Error(err))
			}
		}
	}
}

// Close stops the watcher.
func (rw *RefWatcher) Close() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.closed {
		return nil
	}
	rw.closed = true
	return rw.watcher.Close()
}
