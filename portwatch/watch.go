package portwatch

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kbukum/serverkit/errors"
	"github.com/kbukum/serverkit/logger"
)

type options struct {
	timeout time.Duration
}

// Option configures Watch.
type Option func(*options)

// WithTimeout fails the watch with WATCH_FAILURE after d. Without it Watch
// only returns on a valid write, a watcher error, or ctx being done.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// Watch waits for path to be created or written with a valid port. Writes
// that do not parse are ignored, as are deletes, renames and content that
// was already there before the watch started.
//
// The parent directory is watched, so path may not exist yet.
func Watch(ctx context.Context, path string, opts ...Option) (uint16, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	target, err := filepath.Abs(path)
	if err != nil {
		return 0, errors.WatchFailure(path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return 0, errors.WatchFailure(path, err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(target)); err != nil {
		return 0, errors.WatchFailure(path, err)
	}

	log := logger.WithComponent("portwatch")
	log.Debug("waiting for port file", logger.Fields("path", target))

	for {
		select {
		case <-ctx.Done():
			return 0, errors.WatchFailure(path, ctx.Err())

		case event, ok := <-w.Events:
			if !ok {
				return 0, errors.WatchFailure(path, errEventsClosed)
			}
			if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Create|fsnotify.Write) {
				continue
			}
			port, ok := readPort(target)
			if !ok {
				continue
			}
			log.Debug("port resolved", logger.Fields("path", target, "port", port))
			return port, nil

		case err, ok := <-w.Errors:
			if !ok {
				return 0, errors.WatchFailure(path, errEventsClosed)
			}
			return 0, errors.WatchFailure(path, err)
		}
	}
}

var errEventsClosed = errors.New(errors.ErrCodeWatchFailure, "watcher event channel closed")

// readPort reads the whole file and parses its trimmed content.
func readPort(path string) (uint16, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	n, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 16)
	if err != nil {
		return 0, false
	}
	return uint16(n), true
}
