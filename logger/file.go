package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/lumberjack"

	"github.com/kbukum/serverkit/errors"
)

// rollingFile is the rotating file destination. lumberjack handles size
// caps; time rotation is driven by a boundary timer. maxFiles bounds the
// files on disk including the active one.
type rollingFile struct {
	lj       *lumberjack.Logger
	rotation Rotation
	maxFiles int

	mu     sync.Mutex
	stop   chan struct{}
	done   chan struct{}
	closed bool
}

func openRollingFile(dir, appName string, rotation Rotation, maxFiles int) (*rollingFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.LogBackendInit("create log directory "+dir, err)
	}

	if maxFiles < 1 {
		maxFiles = 1
	}
	// MaxBackups counts rotated files only, and 0 means keep everything, so
	// a single-file limit is enforced by prune alone.
	lj := &lumberjack.Logger{
		Filename:   filepath.Join(dir, fileName(appName)),
		MaxSize:    DefaultMaxSizeMB,
		MaxBackups: maxFiles - 1,
		LocalTime:  true,
	}
	// lumberjack opens lazily; an empty write surfaces permission errors now.
	if _, err := lj.Write(nil); err != nil {
		return nil, errors.LogBackendInit("open log file "+lj.Filename, err)
	}

	rf := &rollingFile{
		lj:       lj,
		rotation: rotation,
		maxFiles: maxFiles,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go rf.rotateLoop()
	return rf, nil
}

func (f *rollingFile) Write(p []byte) (int, error) {
	return f.lj.Write(p)
}

func (f *rollingFile) rotateLoop() {
	defer close(f.done)
	if f.rotation == RotationNever {
		<-f.stop
		return
	}
	for {
		now := time.Now()
		timer := time.NewTimer(f.rotation.next(now).Sub(now))
		select {
		case <-f.stop:
			timer.Stop()
			return
		case <-timer.C:
			if err := f.rotate(); err != nil {
				fmt.Fprintf(os.Stderr, "logger: rotate %s: %v\n", f.lj.Filename, err)
			}
		}
	}
}

// rotate starts a new file and removes the oldest backups beyond maxFiles.
func (f *rollingFile) rotate() error {
	if err := f.lj.Rotate(); err != nil {
		return err
	}
	return f.prune()
}

// prune keeps the newest maxFiles-1 backups. Backup names embed a sortable
// timestamp between the file's base name and its extension.
func (f *rollingFile) prune() error {
	dir := filepath.Dir(f.lj.Filename)
	ext := filepath.Ext(f.lj.Filename)
	prefix := strings.TrimSuffix(filepath.Base(f.lj.Filename), ext) + "-"

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var backups []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ext) {
			backups = append(backups, name)
		}
	}
	keep := f.maxFiles - 1
	if len(backups) <= keep {
		return nil
	}
	sort.Strings(backups)

	var firstErr error
	for _, name := range backups[:len(backups)-keep] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close stops rotation and closes the current file. Safe to call twice.
func (f *rollingFile) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()

	close(f.stop)
	<-f.done
	return f.lj.Close()
}
