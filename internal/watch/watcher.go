// Package watch turns filesystem activity under a directory into a sequence
// of settled file paths. A path is handed to the handler once it has been
// quiet for the settle time, and handlers run one at a time.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Defaults and error backoff bounds.
const (
	DefaultSettleTime   = 2 * time.Second
	minTick             = 10 * time.Millisecond
	watchErrInitBackoff = time.Second
	watchErrMaxBackoff  = 30 * time.Second
	watchErrBackoffMult = 2
)

// FsWatcher is the subset of *fsnotify.Watcher the loop needs.
type FsWatcher interface {
	Add(name string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

// fsnotifyWatcher adapts *fsnotify.Watcher, whose channels are fields, to
// FsWatcher.
type fsnotifyWatcher struct {
	w *fsnotify.Watcher
}

func (f fsnotifyWatcher) Add(name string) error { return f.w.Add(name) }
func (f fsnotifyWatcher) Close() error { return f.w.Close() }
func (f fsnotifyWatcher) Events() <-chan fsnotify.Event { return f.w.Events }
func (f fsnotifyWatcher) Errors() <-chan error { return f.w.Errors }

func newFsnotifyWatcher() (FsWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return fsnotifyWatcher{w: w}, nil
}

// Handler processes one settled file. Errors are logged and the watch goes on.
type Handler func(ctx context.Context, path string) error

// Options configures a Watcher.
type Options struct {
	Logger     *slog.Logger
	SettleTime time.Duration
	// NewFsWatcher overrides the fsnotify constructor in tests.
	NewFsWatcher func() (FsWatcher, error)
}

// Watcher feeds settled files under a directory to a Handler.
type Watcher struct {
	logger     *slog.Logger
	settle     time.Duration
	newWatcher func() (FsWatcher, error)
	sleep      func(ctx context.Context, d time.Duration) error
}

// New creates a Watcher.
func New(opts Options) *Watcher {
	w := &Watcher{
		logger:     opts.Logger,
		settle:     opts.SettleTime,
		newWatcher: opts.NewFsWatcher,
		sleep:      sleepCtx,
	}

	if w.logger == nil {
		w.logger = slog.Default()
	}

	if w.settle <= 0 {
		w.settle = DefaultSettleTime
	}

	if w.newWatcher == nil {
		w.newWatcher = newFsnotifyWatcher
	}

	return w
}

// Run watches dir until ctx is cancelled. Files already present are queued
// at start. Cancellation is only observed between handler calls; a running
// handler receives a context that is not cancelled with ctx.
func (w *Watcher) Run(ctx context.Context, dir string, handle Handler) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("watch: %s is not a directory", dir)
	}

	fw, err := w.newWatcher()
	if err != nil {
		return fmt.Errorf("watch: creating watcher: %w", err)
	}
	defer fw.Close()

	l := &loop{
		Watcher: w,
		fw:      fw,
		root:    dir,
		handle:  handle,
		pending: make(map[string]time.Time),
	}

	l.addTree(dir)

	w.logger.Info("watching for new files",
		slog.String("dir", dir),
		slog.Duration("settle_time", w.settle),
	)

	return l.run(ctx)
}

// loop is the state of one Run call.
type loop struct {
	*Watcher
	fw      FsWatcher
	root    string
	handle  Handler
	pending map[string]time.Time
}

func (l *loop) run(ctx context.Context) error {
	tick := max(l.settle/2, minTick)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	errBackoff := watchErrInitBackoff

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-l.fw.Events():
			if !ok {
				return nil
			}

			l.handleEvent(ev)

			errBackoff = watchErrInitBackoff

		case watchErr, ok := <-l.fw.Errors():
			if !ok {
				return nil
			}

			l.logger.Warn("filesystem watcher error",
				slog.String("error", watchErr.Error()),
				slog.Duration("backoff", errBackoff),
			)

			if err := l.sleep(ctx, errBackoff); err != nil {
				return nil
			}

			errBackoff = min(errBackoff*watchErrBackoffMult, watchErrMaxBackoff)

		case now := <-ticker.C:
			if stop := l.flush(ctx, now); stop {
				return nil
			}
		}
	}
}

func (l *loop) handleEvent(ev fsnotify.Event) {
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}

	if l.ignored(ev.Name) {
		return
	}

	switch {
	case ev.Has(fsnotify.Create):
		info, err := os.Stat(ev.Name)
		if err != nil {
			l.logger.Debug("stat failed for created path",
				slog.String("path", ev.Name), slog.String("error", err.Error()))

			return
		}

		if info.IsDir() {
			l.addTree(ev.Name)

			return
		}

		l.touch(ev.Name)

	case ev.Has(fsnotify.Write):
		l.touch(ev.Name)

	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		delete(l.pending, ev.Name)
	}
}

func (l *loop) touch(path string) {
	l.pending[path] = time.Now()
}

// flush hands every settled path to the handler in lexical order. It reports
// true when ctx was cancelled.
func (l *loop) flush(ctx context.Context, now time.Time) bool {
	var ready []string

	for path, last := range l.pending {
		if now.Sub(last) >= l.settle {
			ready = append(ready, path)
		}
	}

	slices.Sort(ready)

	for _, path := range ready {
		if ctx.Err() != nil {
			return true
		}

		delete(l.pending, path)

		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		l.logger.Debug("file settled", slog.String("path", path))

		if err := l.handle(context.WithoutCancel(ctx), path); err != nil {
			l.logger.Error("handling file failed",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
	}

	return ctx.Err() != nil
}

// addTree watches dir and every non-hidden directory below it, and queues
// the files already there.
func (l *loop) addTree(dir string) {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			l.logger.Debug("walk error", slog.String("path", path), slog.String("error", err.Error()))

			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if path != l.root && l.ignored(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if d.IsDir() {
			if addErr := l.fw.Add(path); addErr != nil {
				l.logger.Warn("failed to add watch on directory",
					slog.String("path", path), slog.String("error", addErr.Error()))
			}

			return nil
		}

		if d.Type().IsRegular() {
			l.touch(path)
		}

		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		l.logger.Warn("scanning directory failed", slog.String("dir", dir), slog.String("error", err.Error()))
	}
}

// ignored reports whether any component of path below the root is hidden.
func (l *loop) ignored(path string) bool {
	rel, err := filepath.Rel(l.root, path)
	if err != nil {
		return true
	}

	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}

	return false
}

// sleepCtx waits for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
