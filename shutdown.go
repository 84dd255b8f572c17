package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// uploadTracker remembers which file the watcher is uploading so that a
// shutdown request can say what it is waiting for, or what it interrupted.
type uploadTracker struct {
	mu      sync.Mutex
	path    string
	started time.Time
}

func (t *uploadTracker) begin(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.path = path
	t.started = time.Now()
}

func (t *uploadTracker) end() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.path = ""
}

// current returns the in-flight path, or "" between uploads.
func (t *uploadTracker) current() (string, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.path == "" {
		return "", 0
	}

	return t.path, time.Since(t.started)
}

// watchShutdown turns SIGINT/SIGTERM into a graceful stop of the watcher.
// The first signal cancels the returned context; the watcher notices it once
// the in-flight upload has finished. A second signal aborts the process.
type watchShutdown struct {
	logger  *slog.Logger
	tracker *uploadTracker
	exit    func(code int)
}

func newWatchShutdown(logger *slog.Logger, tracker *uploadTracker) *watchShutdown {
	return &watchShutdown{logger: logger, tracker: tracker, exit: os.Exit}
}

// context listens for process signals until parent is done.
func (s *watchShutdown) context(parent context.Context) context.Context {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ctx := s.listen(parent, sigCh)

	go func() {
		<-parent.Done()
		signal.Stop(sigCh)
	}()

	return ctx
}

// listen drives the two-stage shutdown from sigCh.
func (s *watchShutdown) listen(parent context.Context, sigCh <-chan os.Signal) context.Context {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		select {
		case sig := <-sigCh:
			s.stopping(sig)
			cancel()
		case <-ctx.Done():
			return
		}

		select {
		case sig := <-sigCh:
			s.aborting(sig)
			s.exit(1)
		case <-parent.Done():
			return
		}
	}()

	return ctx
}

func (s *watchShutdown) stopping(sig os.Signal) {
	path, elapsed := s.tracker.current()
	if path == "" {
		s.logger.Info("received signal, stopping watcher", slog.String("signal", sig.String()))

		return
	}

	s.logger.Info("received signal, stopping after the current upload",
		slog.String("signal", sig.String()),
		slog.String("path", path),
		slog.Duration("elapsed", elapsed),
	)
}

func (s *watchShutdown) aborting(sig os.Signal) {
	path, _ := s.tracker.current()
	if path == "" {
		s.logger.Warn("received second signal, exiting", slog.String("signal", sig.String()))

		return
	}

	s.logger.Warn("received second signal, abandoning upload",
		slog.String("signal", sig.String()),
		slog.String("path", path),
	)
}
