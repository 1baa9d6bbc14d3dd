// Package watch auto-imports documents dropped into an inbox directory.
// Two triggers feed one processing path: filesystem notifications
// (debounced, so half-written files settle first) and a periodic sweep
// that catches files the notifier missed.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"github.com/caseward/manualforge/internal/importer"
	"github.com/caseward/manualforge/internal/ingest"
)

const (
	processedDir = "processed"
	failedDir    = "failed"

	debounce = 2 * time.Second
)

// Importer is the commit surface the watcher drives.
type Importer interface {
	Commit(ctx context.Context, doc importer.Document, opts importer.Options, actorID string) (string, error)
}

// Watcher monitors one inbox directory.
type Watcher struct {
	dir       string
	imp       Importer
	opts      importer.Options
	actorID   string
	sweepEach time.Duration

	watcher   *fsnotify.Watcher
	scheduler gocron.Scheduler

	mu      sync.Mutex
	pending map[string]*time.Timer
	busy    map[string]bool
}

// New creates a watcher over dir. Files import with opts as actorID;
// sweepEach is the periodic full-scan interval.
func New(dir string, imp Importer, opts importer.Options, actorID string, sweepEach time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Watcher{
		dir:       dir,
		imp:       imp,
		opts:      opts,
		actorID:   actorID,
		sweepEach: sweepEach,
		watcher:   fsw,
		scheduler: sched,
		pending:   map[string]*time.Timer{},
		busy:      map[string]bool{},
	}, nil
}

// Start watches until ctx is cancelled. The inbox and its processed/failed
// subdirectories are created if missing.
func (w *Watcher) Start(ctx context.Context) error {
	for _, d := range []string{w.dir, filepath.Join(w.dir, processedDir), filepath.Join(w.dir, failedDir)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create inbox directory %s: %w", d, err)
		}
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch inbox %s: %w", w.dir, err)
	}

	if _, err := w.scheduler.NewJob(
		gocron.DurationJob(w.sweepEach),
		gocron.NewTask(func() { w.Sweep(ctx) }),
		gocron.WithName("inbox-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return fmt.Errorf("schedule inbox sweep: %w", err)
	}
	w.scheduler.Start()

	slog.Info("Inbox watcher started", "dir", w.dir, "sweep_interval", w.sweepEach)

	// Catch anything already sitting in the inbox.
	w.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return w.stop()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return w.stop()
			}
			if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) {
				w.schedule(ctx, event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return w.stop()
			}
			slog.Warn("Inbox watcher error", "error", err)
		}
	}
}

func (w *Watcher) stop() error {
	_ = w.watcher.Close()
	if err := w.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	return nil
}

// schedule debounces per-file events so a file still being written is not
// imported mid-copy.
func (w *Watcher) schedule(ctx context.Context, path string) {
	if !importable(path) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[path]; ok {
		timer.Reset(debounce)
		return
	}
	w.pending[path] = time.AfterFunc(debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.process(ctx, path)
	})
}

// Sweep imports every eligible file currently in the inbox.
func (w *Watcher) Sweep(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		slog.Warn("Inbox sweep failed", "dir", w.dir, "error", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if importable(path) {
			w.process(ctx, path)
		}
	}
}

// claim marks path as in flight. It returns false when another trigger
// (sweep or debounce timer) already holds it.
func (w *Watcher) claim(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy[path] {
		return false
	}
	w.busy[path] = true
	return true
}

func (w *Watcher) release(path string) {
	w.mu.Lock()
	delete(w.busy, path)
	w.mu.Unlock()
}

// process imports one file and moves it to processed/ or failed/. The
// sweep and the debounce timer can both reach the same file; the claim
// ensures only one of them imports it. On a cancelled context the file is
// left in place for the next run.
func (w *Watcher) process(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	if !w.claim(path) {
		return
	}
	defer w.release(path)

	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return // already handled by a competing trigger
		}
		slog.Warn("Failed to read inbox file", "path", path, "error", err)
		return
	}

	name := filepath.Base(path)
	manualID, err := w.imp.Commit(ctx, importer.Document{Filename: name, Payload: payload}, w.opts, w.actorID)
	if err != nil {
		slog.Error("Inbox import failed", "file", name, "error", err)
		w.move(path, failedDir)
		return
	}

	slog.Info("Inbox file imported", "file", name, "manual_id", manualID)
	w.move(path, processedDir)
}

func (w *Watcher) move(path, sub string) {
	dest := filepath.Join(w.dir, sub, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		slog.Warn("Failed to move inbox file", "from", path, "to", dest, "error", err)
	}
}

func importable(path string) bool {
	_, err := ingest.DetectKind(path)
	return err == nil
}
