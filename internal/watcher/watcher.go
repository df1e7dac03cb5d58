// Package watcher processes videos dropped into a directory.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler processes one video file.
type Handler func(ctx context.Context, path string) error

const (
	defaultConcurrency = 2
	defaultSettle      = 500 * time.Millisecond
)

var videoExts = map[string]bool{
	".mp4": true, ".mov": true, ".m4v": true, ".mkv": true, ".webm": true, ".avi": true,
}

// IsVideo reports whether path has a supported video extension.
func IsVideo(path string) bool {
	return videoExts[strings.ToLower(filepath.Ext(path))]
}

type Watcher struct {
	dir    string
	handle Handler
	log    *slog.Logger
	fw     *fsnotify.Watcher
	sem    chan struct{}
	wg     sync.WaitGroup
	// settle is the polling step used to wait for a file to stop growing.
	settle time.Duration

	mu       sync.Mutex
	inflight map[string]bool
}

func New(dir string, h Handler, log *slog.Logger, concurrency int) (*Watcher, error) {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}
	return &Watcher{
		dir:      dir,
		handle:   h,
		log:      log,
		fw:       fw,
		sem:      make(chan struct{}, concurrency),
		settle:   defaultSettle,
		inflight: map[string]bool{},
	}, nil
}

// Run dispatches new videos until ctx is done, then waits for in-flight jobs.
func (w *Watcher) Run(ctx context.Context) error {
	w.log.Info("watching", "dir", w.dir, "concurrency", cap(w.sem))
	defer w.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("watcher stopping, waiting for running jobs")
			return ctx.Err()

		case ev, ok := <-w.fw.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if !IsVideo(ev.Name) {
				w.log.Debug("ignoring non-video file", "path", ev.Name)
				continue
			}
			if !w.claim(ev.Name) {
				continue
			}
			select {
			case w.sem <- struct{}{}:
			case <-ctx.Done():
				w.release(ev.Name)
				return ctx.Err()
			}
			w.wg.Add(1)
			go w.process(ctx, ev.Name)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.log.Error("watcher error", "err", err)
		}
	}
}

func (w *Watcher) Close() error {
	return w.fw.Close()
}

func (w *Watcher) process(ctx context.Context, path string) {
	defer w.wg.Done()
	defer func() { <-w.sem }()
	defer w.release(path)

	if err := waitStable(ctx, path, w.settle); err != nil {
		w.log.Warn("skipping file", "path", path, "err", err)
		return
	}
	w.log.Info("new video", "path", path)
	if err := w.handle(ctx, path); err != nil {
		w.log.Error("processing failed", "path", path, "err", err)
	}
}

// claim marks path as in flight; false when it already is.
func (w *Watcher) claim(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inflight[path] {
		return false
	}
	w.inflight[path] = true
	return true
}

func (w *Watcher) release(path string) {
	w.mu.Lock()
	delete(w.inflight, path)
	w.mu.Unlock()
}

// waitStable returns once the file size is non-zero and unchanged across two
// consecutive polls.
func waitStable(ctx context.Context, path string, step time.Duration) error {
	last := int64(-1)
	t := time.NewTicker(step)
	defer t.Stop()
	for {
		st, err := os.Stat(path)
		if err != nil {
			return err
		}
		if st.IsDir() {
			return fmt.Errorf("%s is a directory", path)
		}
		if st.Size() > 0 && st.Size() == last {
			return nil
		}
		last = st.Size()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
