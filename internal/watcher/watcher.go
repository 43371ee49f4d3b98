// Package watcher imports elevator load files as they land in a downloads
// directory.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/farmbooks-dev/farmbooks/internal/importer"
)

// DefaultInterval is how long a file's size must hold still before it is
// considered completely written.
const DefaultInterval = time.Second

// Handler processes one finished file.
type Handler func(ctx context.Context, path string) error

// Options configure a Watcher.
type Options struct {
	Dir string
	// Prefix restricts processing to file names starting with it.
	Prefix   string
	Interval time.Duration
	Logger   *slog.Logger
}

// Watcher calls a Handler for every matching CSV created in a directory.
type Watcher struct {
	opts   Options
	handle Handler
	log    *slog.Logger
	fw     *fsnotify.Watcher
}

// New returns a Watcher. Call Open before Run.
func New(opts Options, handle Handler) *Watcher {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{opts: opts, handle: handle, log: log.With("dir", opts.Dir)}
}

// Open starts watching the directory.
func (w *Watcher) Open() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	if err := fw.Add(w.opts.Dir); err != nil {
		_ = fw.Close()
		return fmt.Errorf("watching %s: %w", w.opts.Dir, err)
	}
	w.fw = fw
	return nil
}

// Run processes create events until ctx is done, then closes the watcher.
// Handler errors are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	if w.fw == nil {
		return errors.New("watcher is not open")
	}
	defer func() { _ = w.fw.Close() }()
	w.log.Info("monitoring directory", "prefix", w.opts.Prefix)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			w.process(ctx, event.Name)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("file watcher error", "err", err)
		}
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	log := w.log.With("file", filepath.Base(path))
	if !importer.Matches(filepath.Base(path), w.opts.Prefix) {
		log.Debug("ignoring file")
		return
	}
	size, err := WaitStable(ctx, path, w.opts.Interval)
	if errors.Is(err, fs.ErrNotExist) {
		log.Info("temp file deleted, ignoring")
		return
	}
	if err != nil {
		log.Warn("invalid or incomplete file", "err", err)
		return
	}
	log.Info("file transfer complete", "size", size)
	if err := w.handle(ctx, path); err != nil {
		log.Warn("import failed", "err", err)
	}
}

// WaitStable polls path until two consecutive sizes match and returns the
// final size.
func WaitStable(ctx context.Context, path string, interval time.Duration) (int64, error) {
	last := int64(-1)
	for {
		info, err := os.Stat(path)
		if err != nil {
			return 0, err
		}
		if info.Size() == last {
			return last, nil
		}
		last = info.Size()

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(interval):
		}
	}
}
