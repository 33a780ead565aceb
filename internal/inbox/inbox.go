// Package inbox watches a drop directory and hands every file that lands
// in it to an import function, then files it under processed/ or failed/.
package inbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// HandleFunc imports one file. A nil error moves the file to the
// processed directory; any error moves it to the failed directory.
type HandleFunc func(ctx context.Context, path string) error

// Result reports what happened to one file.
type Result struct {
	Path string    // original path in the inbox
	Dest string    // where the file was moved; empty if the move failed
	Err  error     // handler or move error
	Time time.Time // when processing finished
}

// Options configures a Watcher.
type Options struct {
	// Settle is how long a file must go without writes before it is
	// handled, so partially copied files are not imported.
	Settle time.Duration
	// ProcessedDir and FailedDir default to subdirectories of the inbox.
	ProcessedDir string
	FailedDir    string
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() *Options {
	return &Options{Settle: 2 * time.Second}
}

// Watcher watches one directory. Files are handled one at a time in the
// order they settle.
type Watcher struct {
	dir    string
	opts   *Options
	handle HandleFunc

	watcher *fsnotify.Watcher
	pending map[string]*time.Timer
	queue   chan string
	results chan Result
	done    chan struct{}

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

// New creates a Watcher for dir. The processed and failed directories
// are created if missing.
func New(dir string, handle HandleFunc, opts *Options) (*Watcher, error) {
	if handle == nil {
		return nil, fmt.Errorf("handle function is required")
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.ProcessedDir == "" {
		opts.ProcessedDir = filepath.Join(dir, "processed")
	}
	if opts.FailedDir == "" {
		opts.FailedDir = filepath.Join(dir, "failed")
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat inbox: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("inbox %s is not a directory", dir)
	}
	for _, d := range []string{opts.ProcessedDir, opts.FailedDir} {
		if err := os.MkdirAll(d, 0750); err != nil {
			return nil, fmt.Errorf("create %s: %w", d, err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Watcher{
		dir:     dir,
		opts:    opts,
		handle:  handle,
		watcher: watcher,
		pending: make(map[string]*time.Timer),
		queue:   make(chan string, 64),
		results: make(chan Result, 64),
		done:    make(chan struct{}),
	}, nil
}

// Results returns a channel that reports every handled file. It is
// closed by Stop.
func (w *Watcher) Results() <-chan Result {
	return w.results
}

// Start queues files already in the inbox and begins watching for new
// ones.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", w.dir, err)
	}

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("read inbox: %w", err)
	}
	for _, e := range entries {
		if e.Type().IsRegular() && !ignored(e.Name()) {
			w.schedule(filepath.Join(w.dir, e.Name()))
		}
	}

	w.wg.Add(2)
	go w.watchEvents(ctx)
	go w.process(ctx)
	return nil
}

// Stop stops watching and waits for the file in progress.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	close(w.done)
	w.watcher.Close()

	w.wg.Wait()
	close(w.results)
}

// ignored skips hidden files and in-flight copies.
func ignored(name string) bool {
	return strings.HasPrefix(name, ".") ||
		strings.HasSuffix(name, ".part") ||
		strings.HasSuffix(name, ".tmp")
}

func (w *Watcher) watchEvents(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if filepath.Dir(event.Name) != filepath.Clean(w.dir) || ignored(filepath.Base(event.Name)) {
				continue
			}
			if info, err := os.Stat(event.Name); err != nil || !info.Mode().IsRegular() {
				continue
			}
			w.schedule(event.Name)
		case <-w.watcher.Errors:
			// Ignore errors from the directory watcher
		}
	}
}

// schedule (re)starts the settle timer for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	if t, ok := w.pending[path]; ok {
		t.Reset(w.opts.Settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.opts.Settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		closed := w.closed
		w.mu.Unlock()
		if closed {
			return
		}
		select {
		case w.queue <- path:
		case <-w.done:
		}
	})
}

func (w *Watcher) process(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case path := <-w.queue:
			if _, err := os.Stat(path); err != nil {
				// Already moved or deleted.
				continue
			}
			res := Result{Path: path}
			res.Err = w.handle(ctx, path)

			destDir := w.opts.ProcessedDir
			if res.Err != nil {
				destDir = w.opts.FailedDir
			}
			dest, err := moveInto(path, destDir)
			if err != nil && res.Err == nil {
				res.Err = err
			}
			res.Dest = dest
			res.Time = time.Now()

			select {
			case w.results <- res:
			case <-w.done:
				return
			}
		}
	}
}

// moveInto renames path into dir, suffixing the name with a timestamp
// when a file of the same name is already there.
func moveInto(path, dir string) (string, error) {
	base := filepath.Base(path)
	dest := filepath.Join(dir, base)
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(base)
		dest = filepath.Join(dir, fmt.Sprintf("%s.%d%s", strings.TrimSuffix(base, ext), time.Now().UnixNano(), ext))
	}
	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("move %s: %w", base, err)
	}
	return dest, nil
}
