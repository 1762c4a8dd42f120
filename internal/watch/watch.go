// Package watch re-runs analysis when source files change on disk.
// Events are debounced so editor save bursts and branch switches
// collapse into a single callback.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"fsdlint/internal/logging"
	"fsdlint/internal/project"
)

// DefaultDebounce is the settle window applied when Options.Debounce
// is zero.
const DefaultDebounce = 400 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Root is the source tree to watch.
	Root string
	// Exclude carries the scanner's exclude patterns; events under
	// excluded paths are dropped.
	Exclude []string
	// Debounce is how long a path must stay quiet before it is
	// reported. Zero means DefaultDebounce.
	Debounce time.Duration
	// OnChange receives the root-relative paths of a settled burst,
	// deduplicated and sorted. It runs on the watcher goroutine, so a
	// slow callback delays the next batch but never drops events.
	OnChange func(changed []string)
}

// Watcher watches a source root recursively and reports settled
// batches of changed files.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	root        string
	excluder    *project.Excluder
	exts        map[string]struct{}
	onChange    func([]string)
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// New validates the options and prepares a watcher. Nothing is watched
// until Start is called.
func New(opts Options) (*Watcher, error) {
	if opts.OnChange == nil {
		return nil, fmt.Errorf("watch: OnChange callback is required")
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch: %s is not a directory", opts.Root)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	exts := make(map[string]struct{})
	for _, e := range project.SupportedExtensions() {
		exts[e] = struct{}{}
	}

	return &Watcher{
		watcher:     fw,
		root:        root,
		excluder:    project.NewExcluder(opts.Exclude),
		exts:        exts,
		onChange:    opts.OnChange,
		debounceMap: make(map[string]time.Time),
		debounceDur: debounce,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start adds the root's directory tree to the watcher and begins
// handling events on a background goroutine. Non-blocking; calling
// Start on a running watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addRecursive(w.root); err != nil {
		return err
	}
	logging.L(logging.CategoryWatch).Debug("watching",
		zap.String("root", w.root),
		zap.Int("dirs", len(w.watcher.WatchList())),
		zap.Duration("debounce", w.debounceDur))

	go w.run(ctx)
	return nil
}

// Stop shuts the watcher down and waits for the event loop to drain.
// Safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.L(logging.CategoryWatch).Warn("error closing watcher", zap.Error(err))
	}
}

// IsWatching reports whether the event loop is running.
func (w *Watcher) IsWatching() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// WatchedDirs returns the directories currently being watched, sorted.
func (w *Watcher) WatchedDirs() []string {
	dirs := w.watcher.WatchList()
	sort.Strings(dirs)
	return dirs
}

// run is the event loop. It exits when the context is cancelled, Stop
// is called, or the fsnotify channels close.
func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	log := logging.L(logging.CategoryWatch)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error("watch error", zap.Error(err))
		case <-ticker.C:
			w.flushSettled()
		}
	}
}

// handleEvent filters one filesystem event and records survivors in
// the debounce map. Newly created directories are added to the watch
// set immediately so files written into them are not missed.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	rel, ok := w.relPath(event.Name)
	if !ok || w.ignored(rel) {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			// Generators and git checkouts create whole subtrees at
			// once; walk the new directory rather than just adding it.
			if err := w.addRecursive(event.Name); err != nil {
				logging.L(logging.CategoryWatch).Warn("failed to watch new directory",
					zap.String("dir", rel), zap.Error(err))
			}
			return
		}
	}

	if _, lintable := w.exts[strings.ToLower(path.Ext(rel))]; !lintable {
		return
	}

	switch {
	case event.Op&fsnotify.Create != 0:
	case event.Op&fsnotify.Write != 0:
	case event.Op&fsnotify.Remove != 0:
	case event.Op&fsnotify.Rename != 0:
	default:
		return // chmod and friends
	}

	w.mu.Lock()
	w.debounceMap[rel] = time.Now()
	w.mu.Unlock()
}

// flushSettled reports paths whose last event is older than the
// debounce window.
func (w *Watcher) flushSettled() {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for rel, last := range w.debounceMap {
		if now.Sub(last) >= w.debounceDur {
			settled = append(settled, rel)
			delete(w.debounceMap, rel)
		}
	}
	w.mu.Unlock()

	if len(settled) == 0 {
		return
	}
	sort.Strings(settled)
	logging.L(logging.CategoryWatch).Debug("changes settled", zap.Strings("files", settled))
	w.onChange(settled)
}

// addRecursive watches dir and every non-hidden, non-excluded
// directory below it.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Entries can vanish mid-walk during bursts of changes.
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, ok := w.relPath(p)
		if !ok {
			return filepath.SkipDir
		}
		if w.ignored(rel) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			logging.L(logging.CategoryWatch).Warn("failed to watch directory",
				zap.String("dir", rel), zap.Error(err))
		}
		return nil
	})
}

// relPath converts an absolute event path to a root-relative slash
// path. ok is false for paths outside the root.
func (w *Watcher) relPath(p string) (string, bool) {
	rel, err := filepath.Rel(w.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// ignored reports whether a root-relative path is hidden or excluded.
// The root itself is never ignored.
func (w *Watcher) ignored(rel string) bool {
	if rel == "." {
		return false
	}
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return w.excluder.Match(rel)
}
