// Package watcher re-indexes source files as they change on disk.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/DeusData/symbol-indexer/internal/discover"
	"github.com/DeusData/symbol-indexer/internal/metrics"
)

// DefaultDebounce is the quiet period before a batch of events is indexed.
const DefaultDebounce = 500 * time.Millisecond

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

// Change is one file that differs from the last indexed snapshot.
type Change struct {
	RelPath string
	Removed bool
}

// IndexFunc is called with the changes of one debounced batch.
type IndexFunc func(ctx context.Context, changes []Change) error

// Watcher watches a source root and calls its IndexFunc for changed Java
// and Python files.
type Watcher struct {
	root     string
	opts     *discover.Options
	matcher  *discover.Matcher
	debounce time.Duration
	indexFn  IndexFunc
	fs       *fsnotify.Watcher
	snapshot map[string]fileSnapshot
}

// New prepares a watcher for root. debounce <= 0 selects DefaultDebounce.
func New(root string, opts *discover.Options, debounce time.Duration, indexFn IndexFunc) (*Watcher, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	m, err := discover.NewMatcher(root, opts)
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{root: root, opts: opts, matcher: m, debounce: debounce, indexFn: indexFn}, nil
}

// Run blocks until ctx is cancelled. The first snapshot is a baseline and
// triggers no indexing.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer fsw.Close()
	w.fs = fsw
	if err := w.watchRecursive(w.root); err != nil {
		return err
	}
	if w.snapshot, err = captureSnapshot(ctx, w.root, w.opts); err != nil {
		return err
	}
	slog.Info("watcher.baseline", "root", w.root, "files", len(w.snapshot))

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			metrics.WatcherEventsTotal.Inc()
			if w.handle(ev) {
				pending = true
				timer.Reset(w.debounce)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher.fsnotify", "err", err)
		case <-timer.C:
			if pending {
				pending = false
				w.flush(ctx)
			}
		}
	}
}

// handle reports whether ev may change the index.
func (w *Watcher) handle(ev fsnotify.Event) bool {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if w.matcher.SkipDir(info.Name(), rel) {
				return false
			}
			if err := w.watchRecursive(ev.Name); err != nil {
				slog.Warn("watcher.add_dir", "path", rel, "err", err)
			}
			return true
		}
	}
	if _, ok := w.matcher.Language(rel); !ok {
		// A removed directory shows up as a single event.
		return ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

// flush indexes the difference between the stored and the current tree.
// A failed batch keeps the old snapshot so the next event retries it.
func (w *Watcher) flush(ctx context.Context) {
	snap, err := captureSnapshot(ctx, w.root, w.opts)
	if err != nil {
		slog.Warn("watcher.snapshot", "err", err)
		return
	}
	changes := diffSnapshots(w.snapshot, snap)
	if len(changes) == 0 {
		return
	}
	slog.Info("watcher.changed", "files", len(changes))
	if err := w.indexFn(ctx, changes); err != nil {
		slog.Warn("watcher.index", "err", err)
		return
	}
	w.snapshot = snap
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(w.root, path)
		rel = filepath.ToSlash(rel)
		if rel != "." && w.matcher.SkipDir(d.Name(), rel) {
			return filepath.SkipDir
		}
		return w.fs.Add(path)
	})
}

// captureSnapshot records mtime and size of every discovered file.
func captureSnapshot(ctx context.Context, root string, opts *discover.Options) (map[string]fileSnapshot, error) {
	files, err := discover.Discover(ctx, root, opts)
	if err != nil {
		return nil, err
	}
	snap := make(map[string]fileSnapshot, len(files))
	for _, f := range files {
		info, statErr := os.Stat(f.Path)
		if statErr != nil {
			continue
		}
		snap[f.RelPath] = fileSnapshot{modTime: info.ModTime(), size: info.Size()}
	}
	return snap, nil
}

// diffSnapshots lists added, modified and removed files, sorted by path.
func diffSnapshots(before, after map[string]fileSnapshot) []Change {
	var out []Change
	for path, a := range after {
		b, ok := before[path]
		if !ok || !a.modTime.Equal(b.modTime) || a.size != b.size {
			out = append(out, Change{RelPath: path})
		}
	}
	for path := range before {
		if _, ok := after[path]; !ok {
			out = append(out, Change{RelPath: path, Removed: true})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RelPath < out[j].RelPath })
	return out
}
