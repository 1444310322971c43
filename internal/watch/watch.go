// Package watch reports debounced file changes below a project root. The
// application uses it to evict changed files from the graph and re-seed.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rome/tools-sub007/internal/ctxlog"
)

// Op is the kind of change observed for a path.
type Op int

const (
	OpWrite Op = iota
	OpCreate
	OpRemove
)

func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpRemove:
		return "remove"
	default:
		return "write"
	}
}

// Change is one changed path in a batch.
type Change struct {
	Path string
	Op   Op
}

// Handler receives each debounced batch. Batches are delivered from a single
// goroutine, one at a time, sorted by path.
type Handler func(ctx context.Context, changes []Change)

// DefaultDebounce is the quiet period that closes a batch.
const DefaultDebounce = 100 * time.Millisecond

// DefaultIgnore lists directory names never watched.
var DefaultIgnore = []string{".git", ".hg", "node_modules"}

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	// Ignore holds base names or glob patterns of directories and files to skip.
	Ignore []string
}

// Watcher watches a directory tree.
type Watcher struct {
	root     string
	handler  Handler
	debounce time.Duration
	ignore   []string
	fsw      *fsnotify.Watcher

	closeOnce sync.Once
}

// New creates a watcher for root. Nothing is watched until Run.
func New(root string, handler Handler, opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Ignore == nil {
		opts.Ignore = DefaultIgnore
	}
	return &Watcher{
		root:     root,
		handler:  handler,
		debounce: opts.Debounce,
		ignore:   opts.Ignore,
		fsw:      fsw,
	}, nil
}

// Run watches until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if err := w.addTree(w.root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.root, err)
	}
	logger.Info("Watching for changes.", "root", w.root)

	pending := map[string]Op{}
	var timer <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.ignored(event.Name) {
				continue
			}
			op := convert(event.Op)
			if op == OpCreate {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						logger.Warn("Failed to watch new directory.", "path", event.Name, "error", err)
					}
				}
			}
			if prev, ok := pending[event.Name]; !ok || op > prev {
				pending[event.Name] = op
			}
			timer = time.After(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("File watcher error.", "error", err)

		case <-timer:
			timer = nil
			batch := make([]Change, 0, len(pending))
			for p, op := range pending {
				batch = append(batch, Change{Path: p, Op: op})
			}
			sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
			pending = map[string]Op{}
			logger.Debug("File changes detected.", "count", len(batch))
			w.handler(ctx, batch)
		}
	}
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() { err = w.fsw.Close() })
	return err
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && w.ignored(p) {
			return filepath.SkipDir
		}
		return w.fsw.Add(p)
	})
}

func (w *Watcher) ignored(p string) bool {
	base := filepath.Base(p)
	for _, pattern := range w.ignore {
		if base == pattern {
			return true
		}
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

func convert(op fsnotify.Op) Op {
	switch {
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return OpRemove
	case op.Has(fsnotify.Create):
		return OpCreate
	default:
		return OpWrite
	}
}
