package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeFunc receives the project directories whose files settled after a
// change.
type ChangeFunc func(ctx context.Context, dirs []string)

// Watcher reports debounced changes to manifests and marker files of known
// project directories.
type Watcher struct {
	watcher      *fsnotify.Watcher
	onChange     ChangeFunc
	logger       *slog.Logger
	overrideFile string
	// projects maps each watched directory to its project directory.
	projects map[string]string

	mu          sync.Mutex
	pending     map[string]time.Time
	debounceDur time.Duration
	tick        time.Duration
}

// NewWatcher watches each project directory under roots, plus any marker
// subdirectory (such as prisma/) present when the watcher starts. An empty
// overrideFile uses DefaultOverrideFile.
func NewWatcher(roots []string, overrideFile string, onChange ChangeFunc, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if overrideFile == "" {
		overrideFile = DefaultOverrideFile
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	w := &Watcher{
		watcher:      fw,
		onChange:     onChange,
		logger:       logger,
		overrideFile: overrideFile,
		projects:     make(map[string]string),
		pending:      make(map[string]time.Time),
		debounceDur:  500 * time.Millisecond,
		tick:         100 * time.Millisecond,
	}
	for _, root := range roots {
		dirs, err := Find(root)
		if err != nil {
			fw.Close()
			return nil, err
		}
		for _, dir := range dirs {
			w.add(dir, dir)
			for _, sub := range markerDirs() {
				subdir := filepath.Join(dir, sub)
				if info, err := os.Stat(subdir); err == nil && info.IsDir() {
					w.add(subdir, dir)
				}
			}
		}
	}
	return w, nil
}

func (w *Watcher) add(dir, project string) {
	if err := w.watcher.Add(dir); err != nil {
		w.logger.Warn("cannot watch project", "path", dir, "error", err)
		return
	}
	w.projects[dir] = project
}

// markerDirs lists the subdirectories that hold marker files.
func markerDirs() []string {
	var dirs []string
	for _, m := range markerFiles {
		if d := path.Dir(m); d != "." && !slices.Contains(dirs, filepath.FromSlash(d)) {
			dirs = append(dirs, filepath.FromSlash(d))
		}
	}
	return dirs
}

// Watched returns the directories currently watched.
func (w *Watcher) Watched() []string {
	list := w.watcher.WatchList()
	sort.Strings(list)
	return list
}

// Run processes events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		case <-ticker.C:
			if dirs := w.settled(time.Now()); len(dirs) > 0 {
				w.onChange(ctx, dirs)
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) &&
		!ev.Op.Has(fsnotify.Remove) && !ev.Op.Has(fsnotify.Rename) {
		return
	}
	if !w.relevant(filepath.Base(ev.Name)) {
		return
	}
	dir := filepath.Dir(ev.Name)
	if project, ok := w.projects[dir]; ok {
		dir = project
	}
	w.mu.Lock()
	w.pending[dir] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) settled(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var dirs []string
	for dir, at := range w.pending {
		if now.Sub(at) >= w.debounceDur {
			dirs = append(dirs, dir)
			delete(w.pending, dir)
		}
	}
	sort.Strings(dirs)
	return dirs
}

func (w *Watcher) relevant(name string) bool {
	if name == "package.json" || name == w.overrideFile {
		return true
	}
	for _, m := range markerFiles {
		if filepath.Base(m) == name {
			return true
		}
	}
	return false
}
