// Package fsnotify implements the ports.Watcher interface using github.com/fsnotify/fsnotify.
// It recursively watches a scan root, skips VCS and tool directories, and
// debounces rapid events (editors and copy tools often write a file several
// times in a row) so each change triggers one rescan.
package fsnotify

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the minimum interval between two callbacks for one path.
const DefaultDebounce = 50 * time.Millisecond

// Directories to ignore when watching.
var ignoreDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	".pmatch":      true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
}

// Temporary-file suffixes that never trigger a rescan.
var ignoreSuffixes = []string{".swp", ".swx", "~", ".tmp", ".part"}

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration   // 0 = DefaultDebounce
	OnError  func(err error) // called for watcher errors; nil = ignore
}

// Watcher implements ports.Watcher using fsnotify.
type Watcher struct {
	fw      *fsnotify.Watcher
	opts    Options
	done    chan struct{}
	stopped bool
	mu      sync.Mutex
}

// NewWatcher creates a new file system watcher.
func NewWatcher(opts Options) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Watcher{
		fw:   fw,
		opts: opts,
		done: make(chan struct{}),
	}, nil
}

// Watch starts monitoring root recursively.
// onChange is called with the absolute path of each changed file.
func (w *Watcher) Watch(root string, onChange func(filePath string)) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	if _, err := os.Stat(absRoot); err != nil {
		return err
	}
	if err := w.addTree(absRoot); err != nil {
		return err
	}

	// Debounce state: last callback time per path. Only the event goroutine
	// touches it.
	debounce := make(map[string]time.Time)

	go func() {
		for {
			select {
			case event, ok := <-w.fw.Events:
				if !ok {
					return
				}
				path := event.Name

				// New directories join the watch list together with their subtree.
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(path); err == nil && info.IsDir() {
						if !ignoreDirs[info.Name()] {
							w.addTree(path)
						}
						continue
					}
				}

				if shouldIgnorePath(path) {
					continue
				}
				if !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
					event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) {
					continue
				}

				now := time.Now()
				if last, seen := debounce[path]; seen && now.Sub(last) < w.opts.Debounce {
					continue
				}
				debounce[path] = now
				onChange(path)

			case err, ok := <-w.fw.Errors:
				if !ok {
					return
				}
				if w.opts.OnError != nil {
					w.opts.OnError(err)
				}

			case <-w.done:
				return
			}
		}
	}()

	return nil
}

// addTree adds dir and every non-ignored directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip inaccessible paths
		}
		if !info.IsDir() {
			return nil
		}
		if ignoreDirs[info.Name()] && path != dir {
			return filepath.SkipDir
		}
		return w.fw.Add(path)
	})
}

// Stop ends monitoring and releases all resources.
// Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.done)
	return w.fw.Close()
}

// shouldIgnorePath returns true if the path should not trigger onChange.
func shouldIgnorePath(path string) bool {
	base := filepath.Base(path)
	for _, suffix := range ignoreSuffixes {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if ignoreDirs[part] {
			return true
		}
	}
	return false
}
