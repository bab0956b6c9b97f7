// Package watcher keeps the image catalog in sync with directories on disk.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Writes to an image file arrive as bursts of fsnotify events; a path is
// indexed only after it has been quiet for this long.
const settleDelay = 400 * time.Millisecond

const sweepInterval = 100 * time.Millisecond

// Watcher observes image directories and reports settled changes through
// callbacks. onImage fires for created or modified image files, onGone for
// removed ones.
type Watcher struct {
	extensions []string
	recursive  bool
	onImage    func(path string)
	onGone     func(path string)
	logger     *zap.Logger // optional; when set, logs debug events

	mu      sync.Mutex
	roots   []string
	watched map[string][]string // root -> directories registered with fsnotify
	pending map[string]time.Time
	fsw     *fsnotify.Watcher
	running bool

	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output (events, settled files, root changes).
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New creates a watcher over the given root directories. extensions filters
// which files are reported (empty = all).
func New(roots, extensions []string, recursive bool, onImage, onGone func(path string), opts ...Option) *Watcher {
	w := &Watcher{
		roots:      append([]string(nil), roots...),
		extensions: extensions,
		recursive:  recursive,
		onImage:    onImage,
		onGone:     onGone,
		watched:    make(map[string][]string),
		pending:    make(map[string]time.Time),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
// A stopped watcher cannot be started again; create a new one.
func (w *Watcher) Start(ctx context.Context) error {
	select {
	case <-w.done:
		return errors.New("watcher already stopped")
	default:
	}
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.fsw = fsw
	w.running = true
	if w.logger != nil {
		w.logger.Debug("watcher starting",
			zap.Strings("roots", w.roots),
			zap.Strings("extensions", w.extensions),
			zap.Bool("recursive", w.recursive))
	}
	for _, root := range w.roots {
		if err := w.registerRootLocked(root); err != nil {
			_ = w.fsw.Close()
			w.fsw = nil
			w.running = false
			w.mu.Unlock()
			return err
		}
	}
	w.mu.Unlock()
	go w.loop(ctx, fsw.Events, fsw.Errors)
	return nil
}

// loop consumes fsnotify events and periodically flushes settled paths. The
// event channels are captured before entering the loop; Stop nils out w.fsw
// under the mutex, so the loop must never touch that field. Closing the
// watcher closes both channels, which terminates the loop.
func (w *Watcher) loop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case <-ticker.C:
			w.flushSettled()
		case ev, ok := <-events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-errs:
			if !ok {
				return
			}
			if err != nil && w.logger != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	path := ev.Name
	if w.logger != nil {
		w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	}
	switch {
	case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			w.coverNewDirectory(path)
			return
		}
		if hasExtension(path, w.extensions) {
			w.mu.Lock()
			w.pending[path] = time.Now()
			w.mu.Unlock()
		}
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		if hasExtension(path, w.extensions) && w.onGone != nil {
			w.onGone(path)
		}
	}
}

// flushSettled fires onImage for every pending path that has stopped changing.
func (w *Watcher) flushSettled() {
	now := time.Now()
	var ready []string
	w.mu.Lock()
	for path, last := range w.pending {
		if now.Sub(last) >= settleDelay {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	logger := w.logger
	w.mu.Unlock()
	for _, path := range ready {
		if logger != nil {
			logger.Debug("watcher file settled", zap.String("path", path))
		}
		if w.onImage != nil {
			w.onImage(path)
		}
	}
}

// coverNewDirectory registers a directory that appeared under a watched root
// and reports the images already inside it.
func (w *Watcher) coverNewDirectory(dir string) {
	w.mu.Lock()
	fsw := w.fsw
	recursive := w.recursive
	w.mu.Unlock()
	if fsw == nil {
		return
	}
	if w.logger != nil {
		w.logger.Debug("watcher covering new directory", zap.String("path", dir))
	}
	if recursive {
		filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if addErr := fsw.Add(path); addErr != nil && w.logger != nil {
					w.logger.Debug("watcher failed to add directory", zap.String("path", path), zap.Error(addErr))
				}
			}
			return nil
		})
	} else if err := fsw.Add(dir); err != nil && w.logger != nil {
		w.logger.Debug("watcher failed to add directory", zap.String("path", dir), zap.Error(err))
	}
	w.scanRoot(dir)
}

// AddDirectory adds a root directory to watch. When syncExisting is set the
// images already in it are reported.
func (w *Watcher) AddDirectory(root string, syncExisting bool) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	w.mu.Lock()
	if w.fsw == nil {
		w.mu.Unlock()
		return nil
	}
	for _, r := range w.roots {
		if filepath.Clean(r) == filepath.Clean(abs) {
			w.mu.Unlock()
			return nil
		}
	}
	if err := w.registerRootLocked(abs); err != nil {
		w.mu.Unlock()
		return err
	}
	w.roots = append(w.roots, abs)
	w.mu.Unlock()
	if w.logger != nil {
		w.logger.Debug("watcher directory added", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	}
	if syncExisting && w.onImage != nil {
		go w.scanRoot(abs)
	}
	return nil
}

// registerRootLocked adds root (and its subdirectories when recursive) to the
// underlying fsnotify watcher. The root is created if missing.
func (w *Watcher) registerRootLocked(root string) error {
	root = filepath.Clean(root)
	if _, err := os.Stat(root); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		if err := os.MkdirAll(root, 0755); err != nil {
			return err
		}
	}
	var dirs []string
	if w.recursive {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if err := w.fsw.Add(path); err != nil {
				return err
			}
			dirs = append(dirs, path)
			return nil
		})
		if err != nil {
			return err
		}
	} else {
		if err := w.fsw.Add(root); err != nil {
			return err
		}
		dirs = append(dirs, root)
	}
	w.watched[root] = dirs
	return nil
}

// RemoveDirectory stops watching the given root. Indexed images are kept.
func (w *Watcher) RemoveDirectory(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw == nil {
		return nil
	}
	at := -1
	for i, r := range w.roots {
		if filepath.Clean(r) == abs {
			at = i
			break
		}
	}
	if at < 0 {
		return nil
	}
	for _, dir := range w.watched[abs] {
		_ = w.fsw.Remove(dir)
	}
	delete(w.watched, abs)
	w.roots = append(w.roots[:at], w.roots[at+1:]...)
	if w.logger != nil {
		w.logger.Debug("watcher directory removed", zap.String("path", abs))
	}
	return nil
}

// Directories returns a copy of the current watched roots.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// SyncExistingFiles reports every matching image already present under the
// watched roots. Call after Start to pick up files that predate the watcher.
func (w *Watcher) SyncExistingFiles() {
	w.mu.Lock()
	roots := append([]string(nil), w.roots...)
	w.mu.Unlock()
	if w.logger != nil {
		w.logger.Debug("watcher syncing existing files", zap.Strings("roots", roots))
	}
	for _, root := range roots {
		w.scanRoot(root)
	}
}

func (w *Watcher) scanRoot(root string) {
	w.mu.Lock()
	exts := append([]string(nil), w.extensions...)
	onImage := w.onImage
	w.mu.Unlock()
	if onImage == nil {
		return
	}
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if hasExtension(path, exts) {
			onImage(path)
		}
		return nil
	})
}

func hasExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

// Stop stops the watcher and releases resources. The watcher cannot be
// reused afterwards.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running || w.fsw == nil {
		w.mu.Unlock()
		return
	}
	w.pending = make(map[string]time.Time)
	_ = w.fsw.Close()
	w.fsw = nil
	w.running = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
