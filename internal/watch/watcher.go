package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultBuffer is the capacity of the change event channel.
const DefaultBuffer = 64

// ChangeEvent is a relevant filesystem change.
type ChangeEvent struct {
	Path string
	Op   fsnotify.Op
	At   time.Time
}

// Watcher reports relevant changes under the vault, the themes directory
// and the tool directory.
type Watcher struct {
	fw     *fsnotify.Watcher
	filter Filter
	logger *slog.Logger
	now    func() time.Time
}

// NewWatcher registers watches for every directory the filter covers. The
// vault and themes trees are watched recursively, the tool directory is not.
// A missing themes or tool directory is logged and skipped.
func NewWatcher(filter Filter, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}
	w := &Watcher{fw: fw, filter: filter, logger: logger, now: time.Now}

	if err := addDirsRecursive(fw, filter.VaultRoot); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch: add vault: %w", err)
	}
	if filter.ThemesDir != "" {
		if err := addDirsRecursive(fw, filter.ThemesDir); err != nil {
			logger.Warn("watcher: themes dir not watched",
				slog.String("path", filter.ThemesDir),
				slog.String("error", err.Error()))
		}
	}
	if filter.ToolDir != "" {
		if err := fw.Add(filter.ToolDir); err != nil {
			logger.Warn("watcher: tool dir not watched",
				slog.String("path", filter.ToolDir),
				slog.String("error", err.Error()))
		}
	}
	return w, nil
}

// Run forwards relevant events to out until ctx is cancelled. It closes the
// underlying watcher on return. When out is full the event is dropped: the
// consumer already has a rebuild queued.
func (w *Watcher) Run(ctx context.Context, out chan<- ChangeEvent) error {
	defer w.fw.Close()
	w.logger.Info("watcher: started", slog.String("root", w.filter.VaultRoot))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					w.addNewDir(ev.Name, out)
					continue
				}
			}

			if !w.filter.Relevant(ev.Name) {
				continue
			}
			w.send(out, ChangeEvent{Path: ev.Name, Op: ev.Op, At: w.now()})

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", err.Error()))
		}
	}
}

// addNewDir watches a directory created at runtime and reports relevant
// files that were moved in together with it.
func (w *Watcher) addNewDir(dir string, out chan<- ChangeEvent) {
	if _, ok := within(w.filter.VaultRoot, dir); !ok {
		if _, ok := within(w.filter.ThemesDir, dir); !ok {
			return
		}
	}
	if err := addDirsRecursive(w.fw, dir); err != nil {
		w.logger.Warn("watcher: add new dir failed",
			slog.String("path", dir),
			slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: watching new dir", slog.String("path", dir))

	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !w.filter.Relevant(p) {
			return nil
		}
		w.send(out, ChangeEvent{Path: p, Op: fsnotify.Create, At: w.now()})
		return nil
	})
}

func (w *Watcher) send(out chan<- ChangeEvent, ev ChangeEvent) {
	select {
	case out <- ev:
		w.logger.Debug("watcher: change", slog.String("path", ev.Path), slog.String("op", ev.Op.String()))
	default:
		w.logger.Debug("watcher: queue full, event dropped", slog.String("path", ev.Path))
	}
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the
// watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
