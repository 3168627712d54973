package workspace

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Op is the kind of change seen on a file.
type Op string

const (
	OpCreate Op = "create"
	OpWrite  Op = "write"
	OpRemove Op = "remove"
	OpRename Op = "rename"
)

// Change is a file change relative to the workspace root.
type Change struct {
	Path string `json:"path"`
	Op   Op     `json:"op"`
}

// Watcher reports changes to visible files of an on-disk workspace.
type Watcher struct {
	ws  *Workspace
	fsw *fsnotify.Watcher
	log *slog.Logger
}

func NewWatcher(ws *Workspace, log *slog.Logger) (*Watcher, error) {
	if ws.root == "" {
		return nil, ErrNotWatchable
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{ws: ws, fsw: fsw, log: log}, nil
}

// Start registers every visible directory and streams changes until ctx is
// done. The channel is closed when watching stops.
func (w *Watcher) Start(ctx context.Context) (<-chan Change, error) {
	if err := w.addRecursive(w.ws.root); err != nil {
		return nil, err
	}
	out := make(chan Change, 64)
	go w.loop(ctx, out)
	return out, nil
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) loop(ctx context.Context, out chan<- Change) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			change, ok := w.translate(ev)
			if !ok {
				continue
			}
			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

// translate maps an fsnotify event to a workspace change. New directories
// are added to the watch set and produce no change of their own.
func (w *Watcher) translate(ev fsnotify.Event) (Change, bool) {
	rel, err := filepath.Rel(w.ws.root, ev.Name)
	if err != nil {
		return Change{}, false
	}
	rel = filepath.ToSlash(rel)

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(ev.Name); err != nil {
				w.log.Warn("watch new directory failed", "path", rel, "error", err)
			}
			return Change{}, false
		}
	}
	if !w.ws.Visible(rel) {
		return Change{}, false
	}

	switch {
	case ev.Has(fsnotify.Remove):
		return Change{Path: rel, Op: OpRemove}, true
	case ev.Has(fsnotify.Rename):
		return Change{Path: rel, Op: OpRename}, true
	case ev.Has(fsnotify.Create):
		return Change{Path: rel, Op: OpCreate}, true
	case ev.Has(fsnotify.Write):
		return Change{Path: rel, Op: OpWrite}, true
	}
	return Change{}, false
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.ws.root {
			rel, _ := filepath.Rel(w.ws.root, p)
			rel = filepath.ToSlash(rel)
			if _, skip := defaultExcludedDirs[d.Name()]; skip || w.ws.excluded(rel) {
				return filepath.SkipDir
			}
		}
		return w.fsw.Add(p)
	})
}
