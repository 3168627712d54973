// Package workspace gives read access to a source folder: its file tree,
// file contents, extracted structure and change notifications.
package workspace

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/gobwas/glob"
)

//go:embed demo
var demoFS embed.FS

// DemoName is the display name of the built-in demo project.
const DemoName = "demo-project"

var (
	ErrOutsideRoot   = errors.New("path escapes workspace root")
	ErrNotFound      = errors.New("file not found")
	ErrIsDirectory   = errors.New("path is a directory")
	ErrTooLarge      = errors.New("file exceeds size limit")
	ErrNotWatchable  = errors.New("workspace has no directory on disk to watch")
	ErrRootNotDir    = errors.New("workspace root is not a directory")
	ErrInvalidFilter = errors.New("invalid glob pattern")
)

// DefaultMaxFileBytes caps file reads when Config leaves it unset.
const DefaultMaxFileBytes = 1 << 20

// Directories never shown in the tree.
var defaultExcludedDirs = map[string]struct{}{
	".git":         {},
	".hg":          {},
	".svn":         {},
	"node_modules": {},
	"vendor":       {},
	"dist":         {},
	"build":        {},
	"__pycache__":  {},
	".idea":        {},
	".vscode":      {},
}

// Config controls which files are visible and how much is read.
type Config struct {
	Include      []string // glob patterns; empty means every file
	Exclude      []string // glob patterns applied to files and directories
	MaxFileBytes int64
}

// Workspace is a read-only view of a source folder.
type Workspace struct {
	name    string
	root    string // directory on disk; empty for embedded workspaces
	fsys    fs.FS
	maxSize int64

	include []glob.Glob
	exclude []glob.Glob
}

// Open returns a workspace rooted at a directory on disk.
func Open(root string, cfg Config) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, ErrRootNotDir
	}
	ws, err := New(os.DirFS(abs), filepath.Base(abs), cfg)
	if err != nil {
		return nil, err
	}
	ws.root = abs
	return ws, nil
}

// Demo returns the built-in demo project.
func Demo(cfg Config) (*Workspace, error) {
	sub, err := fs.Sub(demoFS, "demo")
	if err != nil {
		return nil, err
	}
	return New(sub, DemoName, cfg)
}

// New returns a workspace over any file system.
func New(fsys fs.FS, name string, cfg Config) (*Workspace, error) {
	include, err := CompileGlobs(cfg.Include)
	if err != nil {
		return nil, err
	}
	exclude, err := CompileGlobs(cfg.Exclude)
	if err != nil {
		return nil, err
	}
	maxSize := cfg.MaxFileBytes
	if maxSize <= 0 {
		maxSize = DefaultMaxFileBytes
	}
	return &Workspace{
		name:    name,
		fsys:    fsys,
		maxSize: maxSize,
		include: include,
		exclude: exclude,
	}, nil
}

// CompileGlobs compiles slash-separated glob patterns.
func CompileGlobs(patterns []string) ([]glob.Glob, error) {
	matchers := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidFilter, p, err)
		}
		matchers = append(matchers, g)
	}
	return matchers, nil
}

// Name is the display name of the workspace.
func (w *Workspace) Name() string { return w.name }

// Root is the directory on disk, or "" for embedded workspaces.
func (w *Workspace) Root() string { return w.root }

// excluded reports whether a relative path is hidden by exclude patterns.
func (w *Workspace) excluded(rel string) bool {
	base := path.Base(rel)
	for _, g := range w.exclude {
		if g.Match(rel) || g.Match(base) {
			return true
		}
	}
	return false
}

// included reports whether a file passes the include patterns.
func (w *Workspace) included(rel string) bool {
	if len(w.include) == 0 {
		return true
	}
	base := path.Base(rel)
	for _, g := range w.include {
		if g.Match(rel) || g.Match(base) {
			return true
		}
	}
	return false
}

// Visible reports whether a relative file path would appear in the tree.
func (w *Workspace) Visible(rel string) bool {
	dir := path.Dir(rel)
	for dir != "." && dir != "/" {
		if _, skip := defaultExcludedDirs[path.Base(dir)]; skip || w.excluded(dir) {
			return false
		}
		dir = path.Dir(dir)
	}
	return !w.excluded(rel) && w.included(rel)
}
