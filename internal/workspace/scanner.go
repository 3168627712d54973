package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"path"
)

// FileKind distinguishes files from directories in the tree.
type FileKind string

const (
	KindFile      FileKind = "file"
	KindDirectory FileKind = "directory"
)

// FileNode is an entry in the workspace tree. Directory paths end in "/".
type FileNode struct {
	Name     string      `json:"name"`
	Kind     FileKind    `json:"kind"`
	Path     string      `json:"path"`
	Children []*FileNode `json:"children,omitempty"`
}

// Tree walks the workspace and returns its file tree, entries sorted by name.
func (w *Workspace) Tree(ctx context.Context) (*FileNode, error) {
	root := &FileNode{Name: w.name, Kind: KindDirectory, Path: ""}
	if err := w.fill(ctx, root, "."); err != nil {
		return nil, err
	}
	return root, nil
}

func (w *Workspace) fill(ctx context.Context, parent *FileNode, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := fs.ReadDir(w.fsys, dir)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", dir, err)
	}

	for _, e := range entries {
		rel := e.Name()
		if dir != "." {
			rel = path.Join(dir, e.Name())
		}

		if e.IsDir() {
			if _, skip := defaultExcludedDirs[e.Name()]; skip || w.excluded(rel) {
				continue
			}
			child := &FileNode{Name: e.Name(), Kind: KindDirectory, Path: rel + "/", Children: []*FileNode{}}
			if err := w.fill(ctx, child, rel); err != nil {
				return err
			}
			parent.Children = append(parent.Children, child)
			continue
		}

		if !e.Type().IsRegular() || w.excluded(rel) || !w.included(rel) {
			continue
		}
		parent.Children = append(parent.Children, &FileNode{Name: e.Name(), Kind: KindFile, Path: rel})
	}
	return nil
}

// Files lists every visible file path in tree order.
func (w *Workspace) Files(ctx context.Context) ([]string, error) {
	tree, err := w.Tree(ctx)
	if err != nil {
		return nil, err
	}
	var files []string
	var walk func(n *FileNode)
	walk = func(n *FileNode) {
		if n.Kind == KindFile {
			files = append(files, n.Path)
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(tree)
	return files, nil
}
