package workspace

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
)

// ReadFile returns the contents of a workspace-relative, slash-separated path.
func (w *Workspace) ReadFile(name string) ([]byte, error) {
	name = strings.TrimPrefix(name, "./")
	if !fs.ValidPath(name) || name == "." {
		return nil, fmt.Errorf("%w: %q", ErrOutsideRoot, name)
	}
	if !w.Visible(name) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	f, err := w.fsys.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrIsDirectory, name)
	}
	if info.Size() > w.maxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes (max %d)", ErrTooLarge, name, info.Size(), w.maxSize)
	}

	data, err := io.ReadAll(io.LimitReader(f, w.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if int64(len(data)) > w.maxSize {
		return nil, fmt.Errorf("%w: %s (max %d)", ErrTooLarge, name, w.maxSize)
	}
	return data, nil
}
