package scratch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/arloliu/atomenv/types"
)

// Dir is a ScratchStore backed by files under a directory.
//
// Writes go to a temporary file that is renamed into place, so a reader never
// sees a partially written frame.
type Dir struct {
	root string
}

var _ types.ScratchStore = (*Dir)(nil)

// NewDir creates a store rooted at dir. The directory is created on first write.
func NewDir(dir string) *Dir {
	return &Dir{root: dir}
}

func (d *Dir) path(key string) string {
	return filepath.Join(d.root, filepath.FromSlash(key))
}

// Put atomically writes data under key.
func (d *Dir) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := d.path(key)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create scratch directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create scratch file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if _, err := os.Stat(tmpName); err == nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write scratch file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close scratch file: %w", err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("publish scratch file %s: %w", key, err)
	}

	return nil
}

// Get reads the data stored under key.
func (d *Dir) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(d.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", types.ErrScratchEntryMissing, key)
	}
	if err != nil {
		return nil, fmt.Errorf("read scratch file %s: %w", key, err)
	}

	return data, nil
}

// Delete removes key. A missing key is not an error.
func (d *Dir) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := os.Remove(d.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove scratch file %s: %w", key, err)
	}

	return nil
}

// Clear removes the whole directory tree.
func (d *Dir) Clear() error {
	return os.RemoveAll(d.root)
}
