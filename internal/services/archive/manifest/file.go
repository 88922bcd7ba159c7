package manifest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	perr "feedvault/internal/platform/errors"
)

// FilePersister keeps the document in a single JSON file
// writes go to a temp file in the same directory which is synced then renamed over
type FilePersister struct {
	Path string
}

// NewFile returns a FilePersister for path
func NewFile(path string) *FilePersister { return &FilePersister{Path: path} }

// seams for tests
var (
	createTemp = os.CreateTemp
	rename     = os.Rename
)

// Read returns nil, nil when the file does not exist
func (f *FilePersister) Read(_ context.Context) ([]byte, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "read %s", f.Path)
	}
	return b, nil
}

// Write replaces the file atomically
func (f *FilePersister) Write(ctx context.Context, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeStorage, "mkdir %s", dir)
	}

	tmp, err := createTemp(dir, "."+filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeStorage, "temp file in %s", dir)
	}
	name := tmp.Name()
	ok := false
	defer func() {
		if !ok {
			_ = tmp.Close()
			_ = os.Remove(name)
		}
	}()

	if _, err := tmp.Write(doc); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeStorage, "write %s", name)
	}
	if err := tmp.Sync(); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeStorage, "fsync %s", name)
	}
	if err := tmp.Close(); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeStorage, "close %s", name)
	}
	if err := rename(name, f.Path); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeStorage, "rename onto %s", f.Path)
	}
	ok = true
	return nil
}

func (f *FilePersister) String() string { return fmt.Sprintf("file:%s", f.Path) }
