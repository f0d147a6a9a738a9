package ops

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/mvp-joe/queryfs/internal/fserr"
	"github.com/mvp-joe/queryfs/internal/repository"
)

// Create opens a fresh writable staging file for path. The path must not
// already name a file or directory; parent directories of the staging path
// are created on demand. The returned handle is recorded as writable so
// release promotes it.
func Create(r *repository.Repository, path string, mode uint32) (int, error) {
	res, err := r.ResolvePath(path)
	if err != nil {
		return 0, err
	}

	target, ok := res.(repository.ResolvedPath)
	if !ok {
		return 0, fmt.Errorf("%w: create %s: name exists", fserr.ErrAccessDenied, path)
	}

	if err := os.MkdirAll(filepath.Dir(target.Path), 0o755); err != nil {
		return 0, fserr.IO(fmt.Errorf("create staging parents for %s: %w", path, err))
	}

	fh, err := unix.Open(target.Path, unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC, mode)
	if err != nil {
		return 0, fserr.IO(fmt.Errorf("open staging file %s: %w", target.Path, err))
	}

	r.MarkWritable(fh)
	return fh, nil
}
