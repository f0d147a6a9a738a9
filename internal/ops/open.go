package ops

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/mvp-joe/queryfs/internal/fserr"
	"github.com/mvp-joe/queryfs/internal/repository"
)

// Open opens the file at path. A staging file is opened directly (write
// intent marks the handle writable). A committed file opens its blob
// read-only when flags carry no write intent; with write intent the blob is
// first copied to the staging mirror of the path, so the blob itself stays
// immutable. Opening a directory this way is an invariant violation: the
// protocol routes directories through OpenDir.
func Open(r *repository.Repository, path string, flags int) (int, error) {
	res, err := r.ResolvePath(path)
	if err != nil {
		return 0, err
	}

	switch v := res.(type) {
	case repository.ResolvedDirectory:
		return 0, fserr.Invariantf("open directory %s", path)

	case repository.ResolvedPath:
		if !strings.HasPrefix(v.Path, r.Temp()) {
			return 0, fmt.Errorf("%w: open %s", fserr.ErrNotFound, path)
		}
		if _, err := os.Stat(v.Path); err != nil {
			return 0, fmt.Errorf("%w: open %s", fserr.ErrNotFound, path)
		}
		fh, err := unix.Open(v.Path, flags, 0)
		if err != nil {
			return 0, fserr.IO(fmt.Errorf("open staging file %s: %w", v.Path, err))
		}
		if flags != 0 {
			r.MarkWritable(fh)
		}
		return fh, nil

	case repository.ResolvedFile:
		node, err := v.File.Filenode(r.Store())
		if err != nil {
			return 0, err
		}
		if node == nil {
			return 0, fserr.Invariantf("missing filenode for file %d (%s)", v.File.ID, v.File.Name)
		}
		blobPath := r.BlobPath(node.Hash)

		if flags == 0 {
			fh, err := unix.Open(blobPath, unix.O_RDONLY, 0)
			if err != nil {
				return 0, fserr.IO(fmt.Errorf("open blob %s: %w", node.Hash, err))
			}
			return fh, nil
		}

		// Write intent: stage a copy-on-write mirror under temp/.
		tempPath := r.TempPath(path)
		if err := os.MkdirAll(filepath.Dir(tempPath), 0o755); err != nil {
			return 0, fserr.IO(fmt.Errorf("create staging parents for %s: %w", path, err))
		}
		if err := copyFile(blobPath, tempPath); err != nil {
			return 0, fserr.IO(err)
		}

		fh, err := unix.Open(tempPath, flags, 0)
		if err != nil {
			return 0, fserr.IO(fmt.Errorf("open staging file %s: %w", tempPath, err))
		}
		r.MarkWritable(fh)
		return fh, nil
	}

	return 0, fmt.Errorf("%w: open %s", fserr.ErrNotFound, path)
}

// copyFile copies src to dst, replacing dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return out.Close()
}
