package ops

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/mvp-joe/queryfs/internal/fserr"
	"github.com/mvp-joe/queryfs/internal/repository"
)

// Flush syncs fh at the host level.
func Flush(r *repository.Repository, path string, fh int) error {
	if err := unix.Fsync(fh); err != nil {
		return fserr.IO(fmt.Errorf("flush %s: %w", path, err))
	}
	return nil
}

// Fsync syncs fh at the host level. The datasync flag is accepted for
// protocol completeness; a full fsync is always performed.
func Fsync(r *repository.Repository, path string, datasync bool, fh int) error {
	if err := unix.Fsync(fh); err != nil {
		return fserr.IO(fmt.Errorf("fsync %s: %w", path, err))
	}
	return nil
}
