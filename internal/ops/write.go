package ops

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/mvp-joe/queryfs/internal/fserr"
	"github.com/mvp-joe/queryfs/internal/repository"
)

// Write seeks fh to offset and writes data, returning the byte count. The
// handle is expected to be in the writable set; if it is not, the bytes
// still land at the OS level but release will not promote them.
func Write(r *repository.Repository, path string, data []byte, offset int64, fh int) (int, error) {
	if _, err := unix.Seek(fh, offset, 0); err != nil {
		return 0, fserr.IO(fmt.Errorf("seek %s: %w", path, err))
	}

	n, err := unix.Write(fh, data)
	if err != nil {
		return 0, fserr.IO(fmt.Errorf("write %s: %w", path, err))
	}
	return n, nil
}
