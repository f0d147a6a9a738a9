package ops

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/mvp-joe/queryfs/internal/fserr"
	"github.com/mvp-joe/queryfs/internal/repository"
)

// Read seeks fh to offset and reads up to size bytes. No caching happens at
// this layer.
func Read(r *repository.Repository, path string, size int, offset int64, fh int) ([]byte, error) {
	if _, err := unix.Seek(fh, offset, 0); err != nil {
		return nil, fserr.IO(fmt.Errorf("seek %s: %w", path, err))
	}

	buf := make([]byte, size)
	n, err := unix.Read(fh, buf)
	if err != nil {
		return nil, fserr.IO(fmt.Errorf("read %s: %w", path, err))
	}
	return buf[:n], nil
}
