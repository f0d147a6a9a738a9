package ops

import (
	"fmt"
	"log"

	"golang.org/x/sys/unix"

	"github.com/mvp-joe/queryfs/internal/fserr"
	"github.com/mvp-joe/queryfs/internal/repository"
)

// Truncate shortens or extends the file behind fh to length, but only when
// fh is a writable handle. Anything else would mutate a shared blob, so the
// call is logged and ignored.
func Truncate(r *repository.Repository, path string, length int64, fh *int) error {
	if fh == nil || !r.IsWritable(*fh) {
		log.Printf("WARN: truncate %s: file handle not in writable set, ignoring", path)
		return nil
	}

	if err := unix.Ftruncate(*fh, length); err != nil {
		return fserr.IO(fmt.Errorf("truncate %s to %d: %w", path, length, err))
	}
	return nil
}
