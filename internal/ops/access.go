package ops

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/mvp-joe/queryfs/internal/fserr"
	"github.com/mvp-joe/queryfs/internal/repository"
)

// Access checks host access for the resolved backing of path. Directories
// always pass; for a file row the check runs against its blob. Any
// host-level denial maps to ErrAccessDenied.
func Access(r *repository.Repository, path string, amode uint32) error {
	res, err := r.ResolvePath(path)
	if err != nil {
		return err
	}

	if _, ok := res.(repository.ResolvedDirectory); ok {
		return nil
	}

	target, _, err := backing(r, res)
	if err != nil {
		return err
	}

	if err := unix.Access(target, amode); err != nil {
		return fmt.Errorf("%w: access %s: %v", fserr.ErrAccessDenied, path, err)
	}
	return nil
}
