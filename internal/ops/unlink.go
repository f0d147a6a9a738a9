package ops

import (
	"fmt"

	"github.com/mvp-joe/queryfs/internal/fserr"
	"github.com/mvp-joe/queryfs/internal/repository"
)

// Unlink removes the file at path: the file row, its whole filenode history,
// and any blobs that lose their last referrer.
func Unlink(r *repository.Repository, path string) error {
	res, err := r.ResolvePath(path)
	if err != nil {
		return err
	}

	file, ok := res.(repository.ResolvedFile)
	if !ok {
		return fmt.Errorf("%w: unlink %s", fserr.ErrNotFound, path)
	}
	return r.UnlinkFile(file.File)
}
