package ops

import (
	"fmt"

	"github.com/mvp-joe/queryfs/internal/fserr"
	"github.com/mvp-joe/queryfs/internal/metadata"
	"github.com/mvp-joe/queryfs/internal/repository"
)

// RmDir removes the directory at path and everything below it: contained
// directories depth-first, contained files through UnlinkFile (so blob
// reference counts stay correct), then the directory row itself.
func RmDir(r *repository.Repository, path string) error {
	res, err := r.ResolvePath(path)
	if err != nil {
		return err
	}

	dir, ok := res.(repository.ResolvedDirectory)
	if !ok {
		return fmt.Errorf("%w: rmdir %s", fserr.ErrNotFound, path)
	}
	return rmdirRecursively(r, dir.Dir)
}

func rmdirRecursively(r *repository.Repository, dir *metadata.Directory) error {
	children, err := dir.Directories(r.Store())
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := rmdirRecursively(r, child); err != nil {
			return err
		}
	}

	files, err := dir.Files(r.Store())
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := r.UnlinkFile(f); err != nil {
			return err
		}
	}

	_, err = r.Store().Query(metadata.Directories).Delete().Where(
		metadata.Constraint{Field: "id", Op: metadata.OpIs, Value: dir.ID},
	).Exec()
	return err
}
