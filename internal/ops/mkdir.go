package ops

import (
	"database/sql"
	"fmt"
	gopath "path"

	"github.com/mvp-joe/queryfs/internal/fserr"
	"github.com/mvp-joe/queryfs/internal/metadata"
	"github.com/mvp-joe/queryfs/internal/repository"
)

// MkDir inserts a directory row for the basename of path under its resolved
// parent. Creating under a file, or shadowing an existing file or directory
// of the same name, is denied.
func MkDir(r *repository.Repository, path string, mode uint32) error {
	parent, err := r.ResolvePath(gopath.Dir(path))
	if err != nil {
		return err
	}

	parentID := sql.NullInt64{}
	switch v := parent.(type) {
	case repository.ResolvedDirectory:
		parentID = sql.NullInt64{Int64: v.Dir.ID, Valid: true}
	case repository.ResolvedFile:
		return fmt.Errorf("%w: mkdir %s: parent is a file", fserr.ErrAccessDenied, path)
	}

	existing, err := r.ResolveEntity(path)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: mkdir %s: name exists", fserr.ErrAccessDenied, path)
	}

	_, err = r.Store().Query(metadata.Directories).Insert(map[string]any{
		"name":         gopath.Base(path),
		"directory_id": parentID,
	}).Exec()
	return err
}
