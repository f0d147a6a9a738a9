package ops

import (
	"database/sql"
	"fmt"
	gopath "path"

	"github.com/mvp-joe/queryfs/internal/fserr"
	"github.com/mvp-joe/queryfs/internal/metadata"
	"github.com/mvp-joe/queryfs/internal/repository"
)

// Rename moves the entity at oldPath to newPath by rewriting its name and
// directory scope in the metadata store. Blobs are never touched. The
// destination is not checked for collisions; the namespace stays permissive
// here the way the rest of the resolution logic expects.
func Rename(r *repository.Repository, oldPath, newPath string) error {
	entity, err := r.ResolveEntity(oldPath)
	if err != nil {
		return err
	}
	if entity == nil {
		return fmt.Errorf("%w: rename %s", fserr.ErrNotFound, oldPath)
	}

	parent, err := r.ResolveEntity(gopath.Dir(newPath))
	if err != nil {
		return err
	}
	parentID := sql.NullInt64{}
	if dir, ok := parent.(repository.ResolvedDirectory); ok {
		parentID = sql.NullInt64{Int64: dir.Dir.ID, Valid: true}
	}

	values := map[string]any{
		"name":         gopath.Base(newPath),
		"directory_id": parentID,
	}

	switch v := entity.(type) {
	case repository.ResolvedFile:
		_, err = r.Store().Query(metadata.Files).Update(values).Where(
			metadata.Constraint{Field: "id", Op: metadata.OpIs, Value: v.File.ID},
		).Exec()
	case repository.ResolvedDirectory:
		_, err = r.Store().Query(metadata.Directories).Update(values).Where(
			metadata.Constraint{Field: "id", Op: metadata.OpIs, Value: v.Dir.ID},
		).Exec()
	}
	return err
}
