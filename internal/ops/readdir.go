package ops

import (
	"database/sql"

	"github.com/mvp-joe/queryfs/internal/metadata"
	"github.com/mvp-joe/queryfs/internal/repository"
)

// ReadDir lists the names in the directory at path: "." and ".." plus every
// file and directory row in the target's scope. A path that resolves to the
// staging area (the root in particular) lists the null scope. Order is
// whatever the store returns.
func ReadDir(r *repository.Repository, path string) ([]string, error) {
	res, err := r.ResolvePath(path)
	if err != nil {
		return nil, err
	}

	scope := sql.NullInt64{}
	if dir, ok := res.(repository.ResolvedDirectory); ok {
		scope = sql.NullInt64{Int64: dir.Dir.ID, Valid: true}
	}

	entries := []string{".", ".."}

	files, err := metadata.OneToMany(r.Store(), metadata.Files, "directory_id", scope, metadata.ScanFile)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		entries = append(entries, f.Name)
	}

	dirs, err := metadata.OneToMany(r.Store(), metadata.Directories, "directory_id", scope, metadata.ScanDirectory)
	if err != nil {
		return nil, err
	}
	for _, d := range dirs {
		entries = append(entries, d.Name)
	}

	return entries, nil
}
