package repository

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvp-joe/queryfs/internal/metadata"
)

// Resolved is the outcome of resolving a logical path: a metadata file, a
// metadata directory, or a host path under temp/ (an existing staging file,
// the temp root for "/", or a prospective path the caller intends to create).
type Resolved interface {
	isResolved()
}

// ResolvedFile wraps a files-table row.
type ResolvedFile struct {
	File *metadata.File
}

// ResolvedDirectory wraps a directories-table row.
type ResolvedDirectory struct {
	Dir *metadata.Directory
}

// ResolvedPath is a host path under the staging directory.
type ResolvedPath struct {
	Path string
}

func (ResolvedFile) isResolved()      {}
func (ResolvedDirectory) isResolved() {}
func (ResolvedPath) isResolved()      {}

// SplitPath normalizes a POSIX-style logical path into its non-empty
// segments. The root path yields no segments.
func SplitPath(logical string) []string {
	var parts []string
	for _, p := range strings.Split(logical, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// TempPath returns the staging path mirroring the logical path.
func (r *Repository) TempPath(logical string) string {
	parts := SplitPath(logical)
	if len(parts) == 0 {
		return r.temp
	}
	return filepath.Join(r.temp, filepath.Join(parts...))
}

// ResolveEntity walks the logical path through the metadata tables: one
// (name, directory_id) lookup per segment against directories, falling back
// to files on the last segment. Returns nil when nothing matches (including
// for the root path, which has no row).
func (r *Repository) ResolveEntity(logical string) (Resolved, error) {
	parts := SplitPath(logical)
	if len(parts) == 0 {
		return nil, nil
	}

	parentID := sql.NullInt64{}
	for i, name := range parts {
		last := i == len(parts)-1

		dir, err := metadata.FetchOne(
			r.store.Query(metadata.Directories).Select().Where(
				metadata.Constraint{Field: "name", Op: metadata.OpIs, Value: name},
				metadata.Constraint{Field: "directory_id", Op: metadata.OpIs, Value: parentID},
			),
			metadata.ScanDirectory,
		)
		if err != nil {
			return nil, err
		}
		if dir != nil {
			if last {
				return ResolvedDirectory{Dir: dir}, nil
			}
			parentID = sql.NullInt64{Int64: dir.ID, Valid: true}
			continue
		}

		if !last {
			return nil, nil
		}

		file, err := metadata.FetchOne(
			r.store.Query(metadata.Files).Select().Where(
				metadata.Constraint{Field: "name", Op: metadata.OpIs, Value: name},
				metadata.Constraint{Field: "directory_id", Op: metadata.OpIs, Value: parentID},
			),
			metadata.ScanFile,
		)
		if err != nil {
			return nil, err
		}
		if file != nil {
			return ResolvedFile{File: file}, nil
		}
	}
	return nil, nil
}

// ResolvePath resolves a logical path for an operation. Policy: an existing
// staging file wins over committed content (an in-flight write is the
// current truth for that path); the root resolves to the temp root; then the
// metadata walk; and finally the prospective staging path for callers about
// to create there.
func (r *Repository) ResolvePath(logical string) (Resolved, error) {
	tempPath := r.TempPath(logical)

	if fi, err := os.Stat(tempPath); err == nil && fi.Mode().IsRegular() {
		return ResolvedPath{Path: tempPath}, nil
	}
	if tempPath == r.temp {
		return ResolvedPath{Path: tempPath}, nil
	}

	entity, err := r.ResolveEntity(logical)
	if err != nil {
		return nil, err
	}
	if entity != nil {
		return entity, nil
	}

	return ResolvedPath{Path: tempPath}, nil
}

// ParentDirectoryID resolves the parent of a logical path to a directory id
// scope: a valid id when the parent is a directory row, the null scope when
// the parent is the root (or not a directory).
func (r *Repository) ParentDirectoryID(logical string) (sql.NullInt64, error) {
	parts := SplitPath(logical)
	if len(parts) < 2 {
		return sql.NullInt64{}, nil
	}
	parent := strings.Join(parts[:len(parts)-1], "/")

	entity, err := r.ResolveEntity(parent)
	if err != nil {
		return sql.NullInt64{}, err
	}
	if dir, ok := entity.(ResolvedDirectory); ok {
		return sql.NullInt64{Int64: dir.Dir.ID, Valid: true}, nil
	}
	return sql.NullInt64{}, nil
}
