// Package repository owns the on-disk layout of a QueryFS store: the
// metadata database, the temp/ staging area, and the content-addressed
// blobs/ directory. All path resolution, blob lifecycle, and filenode
// versioning goes through it.
package repository

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mvp-joe/queryfs/internal/hashing"
	"github.com/mvp-joe/queryfs/internal/metadata"
)

// MetadataFileName is the database file under the repository root.
const MetadataFileName = "metadata"

// Repository mediates all access to a store rooted at a single directory:
//
//	<root>/metadata   embedded relational store
//	<root>/temp/      staging tree for files open writable
//	<root>/blobs/     flat content-addressed blob store
type Repository struct {
	root  string
	temp  string
	blobs string

	store     *metadata.Store
	emptyHash string

	// writable tracks which open file handles should trigger blob promotion
	// on release. Only touched from the dispatch thread.
	writable map[int]struct{}
}

// New opens (or initializes) the repository at root: creates temp/ and
// blobs/, ensures the three metadata tables, prunes empty staging subtrees
// left behind by earlier runs, and memoizes the empty-content hash.
func New(root string) (*Repository, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve repository root %s: %w", root, err)
	}

	r := &Repository{
		root:      abs,
		temp:      filepath.Join(abs, "temp"),
		blobs:     filepath.Join(abs, "blobs"),
		store:     metadata.NewStore(filepath.Join(abs, MetadataFileName)),
		emptyHash: hashing.EmptyHash(),
		writable:  make(map[int]struct{}),
	}

	for _, dir := range []string{r.temp, r.blobs} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	for _, schema := range []metadata.Schema{metadata.Directories, metadata.Files, metadata.Filenodes} {
		if err := r.store.EnsureTable(schema); err != nil {
			return nil, err
		}
	}

	// Startup maintenance: staging directories whose files were all promoted
	// are dead weight; drop them. Inconsistencies are tolerated silently.
	entries, err := os.ReadDir(r.temp)
	if err == nil {
		for _, e := range entries {
			if e.IsDir() {
				removeEmptyDirs(filepath.Join(r.temp, e.Name()))
			}
		}
	}

	return r, nil
}

// removeEmptyDirs removes path if, after recursing, it contains no files.
// Best effort: a directory still holding staging files is left alone.
func removeEmptyDirs(path string) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			removeEmptyDirs(filepath.Join(path, e.Name()))
		}
	}
	os.Remove(path)
}

// Root returns the repository root directory.
func (r *Repository) Root() string { return r.root }

// Temp returns the staging directory.
func (r *Repository) Temp() string { return r.temp }

// Blobs returns the blob directory.
func (r *Repository) Blobs() string { return r.blobs }

// Store returns the metadata store.
func (r *Repository) Store() *metadata.Store { return r.store }

// EmptyHash returns the digest of empty content, the "no blob" sentinel.
func (r *Repository) EmptyHash() string { return r.emptyHash }

// MarkWritable records fh as writable so release promotes its staging file.
func (r *Repository) MarkWritable(fh int) {
	r.writable[fh] = struct{}{}
}

// IsWritable reports whether fh is in the writable set.
func (r *Repository) IsWritable(fh int) bool {
	_, ok := r.writable[fh]
	return ok
}

// ClearWritable removes fh from the writable set, reporting whether it was
// present. Release uses the result to decide on promotion.
func (r *Repository) ClearWritable(fh int) bool {
	_, ok := r.writable[fh]
	delete(r.writable, fh)
	return ok
}
