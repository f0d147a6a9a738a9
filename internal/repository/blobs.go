package repository

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mvp-joe/queryfs/internal/metadata"
)

// BlobPath returns the host path of the blob named by hash.
func (r *Repository) BlobPath(hash string) string {
	return filepath.Join(r.blobs, hash)
}

// StoreBlob finishes promotion of a hashed staging file: if the blob already
// exists the staging copy is a duplicate and is removed, otherwise the
// staging file becomes the blob via rename.
func (r *Repository) StoreBlob(stagingPath, hash string) error {
	blobPath := r.BlobPath(hash)
	if _, err := os.Stat(blobPath); err == nil {
		if err := os.Remove(stagingPath); err != nil {
			return fmt.Errorf("remove duplicate staging file %s: %w", stagingPath, err)
		}
		return nil
	}
	if err := os.Rename(stagingPath, blobPath); err != nil {
		return fmt.Errorf("promote %s to %s: %w", stagingPath, blobPath, err)
	}
	return nil
}

// CollectBlob removes blobs/<hash> when no filenode references the hash any
// longer. A missing blob file is not an error (idempotent deletion), and the
// empty hash never has a blob to collect.
func (r *Repository) CollectBlob(hash string) error {
	if hash == "" || hash == r.emptyHash {
		return nil
	}

	pointers, err := metadata.FetchAll(
		r.store.Query(metadata.Filenodes).Select("id").Where(
			metadata.Constraint{Field: "hash", Op: metadata.OpIs, Value: hash},
		),
		scanFilenodeID,
	)
	if err != nil {
		return err
	}
	if len(pointers) > 0 {
		return nil
	}

	if err := os.Remove(r.BlobPath(hash)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove blob %s: %w", hash, err)
	}
	return nil
}

// scanFilenodeID scans an id-only filenode projection.
func scanFilenodeID(rows *sql.Rows) (*int64, error) {
	var id int64
	if err := rows.Scan(&id); err != nil {
		return nil, fmt.Errorf("scan filenode id: %w", err)
	}
	return &id, nil
}
