package ops

import (
	"fmt"
	"os"
	gopath "path"
	"time"

	"golang.org/x/sys/unix"

	"github.com/mvp-joe/queryfs/internal/fserr"
	"github.com/mvp-joe/queryfs/internal/hashing"
	"github.com/mvp-joe/queryfs/internal/metadata"
	"github.com/mvp-joe/queryfs/internal/repository"
)

// Release closes fh. For a writable handle the staged content is then
// promoted: hashed, recorded in the metadata store (updating the current
// filenode in place, or inserting file + filenode for a new path), and moved
// into the blob store. Empty content is discarded entirely — no row, no
// blob. A blob that loses its last referrer through the in-place update is
// collected.
func Release(r *repository.Repository, path string, fh int) error {
	res, err := r.ResolvePath(path)
	if err != nil {
		return err
	}

	var stagedPath string
	switch v := res.(type) {
	case repository.ResolvedFile:
		node, err := v.File.Filenode(r.Store())
		if err != nil {
			return err
		}
		if node == nil {
			return fserr.Invariantf("missing filenode for file %d (%s)", v.File.ID, v.File.Name)
		}
		stagedPath = r.BlobPath(node.Hash)
	case repository.ResolvedDirectory:
		return fserr.Invariantf("release directory %s", path)
	case repository.ResolvedPath:
		stagedPath = v.Path
	}

	if err := unix.Close(fh); err != nil {
		return fserr.IO(fmt.Errorf("close %s: %w", path, err))
	}

	if !r.ClearWritable(fh) {
		return nil
	}

	hash, err := hashing.HashFile(stagedPath)
	if err != nil {
		return fserr.IO(err)
	}

	if hash == r.EmptyHash() {
		// Nothing worth keeping was written; drop the staging file.
		if err := os.Remove(stagedPath); err != nil && !os.IsNotExist(err) {
			return fserr.IO(fmt.Errorf("discard empty staging file %s: %w", stagedPath, err))
		}
		return nil
	}

	st, err := os.Stat(stagedPath)
	if err != nil {
		return fserr.IO(fmt.Errorf("stat staging file %s: %w", stagedPath, err))
	}
	size := st.Size()
	now := float64(time.Now().UnixNano()) / 1e9

	parentID, err := r.ParentDirectoryID(path)
	if err != nil {
		return err
	}

	name := gopath.Base(path)
	file, err := metadata.FetchOne(
		r.Store().Query(metadata.Files).Select().Where(
			metadata.Constraint{Field: "name", Op: metadata.OpEq, Value: name},
			metadata.Constraint{Field: "directory_id", Op: metadata.OpIs, Value: parentID},
		),
		metadata.ScanFile,
	)
	if err != nil {
		return err
	}

	if file != nil {
		node, err := file.Filenode(r.Store())
		if err != nil {
			return err
		}
		if node == nil {
			return fserr.Invariantf("missing filenode for file %d (%s)", file.ID, file.Name)
		}
		previousHash := node.Hash

		_, err = r.Store().Query(metadata.Filenodes).Update(map[string]any{
			"hash":  hash,
			"atime": now,
			"mtime": now,
			"size":  size,
		}).Where(
			metadata.Constraint{Field: "id", Op: metadata.OpIs, Value: node.ID},
		).Exec()
		if err != nil {
			return err
		}

		// The old content may now be unreferenced.
		if err := r.CollectBlob(previousHash); err != nil {
			return err
		}
	} else {
		nodeID, err := r.Store().Query(metadata.Filenodes).Insert(map[string]any{
			"hash":                 hash,
			"ctime":                now,
			"atime":                now,
			"mtime":                now,
			"size":                 size,
			"previous_filenode_id": nil,
		}).Exec()
		if err != nil {
			return err
		}

		_, err = r.Store().Query(metadata.Files).Insert(map[string]any{
			"name":         name,
			"directory_id": parentID,
			"filenode_id":  nodeID,
		}).Exec()
		if err != nil {
			return err
		}
	}

	return r.StoreBlob(stagedPath, hash)
}
