package repository

import (
	"github.com/mvp-joe/queryfs/internal/fserr"
	"github.com/mvp-joe/queryfs/internal/metadata"
)

// UnlinkFilenode deletes a filenode row and collects its blob if the hash
// lost its last referrer. With recursively set, the previous-version chain
// is unlinked first (oldest deleted first, then node itself).
func (r *Repository) UnlinkFilenode(node *metadata.Filenode, recursively bool) error {
	if recursively {
		prev, err := node.Previous(r.store)
		if err != nil {
			return err
		}
		if prev != nil {
			if err := r.UnlinkFilenode(prev, recursively); err != nil {
				return err
			}
		}
	}

	_, err := r.store.Query(metadata.Filenodes).Delete().Where(
		metadata.Constraint{Field: "id", Op: metadata.OpIs, Value: node.ID},
	).Exec()
	if err != nil {
		return err
	}

	return r.CollectBlob(node.Hash)
}

// UnlinkFile deletes a file row and its whole filenode history.
func (r *Repository) UnlinkFile(file *metadata.File) error {
	node, err := file.Filenode(r.store)
	if err != nil {
		return err
	}
	if node == nil {
		return fserr.Invariantf("missing filenode for file %d (%s)", file.ID, file.Name)
	}

	_, err = r.store.Query(metadata.Files).Delete().Where(
		metadata.Constraint{Field: "id", Op: metadata.OpIs, Value: file.ID},
	).Exec()
	if err != nil {
		return err
	}

	return r.UnlinkFilenode(node, true)
}

// Commit snapshots the current filenode of the file at the logical path: a
// copy of the head is inserted as the new head with previous_filenode_id
// pointing at the old one, which becomes immutable history. Paths that do
// not resolve to a file are ignored.
func (r *Repository) Commit(logical string) error {
	entity, err := r.ResolveEntity(logical)
	if err != nil {
		return err
	}
	file, ok := entity.(ResolvedFile)
	if !ok {
		return nil
	}

	node, err := file.File.Filenode(r.store)
	if err != nil {
		return err
	}
	if node == nil {
		return fserr.Invariantf("missing filenode for file %d (%s)", file.File.ID, file.File.Name)
	}

	newID, err := r.store.Query(metadata.Filenodes).Insert(map[string]any{
		"hash":                 node.Hash,
		"ctime":                node.Ctime,
		"atime":                node.Atime,
		"mtime":                node.Mtime,
		"size":                 node.Size,
		"previous_filenode_id": node.ID,
	}).Exec()
	if err != nil {
		return err
	}

	_, err = r.store.Query(metadata.Files).Update(map[string]any{
		"filenode_id": newID,
	}).Where(
		metadata.Constraint{Field: "id", Op: metadata.OpIs, Value: file.File.ID},
	).Exec()
	return err
}

// Rollback retracts the head version of the file at the logical path: the
// file is re-pointed at the previous filenode and the abandoned head is
// unlinked non-recursively, so history beyond it survives. Files without a
// previous version are left untouched.
func (r *Repository) Rollback(logical string) error {
	entity, err := r.ResolveEntity(logical)
	if err != nil {
		return err
	}
	file, ok := entity.(ResolvedFile)
	if !ok {
		return nil
	}

	node, err := file.File.Filenode(r.store)
	if err != nil {
		return err
	}
	if node == nil {
		return fserr.Invariantf("missing filenode for file %d (%s)", file.File.ID, file.File.Name)
	}

	prev, err := node.Previous(r.store)
	if err != nil {
		return err
	}
	if prev == nil {
		return nil
	}

	_, err = r.store.Query(metadata.Files).Update(map[string]any{
		"filenode_id": prev.ID,
	}).Where(
		metadata.Constraint{Field: "id", Op: metadata.OpIs, Value: file.File.ID},
	).Exec()
	if err != nil {
		return err
	}

	return r.UnlinkFilenode(node, false)
}
