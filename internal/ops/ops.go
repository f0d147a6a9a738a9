// Package ops implements the filesystem verbs over a repository. Each
// operation is a function taking the repository and the protocol arguments;
// failures come from the closed taxonomy in the fserr package. File handles
// are raw OS descriptors; the repository's writable set decides whether a
// release promotes staged content.
package ops

import (
	"golang.org/x/sys/unix"

	"github.com/mvp-joe/queryfs/internal/fserr"
	"github.com/mvp-joe/queryfs/internal/metadata"
	"github.com/mvp-joe/queryfs/internal/repository"
)

// backing maps a resolution to the host path an operation acts on: the blob
// for a file row (plus its filenode for the metadata overlay), the temp root
// for a directory row, the resolved path itself otherwise.
func backing(r *repository.Repository, res repository.Resolved) (string, *metadata.Filenode, error) {
	switch v := res.(type) {
	case repository.ResolvedFile:
		node, err := v.File.Filenode(r.Store())
		if err != nil {
			return "", nil, err
		}
		if node == nil {
			return "", nil, fserr.Invariantf("missing filenode for file %d (%s)", v.File.ID, v.File.Name)
		}
		return r.BlobPath(node.Hash), node, nil
	case repository.ResolvedDirectory:
		return r.Temp(), nil, nil
	case repository.ResolvedPath:
		return v.Path, nil, nil
	default:
		return "", nil, fserr.Invariantf("unknown resolution %T", res)
	}
}

// timespecSeconds converts a host timespec to unix seconds.
func timespecSeconds(ts unix.Timespec) float64 {
	return float64(ts.Sec) + float64(ts.Nsec)/1e9
}
