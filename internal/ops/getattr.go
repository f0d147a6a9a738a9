package ops

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/mvp-joe/queryfs/internal/fserr"
	"github.com/mvp-joe/queryfs/internal/repository"
)

// Attr is the attribute set returned by GetAttr. Mode carries the raw host
// st_mode bits (file type included); times are unix seconds.
type Attr struct {
	Mode  uint32
	Nlink uint64
	UID   uint32
	GID   uint32
	Size  int64
	Atime float64
	Mtime float64
	Ctime float64
}

// IsDir reports whether the mode bits name a directory.
func (a *Attr) IsDir() bool {
	return a.Mode&unix.S_IFMT == unix.S_IFDIR
}

// GetAttr stats the backing of path. For a file row the blob is stat'ed and
// the metadata-stored times and size are overlaid, so attributes reflect the
// logical file rather than the shared blob.
func GetAttr(r *repository.Repository, path string, fh *int) (*Attr, error) {
	res, err := r.ResolvePath(path)
	if err != nil {
		return nil, err
	}

	target, node, err := backing(r, res)
	if err != nil {
		return nil, err
	}

	var st unix.Stat_t
	if err := unix.Lstat(target, &st); err != nil {
		if err == unix.ENOENT {
			return nil, fmt.Errorf("%w: %s", fserr.ErrNotFound, path)
		}
		return nil, fserr.IO(fmt.Errorf("lstat %s: %w", target, err))
	}

	attr := &Attr{
		Mode:  uint32(st.Mode),
		Nlink: uint64(st.Nlink),
		UID:   uint32(st.Uid),
		GID:   uint32(st.Gid),
		Size:  int64(st.Size),
		Atime: timespecSeconds(st.Atim),
		Mtime: timespecSeconds(st.Mtim),
		Ctime: timespecSeconds(st.Ctim),
	}

	if node != nil {
		attr.Atime = node.Atime
		attr.Mtime = node.Mtime
		attr.Ctime = node.Ctime
		attr.Size = node.Size
	}
	return attr, nil
}
