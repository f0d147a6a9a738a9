package ops

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/mvp-joe/queryfs/internal/fserr"
	"github.com/mvp-joe/queryfs/internal/repository"
)

// StatFS carries the block and inode counters of the filesystem holding the
// resolved backing path.
type StatFS struct {
	Bsize   int64
	Frsize  int64
	Blocks  uint64
	Bfree   uint64
	Bavail  uint64
	Files   uint64
	Ffree   uint64
	Favail  uint64
	Flags   int64
	Namemax int64
}

// StatFSOp stats the filesystem containing the backing of path.
func StatFSOp(r *repository.Repository, path string) (*StatFS, error) {
	res, err := r.ResolvePath(path)
	if err != nil {
		return nil, err
	}

	target, _, err := backing(r, res)
	if err != nil {
		return nil, err
	}

	var st unix.Statfs_t
	if err := unix.Statfs(target, &st); err != nil {
		// A prospective staging path has nothing on disk; fall back to the
		// staging root, which lives on the same filesystem.
		if err == unix.ENOENT {
			if err2 := unix.Statfs(r.Temp(), &st); err2 != nil {
				return nil, fserr.IO(fmt.Errorf("statfs %s: %w", r.Temp(), err2))
			}
		} else {
			return nil, fserr.IO(fmt.Errorf("statfs %s: %w", target, err))
		}
	}

	return &StatFS{
		Bsize:   int64(st.Bsize),
		Frsize:  int64(st.Frsize),
		Blocks:  uint64(st.Blocks),
		Bfree:   uint64(st.Bfree),
		Bavail:  uint64(st.Bavail),
		Files:   uint64(st.Files),
		Ffree:   uint64(st.Ffree),
		Favail:  uint64(st.Ffree),
		Flags:   int64(st.Flags),
		Namemax: int64(st.Namelen),
	}, nil
}
