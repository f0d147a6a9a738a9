// Package queryfs wires the protocol-facing surface of the filesystem: a
// facade dispatching each verb to the operations layer through a
// path-keyed attribute cache, with the unsupported verbs declared
// inoperative.
package queryfs

import (
	"fmt"
	gopath "path"

	"github.com/mvp-joe/queryfs/internal/fserr"
	"github.com/mvp-joe/queryfs/internal/ops"
	"github.com/mvp-joe/queryfs/internal/repository"
)

// FSFacade is the operations surface consumed by the kernel-protocol
// adapter. It owns the attribute cache; every mutating verb invalidates the
// entries its effect could stale.
type FSFacade struct {
	repo  *repository.Repository
	cache *AttrCache
}

// New opens the repository at root and builds the facade around it with the
// default cache capacity.
func New(root string) (*FSFacade, error) {
	repo, err := repository.New(root)
	if err != nil {
		return nil, err
	}
	return NewWithRepository(repo, 0)
}

// NewWithRepository builds the facade around an existing repository.
func NewWithRepository(repo *repository.Repository, cacheCapacity int) (*FSFacade, error) {
	cache, err := NewAttrCache(cacheCapacity)
	if err != nil {
		return nil, err
	}
	return &FSFacade{repo: repo, cache: cache}, nil
}

// Repository exposes the underlying repository (maintenance commands use it).
func (f *FSFacade) Repository() *repository.Repository { return f.repo }

// Close releases the facade's cache.
func (f *FSFacade) Close() {
	f.cache.Close()
}

// Access checks host access for path.
func (f *FSFacade) Access(path string, amode uint32) error {
	return ops.Access(f.repo, path, amode)
}

// GetAttr returns the (possibly cached) attributes of path.
func (f *FSFacade) GetAttr(path string, fh *int) (*ops.Attr, error) {
	return f.cache.GetAttr(path, func() (*ops.Attr, error) {
		return ops.GetAttr(f.repo, path, fh)
	})
}

// ReadDir returns the (possibly cached) listing of path.
func (f *FSFacade) ReadDir(path string) ([]string, error) {
	return f.cache.ReadDir(path, func() ([]string, error) {
		return ops.ReadDir(f.repo, path)
	})
}

// StatFS returns the (possibly cached) filesystem counters for path.
func (f *FSFacade) StatFS(path string) (*ops.StatFS, error) {
	return f.cache.StatFS(path, func() (*ops.StatFS, error) {
		return ops.StatFSOp(f.repo, path)
	})
}

// MkDir creates a directory.
func (f *FSFacade) MkDir(path string, mode uint32) error {
	f.cache.InvalidateDir(gopath.Dir(path))
	return ops.MkDir(f.repo, path, mode)
}

// RmDir removes a directory tree.
func (f *FSFacade) RmDir(path string) error {
	f.cache.InvalidateDir(gopath.Dir(path))
	f.cache.InvalidateAttr(path)
	return ops.RmDir(f.repo, path)
}

// Rename moves a file or directory.
func (f *FSFacade) Rename(oldPath, newPath string) error {
	f.cache.InvalidateDir(gopath.Dir(oldPath))
	f.cache.InvalidateDir(gopath.Dir(newPath))
	f.cache.InvalidateAttr(oldPath)
	f.cache.InvalidateAttr(newPath)
	return ops.Rename(f.repo, oldPath, newPath)
}

// Create opens a fresh writable staging file.
func (f *FSFacade) Create(path string, mode uint32) (int, error) {
	f.cache.InvalidateDir(gopath.Dir(path))
	f.cache.InvalidateAttr(path)
	return ops.Create(f.repo, path, mode)
}

// Open opens an existing file.
func (f *FSFacade) Open(path string, flags int) (int, error) {
	f.cache.InvalidateDir(gopath.Dir(path))
	return ops.Open(f.repo, path, flags)
}

// Unlink removes a file.
func (f *FSFacade) Unlink(path string) error {
	f.cache.InvalidateDir(gopath.Dir(path))
	f.cache.InvalidateAttr(path)
	return ops.Unlink(f.repo, path)
}

// Truncate resizes the file behind a writable handle.
func (f *FSFacade) Truncate(path string, length int64, fh *int) error {
	f.cache.InvalidateDir(gopath.Dir(path))
	f.cache.InvalidateAttr(path)
	return ops.Truncate(f.repo, path, length, fh)
}

// Read reads from an open handle.
func (f *FSFacade) Read(path string, size int, offset int64, fh int) ([]byte, error) {
	return ops.Read(f.repo, path, size, offset, fh)
}

// Write writes to an open handle.
func (f *FSFacade) Write(path string, data []byte, offset int64, fh int) (int, error) {
	f.cache.InvalidateAttr(path)
	return ops.Write(f.repo, path, data, offset, fh)
}

// Flush syncs an open handle.
func (f *FSFacade) Flush(path string, fh int) error {
	f.cache.InvalidateAttr(path)
	return ops.Flush(f.repo, path, fh)
}

// Fsync syncs an open handle.
func (f *FSFacade) Fsync(path string, datasync bool, fh int) error {
	f.cache.InvalidateAttr(path)
	return ops.Fsync(f.repo, path, datasync, fh)
}

// Release closes a handle, promoting staged content when it was writable.
func (f *FSFacade) Release(path string, fh int) error {
	f.cache.InvalidateDir(gopath.Dir(path))
	f.cache.InvalidateAttr(path)
	return ops.Release(f.repo, path, fh)
}

// The ACL/permission layer is not implemented; each verb below is declared
// inoperative.

func (f *FSFacade) Chmod(path string, mode uint32) error {
	return fmt.Errorf("%w: chmod %s", fserr.ErrUnsupported, path)
}

func (f *FSFacade) Chown(path string, uid, gid uint32) error {
	return fmt.Errorf("%w: chown %s", fserr.ErrUnsupported, path)
}

func (f *FSFacade) GetXattr(path, name string) ([]byte, error) {
	return nil, fmt.Errorf("%w: getxattr %s", fserr.ErrUnsupported, path)
}

func (f *FSFacade) SetXattr(path, name string, value []byte) error {
	return fmt.Errorf("%w: setxattr %s", fserr.ErrUnsupported, path)
}

func (f *FSFacade) ReadLink(path string) (string, error) {
	return "", fmt.Errorf("%w: readlink %s", fserr.ErrUnsupported, path)
}

func (f *FSFacade) MkNod(path string, mode uint32, dev uint64) error {
	return fmt.Errorf("%w: mknod %s", fserr.ErrUnsupported, path)
}

func (f *FSFacade) Symlink(target, link string) error {
	return fmt.Errorf("%w: symlink %s", fserr.ErrUnsupported, link)
}

func (f *FSFacade) Link(target, link string) error {
	return fmt.Errorf("%w: link %s", fserr.ErrUnsupported, link)
}

func (f *FSFacade) Utimens(path string) error {
	return fmt.Errorf("%w: utimens %s", fserr.ErrUnsupported, path)
}
