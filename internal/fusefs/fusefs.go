// Package fusefs adapts the kernel FUSE protocol to the filesystem facade.
// The adapter owns two tables: inode ids mapped to logical paths, and file
// handles mapped to the OS descriptors the operations layer works with. The
// facade stays protocol-agnostic; everything FUSE-specific lives here.
package fusefs

import (
	"context"
	"errors"
	"os"
	gopath "path"
	"strings"
	"sync"
	"time"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
	"golang.org/x/sys/unix"

	"github.com/mvp-joe/queryfs/internal/fserr"
	"github.com/mvp-joe/queryfs/internal/ops"
	"github.com/mvp-joe/queryfs/internal/queryfs"
)

// cacheTTL is how long the kernel may cache entries and attributes we hand
// out. Short, because metadata can change through other verbs between
// lookups.
const cacheTTL = time.Second

// fileHandle ties a FUSE handle to the OS descriptor and the logical path
// it was opened for; release needs both.
type fileHandle struct {
	fd   int
	path string
}

// FileSystem implements fuseutil.FileSystem over an FSFacade.
type FileSystem struct {
	fuseutil.NotImplementedFileSystem

	facade *queryfs.FSFacade

	mu         sync.Mutex
	inodes     map[fuseops.InodeID]string
	byPath     map[string]fuseops.InodeID
	nextInode  fuseops.InodeID
	handles    map[fuseops.HandleID]fileHandle
	nextHandle fuseops.HandleID
}

// New builds the adapter around a facade.
func New(facade *queryfs.FSFacade) *FileSystem {
	return &FileSystem{
		facade:     facade,
		inodes:     map[fuseops.InodeID]string{fuseops.RootInodeID: "/"},
		byPath:     map[string]fuseops.InodeID{"/": fuseops.RootInodeID},
		nextInode:  fuseops.RootInodeID + 1,
		handles:    make(map[fuseops.HandleID]fileHandle),
		nextHandle: 1,
	}
}

// Server returns a fuseutil server dispatching to the adapter.
func (fs *FileSystem) Server() fuse.Server {
	return fuseutil.NewFileSystemServer(fs)
}

// mapError translates the closed taxonomy into FUSE errnos.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fserr.ErrNotFound):
		return fuse.ENOENT
	case errors.Is(err, fserr.ErrAccessDenied):
		return unix.EACCES
	case errors.Is(err, fserr.ErrUnsupported):
		return fuse.ENOSYS
	default:
		return fuse.EIO
	}
}

// pathForInode returns the logical path an inode was issued for.
func (fs *FileSystem) pathForInode(id fuseops.InodeID) (string, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	p, ok := fs.inodes[id]
	return p, ok
}

// inodeForPath returns the inode for a logical path, allocating on first
// sight.
func (fs *FileSystem) inodeForPath(path string) fuseops.InodeID {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if id, ok := fs.byPath[path]; ok {
		return id
	}
	id := fs.nextInode
	fs.nextInode++
	fs.byPath[path] = id
	fs.inodes[id] = path
	return id
}

// retarget rewrites the inode tables after a rename, including every path
// below a renamed directory.
func (fs *FileSystem) retarget(oldPath, newPath string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	prefix := oldPath + "/"
	for p, id := range fs.byPath {
		var moved string
		switch {
		case p == oldPath:
			moved = newPath
		case strings.HasPrefix(p, prefix):
			moved = newPath + "/" + strings.TrimPrefix(p, prefix)
		default:
			continue
		}
		delete(fs.byPath, p)
		fs.byPath[moved] = id
		fs.inodes[id] = moved
	}
}

// allocHandle mints a FUSE handle for an OS descriptor.
func (fs *FileSystem) allocHandle(fd int, path string) fuseops.HandleID {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	h := fs.nextHandle
	fs.nextHandle++
	fs.handles[h] = fileHandle{fd: fd, path: path}
	return h
}

// handle returns the descriptor behind a FUSE handle.
func (fs *FileSystem) handle(id fuseops.HandleID) (fileHandle, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	h, ok := fs.handles[id]
	return h, ok
}

// dropHandle forgets a FUSE handle.
func (fs *FileSystem) dropHandle(id fuseops.HandleID) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.handles, id)
}

// inodeAttributes converts operation attributes to the FUSE shape.
func inodeAttributes(attr *ops.Attr) fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Size:  uint64(attr.Size),
		Nlink: uint32(attr.Nlink),
		Mode:  fileMode(attr.Mode),
		Atime: timeFromSeconds(attr.Atime),
		Mtime: timeFromSeconds(attr.Mtime),
		Ctime: timeFromSeconds(attr.Ctime),
		Uid:   attr.UID,
		Gid:   attr.GID,
	}
}

// fileMode converts raw host st_mode bits to an os.FileMode.
func fileMode(raw uint32) os.FileMode {
	mode := os.FileMode(raw & 0o777)
	switch raw & unix.S_IFMT {
	case unix.S_IFDIR:
		mode |= os.ModeDir
	case unix.S_IFLNK:
		mode |= os.ModeSymlink
	case unix.S_IFIFO:
		mode |= os.ModeNamedPipe
	case unix.S_IFSOCK:
		mode |= os.ModeSocket
	case unix.S_IFBLK, unix.S_IFCHR:
		mode |= os.ModeDevice
	}
	return mode
}

func timeFromSeconds(sec float64) time.Time {
	return time.Unix(0, int64(sec*1e9))
}

// childEntry fills a lookup entry for a logical path.
func (fs *FileSystem) childEntry(path string, entry *fuseops.ChildInodeEntry) error {
	attr, err := fs.facade.GetAttr(path, nil)
	if err != nil {
		return err
	}
	entry.Child = fs.inodeForPath(path)
	entry.Attributes = inodeAttributes(attr)
	entry.AttributesExpiration = time.Now().Add(cacheTTL)
	entry.EntryExpiration = time.Now().Add(cacheTTL)
	return nil
}

func (fs *FileSystem) StatFS(ctx context.Context, op *fuseops.StatFSOp) error {
	st, err := fs.facade.StatFS("/")
	if err != nil {
		return mapError(err)
	}
	op.BlockSize = uint32(st.Frsize)
	op.Blocks = st.Blocks
	op.BlocksFree = st.Bfree
	op.BlocksAvailable = st.Bavail
	op.IoSize = uint32(st.Bsize)
	op.Inodes = st.Files
	op.InodesFree = st.Ffree
	return nil
}

func (fs *FileSystem) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error {
	parent, ok := fs.pathForInode(op.Parent)
	if !ok {
		return fuse.ENOENT
	}
	if err := fs.childEntry(gopath.Join(parent, op.Name), &op.Entry); err != nil {
		return mapError(err)
	}
	return nil
}

func (fs *FileSystem) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) error {
	path, ok := fs.pathForInode(op.Inode)
	if !ok {
		return fuse.ENOENT
	}
	attr, err := fs.facade.GetAttr(path, nil)
	if err != nil {
		return mapError(err)
	}
	op.Attributes = inodeAttributes(attr)
	op.AttributesExpiration = time.Now().Add(cacheTTL)
	return nil
}

func (fs *FileSystem) SetInodeAttributes(ctx context.Context, op *fuseops.SetInodeAttributesOp) error {
	path, ok := fs.pathForInode(op.Inode)
	if !ok {
		return fuse.ENOENT
	}

	// Only the ftruncate shape is meaningful here; chmod/chown/utimens are
	// declared unsupported by the facade.
	if op.Mode != nil || op.Uid != nil || op.Gid != nil || op.Atime != nil || op.Mtime != nil {
		return fuse.ENOSYS
	}
	if op.Size != nil {
		var fh *int
		if op.Handle != nil {
			if h, ok := fs.handle(*op.Handle); ok {
				fh = &h.fd
			}
		}
		if err := fs.facade.Truncate(path, int64(*op.Size), fh); err != nil {
			return mapError(err)
		}
	}

	attr, err := fs.facade.GetAttr(path, nil)
	if err != nil {
		return mapError(err)
	}
	op.Attributes = inodeAttributes(attr)
	op.AttributesExpiration = time.Now().Add(cacheTTL)
	return nil
}

func (fs *FileSystem) ForgetInode(ctx context.Context, op *fuseops.ForgetInodeOp) error {
	return nil
}

func (fs *FileSystem) MkDir(ctx context.Context, op *fuseops.MkDirOp) error {
	parent, ok := fs.pathForInode(op.Parent)
	if !ok {
		return fuse.ENOENT
	}
	path := gopath.Join(parent, op.Name)
	if err := fs.facade.MkDir(path, uint32(op.Mode.Perm())); err != nil {
		return mapError(err)
	}
	if err := fs.childEntry(path, &op.Entry); err != nil {
		return mapError(err)
	}
	return nil
}

func (fs *FileSystem) CreateFile(ctx context.Context, op *fuseops.CreateFileOp) error {
	parent, ok := fs.pathForInode(op.Parent)
	if !ok {
		return fuse.ENOENT
	}
	path := gopath.Join(parent, op.Name)

	fd, err := fs.facade.Create(path, uint32(op.Mode.Perm()))
	if err != nil {
		return mapError(err)
	}
	if err := fs.childEntry(path, &op.Entry); err != nil {
		return mapError(err)
	}
	op.Handle = fs.allocHandle(fd, path)
	return nil
}

func (fs *FileSystem) RmDir(ctx context.Context, op *fuseops.RmDirOp) error {
	parent, ok := fs.pathForInode(op.Parent)
	if !ok {
		return fuse.ENOENT
	}
	return mapError(fs.facade.RmDir(gopath.Join(parent, op.Name)))
}

func (fs *FileSystem) Unlink(ctx context.Context, op *fuseops.UnlinkOp) error {
	parent, ok := fs.pathForInode(op.Parent)
	if !ok {
		return fuse.ENOENT
	}
	return mapError(fs.facade.Unlink(gopath.Join(parent, op.Name)))
}

func (fs *FileSystem) Rename(ctx context.Context, op *fuseops.RenameOp) error {
	oldParent, ok := fs.pathForInode(op.OldParent)
	if !ok {
		return fuse.ENOENT
	}
	newParent, ok := fs.pathForInode(op.NewParent)
	if !ok {
		return fuse.ENOENT
	}
	oldPath := gopath.Join(oldParent, op.OldName)
	newPath := gopath.Join(newParent, op.NewName)

	if err := fs.facade.Rename(oldPath, newPath); err != nil {
		return mapError(err)
	}
	fs.retarget(oldPath, newPath)
	return nil
}

func (fs *FileSystem) OpenDir(ctx context.Context, op *fuseops.OpenDirOp) error {
	if _, ok := fs.pathForInode(op.Inode); !ok {
		return fuse.ENOENT
	}
	return nil
}

func (fs *FileSystem) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) error {
	path, ok := fs.pathForInode(op.Inode)
	if !ok {
		return fuse.ENOENT
	}

	names, err := fs.facade.ReadDir(path)
	if err != nil {
		return mapError(err)
	}

	entries := make([]fuseutil.Dirent, 0, len(names))
	for _, name := range names {
		if name == "." || name == ".." {
			continue
		}
		child := gopath.Join(path, name)
		direntType := fuseutil.DT_File
		if attr, err := fs.facade.GetAttr(child, nil); err == nil && attr.IsDir() {
			direntType = fuseutil.DT_Directory
		}
		entries = append(entries, fuseutil.Dirent{
			Offset: fuseops.DirOffset(len(entries) + 1),
			Inode:  fs.inodeForPath(child),
			Name:   name,
			Type:   direntType,
		})
	}

	if op.Offset > fuseops.DirOffset(len(entries)) {
		return fuse.EIO
	}
	for _, e := range entries[op.Offset:] {
		n := fuseutil.WriteDirent(op.Dst[op.BytesRead:], e)
		if n == 0 {
			break
		}
		op.BytesRead += n
	}
	return nil
}

func (fs *FileSystem) ReleaseDirHandle(ctx context.Context, op *fuseops.ReleaseDirHandleOp) error {
	return nil
}

func (fs *FileSystem) OpenFile(ctx context.Context, op *fuseops.OpenFileOp) error {
	path, ok := fs.pathForInode(op.Inode)
	if !ok {
		return fuse.ENOENT
	}

	// Read-only access keeps flags at zero so the blob is served directly;
	// any write intent stages a copy.
	flags := int(op.OpenFlags) & unix.O_ACCMODE
	fd, err := fs.facade.Open(path, flags)
	if err != nil {
		return mapError(err)
	}
	op.Handle = fs.allocHandle(fd, path)
	return nil
}

func (fs *FileSystem) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error {
	h, ok := fs.handle(op.Handle)
	if !ok {
		return fuse.EIO
	}
	data, err := fs.facade.Read(h.path, len(op.Dst), op.Offset, h.fd)
	if err != nil {
		return mapError(err)
	}
	op.BytesRead = copy(op.Dst, data)
	return nil
}

func (fs *FileSystem) WriteFile(ctx context.Context, op *fuseops.WriteFileOp) error {
	h, ok := fs.handle(op.Handle)
	if !ok {
		return fuse.EIO
	}
	if _, err := fs.facade.Write(h.path, op.Data, op.Offset, h.fd); err != nil {
		return mapError(err)
	}
	return nil
}

func (fs *FileSystem) FlushFile(ctx context.Context, op *fuseops.FlushFileOp) error {
	h, ok := fs.handle(op.Handle)
	if !ok {
		return fuse.EIO
	}
	return mapError(fs.facade.Flush(h.path, h.fd))
}

func (fs *FileSystem) SyncFile(ctx context.Context, op *fuseops.SyncFileOp) error {
	h, ok := fs.handle(op.Handle)
	if !ok {
		return fuse.EIO
	}
	return mapError(fs.facade.Fsync(h.path, false, h.fd))
}

func (fs *FileSystem) ReleaseFileHandle(ctx context.Context, op *fuseops.ReleaseFileHandleOp) error {
	h, ok := fs.handle(op.Handle)
	if !ok {
		return fuse.EIO
	}
	fs.dropHandle(op.Handle)
	return mapError(fs.facade.Release(h.path, h.fd))
}
