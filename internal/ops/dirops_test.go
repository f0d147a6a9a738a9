package ops

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/queryfs/internal/fserr"
	"github.com/mvp-joe/queryfs/internal/metadata"
)

func TestMkDirAndReadDirRoot(t *testing.T) {
	r := newTestRepo(t)

	require.NoError(t, MkDir(r, "/a", 0o755))
	createAndWrite(t, r, "/top.txt", []byte("x"))

	entries, err := ReadDir(r, "/")
	require.NoError(t, err)
	sort.Strings(entries)
	assert.Equal(t, []string{".", "..", "a", "top.txt"}, entries)
}

func TestMkDirNested(t *testing.T) {
	r := newTestRepo(t)

	require.NoError(t, MkDir(r, "/a", 0o755))
	require.NoError(t, MkDir(r, "/a/b", 0o755))

	entries, err := ReadDir(r, "/a")
	require.NoError(t, err)
	assert.Contains(t, entries, "b")

	// The nested row carries its parent's id, not the null scope.
	dirs, err := metadata.FetchAll(r.Store().Query(metadata.Directories).Select(), metadata.ScanDirectory)
	require.NoError(t, err)
	require.Len(t, dirs, 2)
	for _, d := range dirs {
		if d.Name == "b" {
			assert.True(t, d.ParentID.Valid)
		}
	}
}

func TestMkDirExistingNameDenied(t *testing.T) {
	r := newTestRepo(t)

	require.NoError(t, MkDir(r, "/a", 0o755))
	assert.ErrorIs(t, MkDir(r, "/a", 0o755), fserr.ErrAccessDenied)

	createAndWrite(t, r, "/f.txt", []byte("x"))
	assert.ErrorIs(t, MkDir(r, "/f.txt", 0o755), fserr.ErrAccessDenied)
}

func TestMkDirUnderFileDenied(t *testing.T) {
	r := newTestRepo(t)

	createAndWrite(t, r, "/f.txt", []byte("x"))
	assert.ErrorIs(t, MkDir(r, "/f.txt/sub", 0o755), fserr.ErrAccessDenied)
}

func TestRmDirRecursive(t *testing.T) {
	r := newTestRepo(t)

	require.NoError(t, MkDir(r, "/a", 0o755))
	require.NoError(t, MkDir(r, "/a/b", 0o755))
	createAndWrite(t, r, "/a/f.txt", []byte("hello"))
	createAndWrite(t, r, "/a/b/g.txt", []byte("deep"))

	require.NoError(t, RmDir(r, "/a"))

	assert.Empty(t, blobNames(t, r))
	assert.Equal(t, 0, countRows(t, r, metadata.Directories, metadata.ScanDirectory))
	assert.Equal(t, 0, countRows(t, r, metadata.Files, metadata.ScanFile))
	assert.Equal(t, 0, countRows(t, r, metadata.Filenodes, metadata.ScanFilenode))
}

func TestRmDirAfterUnlink(t *testing.T) {
	r := newTestRepo(t)

	require.NoError(t, MkDir(r, "/a", 0o755))
	createAndWrite(t, r, "/a/f.txt", []byte("hello"))

	require.NoError(t, Unlink(r, "/a/f.txt"))
	require.NoError(t, RmDir(r, "/a"))

	assert.Empty(t, blobNames(t, r))
	assert.Equal(t, 0, countRows(t, r, metadata.Directories, metadata.ScanDirectory))
}

func TestRmDirMissing(t *testing.T) {
	r := newTestRepo(t)
	assert.ErrorIs(t, RmDir(r, "/nope"), fserr.ErrNotFound)
}

func TestRenameFileKeepsContent(t *testing.T) {
	r := newTestRepo(t)

	createAndWrite(t, r, "/a.txt", []byte("hello"))
	before := blobNames(t, r)

	require.NoError(t, Rename(r, "/a.txt", "/b.txt"))

	// Metadata-only: the blob store did not change.
	assert.Equal(t, before, blobNames(t, r))
	assert.Equal(t, []byte("hello"), readBack(t, r, "/b.txt"))

	_, err := Open(r, "/a.txt", 0)
	assert.ErrorIs(t, err, fserr.ErrNotFound)
}

func TestRenameIntoDirectory(t *testing.T) {
	r := newTestRepo(t)

	require.NoError(t, MkDir(r, "/d", 0o755))
	createAndWrite(t, r, "/f.txt", []byte("hello"))

	require.NoError(t, Rename(r, "/f.txt", "/d/g.txt"))

	entries, err := ReadDir(r, "/d")
	require.NoError(t, err)
	assert.Contains(t, entries, "g.txt")

	root, err := ReadDir(r, "/")
	require.NoError(t, err)
	assert.NotContains(t, root, "f.txt")

	assert.Equal(t, []byte("hello"), readBack(t, r, "/d/g.txt"))
}

func TestRenameDirectory(t *testing.T) {
	r := newTestRepo(t)

	require.NoError(t, MkDir(r, "/a", 0o755))
	createAndWrite(t, r, "/a/f.txt", []byte("hello"))

	require.NoError(t, Rename(r, "/a", "/z"))

	entries, err := ReadDir(r, "/z")
	require.NoError(t, err)
	assert.Contains(t, entries, "f.txt")
	assert.Equal(t, []byte("hello"), readBack(t, r, "/z/f.txt"))
}

func TestRenameMissing(t *testing.T) {
	r := newTestRepo(t)
	assert.ErrorIs(t, Rename(r, "/nope", "/other"), fserr.ErrNotFound)
}
