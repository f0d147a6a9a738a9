package ops

import (
	"os"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/queryfs/internal/fserr"
	"github.com/mvp-joe/queryfs/internal/hashing"
	"github.com/mvp-joe/queryfs/internal/metadata"
	"github.com/mvp-joe/queryfs/internal/repository"
)

const helloHash = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

func blobNames(t testing.TB, r *repository.Repository) []string {
	t.Helper()
	entries, err := os.ReadDir(r.Blobs())
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestCreateAndReadBack(t *testing.T) {
	r := newTestRepo(t)

	require.NoError(t, MkDir(r, "/a", 0o755))
	createAndWrite(t, r, "/a/f.txt", []byte("hello"))

	// One blob, named by the content hash, holding the bytes.
	assert.Equal(t, []string{helloHash}, blobNames(t, r))
	data, err := os.ReadFile(r.BlobPath(helloHash))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	// One directory, one file, one filenode with the right size.
	assert.Equal(t, 1, countRows(t, r, metadata.Directories, metadata.ScanDirectory))
	assert.Equal(t, 1, countRows(t, r, metadata.Files, metadata.ScanFile))
	nodes, err := metadata.FetchAll(r.Store().Query(metadata.Filenodes).Select(), metadata.ScanFilenode)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, helloHash, nodes[0].Hash)
	assert.Equal(t, int64(5), nodes[0].Size)

	entries, err := ReadDir(r, "/a")
	require.NoError(t, err)
	sort.Strings(entries)
	assert.Equal(t, []string{".", "..", "f.txt"}, entries)

	assert.Equal(t, []byte("hello"), readBack(t, r, "/a/f.txt"))

	// The staging file was promoted away.
	assert.NoFileExists(t, r.TempPath("/a/f.txt"))
}

func TestDeduplication(t *testing.T) {
	r := newTestRepo(t)

	require.NoError(t, MkDir(r, "/a", 0o755))
	createAndWrite(t, r, "/a/f.txt", []byte("hello"))
	createAndWrite(t, r, "/a/g.txt", []byte("hello"))

	// Identical bytes share a single blob, with separate file rows and
	// filenodes.
	assert.Equal(t, []string{helloHash}, blobNames(t, r))
	assert.Equal(t, 2, countRows(t, r, metadata.Files, metadata.ScanFile))
	assert.Equal(t, 2, countRows(t, r, metadata.Filenodes, metadata.ScanFilenode))

	assert.Equal(t, []byte("hello"), readBack(t, r, "/a/f.txt"))
	assert.Equal(t, []byte("hello"), readBack(t, r, "/a/g.txt"))
}

func TestRewriteReplacesBlob(t *testing.T) {
	r := newTestRepo(t)

	require.NoError(t, MkDir(r, "/a", 0o755))
	createAndWrite(t, r, "/a/f.txt", []byte("hello"))
	overwrite(t, r, "/a/f.txt", []byte("world"))

	worldHash := hashing.HashBytes([]byte("world"))
	assert.Equal(t, []string{worldHash}, blobNames(t, r))

	// The filenode was updated in place: still exactly one row.
	nodes, err := metadata.FetchAll(r.Store().Query(metadata.Filenodes).Select(), metadata.ScanFilenode)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, worldHash, nodes[0].Hash)
	assert.Equal(t, int64(5), nodes[0].Size)

	assert.Equal(t, []byte("world"), readBack(t, r, "/a/f.txt"))
}

func TestRewriteKeepsSharedBlob(t *testing.T) {
	r := newTestRepo(t)

	createAndWrite(t, r, "/f.txt", []byte("hello"))
	createAndWrite(t, r, "/g.txt", []byte("hello"))
	overwrite(t, r, "/f.txt", []byte("world"))

	// g.txt still references the hello blob, so it must survive.
	names := blobNames(t, r)
	assert.Len(t, names, 2)
	assert.Contains(t, names, helloHash)
	assert.Equal(t, []byte("hello"), readBack(t, r, "/g.txt"))
}

func TestEmptyCreateDiscarded(t *testing.T) {
	r := newTestRepo(t)

	fh, err := Create(r, "/empty", 0o644)
	require.NoError(t, err)
	require.NoError(t, Release(r, "/empty", fh))

	assert.Empty(t, blobNames(t, r))
	assert.Equal(t, 0, countRows(t, r, metadata.Files, metadata.ScanFile))
	assert.Equal(t, 0, countRows(t, r, metadata.Filenodes, metadata.ScanFilenode))
	assert.NoFileExists(t, r.TempPath("/empty"))

	_, err = Open(r, "/empty", 0)
	assert.ErrorIs(t, err, fserr.ErrNotFound)
}

func TestUnlinkReclaimsSoleBlob(t *testing.T) {
	r := newTestRepo(t)

	createAndWrite(t, r, "/f.txt", []byte("hello"))
	require.NoError(t, Unlink(r, "/f.txt"))

	assert.Empty(t, blobNames(t, r))
	assert.Equal(t, 0, countRows(t, r, metadata.Files, metadata.ScanFile))
	assert.Equal(t, 0, countRows(t, r, metadata.Filenodes, metadata.ScanFilenode))
}

func TestUnlinkKeepsSharedBlob(t *testing.T) {
	r := newTestRepo(t)

	createAndWrite(t, r, "/f.txt", []byte("hello"))
	createAndWrite(t, r, "/g.txt", []byte("hello"))

	require.NoError(t, Unlink(r, "/f.txt"))

	assert.Equal(t, []string{helloHash}, blobNames(t, r))
	assert.Equal(t, []byte("hello"), readBack(t, r, "/g.txt"))
}

func TestUnlinkMissing(t *testing.T) {
	r := newTestRepo(t)
	assert.ErrorIs(t, Unlink(r, "/nope"), fserr.ErrNotFound)
}

func TestStagingVisibleBeforeRelease(t *testing.T) {
	r := newTestRepo(t)

	fh, err := Create(r, "/f.txt", 0o644)
	require.NoError(t, err)
	_, err = Write(r, "/f.txt", []byte("wip"), 0, fh)
	require.NoError(t, err)

	// Before release the path resolves to the staging file and is readable
	// through a second handle.
	fh2, err := Open(r, "/f.txt", 0)
	require.NoError(t, err)
	data, err := Read(r, "/f.txt", 16, 0, fh2)
	require.NoError(t, err)
	assert.Equal(t, []byte("wip"), data)
	require.NoError(t, Release(r, "/f.txt", fh2))

	require.NoError(t, Release(r, "/f.txt", fh))
	assert.Equal(t, []byte("wip"), readBack(t, r, "/f.txt"))
}

func TestReadAtOffset(t *testing.T) {
	r := newTestRepo(t)
	createAndWrite(t, r, "/f.txt", []byte("hello world"))

	fh, err := Open(r, "/f.txt", 0)
	require.NoError(t, err)
	defer Release(r, "/f.txt", fh)

	data, err := Read(r, "/f.txt", 5, 6, fh)
	require.NoError(t, err)
	assert.Equal(t, []byte("world"), data)
}

func TestWriteAtOffset(t *testing.T) {
	r := newTestRepo(t)

	fh, err := Create(r, "/f.txt", 0o644)
	require.NoError(t, err)
	_, err = Write(r, "/f.txt", []byte("hello world"), 0, fh)
	require.NoError(t, err)
	_, err = Write(r, "/f.txt", []byte("WORLD"), 6, fh)
	require.NoError(t, err)
	require.NoError(t, Release(r, "/f.txt", fh))

	assert.Equal(t, []byte("hello WORLD"), readBack(t, r, "/f.txt"))
}
