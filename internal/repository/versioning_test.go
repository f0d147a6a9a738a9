package repository

import (
	"database/sql"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/queryfs/internal/fserr"
	"github.com/mvp-joe/queryfs/internal/metadata"
)

// fileByID reloads a file row.
func fileByID(t testing.TB, r *Repository, id int64) *metadata.File {
	t.Helper()
	f, err := metadata.FetchOne(r.Store().Query(metadata.Files).Select().Where(
		metadata.Constraint{Field: "id", Op: metadata.OpIs, Value: id},
	), metadata.ScanFile)
	require.NoError(t, err)
	require.NotNil(t, f)
	return f
}

func countFilenodes(t testing.TB, r *Repository) int {
	t.Helper()
	nodes, err := metadata.FetchAll(r.Store().Query(metadata.Filenodes).Select(), metadata.ScanFilenode)
	require.NoError(t, err)
	return len(nodes)
}

func TestCommitAdvancesChain(t *testing.T) {
	r := newTestRepository(t)
	fileID := seedFileRow(t, r, "f.txt", sql.NullInt64{}, "h1")
	before := fileByID(t, r, fileID)

	require.NoError(t, r.Commit("/f.txt"))

	after := fileByID(t, r, fileID)
	assert.NotEqual(t, before.FilenodeID, after.FilenodeID)

	head, err := after.Filenode(r.Store())
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, "h1", head.Hash)
	require.True(t, head.PreviousID.Valid)
	assert.Equal(t, before.FilenodeID, head.PreviousID.Int64)
	assert.Equal(t, 2, countFilenodes(t, r))
}

func TestCommitNonFileIsNoop(t *testing.T) {
	r := newTestRepository(t)
	seedDirectory(t, r, "a", sql.NullInt64{})

	require.NoError(t, r.Commit("/a"))
	require.NoError(t, r.Commit("/missing"))
	assert.Equal(t, 0, countFilenodes(t, r))
}

func TestRollbackRetractsHead(t *testing.T) {
	r := newTestRepository(t)
	fileID := seedFileRow(t, r, "f.txt", sql.NullInt64{}, "h1")
	originalNode := fileByID(t, r, fileID).FilenodeID

	require.NoError(t, r.Commit("/f.txt"))

	// Pretend a release rewrote the head.
	head := fileByID(t, r, fileID).FilenodeID
	_, err := r.Store().Query(metadata.Filenodes).Update(map[string]any{
		"hash": "h2",
	}).Where(metadata.Constraint{Field: "id", Op: metadata.OpIs, Value: head}).Exec()
	require.NoError(t, err)

	require.NoError(t, r.Rollback("/f.txt"))

	after := fileByID(t, r, fileID)
	assert.Equal(t, originalNode, after.FilenodeID)
	node, err := after.Filenode(r.Store())
	require.NoError(t, err)
	assert.Equal(t, "h1", node.Hash)
	assert.Equal(t, 1, countFilenodes(t, r))
}

func TestRollbackWithoutHistoryIsNoop(t *testing.T) {
	r := newTestRepository(t)
	fileID := seedFileRow(t, r, "f.txt", sql.NullInt64{}, "h1")
	before := fileByID(t, r, fileID)

	require.NoError(t, r.Rollback("/f.txt"))

	after := fileByID(t, r, fileID)
	assert.Equal(t, before.FilenodeID, after.FilenodeID)
	assert.Equal(t, 1, countFilenodes(t, r))
}

func TestRollbackPreservesDeepHistory(t *testing.T) {
	r := newTestRepository(t)
	seedFileRow(t, r, "f.txt", sql.NullInt64{}, "h1")

	require.NoError(t, r.Commit("/f.txt"))
	require.NoError(t, r.Commit("/f.txt"))
	assert.Equal(t, 3, countFilenodes(t, r))

	require.NoError(t, r.Rollback("/f.txt"))
	assert.Equal(t, 2, countFilenodes(t, r))

	require.NoError(t, r.Rollback("/f.txt"))
	assert.Equal(t, 1, countFilenodes(t, r))
}

func TestUnlinkFilenodeRecursiveCollectsBlobs(t *testing.T) {
	r := newTestRepository(t)

	require.NoError(t, os.WriteFile(r.BlobPath("aaa"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(r.BlobPath("bbb"), []byte("b"), 0o644))

	oldID, err := r.Store().Query(metadata.Filenodes).Insert(map[string]any{
		"hash": "aaa", "ctime": 1.0, "atime": 1.0, "mtime": 1.0, "size": 1,
		"previous_filenode_id": nil,
	}).Exec()
	require.NoError(t, err)
	headID, err := r.Store().Query(metadata.Filenodes).Insert(map[string]any{
		"hash": "bbb", "ctime": 2.0, "atime": 2.0, "mtime": 2.0, "size": 1,
		"previous_filenode_id": oldID,
	}).Exec()
	require.NoError(t, err)

	head, err := metadata.FetchOne(r.Store().Query(metadata.Filenodes).Select().Where(
		metadata.Constraint{Field: "id", Op: metadata.OpIs, Value: headID},
	), metadata.ScanFilenode)
	require.NoError(t, err)

	require.NoError(t, r.UnlinkFilenode(head, true))

	assert.Equal(t, 0, countFilenodes(t, r))
	assert.NoFileExists(t, r.BlobPath("aaa"))
	assert.NoFileExists(t, r.BlobPath("bbb"))
}

func TestUnlinkFileMissingFilenodeIsInvariant(t *testing.T) {
	r := newTestRepository(t)

	fileID, err := r.Store().Query(metadata.Files).Insert(map[string]any{
		"name":         "broken",
		"directory_id": nil,
		"filenode_id":  999,
	}).Exec()
	require.NoError(t, err)

	err = r.UnlinkFile(fileByID(t, r, fileID))
	assert.ErrorIs(t, err, fserr.ErrInvariant)
}
