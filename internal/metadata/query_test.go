package metadata

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryBuilderNoStatement(t *testing.T) {
	s := NewTestStore(t)

	_, err := s.Query(Directories).Exec()
	assert.ErrorIs(t, err, ErrNoStatement)

	_, err = FetchOne(s.Query(Directories), ScanDirectory)
	assert.ErrorIs(t, err, ErrNoStatement)

	_, err = FetchAll(s.Query(Directories), ScanDirectory)
	assert.ErrorIs(t, err, ErrNoStatement)
}

func TestInsertReturnsRowID(t *testing.T) {
	s := NewTestStore(t)

	first, err := s.Query(Directories).Insert(map[string]any{
		"name":         "a",
		"directory_id": nil,
	}).Exec()
	require.NoError(t, err)

	second, err := s.Query(Directories).Insert(map[string]any{
		"name":         "b",
		"directory_id": nil,
	}).Exec()
	require.NoError(t, err)

	assert.Equal(t, first+1, second)
}

func TestSelectWithGroupedConstraints(t *testing.T) {
	s := NewTestStore(t)

	parent, err := s.Query(Directories).Insert(map[string]any{
		"name":         "parent",
		"directory_id": nil,
	}).Exec()
	require.NoError(t, err)

	_, err = s.Query(Directories).Insert(map[string]any{
		"name":         "child",
		"directory_id": parent,
	}).Exec()
	require.NoError(t, err)

	// Same-op constraints collapse into one row-value clause.
	d, err := FetchOne(s.Query(Directories).Select().Where(
		Constraint{Field: "name", Op: OpIs, Value: "child"},
		Constraint{Field: "directory_id", Op: OpIs, Value: parent},
	), ScanDirectory)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "child", d.Name)
	assert.Equal(t, parent, d.ParentID.Int64)

	// NULL-scoped lookup only matches top-level rows.
	top, err := FetchOne(s.Query(Directories).Select().Where(
		Constraint{Field: "name", Op: OpIs, Value: "parent"},
		Constraint{Field: "directory_id", Op: OpIs, Value: sql.NullInt64{}},
	), ScanDirectory)
	require.NoError(t, err)
	require.NotNil(t, top)
	assert.False(t, top.ParentID.Valid)
}

func TestSelectMixedOpsCombineWithAnd(t *testing.T) {
	s := NewTestStore(t)

	id, err := s.Query(Files).Insert(map[string]any{
		"name":         "f.txt",
		"directory_id": nil,
		"filenode_id":  7,
	}).Exec()
	require.NoError(t, err)

	f, err := FetchOne(s.Query(Files).Select().Where(
		Constraint{Field: "name", Op: OpEq, Value: "f.txt"},
		Constraint{Field: "directory_id", Op: OpIs, Value: nil},
	), ScanFile)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, id, f.ID)
	assert.Equal(t, int64(7), f.FilenodeID)
}

func TestFetchOneNoMatchReturnsNil(t *testing.T) {
	s := NewTestStore(t)

	d, err := FetchOne(s.Query(Directories).Select().Where(
		Constraint{Field: "name", Op: OpIs, Value: "missing"},
	), ScanDirectory)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestUpdateAndDelete(t *testing.T) {
	s := NewTestStore(t)

	id, err := s.Query(Directories).Insert(map[string]any{
		"name":         "old",
		"directory_id": nil,
	}).Exec()
	require.NoError(t, err)

	_, err = s.Query(Directories).Update(map[string]any{
		"name": "new",
	}).Where(Constraint{Field: "id", Op: OpIs, Value: id}).Exec()
	require.NoError(t, err)

	d, err := FetchOne(s.Query(Directories).Select().Where(
		Constraint{Field: "id", Op: OpIs, Value: id},
	), ScanDirectory)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "new", d.Name)

	_, err = s.Query(Directories).Delete().Where(
		Constraint{Field: "id", Op: OpIs, Value: id},
	).Exec()
	require.NoError(t, err)

	d, err = FetchOne(s.Query(Directories).Select().Where(
		Constraint{Field: "id", Op: OpIs, Value: id},
	), ScanDirectory)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestSelectProjection(t *testing.T) {
	s := NewTestStore(t)

	_, err := s.Query(Filenodes).Insert(map[string]any{
		"hash":                 "deadbeef",
		"ctime":                1.0,
		"atime":                1.0,
		"mtime":                1.0,
		"size":                 4,
		"previous_filenode_id": nil,
	}).Exec()
	require.NoError(t, err)

	ids, err := FetchAll(s.Query(Filenodes).Select("id").Where(
		Constraint{Field: "hash", Op: OpIs, Value: "deadbeef"},
	), func(rows *sql.Rows) (*int64, error) {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		return &id, nil
	})
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestFetchAll(t *testing.T) {
	s := NewTestStore(t)

	for _, name := range []string{"a", "b", "c"} {
		_, err := s.Query(Directories).Insert(map[string]any{
			"name":         name,
			"directory_id": nil,
		}).Exec()
		require.NoError(t, err)
	}

	dirs, err := FetchAll(s.Query(Directories).Select(), ScanDirectory)
	require.NoError(t, err)
	assert.Len(t, dirs, 3)
}
