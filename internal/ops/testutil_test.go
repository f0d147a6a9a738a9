package ops

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/mvp-joe/queryfs/internal/metadata"
	"github.com/mvp-joe/queryfs/internal/repository"
)

// writeFlags is the open mode the tests use for rewrites: truncating write,
// the shape a shell redirection produces.
const writeFlags = unix.O_WRONLY | unix.O_TRUNC

func newTestRepo(t testing.TB) *repository.Repository {
	t.Helper()
	r, err := repository.New(t.TempDir())
	require.NoError(t, err)
	return r
}

// createAndWrite runs the full write lifetime for a new file: create, one
// write at offset zero, release.
func createAndWrite(t testing.TB, r *repository.Repository, path string, data []byte) {
	t.Helper()

	fh, err := Create(r, path, 0o644)
	require.NoError(t, err)

	n, err := Write(r, path, data, 0, fh)
	require.NoError(t, err)
	require.Equal(t, len(data), n)

	require.NoError(t, Release(r, path, fh))
}

// overwrite opens an existing file with write intent and replaces its
// content from offset zero.
func overwrite(t testing.TB, r *repository.Repository, path string, data []byte) {
	t.Helper()

	fh, err := Open(r, path, writeFlags)
	require.NoError(t, err)

	n, err := Write(r, path, data, 0, fh)
	require.NoError(t, err)
	require.Equal(t, len(data), n)

	require.NoError(t, Release(r, path, fh))
}

// readBack opens path read-only and reads up to 1 MiB.
func readBack(t testing.TB, r *repository.Repository, path string) []byte {
	t.Helper()

	fh, err := Open(r, path, 0)
	require.NoError(t, err)

	data, err := Read(r, path, 1<<20, 0, fh)
	require.NoError(t, err)

	require.NoError(t, Release(r, path, fh))
	return data
}

func countRows[T any](t testing.TB, r *repository.Repository, schema metadata.Schema, scan metadata.RowScan[T]) int {
	t.Helper()
	rows, err := metadata.FetchAll(r.Store().Query(schema).Select(), scan)
	require.NoError(t, err)
	return len(rows)
}
