package metadata

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestStore creates a file-backed store in t.TempDir() with the three
// metadata tables ensured. The file lives under the test's temp directory,
// so cleanup is automatic.
func NewTestStore(t testing.TB) *Store {
	t.Helper()

	s := NewStore(filepath.Join(t.TempDir(), "metadata"))
	for _, schema := range []Schema{Directories, Files, Filenodes} {
		require.NoError(t, s.EnsureTable(schema))
	}
	return s
}
