// Tests of this package use testify require/assert. The leaf packages and
// cmd/biblio use plain testing.

package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

func testPaths(t *testing.T) Paths {
	t.Helper()
	dir := t.TempDir()
	return Paths{
		Books: filepath.Join(dir, "data", "books.csv"),
		Users: filepath.Join(dir, "data", "users.csv"),
		Loans: filepath.Join(dir, "data", "loans.csv"),
	}
}

// setupLibrary opens an empty library whose clock starts on day0.
func setupLibrary(t *testing.T) (*Library, *FixedClock) {
	t.Helper()
	clock := NewFixedClock(day0)
	lib, err := OpenLibrary(testPaths(t), clock)
	require.NoError(t, err)
	return lib, clock
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}
