// pkg/portal/files_test.go
package portal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFileAt(t *testing.T, dir, name string, mtime time.Time) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestListRetrievedFilesOrdering(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	writeFileAt(t, dir, "oldest.pdf", base)
	writeFileAt(t, dir, "middle.xlsx", base.Add(10*time.Minute))
	writeFileAt(t, dir, "newest.csv", base.Add(20*time.Minute))

	files, err := ListRetrievedFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "newest.csv", files[0].Name)
	assert.Equal(t, "middle.xlsx", files[1].Name)
	assert.Equal(t, "oldest.pdf", files[2].Name)
}

func TestListRetrievedFilesSkipsHiddenAndDirs(t *testing.T) {
	dir := t.TempDir()
	writeFileAt(t, dir, "faktura.pdf", time.Now())

	// The session store lives in the same directory and must never
	// appear in the listing.
	store := NewCookieStore(dir, zap.NewNop())
	require.NoError(t, store.Save([]CookieRecord{{Name: "a", Value: "b"}}))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))

	files, err := ListRetrievedFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "faktura.pdf", files[0].Name)
}

func TestListRetrievedFilesMissingDir(t *testing.T) {
	files, err := ListRetrievedFiles(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, files)
}
