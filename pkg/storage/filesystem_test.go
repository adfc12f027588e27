package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLocalStorageSaveOverwrites(t *testing.T) {
	store, err := NewLocalStorage(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)

	_, err = store.Save("students.csv", []byte("first version, longer"))
	require.NoError(t, err)
	_, err = store.Save("students.csv", []byte("second"))
	require.NoError(t, err)

	got, err := os.ReadFile(store.Path("students.csv"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	entries, err := os.ReadDir(store.Root())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not linger")
}

func TestCopyTreeAndTreeStats(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "a.csv"), "aaa")
	writeFile(t, filepath.Join(src, "nested", "deep", "b.csv"), "bb")

	n, err := CopyTree(src, dst)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := os.ReadFile(filepath.Join(dst, "nested", "deep", "b.csv"))
	require.NoError(t, err)
	assert.Equal(t, "bb", string(got))

	files, size, err := TreeStats(dst)
	require.NoError(t, err)
	assert.Equal(t, 2, files)
	assert.Equal(t, int64(5), size)
}

func TestRemoveContentsKeepsRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "x.txt"), "x")
	writeFile(t, filepath.Join(root, "sub", "y.txt"), "y")

	require.NoError(t, RemoveContents(root))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.DirExists(t, root)
	assert.NoError(t, RemoveContents(filepath.Join(root, "missing")))
}

func TestListDirsFiltersPrefix(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(store.Path("backup_2024-01-01_10-00-00"), 0o755))
	require.NoError(t, os.Mkdir(store.Path("other"), 0o755))
	writeFile(t, store.Path("backup_file.txt"), "not a dir")

	dirs, err := store.ListDirs("backup_")
	require.NoError(t, err)
	assert.Equal(t, []string{"backup_2024-01-01_10-00-00"}, dirs)
}
