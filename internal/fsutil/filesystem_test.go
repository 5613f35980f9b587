package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, fsys FileSystem, name, data string) {
	t.Helper()
	w, err := fsys.Create(name)
	require.NoError(t, err)
	_, err = io.WriteString(w, data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func readFile(t *testing.T, fsys FileSystem, name string) string {
	t.Helper()
	f, err := fsys.Open(name)
	require.NoError(t, err)
	defer f.Close()
	b, err := io.ReadAll(f)
	require.NoError(t, err)
	return string(b)
}

func TestFileSystems(t *testing.T) {
	t.Parallel()

	for name, fsys := range map[string]FileSystem{
		"os":     OSFileSystem{},
		"memory": NewMemoryFileSystem(),
	} {
		t.Run(name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "traces", "nested")
			require.NoError(t, fsys.MkdirAll(dir, 0o755))

			info, err := fsys.Stat(dir)
			require.NoError(t, err)
			assert.True(t, info.IsDir())

			path := filepath.Join(dir, "line.csv")
			writeFile(t, fsys, path, "x,y,t\n1,2,3\n")
			assert.Equal(t, "x,y,t\n1,2,3\n", readFile(t, fsys, path))

			info, err = fsys.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, "line.csv", info.Name())
			assert.Equal(t, int64(12), info.Size())
			assert.False(t, info.IsDir())

			writeFile(t, fsys, path, "short")
			assert.Equal(t, "short", readFile(t, fsys, path))

			_, err = fsys.Open(filepath.Join(dir, "missing.csv"))
			assert.True(t, errors.Is(err, fs.ErrNotExist))
			_, err = fsys.Stat(filepath.Join(dir, "missing.csv"))
			assert.True(t, errors.Is(err, fs.ErrNotExist))
		})
	}
}

func TestMemoryFileSystemSnapshots(t *testing.T) {
	t.Parallel()

	m := NewMemoryFileSystem()
	writeFile(t, m, "/a/b.json", "one")

	f, err := m.Open("/a/./b.json")
	require.NoError(t, err)
	writeFile(t, m, "/a/b.json", "two")

	b, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "one", string(b))
	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, "b.json", info.Name())
	assert.Equal(t, fs.FileMode(0o644), info.Mode())
	require.NoError(t, f.Close())

	assert.Equal(t, []byte("two"), m.Bytes("/a/b.json"))
	assert.Nil(t, m.Bytes("/nope"))
}

func TestMemoryFileSystemMkdirAllMarksParents(t *testing.T) {
	t.Parallel()

	m := NewMemoryFileSystem()
	require.NoError(t, m.MkdirAll("/x/y/z", os.ModePerm))
	for _, dir := range []string{"/x", "/x/y", "/x/y/z"} {
		info, err := m.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir(), dir)
		assert.Equal(t, fs.ModeDir|0o755, info.Mode())
	}
}
