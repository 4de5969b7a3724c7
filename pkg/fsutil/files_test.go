package fsutil

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSize(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/3005/a.py", []byte("print(1)\n"), FileModeDefault))

	size, ok, err := FileSize(fs, "/data/3005/a.py")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(9), size)

	_, ok, err = FileSize(fs, "/data/3005/missing.py")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = FileSize(fs, "/data/3005")
	assert.Error(t, err)
}

func TestOpenForWrite(t *testing.T) {
	tests := []struct {
		name   string
		resume bool
		want   string
	}{
		{name: "truncate", resume: false, want: "new"},
		{name: "append", resume: true, want: "oldnew"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			path := filepath.Join("/dl", "f.bin")
			require.NoError(t, afero.WriteFile(fs, path, []byte("old"), FileModeDefault))

			f, err := OpenForWrite(fs, path, tt.resume)
			require.NoError(t, err)
			_, err = f.Write([]byte("new"))
			require.NoError(t, err)
			require.NoError(t, f.Close())

			got, err := afero.ReadFile(fs, path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestEnsureFileDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, EnsureFileDir(fs, "/a/b/c/file.txt"))

	info, err := fs.Stat("/a/b/c")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, EnsureDir(fs, "/a/b/c"), "existing directory is not an error")
}

func TestGetConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	t.Setenv("HOME", "/tmp/home")
	dir, err := GetConfigDir()
	require.NoError(t, err)
	assert.Equal(t, AppName, filepath.Base(dir))
}
