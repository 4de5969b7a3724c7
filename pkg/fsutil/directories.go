package fsutil

import (
	"path/filepath"

	"github.com/spf13/afero"
)

// EnsureDir creates a directory and all necessary parent directories with default permissions if they don't exist.
func EnsureDir(fs afero.Fs, path string) error {
	return fs.MkdirAll(path, DirModeDefault)
}

// EnsureFileDir creates the parent directory of a file path if it doesn't exist.
func EnsureFileDir(fs afero.Fs, filePath string) error {
	return EnsureDir(fs, filepath.Dir(filePath))
}
