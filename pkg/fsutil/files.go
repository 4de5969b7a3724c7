package fsutil

import (
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/afero"
)

// FileSize returns the size of a regular file. The boolean is false when the file does not exist.
func FileSize(fsys afero.Fs, path string) (int64, bool, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, false, nil
		}
		return 0, false, err
	}
	if info.IsDir() {
		return 0, false, &fs.PathError{Op: "stat", Path: path, Err: errors.New("is a directory")}
	}
	return info.Size(), true, nil
}

// OpenForWrite opens path for writing. With resume set, data is appended to the existing
// content, otherwise the file is truncated.
func OpenForWrite(fsys afero.Fs, path string, resume bool) (afero.File, error) {
	flags := os.O_WRONLY | os.O_CREATE
	if resume {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	return fsys.OpenFile(path, flags, FileModeDefault)
}
