// Package fsutil provides file system helpers and permission constants.
package fsutil

// File and directory permission constants.
const (
	// Default file modes.
	FileModeDefault = 0o644 // -rw-r--r--: Default for regular files
	FileModeSecure  = 0o600 // -rw-------: For config files

	// Directory modes.
	DirModeDefault = 0o755 // drwxr-xr-x: Default for directories
)

// AppName is the name of the application used in paths.
const AppName = "opendata"
