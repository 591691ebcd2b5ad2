package fsutil

// File and directory permission constants used throughout mapsync.
const (
	// FileModeDefault is the mode for downloaded and decompressed map files.
	FileModeDefault = 0o644 // -rw-r--r--

	// DirModeDefault is the mode for created download directories.
	DirModeDefault = 0o755 // drwxr-xr-x
)
