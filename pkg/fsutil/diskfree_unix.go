//go:build !windows

package fsutil

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// FreeSpace returns the number of bytes available to the current user on
// the filesystem holding path.
func FreeSpace(path string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return int64(st.Bavail) * int64(st.Bsize), nil
}
