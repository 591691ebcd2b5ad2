//go:build windows

package fsutil

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// FreeSpace returns the number of bytes available to the current user on
// the volume holding path.
func FreeSpace(path string) (int64, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, fmt.Errorf("invalid path %s: %w", path, err)
	}
	var freeToCaller, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(p, &freeToCaller, &total, &totalFree); err != nil {
		return 0, fmt.Errorf("free space query for %s: %w", path, err)
	}
	return int64(freeToCaller), nil
}
