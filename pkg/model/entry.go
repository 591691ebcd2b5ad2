// Package model provides the data structures shared by the mapsync engine:
// remote inventory entries, download plans, per-item results and the final
// session summary.
package model

import (
	"net/url"
	"path"
	"strings"
)

// SizeUnknown marks an entry whose byte size could not be determined from
// the listing or a metadata probe. Unknown sizes are excluded from byte
// totals but not from download plans.
const SizeUnknown int64 = -1

// Recognized map file extensions. A map is published either as a bare .bsp
// or as a bzip2-compressed .bsp.bz2.
const (
	MapExt        = ".bsp"
	CompressedExt = ".bz2"
)

// RemoteEntry is one downloadable file discovered in a remote directory
// listing. Identity is (SourceRoot, RelativePath).
type RemoteEntry struct {
	// RelativePath is the URL path of the file relative to SourceRoot,
	// e.g. "dm_lockdown.bsp.bz2" or "custom/dm_booty.bsp.bz2".
	RelativePath string

	// SizeBytes is the declared size of the file, or SizeUnknown.
	SizeBytes int64

	// SourceRoot is the listing root the entry was discovered under.
	SourceRoot *url.URL
}

// Filename returns the base name of the entry.
func (e RemoteEntry) Filename() string {
	return path.Base(e.RelativePath)
}

// Stem returns the extension-insensitive base name used for local presence
// checks.
func (e RemoteEntry) Stem() string {
	return Stem(e.Filename())
}

// SizeKnown reports whether the entry carries a usable byte size.
func (e RemoteEntry) SizeKnown() bool {
	return e.SizeBytes >= 0
}

// URL resolves the entry's full download URL against its source root.
func (e RemoteEntry) URL() *url.URL {
	ref := &url.URL{Path: e.RelativePath}
	return e.SourceRoot.ResolveReference(ref)
}

// Stem strips the compression suffix and then the map suffix from a file
// name, so that "dm_x.bsp", "dm_x.bsp.bz2" and "dm_x.BSP" all collapse to
// "dm_x". The result is the key for the extension-insensitive presence rule.
func Stem(name string) string {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, CompressedExt) {
		name = name[:len(name)-len(CompressedExt)]
		lower = lower[:len(lower)-len(CompressedExt)]
	}
	if strings.HasSuffix(lower, MapExt) {
		name = name[:len(name)-len(MapExt)]
	}
	return name
}

// IsMapFile reports whether a file name is a recognized map archive or map
// file.
func IsMapFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, MapExt) || strings.HasSuffix(lower, CompressedExt)
}

// IsCompressed reports whether a file name carries the compression suffix.
func IsCompressed(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), CompressedExt)
}

// UncompressedName returns the sibling uncompressed name for a compressed
// file name. Names without the compression suffix are returned unchanged.
func UncompressedName(name string) string {
	if IsCompressed(name) {
		return name[:len(name)-len(CompressedExt)]
	}
	return name
}

// PlanItem is one remote file selected for download after diffing and
// filtering. No two items in a frozen plan share a destination path.
type PlanItem struct {
	Entry           RemoteEntry
	DestinationPath string
}
