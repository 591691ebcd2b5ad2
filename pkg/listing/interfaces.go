package listing

import (
	"context"
	"net/url"
)

// Listing is the parsed content of one remote directory page: direct links
// to map files and links to sub-directories eligible for recursion.
type Listing struct {
	Files []*url.URL
	Dirs  []*url.URL
}

// Source fetches and parses one remote directory into a Listing. It is the
// narrow seam that lets a structured manifest source replace HTML scraping
// without touching the aggregator.
type Source interface {
	List(ctx context.Context, dir *url.URL) (Listing, error)
}

// SizeProber attempts a lightweight metadata-only size lookup for a file
// URL. A failed probe means the size stays unknown; it never aborts
// enumeration.
type SizeProber interface {
	ProbeSize(ctx context.Context, u *url.URL) (int64, error)
}
