package download

import (
	"context"
	"time"

	"github.com/hl2dm-community/mapsync/pkg/model"
)

// Manager defines the interface for transferring planned map files to disk.
// Implementations are expected to write atomically: a destination path either
// holds a complete file or does not exist.
type Manager interface {
	// FetchAll downloads all planned items concurrently and returns one result
	// per item, in input order. Per-item failures are reported in the results,
	// not as an error; the error return is reserved for setup problems such as
	// an unusable destination directory.
	FetchAll(ctx context.Context, items []model.PlanItem, opts Options) ([]model.DownloadResult, error)

	// Fetch downloads a single item.
	Fetch(ctx context.Context, item model.PlanItem, opts Options) model.DownloadResult
}

// Options control the behavior of the download manager.
type Options struct {
	Concurrency    int                // number of parallel downloads; if <=0, a sane default is used
	MaxAttempts    int                // tries per item including the first; if <=0, DefaultMaxAttempts
	AttemptTimeout time.Duration      // per-attempt deadline, doubles as stall detection; if <=0, DefaultAttemptTimeout
	VerifySize     bool               // fail on Content-Length mismatch instead of accepting short bodies
	OnProgress     model.ProgressFunc // optional; called from multiple goroutines
}
