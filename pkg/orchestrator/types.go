package orchestrator

import (
	"context"
	"net/url"
	"time"

	"github.com/hl2dm-community/mapsync/pkg/download"
	"github.com/hl2dm-community/mapsync/pkg/extract"
	"github.com/hl2dm-community/mapsync/pkg/hook"
	"github.com/hl2dm-community/mapsync/pkg/listing"
	"github.com/hl2dm-community/mapsync/pkg/model"
	"github.com/hl2dm-community/mapsync/pkg/plan"
)

// Enumerator is the subset of the listing aggregator used by the
// orchestrator. Enumeration behavior (recursion, probing, concurrency) is
// fixed when the aggregator is constructed.
type Enumerator interface {
	Enumerate(ctx context.Context, roots []*url.URL) (*listing.Inventory, error)
}

// Downloader handles map file downloading.
type Downloader interface {
	FetchAll(ctx context.Context, items []model.PlanItem, opts download.Options) ([]model.DownloadResult, error)
}

// Extractor handles map archive decompression.
type Extractor interface {
	ExtractAll(ctx context.Context, paths []string, opts extract.Options) []model.ExtractResult
}

// HookRunner runs lifecycle hook scripts. It may be nil when no hooks are
// configured.
type HookRunner interface {
	Execute(phase hook.Phase, ctx hook.Context) error
}

// Event represents a simple progress notification.
type Event struct {
	Phase string // enumerating|scanning|planning|downloading|extracting|done|error
	Name  string // item name, when the event concerns a single file
	Msg   string
}

// Hooks carries callbacks for progress events and the confirmation gate.
// All fields are optional.
type Hooks struct {
	OnEvent func(Event)

	// OnProgress receives a sampled stream of transfer and extraction
	// progress. Events are delivered from a single goroutine; under load
	// excess events are dropped rather than blocking the workers.
	OnProgress model.ProgressFunc

	OnEnumProgress model.EnumProgressFunc

	// ConfirmGate is consulted when a plan needs user confirmation. Returning
	// false aborts the session before any download starts. A nil ConfirmGate
	// declines.
	ConfirmGate func(decision plan.GateDecision, p *plan.Plan) bool
}

// Options control a sync session.
type Options struct {
	DownloadDir string

	// Recursive also scans subdirectories of DownloadDir for present maps.
	Recursive bool

	// Planning.
	Include []string
	Exclude []string

	// Download.
	MaxWorkers     int
	MaxAttempts    int
	AttemptTimeout time.Duration

	// Decompression.
	Decompress       bool
	ExtractWorkers   int
	DeleteCompressed bool
}

// PlanResult is the outcome of the planning half of a session: the frozen
// plan, its gate decision and everything enumeration and scanning reported
// along the way.
type PlanResult struct {
	Plan          *plan.Plan
	Gate          plan.GateDecision
	FreeDiskBytes int64
	Failures      []model.FailureRecord
	Warnings      []string
}
