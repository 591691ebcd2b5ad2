package listing

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hl2dm-community/mapsync/pkg/errors"
	"github.com/hl2dm-community/mapsync/pkg/model"
)

// defaultMaxDepth bounds recursive descent when the caller asked for
// recursion without naming a depth.
const defaultMaxDepth = 3

// Options control aggregation behavior.
type Options struct {
	// Concurrency bounds parallel listing fetches across roots. It is
	// independent of the later download concurrency.
	Concurrency int
	// Recursive enables breadth-first descent into linked sub-directories.
	Recursive bool
	// MaxDepth bounds recursion below each root. When Recursive is set and
	// MaxDepth is <=0, a default depth is applied.
	MaxDepth int
	// ProbeSizes enables the per-file metadata probe after merging.
	ProbeSizes bool
	// OnProgress, when set, receives incremental enumeration counts.
	OnProgress model.EnumProgressFunc
}

// Inventory is the merged result of enumerating all roots: one read-only
// snapshot taken per run.
type Inventory struct {
	Entries  []model.RemoteEntry
	Failures []model.FailureRecord
	Warnings []string
}

// Aggregator runs a Source over multiple FastDL roots concurrently and
// merges the results.
type Aggregator struct {
	source Source
	prober SizeProber
	opts   Options
}

// NewAggregator creates an aggregator over the given source. prober may be
// nil when sizes are not probed.
func NewAggregator(source Source, prober SizeProber, opts Options) *Aggregator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Recursive && opts.MaxDepth <= 0 {
		opts.MaxDepth = defaultMaxDepth
	}
	return &Aggregator{source: source, prober: prober, opts: opts}
}

// rootResult collects everything one root produced, so the merge can run in
// stable root order regardless of completion order.
type rootResult struct {
	entries  []model.RemoteEntry
	failures []model.FailureRecord
	// reachable is false when the root page itself could not be listed;
	// sub-directory failures leave it true.
	reachable bool
}

// Enumerate lists all roots and returns the merged inventory. A root that
// fails yields zero entries and a failure record without aborting the
// others; enumeration as a whole fails only when every root is unusable.
func (a *Aggregator) Enumerate(ctx context.Context, roots []*url.URL) (*Inventory, error) {
	results := make([]rootResult, len(roots))
	progress := newEnumCounter(len(roots), a.opts.OnProgress)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Concurrency)
	for i, root := range roots {
		g.Go(func() error {
			results[i] = a.walkRoot(gctx, root, progress)
			progress.rootDone()
			return nil
		})
	}
	// Workers never return errors; per-root failures are data.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inv := mergeRoots(roots, results)
	reachable := 0
	for i := range results {
		if results[i].reachable {
			reachable++
		}
	}
	if len(roots) > 0 && reachable == 0 {
		return inv, errors.ErrNoUsableSources
	}

	if a.opts.ProbeSizes && a.prober != nil {
		a.probeAll(ctx, inv.Entries)
	}
	return inv, nil
}

// walkRoot lists one root breadth-first, bounded by MaxDepth, and rebases
// every discovered file onto the root.
func (a *Aggregator) walkRoot(ctx context.Context, root *url.URL, progress *enumCounter) rootResult {
	var res rootResult

	type queued struct {
		dir   *url.URL
		depth int
	}
	queue := []queued{{dir: root, depth: 0}}

	for len(queue) > 0 {
		if ctx.Err() != nil {
			return res
		}
		next := queue[0]
		queue = queue[1:]

		lst, err := a.source.List(ctx, next.dir)
		if err != nil {
			res.failures = append(res.failures, model.FailureRecord{
				Stage:  model.StageEnumeration,
				Name:   next.dir.String(),
				Reason: err.Error(),
			})
			continue
		}
		if next.depth == 0 {
			res.reachable = true
		}
		progress.dirListed(len(lst.Files))

		for _, f := range lst.Files {
			rel := strings.TrimPrefix(f.Path, root.Path)
			res.entries = append(res.entries, model.RemoteEntry{
				RelativePath: rel,
				SizeBytes:    model.SizeUnknown,
				SourceRoot:   root,
			})
		}

		if !a.opts.Recursive || next.depth >= a.opts.MaxDepth {
			continue
		}
		for _, d := range lst.Dirs {
			// Stay under the root; List already pinned the origin.
			if !strings.HasPrefix(d.Path, root.Path) {
				continue
			}
			queue = append(queue, queued{dir: d, depth: next.depth + 1})
		}
	}
	return res
}

// mergeRoots combines per-root results in stable root order, deduplicating
// by relative path: the first root to publish a path wins, later roots get
// a warning.
func mergeRoots(roots []*url.URL, results []rootResult) *Inventory {
	inv := &Inventory{}
	seen := make(map[string]*url.URL)
	for i := range roots {
		inv.Failures = append(inv.Failures, results[i].failures...)
		for _, e := range results[i].entries {
			if first, dup := seen[e.RelativePath]; dup {
				inv.Warnings = append(inv.Warnings,
					"duplicate path "+e.RelativePath+" from "+e.SourceRoot.String()+" already published by "+first.String())
				continue
			}
			seen[e.RelativePath] = e.SourceRoot
			inv.Entries = append(inv.Entries, e)
		}
	}
	return inv
}

// probeAll fills in sizes with bounded concurrency. Probe failures leave the
// size unknown.
func (a *Aggregator) probeAll(ctx context.Context, entries []model.RemoteEntry) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Concurrency)
	for i := range entries {
		g.Go(func() error {
			size, err := a.prober.ProbeSize(gctx, entries[i].URL())
			if err == nil {
				entries[i].SizeBytes = size
			}
			return nil
		})
	}
	_ = g.Wait()
}

// enumCounter tracks enumeration liveness and forwards snapshots to the
// progress callback. Safe for concurrent use.
type enumCounter struct {
	mu sync.Mutex
	p  model.EnumProgress
	fn model.EnumProgressFunc
}

func newEnumCounter(total int, fn model.EnumProgressFunc) *enumCounter {
	return &enumCounter{p: model.EnumProgress{RootsTotal: total}, fn: fn}
}

func (c *enumCounter) rootDone() {
	c.mu.Lock()
	c.p.RootsDone++
	snapshot := c.p
	c.mu.Unlock()
	c.emit(snapshot)
}

func (c *enumCounter) dirListed(entries int) {
	c.mu.Lock()
	c.p.DirsListed++
	c.p.EntriesFound += entries
	snapshot := c.p
	c.mu.Unlock()
	c.emit(snapshot)
}

func (c *enumCounter) emit(p model.EnumProgress) {
	if c.fn != nil {
		c.fn(p)
	}
}
