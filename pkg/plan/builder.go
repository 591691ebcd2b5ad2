// Package plan diffs the remote inventory against the local presence
// snapshot, applies keyword filters and evaluates the disk-space/size
// gating policy. Everything here is pure computation on already-fetched
// data.
package plan

import (
	"path/filepath"
	"strings"

	"github.com/hl2dm-community/mapsync/pkg/model"
)

// Options control plan construction.
type Options struct {
	// DestDir is the local directory plan items are written into.
	DestDir string
	// Include keeps an entry when its file name contains at least one of
	// these keywords (case-insensitive). Empty means match all.
	Include []string
	// Exclude drops an entry when its file name contains any of these
	// keywords (case-insensitive).
	Exclude []string
}

// Plan is the frozen set of downloads for one run.
type Plan struct {
	Items []model.PlanItem

	// TotalBytesNeeded sums the known sizes of the items. Entries with
	// unknown size contribute to the item count only.
	TotalBytesNeeded int64
	UnknownSizeCount int

	// SkippedExisting counts remote entries excluded because their stem was
	// already present locally.
	SkippedExisting int
}

// Gate evaluates the gating policy for this plan against the available
// disk space.
func (p *Plan) Gate(freeDiskBytes int64) GateDecision {
	return EvaluateGate(len(p.Items), p.TotalBytesNeeded, freeDiskBytes)
}

// Build constructs the download plan from the remote inventory and the set
// of locally present stems. Only missing entries count toward size totals,
// and each stem is planned at most once: a map published in both forms gets
// one download, not two. Returned warnings describe collisions.
func Build(remote []model.RemoteEntry, present map[string]struct{}, opts Options) (*Plan, []string) {
	p := &Plan{}
	var warnings []string
	byDest := make(map[string]int)
	byStem := make(map[string]int)

	for _, entry := range remote {
		if _, ok := present[entry.Stem()]; ok {
			p.SkippedExisting++
			continue
		}
		if !matchesFilters(entry.Filename(), opts.Include, opts.Exclude) {
			continue
		}

		item := model.PlanItem{
			Entry:           entry,
			DestinationPath: filepath.Join(opts.DestDir, entry.Filename()),
		}

		// Distinct listing paths can flatten to the same destination file;
		// the last one seen in aggregation order wins.
		if prev, dup := byDest[item.DestinationPath]; dup {
			warnings = append(warnings,
				"destination collision for "+entry.Filename()+"; keeping "+entry.RelativePath)
			p.replace(prev, item)
			continue
		}

		// A map published in both forms is one map; it is downloaded once,
		// preferring the compressed form regardless of listing order.
		if prev, dup := byStem[entry.Stem()]; dup {
			prevItem := p.Items[prev]
			if model.IsCompressed(entry.Filename()) && !model.IsCompressed(prevItem.Entry.Filename()) {
				warnings = append(warnings,
					entry.Stem()+" is published in both forms; downloading "+entry.Filename())
				delete(byDest, prevItem.DestinationPath)
				byDest[item.DestinationPath] = prev
				p.replace(prev, item)
			} else {
				warnings = append(warnings,
					entry.Stem()+" is published in both forms; downloading "+prevItem.Entry.Filename())
			}
			continue
		}

		byDest[item.DestinationPath] = len(p.Items)
		byStem[entry.Stem()] = len(p.Items)
		p.Items = append(p.Items, item)
		p.add(entry)
	}
	return p, warnings
}

// replace swaps the planned item at idx, keeping the size accounting right.
func (p *Plan) replace(idx int, item model.PlanItem) {
	p.subtract(p.Items[idx].Entry)
	p.Items[idx] = item
	p.add(item.Entry)
}

func (p *Plan) add(e model.RemoteEntry) {
	if e.SizeKnown() {
		p.TotalBytesNeeded += e.SizeBytes
	} else {
		p.UnknownSizeCount++
	}
}

func (p *Plan) subtract(e model.RemoteEntry) {
	if e.SizeKnown() {
		p.TotalBytesNeeded -= e.SizeBytes
	} else {
		p.UnknownSizeCount--
	}
}

// matchesFilters applies the include/exclude keyword rules: an entry is
// kept if (no include list OR it matches one include keyword) AND it
// matches no exclude keyword.
func matchesFilters(name string, include, exclude []string) bool {
	lower := strings.ToLower(name)
	if len(include) > 0 {
		matched := false
		for _, kw := range include {
			if strings.Contains(lower, strings.ToLower(kw)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, kw := range exclude {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return false
		}
	}
	return true
}
