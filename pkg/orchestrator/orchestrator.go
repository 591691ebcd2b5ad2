// Package orchestrator ties enumeration, scanning, planning, download and
// decompression together into a sync session. Per-item failures never abort
// a session; they are accumulated and reported through the session summary.
package orchestrator

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/hl2dm-community/mapsync/pkg/download"
	pkgerrors "github.com/hl2dm-community/mapsync/pkg/errors"
	"github.com/hl2dm-community/mapsync/pkg/extract"
	"github.com/hl2dm-community/mapsync/pkg/fsutil"
	"github.com/hl2dm-community/mapsync/pkg/hook"
	"github.com/hl2dm-community/mapsync/pkg/model"
	"github.com/hl2dm-community/mapsync/pkg/plan"
	"github.com/hl2dm-community/mapsync/pkg/scan"
)

// Orchestrator ties the listing, download and extraction managers together
// for sync sessions.
type Orchestrator struct {
	Enum    Enumerator
	DL      Downloader
	Extract Extractor
	HookMgr HookRunner // may be nil
	Hooks   Hooks
}

// New constructs an Orchestrator from existing managers. Helper for wiring.
// hookMgr may be nil if no hook scripts are configured.
func New(enum Enumerator, dl Downloader, ex Extractor, hookMgr HookRunner, hooks Hooks) *Orchestrator {
	return &Orchestrator{
		Enum:    enum,
		DL:      dl,
		Extract: ex,
		HookMgr: hookMgr,
		Hooks:   hooks,
	}
}

func emit(h Hooks, e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}

// BuildPlan enumerates the roots, scans the download directory and freezes a
// plan without transferring anything. The download directory is created if it
// does not exist yet.
func (o *Orchestrator) BuildPlan(ctx context.Context, roots []*url.URL, opts Options) (*PlanResult, error) {
	if o.Enum == nil {
		return nil, fmt.Errorf("enumerator is not configured")
	}
	if opts.DownloadDir == "" || !filepath.IsAbs(opts.DownloadDir) {
		return nil, fmt.Errorf("download dir must be absolute: %w: %s", pkgerrors.ErrInvalidPath, opts.DownloadDir)
	}
	if err := os.MkdirAll(opts.DownloadDir, fsutil.DirModeDefault); err != nil {
		return nil, pkgerrors.Wrap(err, "could not create download dir")
	}

	emit(o.Hooks, Event{Phase: "enumerating", Msg: fmt.Sprintf("%d roots", len(roots))})
	inv, err := o.Enum.Enumerate(ctx, roots)
	if err != nil {
		return nil, err
	}

	emit(o.Hooks, Event{Phase: "scanning", Msg: opts.DownloadDir})
	local, err := scan.Scan(opts.DownloadDir, opts.Recursive)
	if err != nil {
		return nil, err
	}

	emit(o.Hooks, Event{Phase: "planning"})
	p, warnings := plan.Build(inv.Entries, local.Stems, plan.Options{
		DestDir: opts.DownloadDir,
		Include: opts.Include,
		Exclude: opts.Exclude,
	})

	free, err := fsutil.FreeSpace(opts.DownloadDir)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "could not determine free disk space")
	}

	res := &PlanResult{
		Plan:          p,
		Gate:          p.Gate(free),
		FreeDiskBytes: free,
	}
	res.Failures = append(res.Failures, inv.Failures...)
	res.Failures = append(res.Failures, local.Failures...)
	res.Warnings = append(res.Warnings, inv.Warnings...)
	res.Warnings = append(res.Warnings, warnings...)
	return res, nil
}

// Run executes a full sync session: plan, gate, download, decompress. It
// returns the session summary exactly once, covering everything that
// happened, including a cancelled tail end.
func (o *Orchestrator) Run(ctx context.Context, roots []*url.URL, opts Options) (*model.SessionSummary, error) {
	started := time.Now()

	if err := o.runHook(hook.PreSync, hook.Context{DownloadDir: opts.DownloadDir}); err != nil {
		return nil, err
	}

	pr, err := o.BuildPlan(ctx, roots, opts)
	if err != nil {
		return nil, err
	}

	switch {
	case pr.Gate == plan.GateReject:
		return nil, fmt.Errorf("plan needs %s but only %s free: %w",
			model.FormatBytes(pr.Plan.TotalBytesNeeded), model.FormatBytes(pr.FreeDiskBytes), pkgerrors.ErrInsufficientSpace)
	case pr.Gate.NeedsConfirmation():
		if o.Hooks.ConfirmGate == nil || !o.Hooks.ConfirmGate(pr.Gate, pr.Plan) {
			return nil, pkgerrors.ErrGateDeclined
		}
	}

	return o.execute(ctx, pr, opts, started)
}

func (o *Orchestrator) execute(ctx context.Context, pr *PlanResult, opts Options, started time.Time) (*model.SessionSummary, error) {
	if o.DL == nil {
		return nil, fmt.Errorf("download manager is not configured")
	}

	summary := &model.SessionSummary{
		RunID:    uuid.NewString(),
		Started:  started,
		Failures: pr.Failures,
		Warnings: pr.Warnings,
	}

	// Workers report progress through a buffered fan-in so a slow renderer
	// can never stall a transfer.
	fan := newProgressFanIn(o.Hooks.OnProgress)
	defer fan.close()

	emit(o.Hooks, Event{Phase: "downloading", Msg: fmt.Sprintf("%d files", len(pr.Plan.Items))})
	results, err := o.DL.FetchAll(ctx, pr.Plan.Items, download.Options{
		Concurrency:    opts.MaxWorkers,
		MaxAttempts:    opts.MaxAttempts,
		AttemptTimeout: opts.AttemptTimeout,
		VerifySize:     true,
		OnProgress:     fan.emit,
	})
	if err != nil {
		return nil, err
	}

	compressed := o.accountDownloads(summary, results, opts)

	if opts.Decompress && len(compressed) > 0 {
		o.runExtraction(ctx, summary, compressed, opts, fan)
	}

	if err := o.runHook(hook.PostSync, hook.Context{DownloadDir: opts.DownloadDir}); err != nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("post-sync hook: %v", err))
	}

	summary.Elapsed = time.Since(summary.Started)
	emit(o.Hooks, Event{Phase: "done", Msg: fmt.Sprintf("%d downloaded, %d failed", summary.Downloaded, summary.FailedDownload)})
	return summary, nil
}

// accountDownloads folds per-item download results into the summary and
// returns the compressed files eligible for extraction. A skipped item is a
// complete file already on disk, so it still extracts.
func (o *Orchestrator) accountDownloads(summary *model.SessionSummary, results []model.DownloadResult, opts Options) []string {
	var compressed []string
	for _, res := range results {
		name := res.Item.Entry.Filename()
		switch res.Outcome {
		case model.OutcomeSuccess:
			summary.Downloaded++
			summary.BytesTransferred += res.BytesTransferred
		case model.OutcomeSkipped:
			summary.Skipped++
		case model.OutcomeFailed:
			summary.FailedDownload++
			summary.Failures = append(summary.Failures, model.FailureRecord{
				Stage:  model.StageDownload,
				Name:   name,
				Reason: res.Err.Error(),
			})
			continue
		case model.OutcomeCancelled:
			summary.Cancelled++
			continue
		}

		if err := o.runHook(hook.PostDownload, hook.Context{
			MapName:     name,
			Path:        res.Item.DestinationPath,
			DownloadDir: opts.DownloadDir,
			Outcome:     res.Outcome.String(),
		}); err != nil {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("post-download hook for %s: %v", name, err))
		}

		if model.IsCompressed(name) {
			compressed = append(compressed, res.Item.DestinationPath)
		}
	}
	return compressed
}

func (o *Orchestrator) runExtraction(ctx context.Context, summary *model.SessionSummary, compressed []string, opts Options, fan *progressFanIn) {
	if o.Extract == nil {
		summary.Warnings = append(summary.Warnings, "extractor is not configured; leaving archives compressed")
		return
	}

	emit(o.Hooks, Event{Phase: "extracting", Msg: fmt.Sprintf("%d archives", len(compressed))})
	results := o.Extract.ExtractAll(ctx, compressed, extract.Options{
		Concurrency:  opts.ExtractWorkers,
		DeleteSource: opts.DeleteCompressed,
		OnProgress:   fan.emit,
	})

	for _, res := range results {
		name := filepath.Base(res.CompressedPath)
		if res.Outcome != model.OutcomeSuccess {
			summary.FailedExtract++
			summary.Failures = append(summary.Failures, model.FailureRecord{
				Stage:  model.StageDecompression,
				Name:   name,
				Reason: res.Err.Error(),
			})
			continue
		}
		summary.Extracted++

		if res.SourceDeleted {
			summary.Deleted++
		} else if res.DeleteErr != nil {
			summary.FailedDelete++
			summary.Failures = append(summary.Failures, model.FailureRecord{
				Stage:  model.StageDeletion,
				Name:   name,
				Reason: res.DeleteErr.Error(),
			})
		}

		if err := o.runHook(hook.PostExtract, hook.Context{
			MapName:     filepath.Base(res.OutputPath),
			Path:        res.OutputPath,
			DownloadDir: opts.DownloadDir,
			Outcome:     res.Outcome.String(),
		}); err != nil {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("post-extract hook for %s: %v", name, err))
		}
	}
}

func (o *Orchestrator) runHook(phase hook.Phase, ctx hook.Context) error {
	if o.HookMgr == nil {
		return nil
	}
	return o.HookMgr.Execute(phase, ctx)
}
