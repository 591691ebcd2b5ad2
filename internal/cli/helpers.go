package cli

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hl2dm-community/mapsync/internal/logger"
	"github.com/hl2dm-community/mapsync/pkg/config"
	"github.com/hl2dm-community/mapsync/pkg/download"
	"github.com/hl2dm-community/mapsync/pkg/extract"
	"github.com/hl2dm-community/mapsync/pkg/fsutil"
	"github.com/hl2dm-community/mapsync/pkg/hook"
	"github.com/hl2dm-community/mapsync/pkg/listing"
	"github.com/hl2dm-community/mapsync/pkg/model"
	"github.com/hl2dm-community/mapsync/pkg/orchestrator"
)

// These variables will be set by the main package.
var (
	ConfigPath *string
	Verbose    *bool
)

// loadConfig loads the configuration from the --config path or the default
// location, applying CLI flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if Verbose != nil && *Verbose {
		cfg.Settings.LogLevel = "debug"
	}
	logger.InitLogger(cfg.Settings.LogLevel, logger.FormatText)

	return cfg, nil
}

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}

	defaultPath, err := config.GetDefaultConfigPath()
	if err != nil {
		logger.Warn("Failed to get default config path, using empty path", logger.Fields{"error": err})
		return ""
	}
	return defaultPath
}

// buildOrchestrator wires the engine managers from configuration.
func buildOrchestrator(cfg *config.Config, hooks orchestrator.Hooks) (*orchestrator.Orchestrator, error) {
	source := listing.NewHTMLSource(cfg.Settings.HTTPTimeout, "")
	agg := listing.NewAggregator(source, source, listing.Options{
		Concurrency: cfg.Settings.EnumConcurrency,
		Recursive:   cfg.Settings.Recursive,
		MaxDepth:    cfg.Settings.MaxDepth,
		ProbeSizes:  !cfg.Settings.SkipSizeCheck,
		OnProgress:  hooks.OnEnumProgress,
	})

	var hookMgr orchestrator.HookRunner
	if cfg.Settings.HookDir != "" {
		mgr := hook.NewManager()
		if err := hook.LoadHooksFromDir(mgr, cfg.Settings.HookDir); err != nil {
			return nil, err
		}
		hookMgr = mgr
	}

	return orchestrator.New(agg, download.NewManager(""), extract.NewManager(), hookMgr, hooks), nil
}

// sessionOptions maps config settings onto orchestrator options.
func sessionOptions(cfg *config.Config) (orchestrator.Options, error) {
	dir := cfg.Settings.DownloadDir
	if dir == "" {
		return orchestrator.Options{}, fmt.Errorf("no download directory configured; set download_dir or pass --download-dir")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return orchestrator.Options{}, fmt.Errorf("resolving download dir: %w", err)
	}
	return orchestrator.Options{
		DownloadDir:      abs,
		Recursive:        cfg.Settings.Recursive,
		Include:          cfg.Settings.Include,
		Exclude:          cfg.Settings.Exclude,
		MaxWorkers:       cfg.Settings.MaxWorkers,
		MaxAttempts:      cfg.Settings.MaxRetries,
		AttemptTimeout:   cfg.Settings.AttemptTimeout,
		Decompress:       cfg.Settings.Decompress,
		ExtractWorkers:   cfg.Settings.ExtractWorkers,
		DeleteCompressed: cfg.Settings.DeleteCompressed,
	}, nil
}

// parseRoots turns positional URL arguments into listing roots, falling back
// to the enabled configured sources when no arguments are given.
func parseRoots(cfg *config.Config, args []string) ([]*url.URL, error) {
	if len(args) == 0 {
		roots, err := cfg.RootURLs()
		if err != nil {
			return nil, err
		}
		if len(roots) == 0 {
			return nil, fmt.Errorf("no sources configured; add one with `mapsync sources import` or pass URLs")
		}
		return roots, nil
	}

	roots := make([]*url.URL, 0, len(args))
	for _, arg := range args {
		u, err := config.NormalizeRootURL(arg)
		if err != nil {
			return nil, err
		}
		roots = append(roots, u)
	}
	return roots, nil
}

// logSummary reports the session outcome through the logger.
func logSummary(summary *model.SessionSummary) {
	logger.Success("Sync finished", logger.Fields{
		"run_id":      summary.RunID,
		"downloaded":  summary.Downloaded,
		"extracted":   summary.Extracted,
		"failed":      summary.FailedDownload + summary.FailedExtract,
		"cancelled":   summary.Cancelled,
		"transferred": model.FormatBytes(summary.BytesTransferred),
		"elapsed":     model.FormatDuration(summary.Elapsed),
	})
	for _, w := range summary.Warnings {
		logger.Warn(w)
	}
	for _, f := range summary.Failures {
		logger.Error("Failure", logger.Fields{"stage": string(f.Stage), "name": f.Name, "reason": f.Reason})
	}
}

// writeSummaryFile persists the session summary next to the downloaded maps
// so that unattended runs leave a record behind.
func writeSummaryFile(dir string, summary *model.SessionSummary) (string, error) {
	name := fmt.Sprintf("mapsync_summary_%s_%s.txt",
		summary.Started.Format("20060102-150405"), summary.RunID)
	path := filepath.Join(dir, name)

	var b strings.Builder
	fmt.Fprintf(&b, "mapsync session %s\n", summary.RunID)
	fmt.Fprintf(&b, "started:     %s\n", summary.Started.Format(time.RFC3339))
	fmt.Fprintf(&b, "elapsed:     %s\n", model.FormatDuration(summary.Elapsed))
	fmt.Fprintf(&b, "downloaded:  %d (%s)\n", summary.Downloaded, model.FormatBytes(summary.BytesTransferred))
	fmt.Fprintf(&b, "skipped:     %d\n", summary.Skipped)
	fmt.Fprintf(&b, "extracted:   %d\n", summary.Extracted)
	fmt.Fprintf(&b, "deleted:     %d\n", summary.Deleted)
	fmt.Fprintf(&b, "cancelled:   %d\n", summary.Cancelled)
	fmt.Fprintf(&b, "failed:      %d download, %d extract, %d delete\n",
		summary.FailedDownload, summary.FailedExtract, summary.FailedDelete)

	if len(summary.Failures) > 0 {
		b.WriteString("\nfailures:\n")
		for _, f := range summary.Failures {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", f.Stage, f.Name, f.Reason)
		}
	}
	if len(summary.Warnings) > 0 {
		b.WriteString("\nwarnings:\n")
		for _, w := range summary.Warnings {
			fmt.Fprintf(&b, "  %s\n", w)
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), fsutil.FileModeDefault); err != nil {
		return "", fmt.Errorf("writing summary file: %w", err)
	}
	return path, nil
}
