package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hl2dm-community/mapsync/internal/logger"
	"github.com/hl2dm-community/mapsync/pkg/config"
	"github.com/hl2dm-community/mapsync/pkg/model"
	"github.com/hl2dm-community/mapsync/pkg/orchestrator"
	"github.com/hl2dm-community/mapsync/pkg/plan"
)

// NewSyncCmd creates the sync command.
func NewSyncCmd() *cobra.Command {
	var (
		downloadDir   string
		yes           bool
		skipSizeCheck bool
		workers       int
		include       []string
		exclude       []string
		noDecompress  bool
	)

	cmd := &cobra.Command{
		Use:   "sync [ROOT_URL...]",
		Short: "Download missing maps from FastDL mirrors",
		Long: `Enumerate the configured FastDL roots (or the given URLs), compare them
against the local map directory and download everything that is missing.
Compressed archives are decompressed in place after download.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if downloadDir != "" {
				cfg.Settings.DownloadDir = downloadDir
			}
			if skipSizeCheck {
				cfg.Settings.SkipSizeCheck = true
			}
			if workers > 0 {
				cfg.Settings.MaxWorkers = workers
			}
			if len(include) > 0 {
				cfg.Settings.Include = include
			}
			if len(exclude) > 0 {
				cfg.Settings.Exclude = exclude
			}
			if noDecompress {
				cfg.Settings.Decompress = false
			}
			return runSync(cmd, args, cfg, yes)
		},
	}

	cmd.Flags().StringVarP(&downloadDir, "download-dir", "d", "", "local map directory (overrides config)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "answer confirmation prompts with yes")
	cmd.Flags().BoolVar(&skipSizeCheck, "skip-size-check", false, "skip per-file size probes")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "number of parallel downloads")
	cmd.Flags().StringSliceVar(&include, "include", nil, "only download maps whose name contains one of these keywords")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "skip maps whose name contains one of these keywords")
	cmd.Flags().BoolVar(&noDecompress, "no-decompress", false, "leave downloaded .bz2 archives compressed")

	return cmd
}

func runSync(cmd *cobra.Command, args []string, cfg *config.Config, yes bool) error {
	roots, err := parseRoots(cfg, args)
	if err != nil {
		return err
	}
	opts, err := sessionOptions(cfg)
	if err != nil {
		return err
	}

	hooks := orchestrator.Hooks{
		OnEvent: func(e orchestrator.Event) {
			logger.Debug("Phase "+e.Phase, logger.Fields{"msg": e.Msg})
		},
		OnEnumProgress: func(p model.EnumProgress) {
			logger.Debugf("Enumerated %d/%d roots, %d dirs, %d files", p.RootsDone, p.RootsTotal, p.DirsListed, p.EntriesFound)
		},
		ConfirmGate: func(decision plan.GateDecision, p *plan.Plan) bool {
			return confirmPlan(cmd, decision, p, yes)
		},
	}

	orch, err := buildOrchestrator(cfg, hooks)
	if err != nil {
		return err
	}

	logger.Info("Starting sync", logger.Fields{"roots": len(roots), "dir": opts.DownloadDir})
	summary, err := orch.Run(cmd.Context(), roots, opts)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	logSummary(summary)
	path, err := writeSummaryFile(opts.DownloadDir, summary)
	if err != nil {
		logger.Warn("Could not write summary file", logger.Fields{"error": err})
	} else {
		logger.Info("Summary written", logger.Fields{"path": path})
	}
	return nil
}

// confirmPlan asks the user to approve a large or low-space plan.
func confirmPlan(cmd *cobra.Command, decision plan.GateDecision, p *plan.Plan, yes bool) bool {
	switch decision {
	case plan.GateConfirmLarge:
		fmt.Fprintf(cmd.OutOrStdout(), "About to download %d files (%s).\n",
			len(p.Items), model.FormatBytes(p.TotalBytesNeeded))
	case plan.GateConfirmLowSpace:
		fmt.Fprintf(cmd.OutOrStdout(), "This download leaves little free disk space (%d files, %s needed).\n",
			len(p.Items), model.FormatBytes(p.TotalBytesNeeded))
	}
	if yes {
		return true
	}

	fmt.Fprint(cmd.OutOrStdout(), "Continue? [y/N]: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
