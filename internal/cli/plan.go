package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hl2dm-community/mapsync/pkg/model"
	"github.com/hl2dm-community/mapsync/pkg/orchestrator"
)

// NewPlanCmd creates the plan command.
func NewPlanCmd() *cobra.Command {
	var (
		downloadDir string
		include     []string
		exclude     []string
	)

	cmd := &cobra.Command{
		Use:   "plan [ROOT_URL...]",
		Short: "Show what a sync would download without transferring anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if downloadDir != "" {
				cfg.Settings.DownloadDir = downloadDir
			}
			if len(include) > 0 {
				cfg.Settings.Include = include
			}
			if len(exclude) > 0 {
				cfg.Settings.Exclude = exclude
			}

			roots, err := parseRoots(cfg, args)
			if err != nil {
				return err
			}
			opts, err := sessionOptions(cfg)
			if err != nil {
				return err
			}
			orch, err := buildOrchestrator(cfg, orchestrator.Hooks{})
			if err != nil {
				return err
			}

			pr, err := orch.BuildPlan(cmd.Context(), roots, opts)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, TabWidth, ' ', 0)
			_, _ = fmt.Fprintln(tw, "FILE\tSIZE\tSOURCE")
			for _, item := range pr.Plan.Items {
				size := "?"
				if item.Entry.SizeKnown() {
					size = model.FormatBytes(item.Entry.SizeBytes)
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", item.Entry.Filename(), size, item.Entry.SourceRoot.Host)
			}
			_ = tw.Flush()

			fmt.Printf("\n%d files to download (%s", len(pr.Plan.Items), model.FormatBytes(pr.Plan.TotalBytesNeeded))
			if pr.Plan.UnknownSizeCount > 0 {
				fmt.Printf(" + %d of unknown size", pr.Plan.UnknownSizeCount)
			}
			fmt.Printf("), %d already present, %s free\n", pr.Plan.SkippedExisting, model.FormatBytes(pr.FreeDiskBytes))
			fmt.Printf("gate: %s\n", pr.Gate)

			for _, w := range pr.Warnings {
				fmt.Printf("warning: %s\n", w)
			}
			for _, f := range pr.Failures {
				fmt.Printf("failure: [%s] %s: %s\n", f.Stage, f.Name, f.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&downloadDir, "download-dir", "d", "", "local map directory (overrides config)")
	cmd.Flags().StringSliceVar(&include, "include", nil, "only plan maps whose name contains one of these keywords")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "skip maps whose name contains one of these keywords")

	return cmd
}
