package cli

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hl2dm-community/mapsync/internal/logger"
	"github.com/hl2dm-community/mapsync/pkg/config"
	"github.com/hl2dm-community/mapsync/pkg/listing"
)

// NewSourcesCmd creates the sources command with subcommands.
func NewSourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage FastDL sources",
		Long:  "List, validate and import the FastDL roots mapsync downloads from",
	}

	cmd.AddCommand(
		newSourcesListCmd(),
		newSourcesValidateCmd(),
		newSourcesImportCmd(),
	)

	return cmd
}

func newSourcesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured sources",
		RunE: func(*cobra.Command, []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, TabWidth, ' ', 0)
			_, _ = fmt.Fprintln(tw, "NAME\tURL\tSTATUS")
			for _, src := range cfg.Sources {
				status := "enabled"
				if !src.Enabled {
					status = "disabled"
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", src.Name, src.URL, status)
			}
			return tw.Flush()
		},
	}
}

func newSourcesValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that every enabled source serves a directory listing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			roots, err := cfg.RootURLs()
			if err != nil {
				return err
			}
			if len(roots) == 0 {
				return fmt.Errorf("no enabled sources configured")
			}

			source := listing.NewHTMLSource(cfg.Settings.HTTPTimeout, "")
			bad := 0
			for _, root := range roots {
				if err := probeRoot(cmd.Context(), source, root); err != nil {
					logger.Error("Source unreachable", logger.Fields{"url": root.String(), "error": err})
					bad++
					continue
				}
				logger.Success("Source OK", logger.Fields{"url": root.String()})
			}
			if bad > 0 {
				return fmt.Errorf("%d of %d sources failed validation", bad, len(roots))
			}
			return nil
		},
	}
}

func probeRoot(ctx context.Context, source *listing.HTMLSource, root *url.URL) error {
	_, err := source.List(ctx, root)
	return err
}

func newSourcesImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import sources from a plain-text URL list",
		Long: `Import FastDL roots from a text file with one URL per line. Lines
starting with # are ignored. Imported sources are merged into the
configuration file, skipping URLs that are already present.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			imported, err := config.LoadSourcesFile(args[0])
			if err != nil {
				return err
			}

			existing := make(map[string]struct{}, len(cfg.Sources))
			for _, src := range cfg.Sources {
				existing[src.URL] = struct{}{}
			}

			added := 0
			for _, src := range imported {
				if _, ok := existing[src.URL]; ok {
					continue
				}
				cfg.Sources = append(cfg.Sources, src)
				existing[src.URL] = struct{}{}
				added++
			}

			if err := cfg.SaveConfig(getConfigPath()); err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}
			logger.Success("Sources imported", logger.Fields{"added": added, "total": len(cfg.Sources)})
			return nil
		},
	}
}
