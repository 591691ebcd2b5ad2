package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hl2dm-community/mapsync/internal/logger"
	"github.com/hl2dm-community/mapsync/pkg/config"
	"github.com/hl2dm-community/mapsync/pkg/model"
)

// NewConfigCmd creates the config command with subcommands.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  "View and initialize mapsync configuration settings",
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigInitCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE:  runConfigShow,
	}
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file",
		Long:  "Create a default configuration file",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runConfigInit(force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration file")

	return cmd
}

func runConfigShow(*cobra.Command, []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SETTING\tVALUE")
	_, _ = fmt.Fprintln(tw, "-------\t-----")
	_, _ = fmt.Fprintf(tw, "download_dir\t%s\n", cfg.Settings.DownloadDir)
	_, _ = fmt.Fprintf(tw, "recursive\t%t\n", cfg.Settings.Recursive)
	_, _ = fmt.Fprintf(tw, "max_depth\t%d\n", cfg.Settings.MaxDepth)
	_, _ = fmt.Fprintf(tw, "include\t%v\n", cfg.Settings.Include)
	_, _ = fmt.Fprintf(tw, "exclude\t%v\n", cfg.Settings.Exclude)
	_, _ = fmt.Fprintf(tw, "max_workers\t%d\n", cfg.Settings.MaxWorkers)
	_, _ = fmt.Fprintf(tw, "extract_workers\t%d\n", cfg.Settings.ExtractWorkers)
	_, _ = fmt.Fprintf(tw, "enum_concurrency\t%d\n", cfg.Settings.EnumConcurrency)
	_, _ = fmt.Fprintf(tw, "decompress\t%t\n", cfg.Settings.Decompress)
	_, _ = fmt.Fprintf(tw, "delete_compressed\t%t\n", cfg.Settings.DeleteCompressed)
	_, _ = fmt.Fprintf(tw, "skip_size_check\t%t\n", cfg.Settings.SkipSizeCheck)
	_, _ = fmt.Fprintf(tw, "http_timeout\t%s\n", cfg.Settings.HTTPTimeout)
	_, _ = fmt.Fprintf(tw, "attempt_timeout\t%s\n", model.FormatDuration(cfg.Settings.AttemptTimeout))
	_, _ = fmt.Fprintf(tw, "max_retries\t%d\n", cfg.Settings.MaxRetries)
	_, _ = fmt.Fprintf(tw, "hook_dir\t%s\n", cfg.Settings.HookDir)
	_, _ = fmt.Fprintf(tw, "log_level\t%s\n", cfg.Settings.LogLevel)
	_ = tw.Flush()

	fmt.Printf("\nSources (%d):\n", len(cfg.Sources))
	for _, src := range cfg.Sources {
		status := "enabled"
		if !src.Enabled {
			status = "disabled"
		}
		fmt.Printf("  %s: %s (%s)\n", src.Name, src.URL, status)
	}

	return nil
}

func runConfigInit(force bool) error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", configPath)
	}

	defaultConfig := config.DefaultConfig()
	if err := defaultConfig.SaveConfig(configPath); err != nil {
		return fmt.Errorf("failed to save default configuration: %w", err)
	}

	logger.Success("Configuration file created", logger.Fields{"path": configPath})
	return nil
}
