package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/deployer"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/config"
	deperrors "github.com/input-output-hk/catalyst-forge-libs/deployer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/logging"
)

type syncFlags struct {
	configPath  string
	stack       string
	profile     string
	assumeValid bool
	debug       bool
	concurrency int
	dryRun      bool
}

func newSyncCmd() *cobra.Command {
	f := &syncFlags{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Validate templates and upload changed files for a stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Failures past this point are logged, not printed by cobra.
			cmd.SilenceErrors = true
			logger := logging.NewConsole(os.Stderr, f.debug)
			return runSync(cmd, f, logger)
		},
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().StringVarP(&f.configPath, "config", "c", config.DefaultPath, "Config document")
	cmd.Flags().StringVarP(&f.stack, "stack", "s", "", "Stack section to read settings from")
	cmd.Flags().StringVarP(&f.profile, "profile", "p", "", "AWS shared config profile")
	cmd.Flags().BoolVarP(&f.assumeValid, "assume-valid", "j", false, "Skip template validation")
	cmd.Flags().BoolVarP(&f.debug, "debug", "D", false, "Enable debug logging")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "Parallel uploads (overrides sync_concurrency)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Report what would be uploaded without uploading")
	return cmd
}

func runSync(cmd *cobra.Command, f *syncFlags, logger *slog.Logger) error {
	ctx := cmd.Context()

	cfg, err := config.Load(f.configPath, f.stack)
	if err != nil {
		logging.Critical(ctx, logger, "Invalid configuration", "error", err)
		return err
	}

	d, err := deployer.New(ctx, cfg,
		deployer.WithLogger(logger),
		deployer.WithProfile(f.profile),
		deployer.WithAssumeValid(f.assumeValid),
		deployer.WithConcurrency(f.concurrency),
		deployer.WithDryRun(f.dryRun),
	)
	if err != nil {
		logging.Critical(ctx, logger, "Failed to initialize AWS clients", "error", err)
		return err
	}

	result, err := d.Sync(ctx)
	if err != nil {
		switch {
		case deperrors.IsValidation(err):
			logging.Critical(ctx, logger, "Failed to validate templates before upload", "error", err)
		default:
			logging.Critical(ctx, logger, "Sync failed", "error", err)
		}
		return err
	}

	if result.FilesFailed > 0 {
		logger.Warn("Some files failed to upload", "failed", result.FilesFailed)
	}
	if f.dryRun {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d files would be uploaded, %d unchanged\n",
			result.FilesPlanned, result.FilesUnchanged)
	} else {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d uploaded (%s), %d unchanged, %d failed\n",
			result.FilesUploaded,
			humanize.IBytes(uint64(result.BytesUploaded)), //nolint:gosec // byte counts are non-negative
			result.FilesUnchanged,
			result.FilesFailed)
	}
	return nil
}
