package deployer

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"

	"github.com/input-output-hk/catalyst-forge-libs/deployer/deptypes"
	deperrors "github.com/input-output-hk/catalyst-forge-libs/deployer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/fingerprint"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/release"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/sync/executor"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/sync/scanner"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/sync/sync"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/sync/validator"
)

// Sync publishes the configured sync dirs to the destination bucket.
//
// The run follows a three-phase approach:
// 1. Discovery: walk the sync dirs below the base and drop excluded paths
// 2. Validation: validate every template; the first failure aborts the run
// 3. Upload: skip files whose remote fingerprint matches, upload the rest
//
// Returns:
//   - *Result: per-file decisions and counts, also on abort
//   - error: non-nil only for fatal failures
//
// Errors:
//   - Configuration errors if the base or exclude patterns are unusable
//   - Validation errors if a template is rejected or cannot be staged
//   - Walk errors if a sync dir cannot be read
//
// Upload failures are per file and reported through Result.Errors.
func (d *Deployer) Sync(ctx context.Context) (*deptypes.Result, error) {
	absBase, err := filepath.Abs(d.cfg.Base)
	if err != nil {
		return nil, deperrors.NewConfigurationError("sync", fmt.Errorf("failed to resolve sync base: %w", err)).
			WithPath(d.cfg.Base)
	}

	tag, err := release.Resolve(absBase, d.cfg.Release)
	if err != nil {
		return nil, deperrors.NewError("release", err).WithPath(absBase)
	}

	filter, err := scanner.NewExcludeFilter(d.cfg.Exclude)
	if err != nil {
		return nil, deperrors.NewConfigurationError("sync", fmt.Errorf("%w: %w", deperrors.ErrInvalidConfig, err))
	}

	filesystem := d.filesystem
	if filesystem == nil {
		filesystem = osfs.New(absBase)
	}

	calculator := fingerprint.NewCalculator(d.cfg.ChunkSize)

	sc := scanner.NewScanner(filesystem, tag, filter, scanner.WithLogger(d.logger))
	v := validator.New(d.cfnClient, d.s3Client, filesystem, calculator, d.retry, validator.Config{
		Bucket:     d.cfg.Bucket,
		Region:     d.region,
		Threshold:  d.cfg.ValidationThreshold,
		Markers:    d.cfg.TemplateMarkers,
		Extensions: d.cfg.TemplateExtensions,
	}, d.logger)
	ex := executor.NewExecutor(d.s3Client, filesystem, calculator, d.cfg.Bucket, d.concurrency).
		WithDryRun(d.dryRun).
		WithLogger(d.logger)

	d.logger.Debug("Starting sync",
		"stack", d.cfg.Stack,
		"base", absBase,
		"bucket", d.cfg.Bucket,
		"release", tag,
		"dry_run", d.dryRun)

	manager := sync.NewManager(sc, v, ex, d.logger)
	return manager.Sync(ctx, &sync.Config{
		SyncDirs:    d.cfg.Dirs,
		AssumeValid: d.assumeValid,
		Release:     tag,
	})
}
