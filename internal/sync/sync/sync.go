package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/input-output-hk/catalyst-forge-libs/deployer/deptypes"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/logging"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/sync/executor"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/sync/scanner"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/sync/validator"
)

// Manager coordinates the phases of a sync run:
// 1. Discovery: walk the sync dirs and drop excluded paths
// 2. Validation: validate every template, stopping at the first failure
// 3. Upload: skip-or-send every candidate with bounded concurrency
type Manager struct {
	scanner   *scanner.Scanner
	validator *validator.Validator
	executor  *executor.Executor
	logger    *slog.Logger
}

// NewManager creates a new sync manager with the provided components.
func NewManager(
	sc *scanner.Scanner,
	v *validator.Validator,
	ex *executor.Executor,
	logger *slog.Logger,
) *Manager {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{
		scanner:   sc,
		validator: v,
		executor:  ex,
		logger:    logger,
	}
}

// Sync runs the phases in order. The returned error is non-nil only for
// fatal failures, in which case the result is in PhaseAborted. Per-file
// upload failures are reported in the result.
func (sm *Manager) Sync(ctx context.Context, config *Config) (*deptypes.Result, error) {
	startTime := time.Now()
	result := &deptypes.Result{
		Phase:   deptypes.PhaseStart,
		Release: config.Release,
	}

	abort := func(err error) (*deptypes.Result, error) {
		sm.transition(result, deptypes.PhaseAborted)
		result.Duration = time.Since(startTime)
		return result, err
	}

	if len(config.SyncDirs) == 0 {
		sm.logger.Warn("Sync requested but no directories specified with the 'sync_dirs' attribute")
	}

	candidates, err := sm.scanner.Scan(ctx, config.SyncDirs)
	if err != nil {
		return abort(err)
	}
	sm.logger.Debug("Discovered files", "count", len(candidates), "release", config.Release)

	if config.AssumeValid {
		sm.logger.Debug("Assuming templates are valid and continuing to sync.")
	} else {
		sm.transition(result, deptypes.PhaseValidate)
		sm.logger.Info("Validating Templates")

		validated, err := sm.validator.ValidateAll(ctx, candidates)
		result.TemplatesValidated = validated
		if err != nil {
			return abort(err)
		}
	}

	sm.transition(result, deptypes.PhaseUpload)
	summary := sm.executor.Execute(ctx, candidates)

	result.Files = summary.Files
	result.FilesUploaded = summary.Uploaded
	result.FilesUnchanged = summary.Unchanged
	result.FilesFailed = summary.Failed
	result.FilesPlanned = summary.Planned
	result.BytesUploaded = summary.BytesUploaded

	sm.transition(result, deptypes.PhaseDone)
	result.Duration = time.Since(startTime)

	sm.logger.Info("Sync complete",
		"uploaded", result.FilesUploaded,
		"unchanged", result.FilesUnchanged,
		"failed", result.FilesFailed,
		"bytes", humanize.IBytes(uint64(result.BytesUploaded)), //nolint:gosec // byte counts are non-negative
		"duration", result.Duration.Round(time.Millisecond))

	return result, nil
}

func (sm *Manager) transition(result *deptypes.Result, next deptypes.Phase) {
	sm.logger.Debug("Phase", "from", result.Phase, "to", next)
	result.Phase = next
}
