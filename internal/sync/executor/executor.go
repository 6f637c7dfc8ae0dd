package executor

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dustin/go-humanize"
	"github.com/go-git/go-billy/v5"
	"golang.org/x/sync/errgroup"

	"github.com/input-output-hk/catalyst-forge-libs/deployer/deptypes"
	deperrors "github.com/input-output-hk/catalyst-forge-libs/deployer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/fingerprint"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/logging"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/transfer/multipart"
)

// DefaultConcurrency is the number of files processed at once.
const DefaultConcurrency = 4

// Executor handles the parallel execution of the upload phase.
type Executor struct {
	s3Client   s3api.S3API
	uploader   *multipart.Uploader
	calculator *fingerprint.Calculator
	filesystem billy.Filesystem
	bucket     string

	maxConcurrency int
	dryRun         bool
	logger         *slog.Logger
}

// NewExecutor creates a new executor uploading to bucket.
func NewExecutor(
	s3Client s3api.S3API,
	filesystem billy.Filesystem,
	calculator *fingerprint.Calculator,
	bucket string,
	maxConcurrency int,
) *Executor {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultConcurrency
	}

	return &Executor{
		s3Client:       s3Client,
		uploader:       multipart.NewUploader(s3Client, calculator.ChunkSize()),
		calculator:     calculator,
		filesystem:     filesystem,
		bucket:         bucket,
		maxConcurrency: maxConcurrency,
		logger:         logging.Discard(),
	}
}

// WithDryRun makes the executor report planned uploads without sending them.
func (e *Executor) WithDryRun(dryRun bool) *Executor {
	e.dryRun = dryRun
	return e
}

// WithLogger sets the logger for per-file decisions.
func (e *Executor) WithLogger(logger *slog.Logger) *Executor {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// Summary aggregates the per-file results of an upload phase.
type Summary struct {
	Files         []deptypes.FileResult
	Uploaded      int
	Unchanged     int
	Failed        int
	Planned       int
	BytesUploaded int64
	Duration      time.Duration
}

// Execute runs skip-or-send for every candidate with bounded concurrency.
// Results are returned in candidate order. Per-file failures are recorded in
// the results and never returned as an error.
func (e *Executor) Execute(ctx context.Context, candidates []deptypes.Candidate) *Summary {
	startTime := time.Now()
	results := make([]deptypes.FileResult, len(candidates))

	var bytesUploaded atomic.Int64

	var g errgroup.Group
	g.SetLimit(e.maxConcurrency)

	for i, c := range candidates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = e.failed(c, "", err)
				return nil
			}
			results[i] = e.SkipOrSend(ctx, c)
			if results[i].Action == deptypes.ActionUploaded {
				bytesUploaded.Add(c.Size)
			}
			return nil
		})
	}
	_ = g.Wait()

	summary := &Summary{
		Files:         results,
		BytesUploaded: bytesUploaded.Load(),
		Duration:      time.Since(startTime),
	}
	for _, r := range results {
		switch r.Action {
		case deptypes.ActionUploaded:
			summary.Uploaded++
		case deptypes.ActionUnchanged:
			summary.Unchanged++
		case deptypes.ActionFailed:
			summary.Failed++
		case deptypes.ActionPlanned:
			summary.Planned++
		}
	}
	return summary
}

// SkipOrSend uploads c unless its destination already holds the same content.
func (e *Executor) SkipOrSend(ctx context.Context, c deptypes.Candidate) deptypes.FileResult {
	fp, err := e.calculator.File(e.filesystem, c.Path)
	switch {
	case err != nil:
		fpErr := deperrors.NewError("fingerprint", err).WithPath(c.Path).WithCode(deperrors.CodeFingerprintFailed)
		e.logger.Error("Could not fingerprint file, uploading", "code", fpErr.Code, "error", fpErr)
	case fp.IsZero():
		e.logger.Error("File has no fingerprint, uploading", "path", c.Path, "error", deperrors.ErrNoFingerprint)
	default:
		if e.check(ctx, c, fp) == CheckMatch {
			e.logger.Debug("Skipped", "path", c.Path, "key", c.Key)
			return deptypes.FileResult{Candidate: c, Action: deptypes.ActionUnchanged, Fingerprint: fp}
		}
	}

	if e.dryRun {
		e.logger.Info("Would upload", "path", c.Path, "bucket", e.bucket, "key", c.Key)
		return deptypes.FileResult{Candidate: c, Action: deptypes.ActionPlanned, Fingerprint: fp}
	}

	e.logger.Debug("Uploading", "path", c.Path, "size", humanize.IBytes(uint64(c.Size))) //nolint:gosec // sizes are non-negative
	if _, err := e.uploader.Upload(ctx, e.filesystem, c.Path, e.bucket, c.Key); err != nil {
		return e.failed(c, fp, err)
	}

	e.logger.Info("Uploaded", "path", c.Path, "dest", "s3://"+e.bucket+"/"+c.Key)
	return deptypes.FileResult{Candidate: c, Action: deptypes.ActionUploaded, Fingerprint: fp}
}

// check issues the conditional HeadObject for fp against c's key.
func (e *Executor) check(ctx context.Context, c deptypes.Candidate, fp deptypes.Fingerprint) CheckResult {
	_, err := e.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket:  aws.String(e.bucket),
		Key:     aws.String(c.Key),
		IfMatch: aws.String(fp.String()),
	})
	if err == nil {
		return CheckMatch
	}

	result, reason := classifyCheckError(err)
	if result == CheckMiss {
		e.logger.Debug("Remote copy missing or different", "key", c.Key, "reason", reason)
	} else {
		e.logger.Warn("Skip check failed, uploading anyway", "key", c.Key, "error", reason)
	}
	return result
}

func (e *Executor) failed(c deptypes.Candidate, fp deptypes.Fingerprint, err error) deptypes.FileResult {
	uploadErr := deperrors.NewUploadError(c.Path, e.bucket, c.Key, err)
	e.logger.Error("Upload failed", "path", c.Path, "error", uploadErr)
	return deptypes.FileResult{
		Candidate:   c,
		Action:      deptypes.ActionFailed,
		Fingerprint: fp,
		Err:         uploadErr,
	}
}
