// Package validator checks infrastructure templates against CloudFormation
// before any file of a run is uploaded.
//
// Small templates are submitted inline. Templates above the size threshold,
// or whose content could not be fingerprinted, are staged to a scratch key in
// the destination bucket and validated by URL; the scratch object is removed
// whatever the outcome.
package validator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/dustin/go-humanize"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/input-output-hk/catalyst-forge-libs/deployer/deptypes"
	deperrors "github.com/input-output-hk/catalyst-forge-libs/deployer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/cfnapi"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/fingerprint"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/logging"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/retry"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/transfer/multipart"
)

const (
	// DefaultThreshold is the largest template submitted inline, in bytes.
	DefaultThreshold = 50 * 1024

	// ScratchPrefix is the key prefix of staged templates.
	ScratchPrefix = "deployer_validate"
)

var (
	// DefaultMarkers are the path fragments that mark a template.
	DefaultMarkers = []string{"cloudformation", "template"}

	// DefaultExtensions are the template file extensions.
	DefaultExtensions = []string{".json", ".yml", ".yaml"}
)

// Config holds validator settings.
type Config struct {
	// Bucket receives staged templates
	Bucket string

	// Region selects the template URL form
	Region string

	// Threshold is the largest template validated inline
	Threshold int64

	// Markers are path fragments identifying templates
	Markers []string

	// Extensions are accepted template extensions
	Extensions []string
}

// Validator validates templates.
type Validator struct {
	cfn        cfnapi.CloudFormationAPI
	s3Client   s3api.S3API
	uploader   *multipart.Uploader
	calculator *fingerprint.Calculator
	retry      *retry.Policy
	filesystem billy.Filesystem
	cfg        Config
	logger     *slog.Logger
}

// New creates a Validator. Zero-valued settings in cfg take their defaults.
func New(
	cfn cfnapi.CloudFormationAPI,
	s3Client s3api.S3API,
	filesystem billy.Filesystem,
	calculator *fingerprint.Calculator,
	policy *retry.Policy,
	cfg Config,
	logger *slog.Logger,
) *Validator {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if len(cfg.Markers) == 0 {
		cfg.Markers = DefaultMarkers
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = DefaultExtensions
	}
	if logger == nil {
		logger = logging.Discard()
	}
	if policy == nil {
		policy = retry.New(retry.WithLogger(logger))
	}

	return &Validator{
		cfn:        cfn,
		s3Client:   s3Client,
		uploader:   multipart.NewUploader(s3Client, calculator.ChunkSize()),
		calculator: calculator,
		retry:      policy,
		filesystem: filesystem,
		cfg:        cfg,
		logger:     logger,
	}
}

// IsTemplate reports whether p names a template: it contains one of the
// markers and ends in one of the template extensions.
func (v *Validator) IsTemplate(p string) bool {
	ext := path.Ext(p)
	matched := false
	for _, e := range v.cfg.Extensions {
		if ext == e {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	for _, m := range v.cfg.Markers {
		if strings.Contains(p, m) {
			return true
		}
	}
	return false
}

// ValidateAll validates candidates in order and stops at the first failure.
// It returns the number of templates that passed.
func (v *Validator) ValidateAll(ctx context.Context, candidates []deptypes.Candidate) (int, error) {
	passed := 0
	for _, c := range candidates {
		outcome, err := v.Validate(ctx, c)
		if err != nil {
			return passed, err
		}
		if outcome.Status == deptypes.ValidationPassed {
			passed++
		}
	}
	return passed, nil
}

// Validate validates a single candidate. Non-templates are skipped.
// Any failure is returned as a fatal validation error.
func (v *Validator) Validate(ctx context.Context, c deptypes.Candidate) (deptypes.ValidationOutcome, error) {
	if !v.IsTemplate(c.Path) {
		return deptypes.ValidationOutcome{Status: deptypes.ValidationSkipped}, nil
	}

	strategy := v.strategy(c)
	v.logger.Debug("Validating template",
		"path", c.Path,
		"size", humanize.IBytes(uint64(c.Size)), //nolint:gosec // sizes are non-negative
		"strategy", strategy)

	var err error
	switch strategy {
	case deptypes.StrategyStaged:
		err = v.validateStaged(ctx, c)
	default:
		err = v.validateInline(ctx, c)
	}

	if err != nil {
		return deptypes.ValidationOutcome{
			Status:   deptypes.ValidationFailed,
			Strategy: strategy,
			Message:  failureMessage(err),
		}, err
	}

	v.logger.Debug("Template valid", "path", c.Path)
	return deptypes.ValidationOutcome{Status: deptypes.ValidationPassed, Strategy: strategy}, nil
}

func (v *Validator) strategy(c deptypes.Candidate) deptypes.ValidationStrategy {
	if _, err := v.calculator.File(v.filesystem, c.Path); err != nil {
		v.logger.Warn("Could not fingerprint template, validating staged copy", "path", c.Path, "error", err)
		return deptypes.StrategyStaged
	}
	if c.Size > v.cfg.Threshold {
		return deptypes.StrategyStaged
	}
	return deptypes.StrategyInline
}

func (v *Validator) validateInline(ctx context.Context, c deptypes.Candidate) error {
	body, err := util.ReadFile(v.filesystem, c.Path)
	if err != nil {
		return deperrors.NewValidationError(c.Path, err).WithCode(deperrors.CodeStagingFailed)
	}

	return v.validate(ctx, c, &cloudformation.ValidateTemplateInput{
		TemplateBody: aws.String(string(body)),
	})
}

func (v *Validator) validateStaged(ctx context.Context, c deptypes.Candidate) error {
	key := ScratchKey(c.Key)

	if _, err := v.uploader.Upload(ctx, v.filesystem, c.Path, v.cfg.Bucket, key); err != nil {
		// A failed multipart upload is aborted by the uploader; a failed put
		// may still have left an object behind.
		v.deleteScratch(ctx, key)
		return deperrors.NewValidationError(c.Path, err).
			WithBucket(v.cfg.Bucket).
			WithKey(key).
			WithCode(deperrors.CodeStagingFailed)
	}
	defer v.deleteScratch(ctx, key)

	return v.validate(ctx, c, &cloudformation.ValidateTemplateInput{
		TemplateURL: aws.String(TemplateURL(v.cfg.Region, v.cfg.Bucket, key)),
	})
}

func (v *Validator) validate(ctx context.Context, c deptypes.Candidate, input *cloudformation.ValidateTemplateInput) error {
	err := v.retry.Do(ctx, "validate-template", func(ctx context.Context) error {
		_, err := v.cfn.ValidateTemplate(ctx, input)
		return err
	})
	if err != nil {
		return deperrors.NewValidationError(c.Path, fmt.Errorf("%w: %w", deperrors.ErrValidationFailed, err))
	}
	return nil
}

// deleteScratch removes a staged template. Failures are logged only.
func (v *Validator) deleteScratch(ctx context.Context, key string) {
	_, err := v.s3Client.DeleteObject(context.WithoutCancel(ctx), &s3.DeleteObjectInput{
		Bucket: aws.String(v.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		v.logger.Warn("Failed to delete staged template", "bucket", v.cfg.Bucket, "key", key, "error", err)
	}
}

// ScratchKey returns the staging key for a destination key.
func ScratchKey(destKey string) string {
	return ScratchPrefix + "/" + destKey
}

// TemplateURL returns the regional S3 URL CloudFormation reads a staged template from.
func TemplateURL(region, bucket, key string) string {
	if region == "" || region == "us-east-1" {
		return fmt.Sprintf("https://s3.amazonaws.com/%s/%s", bucket, key)
	}
	return fmt.Sprintf("https://s3-%s.amazonaws.com/%s/%s", region, bucket, key)
}

func failureMessage(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorMessage()
	}
	return err.Error()
}
