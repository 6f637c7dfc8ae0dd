package deployer

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-git/go-billy/v5"

	"github.com/input-output-hk/catalyst-forge-libs/deployer/config"
	deperrors "github.com/input-output-hk/catalyst-forge-libs/deployer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/cfnapi"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/logging"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/retry"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/s3api"
)

// Deployer runs syncs for one resolved configuration.
// It is safe to call Sync repeatedly; every call rescans the sync dirs.
type Deployer struct {
	cfg *config.Sync

	s3Client  s3api.S3API
	cfnClient cfnapi.CloudFormationAPI

	// region is used to build staged template URLs
	region string

	filesystem  billy.Filesystem
	logger      *slog.Logger
	retry       *retry.Policy
	concurrency int
	dryRun      bool
	assumeValid bool
}

// options collects the functional options before a Deployer is built.
type options struct {
	profile        string
	endpoint       string
	forcePathStyle bool
	awsConfig      *aws.Config

	filesystem  billy.Filesystem
	logger      *slog.Logger
	retry       *retry.Policy
	concurrency int
	dryRun      bool
	assumeValid bool
}

// New creates a Deployer whose clients are built from the default AWS
// credential chain. The config region, when set, overrides the chain's.
//
// Example:
//
//	d, err := deployer.New(ctx, cfg,
//	    deployer.WithProfile("ops"),
//	    deployer.WithAssumeValid(true),
//	)
func New(ctx context.Context, cfg *config.Sync, opts ...Option) (*Deployer, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	o := applyOptions(opts)

	var awsCfg aws.Config
	if o.awsConfig != nil {
		awsCfg = *o.awsConfig
	} else {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
		}
		if o.profile != "" {
			loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(o.profile))
		}

		var err error
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, deperrors.NewConfigurationError("client initialization", err)
		}
	}

	if cfg.Region != "" {
		awsCfg.Region = cfg.Region
	}

	var s3Opts []func(*s3.Options)
	if o.endpoint != "" {
		s3Opts = append(s3Opts, func(so *s3.Options) {
			so.BaseEndpoint = aws.String(o.endpoint)
		})
	}
	if o.forcePathStyle {
		s3Opts = append(s3Opts, func(so *s3.Options) {
			so.UsePathStyle = true
		})
	}

	d := build(
		s3.NewFromConfig(awsCfg, s3Opts...),
		cloudformation.NewFromConfig(awsCfg, cloudFormationOptions(o.endpoint)...),
		cfg, o,
	)
	d.region = awsCfg.Region
	return d, nil
}

// NewWithClients creates a Deployer with custom API implementations.
// This is primarily used for testing with mocked clients.
func NewWithClients(
	s3Client s3api.S3API,
	cfnClient cfnapi.CloudFormationAPI,
	cfg *config.Sync,
	opts ...Option,
) (*Deployer, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return build(s3Client, cfnClient, cfg, applyOptions(opts)), nil
}

func validate(cfg *config.Sync) error {
	if cfg == nil {
		return deperrors.NewConfigurationError("client initialization", deperrors.ErrInvalidConfig).
			WithMessage("config cannot be nil")
	}
	return config.Validate(cfg)
}

// cloudFormationOptions disables the SDK retryer. ValidateTemplate is
// retried by the validator's own policy.
func cloudFormationOptions(endpoint string) []func(*cloudformation.Options) {
	opts := []func(*cloudformation.Options){
		func(co *cloudformation.Options) {
			co.Retryer = aws.NopRetryer{}
		},
	}
	if endpoint != "" {
		opts = append(opts, func(co *cloudformation.Options) {
			co.BaseEndpoint = aws.String(endpoint)
		})
	}
	return opts
}

func applyOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func build(s3Client s3api.S3API, cfnClient cfnapi.CloudFormationAPI, cfg *config.Sync, o *options) *Deployer {
	logger := o.logger
	if logger == nil {
		logger = logging.Discard()
	}

	policy := o.retry
	if policy == nil {
		policy = retry.New(retry.WithLogger(logger))
	}

	concurrency := cfg.Concurrency
	if o.concurrency > 0 {
		concurrency = o.concurrency
	}

	return &Deployer{
		cfg:         cfg,
		s3Client:    s3Client,
		cfnClient:   cfnClient,
		region:      cfg.Region,
		filesystem:  o.filesystem,
		logger:      logger,
		retry:       policy,
		concurrency: concurrency,
		dryRun:      o.dryRun,
		assumeValid: o.assumeValid,
	}
}

// Config returns the configuration the Deployer was built with.
func (d *Deployer) Config() *config.Sync {
	return d.cfg
}
