package deployer

import (
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/go-git/go-billy/v5"

	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/retry"
)

// Option configures a Deployer.
type Option func(*options)

// WithLogger sets the logger used by every phase.
// Default discards all output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithConcurrency overrides the configured upload concurrency.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithDryRun reports what would be uploaded without uploading.
// Templates are still validated.
func WithDryRun(dryRun bool) Option {
	return func(o *options) {
		o.dryRun = dryRun
	}
}

// WithAssumeValid skips template validation.
func WithAssumeValid(assumeValid bool) Option {
	return func(o *options) {
		o.assumeValid = assumeValid
	}
}

// WithFilesystem sets the filesystem the sync dirs are read from. It must be
// rooted at the sync base. Defaults to the OS filesystem rooted at the base.
func WithFilesystem(filesystem billy.Filesystem) Option {
	return func(o *options) {
		o.filesystem = filesystem
	}
}

// WithProfile selects a named profile from the shared AWS config files.
func WithProfile(profile string) Option {
	return func(o *options) {
		o.profile = profile
	}
}

// WithRetryPolicy replaces the retry policy for template validation.
func WithRetryPolicy(policy *retry.Policy) Option {
	return func(o *options) {
		o.retry = policy
	}
}

// WithEndpoint sets a custom endpoint for both S3 and CloudFormation.
// This is useful for local testing with LocalStack.
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = endpoint
	}
}

// WithForcePathStyle forces path-style S3 URLs.
func WithForcePathStyle(forcePathStyle bool) Option {
	return func(o *options) {
		o.forcePathStyle = forcePathStyle
	}
}

// WithAWSConfig provides a complete AWS configuration and bypasses the
// default credential chain.
func WithAWSConfig(cfg *aws.Config) Option {
	return func(o *options) {
		o.awsConfig = cfg
	}
}
