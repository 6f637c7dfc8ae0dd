package config

import (
	"fmt"
	"strings"

	deperrors "github.com/input-output-hk/catalyst-forge-libs/deployer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/transfer/multipart"
)

// Validate checks the settings that must hold before any remote call.
func Validate(cfg *Sync) error {
	if cfg == nil {
		return deperrors.NewConfigurationError("validate-config", fmt.Errorf("%w: configuration is nil", deperrors.ErrInvalidInput))
	}

	if strings.TrimSpace(cfg.Bucket) == "" {
		return deperrors.NewConfigurationError("validate-config", deperrors.ErrMissingBucket).
			WithCode(deperrors.CodeMissingSetting)
	}

	var problems []string
	if cfg.Concurrency < 1 {
		problems = append(problems, fmt.Sprintf("%s must be at least 1, got %d", KeySyncConcurrency, cfg.Concurrency))
	}
	if cfg.ValidationThreshold < 1 {
		problems = append(problems, fmt.Sprintf("%s must be positive, got %d", KeyValidationThreshold, cfg.ValidationThreshold))
	}
	if cfg.ChunkSize < multipart.MinPartSize {
		problems = append(problems, fmt.Sprintf("%s must be at least %d, got %d", KeyChunkSize, multipart.MinPartSize, cfg.ChunkSize))
	}
	if len(cfg.TemplateExtensions) == 0 {
		problems = append(problems, KeyTemplateExtensions+" must not be empty")
	}
	for _, ext := range cfg.TemplateExtensions {
		if !strings.HasPrefix(ext, ".") {
			problems = append(problems, fmt.Sprintf("%s entry %q must start with a dot", KeyTemplateExtensions, ext))
		}
	}

	if len(problems) > 0 {
		return deperrors.NewConfigurationError("validate-config",
			fmt.Errorf("%w: %s", deperrors.ErrInvalidConfig, strings.Join(problems, "; ")))
	}
	return nil
}
