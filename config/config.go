// Package config loads the sync configuration from the deployer config document.
//
// The document is YAML with a "global" section and one section per stack:
//
//	global:
//	  region: us-east-1
//	  sync_dest_bucket: demo-artifacts
//	  sync_exclude: [.git, node_modules]
//	api:
//	  sync_dirs: [templates, lambda]
//
// A setting is looked up in the DEPLOYER_ environment first, then in the
// stack section, then in "global". The loaded Sync value is immutable.
package config

import (
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/fingerprint"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/sync/executor"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/sync/validator"
)

// Setting names as they appear in the config document.
const (
	KeyRegion              = "region"
	KeySyncBase            = "sync_base"
	KeySyncDirs            = "sync_dirs"
	KeySyncExclude         = "sync_exclude"
	KeySyncDestBucket      = "sync_dest_bucket"
	KeyRelease             = "release"
	KeySyncConcurrency     = "sync_concurrency"
	KeyValidationThreshold = "validation_threshold"
	KeyChunkSize           = "chunk_size"
	KeyTemplateMarkers     = "template_markers"
	KeyTemplateExtensions  = "template_extensions"
)

const (
	// DefaultPath is the config document looked up in the working directory.
	DefaultPath = "config.yml"

	// GlobalSection holds settings shared by all stacks.
	GlobalSection = "global"

	// EnvPrefix prefixes environment overrides, e.g. DEPLOYER_SYNC_DEST_BUCKET.
	EnvPrefix = "DEPLOYER"
)

// Sync is the configuration of one sync run.
type Sync struct {
	// Stack is the config section the settings were resolved for
	Stack string

	// Region is the AWS region; empty defers to the SDK default chain
	Region string

	// Base is the local directory sync dirs are resolved against
	Base string

	// Dirs are the sync directories, in configured order
	Dirs []string

	// Exclude are the exclude fragments
	Exclude []string

	// Bucket is the destination bucket
	Bucket string

	// Release overrides the commit-derived release tag
	Release string

	// Concurrency bounds parallel uploads
	Concurrency int

	// ValidationThreshold is the largest template validated inline, in bytes
	ValidationThreshold int64

	// ChunkSize is the fingerprint chunk and multipart part size, in bytes
	ChunkSize int

	// TemplateMarkers are path fragments identifying templates
	TemplateMarkers []string

	// TemplateExtensions are accepted template extensions
	TemplateExtensions []string
}

// Default returns a Sync holding the default for every optional setting.
func Default() *Sync {
	return &Sync{
		Base:                ".",
		Concurrency:         executor.DefaultConcurrency,
		ValidationThreshold: validator.DefaultThreshold,
		ChunkSize:           fingerprint.DefaultChunkSize,
		TemplateMarkers:     append([]string(nil), validator.DefaultMarkers...),
		TemplateExtensions:  append([]string(nil), validator.DefaultExtensions...),
	}
}
