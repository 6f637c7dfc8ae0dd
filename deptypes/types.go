// Package deptypes provides shared type definitions for the deployer module.
package deptypes

import (
	"strconv"
	"strings"
	"time"
)

// Fingerprint is a content token in the remote store's native ETag format,
// including the surrounding double quotes: `"<hex>"` for content that fits in
// one chunk and `"<hex>-<parts>"` for multi-chunk content.
type Fingerprint string

// Digest returns the hex digest without quotes or part-count suffix.
func (f Fingerprint) Digest() string {
	d := strings.Trim(string(f), `"`)
	if i := strings.IndexByte(d, '-'); i >= 0 {
		return d[:i]
	}
	return d
}

// Parts returns the chunk count encoded in the fingerprint, 1 for single-chunk.
func (f Fingerprint) Parts() int {
	d := strings.Trim(string(f), `"`)
	i := strings.IndexByte(d, '-')
	if i < 0 {
		return 1
	}
	n, err := strconv.Atoi(d[i+1:])
	if err != nil {
		return 0
	}
	return n
}

// IsMultipart reports whether the fingerprint carries a part-count suffix.
func (f Fingerprint) IsMultipart() bool {
	return strings.Contains(string(f), "-")
}

// IsZero reports whether the fingerprint is empty.
func (f Fingerprint) IsZero() bool {
	return strings.Trim(string(f), `"`) == ""
}

// Matches compares the fingerprint to an ETag reported by the remote store.
// Remote ETags are compared with or without their surrounding quotes.
func (f Fingerprint) Matches(etag string) bool {
	if f.IsZero() {
		return false
	}
	return strings.Trim(string(f), `"`) == strings.Trim(etag, `"`)
}

// String returns the quoted token.
func (f Fingerprint) String() string {
	return string(f)
}

// Candidate is one discovered local file.
type Candidate struct {
	// Path is the slash-separated path relative to the sync base
	Path string

	// Dir holds the components of the directory relative to the sync base
	Dir []string

	// Name is the file name
	Name string

	// Key is the destination object key: <release>/<dir...>/<name>
	Key string

	// Size is the file size in bytes
	Size int64
}

// ValidationStatus is the result class of a template validation.
type ValidationStatus string

const (
	// ValidationPassed means the orchestration service accepted the template
	ValidationPassed ValidationStatus = "pass"

	// ValidationFailed means the orchestration service rejected the template
	ValidationFailed ValidationStatus = "fail"

	// ValidationSkipped means the file is not a template
	ValidationSkipped ValidationStatus = "skipped"
)

// ValidationStrategy tells how a template was submitted for validation.
type ValidationStrategy string

const (
	// StrategyInline submits the template body directly
	StrategyInline ValidationStrategy = "inline"

	// StrategyStaged uploads the template to a scratch key and validates by URL
	StrategyStaged ValidationStrategy = "staged"
)

// ValidationOutcome is the result of validating a single candidate.
type ValidationOutcome struct {
	// Status is pass, fail or skipped
	Status ValidationStatus

	// Strategy is how the template was submitted
	Strategy ValidationStrategy

	// Message carries the remote failure message for failed validations
	Message string
}

// Action is what the upload phase did with a candidate.
type Action string

const (
	// ActionUploaded means the file was sent to the destination key
	ActionUploaded Action = "uploaded"

	// ActionUnchanged means the remote object already carried the same fingerprint
	ActionUnchanged Action = "unchanged"

	// ActionFailed means the upload failed; the error is recorded
	ActionFailed Action = "failed"

	// ActionPlanned means the file would be uploaded but the run is a dry run
	ActionPlanned Action = "planned"
)

// FileResult records the upload-phase decision for one candidate.
type FileResult struct {
	// Candidate is the file the decision applies to
	Candidate Candidate

	// Action is what happened
	Action Action

	// Fingerprint is the local fingerprint, empty when it could not be computed
	Fingerprint Fingerprint

	// Err is set for failed uploads
	Err error
}

// Phase is a state of the sync run.
type Phase string

const (
	// PhaseStart is the initial state
	PhaseStart Phase = "start"

	// PhaseValidate runs template validation
	PhaseValidate Phase = "validate"

	// PhaseUpload runs skip-or-send for every candidate
	PhaseUpload Phase = "upload"

	// PhaseDone is reached when the upload phase completes
	PhaseDone Phase = "done"

	// PhaseAborted is reached when a fatal error stops the run
	PhaseAborted Phase = "aborted"
)

// Result contains the results of a sync run.
type Result struct {
	// Phase is the final state of the run
	Phase Phase

	// Release is the release tag used as key prefix
	Release string

	// TemplatesValidated is the number of templates that passed validation
	TemplatesValidated int

	// FilesUploaded is the number of files uploaded
	FilesUploaded int

	// FilesUnchanged is the number of files skipped because the remote copy matched
	FilesUnchanged int

	// FilesFailed is the number of files whose upload failed
	FilesFailed int

	// FilesPlanned is the number of files a dry run would have uploaded
	FilesPlanned int

	// BytesUploaded is the total bytes uploaded
	BytesUploaded int64

	// Files holds per-file decisions in discovery order
	Files []FileResult

	// Duration is how long the run took
	Duration time.Duration
}

// Errors returns the errors of failed files in discovery order.
func (r *Result) Errors() []error {
	var errs []error
	for _, f := range r.Files {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}
