// Package errors provides the error taxonomy for the deployer sync engine.
// It extends Go's standard error handling with structured error codes and a
// fatal/recoverable classification that decides whether a run may continue.
package errors

// ErrorCode represents a specific error condition in the sync engine.
// Error codes are string-based for debuggability and natural JSON serialization.
type ErrorCode string

const (
	// Configuration errors.

	// CodeInvalidConfig indicates the configuration document is malformed.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// CodeMissingSetting indicates a required configuration setting is absent.
	CodeMissingSetting ErrorCode = "MISSING_SETTING"

	// Validation errors.

	// CodeTemplateInvalid indicates the orchestration service rejected a template.
	CodeTemplateInvalid ErrorCode = "TEMPLATE_VALIDATION_FAILED"

	// CodeStagingFailed indicates the upload/validate/delete staging sequence failed.
	CodeStagingFailed ErrorCode = "STAGED_VALIDATION_FAILED"

	// Remote errors.

	// CodeRateLimit indicates the remote service throttled the request.
	CodeRateLimit ErrorCode = "RATE_LIMIT_EXCEEDED"

	// CodeRetriesExhausted indicates a retryable call failed on every attempt.
	CodeRetriesExhausted ErrorCode = "RETRIES_EXHAUSTED"

	// Per-file errors.

	// CodeUploadFailed indicates a single object upload failed.
	CodeUploadFailed ErrorCode = "UPLOAD_FAILED"

	// CodeFingerprintFailed indicates the content fingerprint could not be computed.
	CodeFingerprintFailed ErrorCode = "FINGERPRINT_FAILED"

	// CodeWalkFailed indicates a sync directory could not be enumerated.
	CodeWalkFailed ErrorCode = "WALK_FAILED"

	// Generic errors.

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)
