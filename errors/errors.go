package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error by its effect on a sync run.
type Kind int

const (
	// KindRecoverable errors are isolated to a single file; the run continues.
	KindRecoverable Kind = iota

	// KindFatal errors abort the whole run.
	KindFatal
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindFatal:
		return "fatal"
	case KindRecoverable:
		return "recoverable"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error represents a sync engine error with context about the operation that failed.
// It wraps the underlying AWS SDK or filesystem error and carries the
// classification used by the dispatcher to decide between abort and continue.
type Error struct {
	// Op is the operation that failed (e.g., "validate", "upload", "load")
	Op string

	// Kind tells whether the run must stop
	Kind Kind

	// Code is the machine-readable error code
	Code ErrorCode

	// Path is the local file path (if applicable)
	Path string

	// Bucket is the S3 bucket name (if applicable)
	Bucket string

	// Key is the S3 object key (if applicable)
	Key string

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Key != "":
		return fmt.Sprintf("deployer.%s %s -> s3://%s/%s: %v", e.Op, e.Path, e.Bucket, e.Key, e.Err)
	case e.Path != "":
		return fmt.Sprintf("deployer.%s %s: %v", e.Op, e.Path, e.Err)
	case e.Bucket != "" && e.Key != "":
		return fmt.Sprintf("deployer.%s s3://%s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	case e.Bucket != "":
		return fmt.Sprintf("deployer.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	default:
		return fmt.Sprintf("deployer.%s: %v", e.Op, e.Err)
	}
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithPath adds local path context to an existing error.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithCode overrides the error code.
func (e *Error) WithCode(code ErrorCode) *Error {
	e.Code = code
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new recoverable Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:   op,
		Kind: KindRecoverable,
		Code: CodeUnknown,
		Err:  err,
	}
}

// NewConfigurationError creates a fatal error for a malformed or incomplete configuration.
// Configuration errors are raised before any remote call is made.
func NewConfigurationError(op string, err error) *Error {
	return &Error{
		Op:   op,
		Kind: KindFatal,
		Code: CodeInvalidConfig,
		Err:  err,
	}
}

// NewValidationError creates a fatal error for a template that failed validation.
func NewValidationError(path string, err error) *Error {
	return &Error{
		Op:   "validate",
		Kind: KindFatal,
		Code: CodeTemplateInvalid,
		Path: path,
		Err:  err,
	}
}

// NewUploadError creates a recoverable per-file error for the upload phase.
func NewUploadError(path, bucket, key string, err error) *Error {
	return &Error{
		Op:     "upload",
		Kind:   KindRecoverable,
		Code:   CodeUploadFailed,
		Path:   path,
		Bucket: bucket,
		Key:    key,
		Err:    err,
	}
}

// NewTransientError creates a recoverable error for a throttled remote call.
func NewTransientError(op string, err error) *Error {
	return &Error{
		Op:   op,
		Kind: KindRecoverable,
		Code: CodeRateLimit,
		Err:  fmt.Errorf("%w: %w", ErrThrottled, err),
	}
}

// Sentinel errors for common failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrInvalidConfig indicates that the configuration document is malformed
	ErrInvalidConfig = errors.New("deployer: invalid configuration")

	// ErrMissingBucket indicates that no destination bucket was configured
	ErrMissingBucket = errors.New("deployer: sync_dest_bucket is required")

	// ErrSyncDirsNotList indicates that sync_dirs is not a list
	ErrSyncDirsNotList = errors.New("deployer: attribute 'sync_dirs' must be a list")

	// ErrValidationFailed indicates that a template was rejected by the orchestration service
	ErrValidationFailed = errors.New("deployer: template validation failed")

	// ErrThrottled indicates that the remote service rate-limited the request
	ErrThrottled = errors.New("deployer: request throttled")

	// ErrRetriesExhausted indicates that a retryable call failed on every attempt
	ErrRetriesExhausted = errors.New("deployer: retries exhausted")

	// ErrNoFingerprint indicates that a file produced an empty fingerprint
	ErrNoFingerprint = errors.New("deployer: file has no fingerprint")

	// ErrObjectNotFound indicates that the destination object does not exist
	ErrObjectNotFound = errors.New("deployer: object not found")

	// ErrPreconditionFailed indicates that the destination object exists with a different fingerprint
	ErrPreconditionFailed = errors.New("deployer: fingerprint precondition failed")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("deployer: invalid input")
)

// IsFatal reports whether any error in err's chain is a fatal *Error.
func IsFatal(err error) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == KindFatal {
			return true
		}
		err = e.Err
	}
	return false
}

// CodeOf returns the code of the outermost *Error in err's chain, or CodeUnknown.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsConfiguration checks if an error is a configuration error.
func IsConfiguration(err error) bool {
	return CodeOf(err) == CodeInvalidConfig || CodeOf(err) == CodeMissingSetting
}

// IsValidation checks if an error indicates a template failed validation.
func IsValidation(err error) bool {
	code := CodeOf(err)
	return code == CodeTemplateInvalid || code == CodeStagingFailed
}

// IsThrottled checks if an error indicates the remote service rate-limited the request.
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}

// IsObjectNotFound checks if an error indicates that an object was not found.
func IsObjectNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}
