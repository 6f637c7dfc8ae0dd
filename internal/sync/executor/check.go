package executor

import (
	"errors"
	"fmt"
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	deperrors "github.com/input-output-hk/catalyst-forge-libs/deployer/errors"
)

// CheckResult is the outcome of the conditional existence check.
type CheckResult int

const (
	// CheckMatch means the remote object carries the local fingerprint.
	CheckMatch CheckResult = iota

	// CheckMiss means the object is absent or has a different fingerprint.
	CheckMiss

	// CheckUnknown means the check itself failed; the file is uploaded anyway.
	CheckUnknown
)

// String returns a short name for logging.
func (r CheckResult) String() string {
	switch r {
	case CheckMatch:
		return "match"
	case CheckMiss:
		return "miss"
	default:
		return "unknown"
	}
}

// classifyCheckError separates confirmed misses (404, 412) from transport
// and permission failures. A miss comes back with the reason it was
// confirmed: ErrObjectNotFound or ErrPreconditionFailed.
func classifyCheckError(err error) (CheckResult, error) {
	var notFound *awstypes.NotFound
	if errors.As(err, &notFound) {
		return CheckMiss, missReason(deperrors.ErrObjectNotFound, err)
	}
	var noSuchKey *awstypes.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return CheckMiss, missReason(deperrors.ErrObjectNotFound, err)
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return CheckMiss, missReason(deperrors.ErrObjectNotFound, err)
		case http.StatusPreconditionFailed:
			return CheckMiss, missReason(deperrors.ErrPreconditionFailed, err)
		}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return CheckMiss, missReason(deperrors.ErrObjectNotFound, err)
		case "PreconditionFailed":
			return CheckMiss, missReason(deperrors.ErrPreconditionFailed, err)
		}
	}

	return CheckUnknown, err
}

func missReason(reason, err error) error {
	return fmt.Errorf("%w: %w", reason, err)
}
