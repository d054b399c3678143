package urlnorm

import (
	"fmt"

	"github.com/wraithcrawl/seoscan/internal/metadata"
	"github.com/wraithcrawl/seoscan/pkg/failure"
)

type UrlNormErrorCause string

const (
	ErrCauseUnparsable UrlNormErrorCause = "candidate URL could not be parsed"
)

// UrlNormError reports a candidate URL that could not even be parsed, as
// opposed to one that parsed but was rejected by policy (those are reported
// through Result.Outcome, not an error, since rejection is an expected and
// frequent outcome rather than a failure).
type UrlNormError struct {
	Message   string
	Retryable bool
	Cause     UrlNormErrorCause
}

func (e *UrlNormError) Error() string {
	return fmt.Sprintf("urlnorm error: %s", e.Cause)
}

func (e *UrlNormError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapUrlNormErrorToMetadataCause maps urlnorm-local error semantics to the
// canonical metadata.ErrorCause table. Observational only.
func mapUrlNormErrorToMetadataCause(err *UrlNormError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseUnparsable:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
