package extractor

import (
	"fmt"

	"github.com/wraithcrawl/seoscan/pkg/failure"
)

type ExtractionErrorCause string

const (
	ErrCauseParseFailure ExtractionErrorCause = "document could not be parsed as HTML"
)

// ExtractionError reports a failure to parse the fetched document at all.
// Per-field extraction rules (a malformed meta refresh, invalid JSON-LD, ...)
// never produce an ExtractionError: they degrade to zero-value facts, since
// extraction must never fail a fetch that already succeeded.
type ExtractionError struct {
	Message   string
	Retryable bool
	Cause     ExtractionErrorCause
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction error: %s: %s", e.Cause, e.Message)
}

func (e *ExtractionError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}
