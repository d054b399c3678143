package frontier

import (
	"fmt"

	"github.com/wraithcrawl/seoscan/pkg/failure"
)

type FrontierErrorCause string

const (
	ErrCauseQueueUnavailable FrontierErrorCause = "queue unavailable"
	ErrCauseStaleUpdate      FrontierErrorCause = "item no longer in the expected state"
)

// FrontierError reports a failure talking to the durable crawl_queue table.
type FrontierError struct {
	Message   string
	Retryable bool
	Cause     FrontierErrorCause
}

func (e *FrontierError) Error() string {
	return fmt.Sprintf("frontier error: %s: %s", e.Cause, e.Message)
}

func (e *FrontierError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}
