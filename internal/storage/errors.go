package storage

import (
	"fmt"

	"github.com/wraithcrawl/seoscan/pkg/failure"
)

type StorageErrorCause string

const (
	ErrCauseWriteFailure StorageErrorCause = "write failure"
	ErrCauseReadFailure  StorageErrorCause = "read failure"
)

// StorageError reports a failure persisting or reading a crawl artifact.
// Only a failure in the core URL upsert is fatal to the caller;
// hreflang/structured-data/redirect/link failures are recorded through this
// type but swallowed by the orchestrating method.
type StorageError struct {
	Message   string
	Retryable bool
	Cause     StorageErrorCause
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s: %s", e.Cause, e.Message)
}

func (e *StorageError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}
