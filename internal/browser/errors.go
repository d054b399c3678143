package browser

import (
	"fmt"

	"github.com/wraithcrawl/seoscan/pkg/failure"
)

type BrowserErrorCause string

const (
	ErrCauseLaunchFailure  BrowserErrorCause = "failed to launch browser process"
	ErrCausePoolShutdown   BrowserErrorCause = "pool is shutting down"
	ErrCausePageCreateFail BrowserErrorCause = "failed to create page context"
)

// BrowserError reports a Pool-level failure, after which there is no
// well-formed Page to hand back to the caller. Its Severity is recoverable
// when Retryable is set and fatal otherwise.
type BrowserError struct {
	Message   string
	Retryable bool
	Cause     BrowserErrorCause
}

func (e *BrowserError) Error() string {
	return fmt.Sprintf("browser error: %s", e.Cause)
}

func (e *BrowserError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}
