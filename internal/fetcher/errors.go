package fetcher

import (
	"fmt"

	"github.com/wraithcrawl/seoscan/pkg/failure"
)

type FetchErrorCause string

const (
	ErrCauseNavigationTimeout FetchErrorCause = "navigation exceeded the timeout"
	ErrCauseNavigationFailed  FetchErrorCause = "navigation failed"
	ErrCauseNullResponse      FetchErrorCause = "no response received"
)

// FetchError reports a navigation-level failure. It never prevents the
// caller from receiving a Page back to close; the error only means
// FetchResult carries no usable status/HTML.
type FetchError struct {
	Message   string
	Retryable bool
	Cause     FetchErrorCause
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch error: %s", e.Cause)
}

func (e *FetchError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *FetchError) IsRetryable() bool {
	return e.Retryable
}
