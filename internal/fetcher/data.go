package fetcher

import (
	"time"

	"github.com/wraithcrawl/seoscan/pkg/retry"
	"github.com/wraithcrawl/seoscan/pkg/timeutil"
)

// redirectStatusPlaceholder is used when a redirect hop's own status code
// could not be read off the CDP event.
const redirectStatusPlaceholder = 301

// networkIdleWindow is how long the page must go without a new in-flight
// request before it is considered network-idle.
const networkIdleWindow = 500 * time.Millisecond

// networkIdlePollInterval is how often the idle-wait action rechecks the
// in-flight counter.
const networkIdlePollInterval = 50 * time.Millisecond

// defaultRetryParam bounds how many times one navigation is retried before
// the fetch is reported as failed: navigation timeouts, CDP navigation
// failures, and a missing main-document response are transient classes a
// second attempt on a fresh page often clears. Kept small and unconfigurable
// (it is a resilience knob, not a ProjectSettings field) so a genuinely dead
// host still fails within a bounded number of attempts.
var defaultRetryParam = retry.NewRetryParam(
	300*time.Millisecond,
	150*time.Millisecond,
	time.Now().UnixNano(),
	2,
	timeutil.NewBackoffParam(300*time.Millisecond, 2.0, 1*time.Second),
)

// FetchResult is the outcome of one navigation attempt.
type FetchResult struct {
	URL          string
	FinalURL     string
	Status       int
	IsSuccess    bool
	IsHTML       bool
	ErrorMessage string
	ContentType  string
	Headers      map[string][]string
}

// RedirectHop is one recorded step of a redirect chain, numbered from 0 at
// the oldest (the original request).
type RedirectHop struct {
	From       string
	To         string
	StatusCode int
	Position   int
}

// requestRecord is one CDP Network.requestWillBeSent observation for the
// main document request. The collector accumulates these in arrival order;
// buildRedirectChain turns them into the public RedirectHop slice.
type requestRecord struct {
	url            string
	redirectedFrom string
	redirectStatus int
	hasRedirect    bool
}
