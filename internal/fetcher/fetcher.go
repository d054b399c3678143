/*
Responsibilities

- Navigate a browser-pool page to a URL and wait for it to go network-idle
- Capture the final HTTP status, all response headers, and the rendered HTML
- Reconstruct the redirect chain from CDP network events
- Never take ownership of the page: the caller always closes it

chromedp ships no network-idle wait primitive, so this package tracks
in-flight requests itself off Network.requestWillBeSent/loadingFinished/
loadingFailed events, the same way other headless-Chrome crawlers in this
codebase's reference set do it with a hand-rolled idle heuristic.
*/
package fetcher

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/wraithcrawl/seoscan/internal/browser"
	"github.com/wraithcrawl/seoscan/pkg/failure"
	"github.com/wraithcrawl/seoscan/pkg/retry"
)

// Fetcher drives browser-pool pages through a navigation and extracts the
// network-level facts the extractor and persistence layer need.
type Fetcher struct {
	pool *browser.Pool
}

// NewFetcher builds a Fetcher that opens its pages from pool.
func NewFetcher(pool *browser.Pool) *Fetcher {
	return &Fetcher{pool: pool}
}

// fetchAttempt is one navigation's outcome, carrying the page it ran on so a
// retried Fetch can track (and dispose of) every page it opens along the way.
type fetchAttempt struct {
	result FetchResult
	page   *browser.Page
	html   string
	hops   []RedirectHop
}

// Fetch opens a page for targetURL, navigates to it, and returns the result.
// A navigation timeout, CDP failure, or missing main-document response is
// retried a small, fixed number of times (defaultRetryParam), each attempt on
// a fresh page — the previous attempt's page is closed before the next one
// opens, so the ownership rule still holds: exactly one page survives to be
// returned, and the caller is responsible for closing it via the Pool
// regardless of whether err/FetchResult indicate success.
func (f *Fetcher) Fetch(ctx context.Context, targetURL, userAgent string) (FetchResult, *browser.Page, string, []RedirectHop, error) {
	var openPage *browser.Page

	task := func() (fetchAttempt, failure.ClassifiedError) {
		if openPage != nil {
			f.pool.ClosePage(openPage)
			openPage = nil
		}

		page, err := f.pool.CreatePage(ctx, userAgent)
		if err != nil {
			return fetchAttempt{}, &FetchError{Message: err.Error(), Retryable: false, Cause: ErrCauseNullResponse}
		}
		openPage = page

		attempt, fetchErr := f.navigate(page, targetURL)
		return attempt, fetchErr
	}

	outcome := retry.Retry(defaultRetryParam, task)
	if outcome.IsSuccess() {
		v := outcome.Value()
		return v.result, v.page, v.html, v.hops, nil
	}

	var fetchErr *FetchError
	message := outcome.Err().Error()
	if errors.As(outcome.Err(), &fetchErr) {
		message = fetchErr.Error()
	}
	return FetchResult{
		URL:          targetURL,
		Status:       0,
		IsSuccess:    false,
		ErrorMessage: message,
	}, openPage, "", nil, outcome.Err()
}

// navigate drives one already-opened page to targetURL and waits for
// network-idle. It never closes page — Fetch's retry loop owns that.
func (f *Fetcher) navigate(page *browser.Page, targetURL string) (fetchAttempt, failure.ClassifiedError) {
	collector := newNetworkCollector(targetURL)
	chromedp.ListenTarget(page.Context, collector.onEvent)

	navCtx, cancel := context.WithTimeout(page.Context, browser.NavigationTimeout)
	defer cancel()

	var html string
	runErr := chromedp.Run(navCtx,
		chromedp.Navigate(targetURL),
		waitForNetworkIdle(collector),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	if runErr != nil {
		cause := ErrCauseNavigationFailed
		if navCtx.Err() == context.DeadlineExceeded {
			cause = ErrCauseNavigationTimeout
		}
		return fetchAttempt{}, &FetchError{Message: runErr.Error(), Retryable: true, Cause: cause}
	}

	status, finalURL, headers, contentType := collector.mainResponse()
	if status == 0 {
		return fetchAttempt{}, &FetchError{Message: "no response recorded for main document", Retryable: true, Cause: ErrCauseNullResponse}
	}

	result := FetchResult{
		URL:         targetURL,
		FinalURL:    finalURL,
		Status:      status,
		IsSuccess:   status >= 200 && status < 300,
		IsHTML:      isHTMLContent(contentType),
		ContentType: contentType,
		Headers:     headers,
	}

	return fetchAttempt{result: result, page: page, html: html, hops: collector.redirectChain()}, nil
}

// waitForNetworkIdle blocks until collector reports no in-flight requests
// for networkIdleWindow, or the surrounding context is done.
func waitForNetworkIdle(collector *networkCollector) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		ticker := time.NewTicker(networkIdlePollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if collector.idleFor() >= networkIdleWindow {
					return nil
				}
			}
		}
	}
}

// networkCollector accumulates the CDP network events needed to determine
// network-idle, the final main-document response, and the redirect chain.
type networkCollector struct {
	mu sync.Mutex

	targetURL     string
	mainRequestID network.RequestID
	requests      []requestRecord

	finalStatus      int
	finalURL         string
	finalHeaders     map[string][]string
	finalContentType string

	inFlight    int
	lastQuietAt time.Time
}

func newNetworkCollector(targetURL string) *networkCollector {
	return &networkCollector{targetURL: targetURL, lastQuietAt: time.Now()}
}

func (c *networkCollector) onEvent(ev interface{}) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		c.onRequestWillBeSent(e)
	case *network.EventResponseReceived:
		c.onResponseReceived(e)
	case *network.EventLoadingFinished:
		c.onRequestSettled()
	case *network.EventLoadingFailed:
		c.onRequestSettled()
	}
}

func (c *networkCollector) onRequestWillBeSent(e *network.EventRequestWillBeSent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e.Type == network.ResourceTypeDocument && c.mainRequestID == "" {
		c.mainRequestID = e.RequestID
	}

	if e.RequestID == c.mainRequestID {
		record := requestRecord{url: e.Request.URL}
		if e.RedirectResponse != nil {
			record.hasRedirect = true
			record.redirectedFrom = e.RedirectResponse.URL
			record.redirectStatus = int(e.RedirectResponse.Status)
		}
		c.requests = append(c.requests, record)
	}

	c.inFlight++
	c.lastQuietAt = time.Now()
}

func (c *networkCollector) onResponseReceived(e *network.EventResponseReceived) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e.RequestID != c.mainRequestID {
		return
	}
	c.finalStatus = int(e.Response.Status)
	c.finalURL = e.Response.URL
	c.finalContentType = e.Response.MimeType
	c.finalHeaders = parseHeaders(e.Response.Headers)
}

func (c *networkCollector) onRequestSettled() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight > 0 {
		c.inFlight--
	}
	if c.inFlight == 0 {
		c.lastQuietAt = time.Now()
	}
}

func (c *networkCollector) idleFor() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight > 0 {
		return 0
	}
	return time.Since(c.lastQuietAt)
}

func (c *networkCollector) mainResponse() (status int, finalURL string, headers map[string][]string, contentType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finalStatus, c.finalURL, c.finalHeaders, c.finalContentType
}

func (c *networkCollector) redirectChain() []RedirectHop {
	c.mu.Lock()
	records := append([]requestRecord(nil), c.requests...)
	c.mu.Unlock()
	return buildRedirectChain(records)
}

// buildRedirectChain turns the per-hop requestRecord observations (recorded
// in arrival order for the main document's requestID, which CDP reuses
// across every hop of a redirect) into a contiguous, 0-indexed RedirectHop
// chain. A pure function so the chain-assembly logic is testable without a
// real browser.
func buildRedirectChain(records []requestRecord) []RedirectHop {
	var hops []RedirectHop
	for _, r := range records {
		if !r.hasRedirect {
			continue
		}
		status := r.redirectStatus
		if status == 0 {
			status = redirectStatusPlaceholder
		}
		hops = append(hops, RedirectHop{
			From:       r.redirectedFrom,
			To:         r.url,
			StatusCode: status,
			Position:   len(hops),
		})
	}
	return hops
}

func isHTMLContent(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return strings.Contains(contentType, "text/html") ||
		strings.Contains(contentType, "application/xhtml")
}

// parseHeaders converts CDP's network.Headers (a map[string]interface{}
// where Chrome joins repeated header values with "\n") into an ordinary
// multi-valued header map with lowercased names.
func parseHeaders(raw network.Headers) map[string][]string {
	headers := make(map[string][]string, len(raw))
	for key, value := range raw {
		lowerKey := strings.ToLower(key)
		switch v := value.(type) {
		case string:
			for _, part := range strings.Split(v, "\n") {
				if trimmed := strings.TrimSpace(part); trimmed != "" {
					headers[lowerKey] = append(headers[lowerKey], trimmed)
				}
			}
		case []interface{}:
			for _, item := range v {
				if str, ok := item.(string); ok {
					headers[lowerKey] = append(headers[lowerKey], str)
				}
			}
		}
	}
	return headers
}
