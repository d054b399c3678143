/*
Responsibilities

- Track the last request time per host_key
- Compute and wait out the required delay before a worker's next fetch
- Let a per-host robots.txt crawl-delay override the project's base delay
- Bound its own memory footprint across a long-running crawl

A Gate serves every worker in a run; one Gate per Controller.
*/
package politeness

import (
	"context"
	"time"

	"github.com/wraithcrawl/seoscan/pkg/limiter"
)

// Gate wraps a ConcurrentRateLimiter configured with the project's base
// crawl delay and answers Wait calls that block a worker until it is polite
// to fetch from a given host.
type Gate struct {
	limiter *limiter.ConcurrentRateLimiter
}

// NewGate builds a Gate enforcing at least baseDelay between requests to any
// single host_key.
func NewGate(baseDelay time.Duration) *Gate {
	rl := limiter.NewConcurrentRateLimiter()
	rl.SetBaseDelay(baseDelay)
	return &Gate{limiter: rl}
}

// Wait blocks until hostKey may be fetched again, then marks the fetch as
// happening now. robotsCrawlDelay, if non-zero, overrides the gate's base
// delay for this host (a robots.txt crawl-delay takes precedence over the
// project delay). Returns ctx.Err() if the wait is cancelled before it
// elapses.
func (g *Gate) Wait(ctx context.Context, hostKey string, robotsCrawlDelay time.Duration) error {
	if robotsCrawlDelay > 0 {
		g.limiter.SetCrawlDelay(hostKey, robotsCrawlDelay)
	}

	delay := g.limiter.ResolveDelay(hostKey)
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	g.limiter.MarkLastFetchAsNow(hostKey)
	g.pruneIfCrowded()
	return nil
}

// Backoff signals a fetch failure for hostKey, extending its next required
// delay exponentially. ResetBackoff should be called after a subsequent
// success to clear the penalty.
func (g *Gate) Backoff(hostKey string) {
	g.limiter.Backoff(hostKey)
}

// ResetBackoff clears hostKey's backoff penalty after a successful fetch.
func (g *Gate) ResetBackoff(hostKey string) {
	g.limiter.ResetBackoff(hostKey)
}

// pruneIfCrowded drops hosts idle for more than pruneMaxAge once the tracked
// set exceeds pruneThreshold, keeping the map bounded on long crawls.
func (g *Gate) pruneIfCrowded() {
	if g.limiter.Size() > pruneThreshold {
		g.limiter.Prune(pruneMaxAge)
	}
}
