/*
Responsibilities

- Compose every crawl collaborator (frontier, politeness, browser, fetcher,
  robots, sitemap, urlnorm, extractor, link extraction, persistence, plugin
  runtime) behind one Idle -> Running -> Stopping -> Idle life-cycle
- Seed or resume a project's Frontier, then run N workers against it
- Emit CrawlProgress events at least twice a second while Running

The composition-struct shape keeps a single admission choke point (the
frontier's atomic dequeue) while N concurrent workers share one
cancellation scope.
*/
package controller

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/wraithcrawl/seoscan/internal/config"
	"github.com/wraithcrawl/seoscan/internal/extractor"
	"github.com/wraithcrawl/seoscan/internal/frontier"
	"github.com/wraithcrawl/seoscan/internal/metadata"
	"github.com/wraithcrawl/seoscan/internal/plugin"
	"github.com/wraithcrawl/seoscan/internal/politeness"
	"github.com/wraithcrawl/seoscan/internal/sitemap"
	"github.com/wraithcrawl/seoscan/internal/urlnorm"
	"github.com/wraithcrawl/seoscan/pkg/failure"
)

// emptyDequeueLimit/emptyDequeueSleep implement the termination rule: a
// worker exits once it has observed this many consecutive empty dequeues
// while no worker in the pool is actively processing an item.
const (
	emptyDequeueLimit = 5
	emptyDequeueSleep = 1 * time.Second
	reportInterval    = 500 * time.Millisecond

	// dequeueErrorSleep throttles the retry loop around a GetNext failure
	// (e.g. a contended sqlite writer) so it backs off instead of spinning
	// the CPU while the lock clears.
	dequeueErrorSleep = 200 * time.Millisecond

	seedPriority        int32 = 1000
	sitemapSeedPriority int32 = 900
	discoveredPriority  int32 = 100
)

// Controller owns one crawl run's full pipeline. A single Controller is
// built per project database and reused across start/stop cycles.
type Controller struct {
	cfg    *config.Config
	front  *frontier.Frontier
	gate   *politeness.Gate
	pool   PagePool
	fetch  PageFetcher
	robot  RobotPolicy
	disc   *sitemap.Discoverer
	norm   urlnorm.Normalizer
	extr   extractor.Extractor
	store  PageStore
	rt     *plugin.Runtime
	sink   metadata.MetadataSink
	final  metadata.CrawlFinalizer
	logger zerolog.Logger

	mu       sync.Mutex
	state    State
	cancelFn context.CancelFunc

	urlsCrawled     int64
	totalDiscovered int64
	errorCount      int64
	activeWorkers   int64
	lastCrawled     atomic.Value // string
}

// New builds a Controller wiring every crawl collaborator together from
// cfg. sink/final receive this run's observability events; logger is the
// base logger handed to every plugin UrlContext.
func New(
	cfg *config.Config,
	front *frontier.Frontier,
	gate *politeness.Gate,
	pool PagePool,
	fetch PageFetcher,
	robot RobotPolicy,
	disc *sitemap.Discoverer,
	norm urlnorm.Normalizer,
	extr extractor.Extractor,
	store PageStore,
	rt *plugin.Runtime,
	sink metadata.MetadataSink,
	final metadata.CrawlFinalizer,
	logger zerolog.Logger,
) *Controller {
	return &Controller{
		cfg: cfg, front: front, gate: gate, pool: pool, fetch: fetch,
		robot: robot, disc: disc, norm: norm, extr: extr, store: store,
		rt: rt, sink: sink, final: final, logger: logger,
		state: StateIdle,
	}
}

// State returns the controller's current life-cycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start runs one crawl to completion: it seeds or resumes the frontier,
// spawns concurrent_requests workers and a progress reporter, and blocks
// until every worker has exited (either the frontier drained or ctx was
// cancelled). Calling Start while already Running is a no-op. onProgress,
// if non-nil, is invoked at least twice a second and once more at the end.
func (c *Controller) Start(ctx context.Context, projectID int64, onProgress func(Progress)) failure.ClassifiedError {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.state = StateRunning
	c.cancelFn = cancel
	c.mu.Unlock()

	atomic.StoreInt64(&c.urlsCrawled, 0)
	atomic.StoreInt64(&c.errorCount, 0)
	atomic.StoreInt64(&c.activeWorkers, 0)
	c.lastCrawled.Store("")
	start := time.Now()

	if _, err := c.front.RevertInProgress(runCtx, projectID); err != nil {
		c.finishRun(cancel)
		return err.(failure.ClassifiedError)
	}

	if err := c.seed(runCtx, projectID); err != nil {
		c.finishRun(cancel)
		return err
	}

	var wg sync.WaitGroup
	n := c.cfg.ConcurrentRequests()
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			c.workerLoop(runCtx, projectID)
		}()
	}

	reportDone := make(chan struct{})
	go func() {
		defer close(reportDone)
		ticker := time.NewTicker(reportInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if onProgress != nil {
					onProgress(c.snapshot(start))
				}
			case <-runCtx.Done():
				return
			}
		}
	}()

	wg.Wait()

	c.mu.Lock()
	c.state = StateStopping
	c.mu.Unlock()

	// Every worker has exited; cancel the run context so the reporter stops.
	cancel()
	<-reportDone
	if onProgress != nil {
		onProgress(c.snapshot(start))
	}

	if c.final != nil {
		c.final.RecordFinalCrawlStats(
			int(atomic.LoadInt64(&c.urlsCrawled)),
			int(atomic.LoadInt64(&c.errorCount)),
			0,
			time.Since(start),
		)
	}

	c.finishRun(cancel)
	return nil
}

// Stop requests cancellation of the in-progress run; Start returns once
// every worker has observed it. Calling Stop when not Running is a no-op.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel := c.cancelFn
	if c.state == StateRunning {
		c.state = StateStopping
	}
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Controller) finishRun(cancel context.CancelFunc) {
	cancel()
	c.mu.Lock()
	c.state = StateIdle
	c.cancelFn = nil
	c.mu.Unlock()
}

// seed enqueues the base URL (plus sitemap-discovered URLs when enabled)
// into an empty frontier. If the frontier is already non-empty, this is a
// resume: the in-memory queue-size approximation is seeded from the
// authoritative count instead of re-enqueueing anything.
func (c *Controller) seed(ctx context.Context, projectID int64) failure.ClassifiedError {
	queued, err := c.front.CountQueued(ctx, projectID)
	if err != nil {
		return err.(failure.ClassifiedError)
	}
	if queued > 0 {
		c.front.SeedQueueSizeApprox(int64(queued))
		discovered, err := c.front.CountDiscovered(ctx, projectID)
		if err == nil {
			atomic.StoreInt64(&c.totalDiscovered, int64(discovered))
		}
		return nil
	}

	base, parseErr := url.Parse(c.cfg.BaseURL())
	if parseErr != nil {
		return &ControllerError{Message: parseErr.Error(), Cause: ErrCauseInvalidBaseURL}
	}

	result := c.norm.Normalize(base.String(), base, nil)
	if result.Outcome != urlnorm.OutcomeAccepted {
		return &ControllerError{Message: "base url rejected by normalizer", Cause: ErrCauseInvalidBaseURL}
	}

	if enqueued, err := c.front.Enqueue(ctx, frontier.EnqueueInput{
		ProjectID: projectID, Address: result.Accepted.Address, NormalizedKey: result.Accepted.NormalizedKey,
		HostKey: result.Accepted.HostKey, Priority: seedPriority, Depth: 0,
	}); err != nil {
		return &ControllerError{Message: err.Error(), Cause: ErrCauseSeedFailure}
	} else if enqueued {
		atomic.AddInt64(&c.totalDiscovered, 1)
	}

	if c.cfg.UseSitemapXML() && c.disc != nil {
		robotsSitemaps, _ := c.robot.Sitemaps(base.Scheme, base.Host)
		for _, entry := range c.disc.Discover(ctx, base.Scheme, base.Host, robotsSitemaps) {
			normResult := c.norm.Normalize(entry.Address, base, nil)
			if normResult.Outcome != urlnorm.OutcomeAccepted {
				continue
			}
			enqueued, enqErr := c.front.Enqueue(ctx, frontier.EnqueueInput{
				ProjectID: projectID, Address: normResult.Accepted.Address, NormalizedKey: normResult.Accepted.NormalizedKey,
				HostKey: normResult.Accepted.HostKey, Priority: sitemapSeedPriority, Depth: 0,
			})
			if enqErr == nil && enqueued {
				atomic.AddInt64(&c.totalDiscovered, 1)
			}
		}
	}

	return nil
}

func (c *Controller) snapshot(start time.Time) Progress {
	last, _ := c.lastCrawled.Load().(string)
	return Progress{
		URLsCrawled:     atomic.LoadInt64(&c.urlsCrawled),
		TotalDiscovered: atomic.LoadInt64(&c.totalDiscovered),
		QueueSize:       c.front.QueueSizeApprox(),
		ActiveWorkers:   atomic.LoadInt64(&c.activeWorkers),
		ErrorCount:      atomic.LoadInt64(&c.errorCount),
		Elapsed:         time.Since(start),
		LastCrawledURL:  last,
	}
}
