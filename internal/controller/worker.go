package controller

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/wraithcrawl/seoscan/internal/extractor"
	"github.com/wraithcrawl/seoscan/internal/frontier"
	"github.com/wraithcrawl/seoscan/internal/linkextract"
	"github.com/wraithcrawl/seoscan/internal/plugin"
	"github.com/wraithcrawl/seoscan/internal/storage"
	"github.com/wraithcrawl/seoscan/internal/urlnorm"
)

// workerLoop dequeues and processes items until it observes the
// termination condition or ctx is cancelled.
func (c *Controller) workerLoop(ctx context.Context, projectID int64) {
	emptyCount := 0

	for {
		if ctx.Err() != nil {
			return
		}

		if atomic.LoadInt64(&c.urlsCrawled) >= int64(c.cfg.MaxURLsToCrawl()) {
			return
		}

		item, err := c.front.GetNext(ctx, projectID)
		if err != nil {
			atomic.AddInt64(&c.errorCount, 1)
			timer := time.NewTimer(dequeueErrorSleep)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return
			}
			continue
		}

		if item == nil {
			emptyCount++
			if emptyCount >= emptyDequeueLimit && atomic.LoadInt64(&c.activeWorkers) == 0 {
				return
			}
			timer := time.NewTimer(emptyDequeueSleep)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return
			}
			continue
		}
		emptyCount = 0

		atomic.AddInt64(&c.activeWorkers, 1)
		c.processItem(ctx, projectID, item)
		atomic.AddInt64(&c.activeWorkers, -1)
	}
}

// processItem runs the full per-URL pipeline in a fixed order: robots
// check, fetch, persist URL, persist redirects, run plugins, extract &
// persist links, mark Completed. The fetched page is always closed, on
// every exit path.
func (c *Controller) processItem(ctx context.Context, projectID int64, item *frontier.Item) {
	pageURL, parseErr := url.Parse(item.Address)
	if parseErr != nil {
		c.failItem(ctx, item, "")
		return
	}

	var robotsAllowed *bool
	var crawlDelay time.Duration
	if c.cfg.RespectRobotsTxt() {
		decision, err := c.robot.Decide(*pageURL)
		if err != nil {
			allowed := true
			robotsAllowed = &allowed
		} else {
			allowed := decision.Allowed
			robotsAllowed = &allowed
			crawlDelay = decision.CrawlDelay
			if !decision.Allowed {
				// No fetch attempt: record the URL as seen-but-denied so the
				// crawl report still covers it, then retire the item.
				if _, err := c.store.SaveFetchedPage(ctx, storage.SaveFetchedPageInput{
					ProjectID: projectID,
					Normalized: urlnorm.Normalized{
						Address:       item.Address,
						NormalizedKey: item.NormalizedKey,
						HostKey:       item.HostKey,
					},
					Depth: item.Depth, RobotsAllowed: robotsAllowed,
				}); err != nil {
					c.failItem(ctx, item, "")
					return
				}
				_ = c.front.Update(ctx, item.ID, frontier.StateCompleted)
				return
			}
		}
	}

	if err := c.gate.Wait(ctx, item.HostKey, crawlDelay); err != nil {
		c.failItem(ctx, item, "")
		return
	}

	fetchResult, page, html, hops, fetchErr := c.fetch.Fetch(ctx, item.Address, c.cfg.UserAgent())
	if page != nil {
		defer c.pool.ClosePage(page)
	}

	var facts extractor.PageFacts
	if fetchErr == nil {
		facts, _ = c.extr.Extract(pageURL, []byte(html), fetchResult.Headers)
	}

	urlID, saveErr := c.store.SaveFetchedPage(ctx, storage.SaveFetchedPageInput{
		ProjectID: projectID,
		Normalized: urlnorm.Normalized{
			Address:       item.Address,
			NormalizedKey: item.NormalizedKey,
			HostKey:       item.HostKey,
		},
		Depth: item.Depth, RobotsAllowed: robotsAllowed, Fetch: fetchResult, Facts: facts, HTML: []byte(html),
	})
	if saveErr != nil {
		c.gate.Backoff(item.HostKey)
		c.failItem(ctx, item, item.Address)
		return
	}

	if len(hops) > 0 {
		c.store.SaveRedirects(ctx, urlID, hops)
	}

	if fetchErr != nil {
		c.gate.Backoff(item.HostKey)
	} else {
		c.gate.ResetBackoff(item.HostKey)
	}

	if c.rt != nil {
		structuredTypes := make([]string, 0, len(facts.StructuredData))
		for _, sd := range facts.StructuredData {
			structuredTypes = append(structuredTypes, sd.SchemaType)
		}
		outcome := c.rt.Run(ctx, plugin.UrlContext{
			URL:          item.Address,
			Page:         page,
			RenderedHTML: html,
			Headers:      flattenHeaders(fetchResult.Headers),
			Settings: plugin.ProjectSettingsView{
				ProjectID: projectID, BaseURL: c.cfg.BaseURL(), MaxCrawlDepth: c.cfg.MaxCrawlDepth(),
				UserAgent: c.cfg.UserAgent(), RespectRobotsTxt: c.cfg.RespectRobotsTxt(),
				UseSitemapXML: c.cfg.UseSitemapXML(),
			},
			Metadata: plugin.UrlMetadataView{
				URLID: urlID, StatusCode: fetchResult.Status, ContentType: fetchResult.ContentType,
				ContentLength: contentLengthOf(fetchResult.Headers), CrawledAt: time.Now(),
				Depth: int(item.Depth), Title: facts.Title, MetaDescription: facts.MetaDescription,
				RobotsNoindex: facts.RobotsNoindex, RobotsNofollow: facts.RobotsNofollow,
				HasMetaRefresh: facts.HasMetaRefresh, StructuredTypes: structuredTypes,
			},
			Enqueue: func(rawURL string) error {
				result := c.norm.Normalize(rawURL, pageURL, nil)
				if result.Outcome != urlnorm.OutcomeAccepted {
					return nil
				}
				enqueued, err := c.front.Enqueue(ctx, frontier.EnqueueInput{
					ProjectID: projectID, Address: result.Accepted.Address, NormalizedKey: result.Accepted.NormalizedKey,
					HostKey: result.Accepted.HostKey, Priority: discoveredPriority, Depth: item.Depth + 1,
				})
				if err == nil && enqueued {
					atomic.AddInt64(&c.totalDiscovered, 1)
				}
				return err
			},
			Logger: c.logger,
		})
		c.store.SaveAnalyzerOutcome(ctx, projectID, urlID, outcome)
	}

	if fetchResult.IsSuccess && fetchResult.IsHTML && int(item.Depth) < c.cfg.MaxCrawlDepth() {
		c.discoverLinks(ctx, projectID, urlID, pageURL, []byte(html), item.Depth)
	}

	// The attempt happened either way: a transport failure or error status
	// still retires the item as Completed, it just counts as an error.
	_ = c.front.Update(ctx, item.ID, frontier.StateCompleted)
	atomic.AddInt64(&c.urlsCrawled, 1)
	if !fetchResult.IsSuccess {
		atomic.AddInt64(&c.errorCount, 1)
	}
	c.lastCrawled.Store(decorateLastCrawled(item.Address, fetchResult.Status))
}

// discoverLinks extracts every outbound reference from htmlBytes and persists
// each as a Link row against a (possibly newly ensured) Pending target,
// regardless of site: an off-site, binary, or non-http(s) target still
// documents this page's outbound link profile. Only a same-site hyperlink
// target additionally gets enqueued into the frontier for crawling — a
// wholly unparsable candidate (no resolvable target at all) can't be
// persisted either way and is simply skipped.
func (c *Controller) discoverLinks(ctx context.Context, projectID, fromURLID int64, pageURL *url.URL, htmlBytes []byte, depth int32) {
	for _, link := range linkextract.Extract(pageURL, htmlBytes) {
		result := c.norm.Normalize(link.URL, pageURL, nil)
		if result.Outcome == urlnorm.OutcomeUnparsable {
			continue
		}

		toURLID, err := c.store.EnsurePendingURL(ctx, storage.EnsurePendingURLInput{
			ProjectID: projectID, Normalized: result.Resolved, Depth: depth + 1, DiscoveredFromURLID: fromURLID,
		})
		if err != nil {
			continue
		}
		c.store.SaveLink(ctx, projectID, fromURLID, toURLID, link)

		if result.Outcome != urlnorm.OutcomeAccepted || link.Type != linkextract.LinkTypeHyperlink {
			continue
		}

		enqueued, enqErr := c.front.Enqueue(ctx, frontier.EnqueueInput{
			ProjectID: projectID, Address: result.Accepted.Address, NormalizedKey: result.Accepted.NormalizedKey,
			HostKey: result.Accepted.HostKey, Priority: discoveredPriority, Depth: depth + 1,
		})
		if enqErr == nil && enqueued {
			atomic.AddInt64(&c.totalDiscovered, 1)
		}
	}
}

// flattenHeaders lowercases header names and keeps the first value per
// name, the shape analyzers see headers in.
func flattenHeaders(headers map[string][]string) map[string]string {
	flat := make(map[string]string, len(headers))
	for name, values := range headers {
		if len(values) == 0 {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := flat[key]; !ok {
			flat[key] = values[0]
		}
	}
	return flat
}

func contentLengthOf(headers map[string][]string) int64 {
	for name, values := range headers {
		if strings.EqualFold(name, "content-length") && len(values) > 0 {
			if n, err := strconv.ParseInt(strings.TrimSpace(values[0]), 10, 64); err == nil {
				return n
			}
		}
	}
	return 0
}

func (c *Controller) failItem(ctx context.Context, item *frontier.Item, address string) {
	atomic.AddInt64(&c.errorCount, 1)
	_ = c.front.Update(ctx, item.ID, frontier.StateFailed)
	if address != "" {
		c.lastCrawled.Store(decorateLastCrawled(address, 0))
	}
}
