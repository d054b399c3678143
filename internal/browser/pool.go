/*
Responsibilities

- Own the single headless-browser process for a crawl run
- Hand out isolated, pre-configured pages to workers
- Guarantee every page (and its isolation context) is disposed, even on a
  navigation failure
- Support an orderly two-phase shutdown: stop intake, drain in-flight pages,
  then kill the browser process

chromedp has no first-class "browser pool" type; each Page here is its own
chromedp browser context (an incognito-like profile) spawned off one shared
allocator, which is how chromedp's own examples run multiple isolated tabs
against a single Chrome process.
*/
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

// NavigationTimeout is the default per-navigation deadline every Page is
// issued with; the fetcher derives its own context.WithTimeout from it.
const NavigationTimeout = defaultNavigationTimeout * time.Second

// Pool owns a lazily-launched headless browser process for the duration of
// a crawl run and hands out isolated Page tabs from it.
type Pool struct {
	execPath string
	proxy    *ProxyConfig

	mu          sync.Mutex
	allocCtx    context.Context
	allocStop   context.CancelFunc
	browserCtx  context.Context
	browserDone context.CancelFunc
	launched    bool

	shuttingDown bool
	inFlight     sync.WaitGroup
}

// NewPool builds a Pool that will launch its browser process from execPath
// (empty uses chromedp's auto-discovered Chrome binary) through proxy
// (nil for no proxy). The process itself is not started until the first
// CreatePage call.
func NewPool(execPath string, proxy *ProxyConfig) *Pool {
	return &Pool{execPath: execPath, proxy: proxy}
}

// ensureLaunched starts the allocator and the base browser context on first
// use. Caller must hold p.mu.
func (p *Pool) ensureLaunched(ctx context.Context) error {
	if p.launched {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(viewportWidth, viewportHeight),
	)
	if p.execPath != "" {
		opts = append(opts, chromedp.ExecPath(p.execPath))
	}
	if p.proxy != nil && p.proxy.Server != "" {
		opts = append(opts, chromedp.ProxyServer(p.proxy.Server))
	}

	allocCtx, allocStop := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserDone := chromedp.NewContext(allocCtx)

	// Force the browser process to actually start now, rather than lazily
	// on the first real CreatePage action, so launch failures surface here.
	if err := chromedp.Run(browserCtx); err != nil {
		browserDone()
		allocStop()
		return &BrowserError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseLaunchFailure,
		}
	}

	p.allocCtx = allocCtx
	p.allocStop = allocStop
	p.browserCtx = browserCtx
	p.browserDone = browserDone
	p.launched = true
	return nil
}

// CreatePage launches a new isolated tab with the given user agent. The
// caller owns the returned Page until it passes it to ClosePage.
func (p *Pool) CreatePage(ctx context.Context, userAgent string) (*Page, error) {
	p.mu.Lock()
	if p.shuttingDown {
		p.mu.Unlock()
		return nil, &BrowserError{
			Message:   "pool is shutting down, rejecting new pages",
			Retryable: false,
			Cause:     ErrCausePoolShutdown,
		}
	}
	if err := p.ensureLaunched(ctx); err != nil {
		p.mu.Unlock()
		return nil, err
	}
	browserCtx := p.browserCtx
	p.inFlight.Add(1)
	p.mu.Unlock()

	pageCtx, cancel := chromedp.NewContext(browserCtx, chromedp.WithNewBrowserContext())

	if err := chromedp.Run(pageCtx,
		chromedp.EmulateViewport(viewportWidth, viewportHeight),
		chromedp.Navigate("about:blank"),
	); err != nil {
		cancel()
		p.inFlight.Done()
		return nil, &BrowserError{
			Message:   fmt.Sprintf("failed to initialize page: %v", err),
			Retryable: true,
			Cause:     ErrCausePageCreateFail,
		}
	}

	if userAgent != "" {
		// A failed UA override is not fatal to the page: it stays usable,
		// just with Chrome's default UA string.
		_ = chromedp.Run(pageCtx, emulation.SetUserAgentOverride(userAgent))
	}

	return &Page{Context: pageCtx, cancel: cancel, UserAgent: userAgent}, nil
}

// ClosePage disposes page and its isolation context. It always runs,
// regardless of whether the caller's navigation succeeded or failed.
func (p *Pool) ClosePage(page *Page) {
	if page == nil {
		return
	}
	page.cancel()
	p.inFlight.Done()
}

// Shutdown performs the two-phase stop: reject further CreatePage calls,
// wait for every in-flight page to be closed, then dispose the browser
// process itself.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.shuttingDown = true
	launched := p.launched
	browserDone := p.browserDone
	allocStop := p.allocStop
	p.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		p.inFlight.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		return ctx.Err()
	}

	if launched {
		browserDone()
		allocStop()
	}
	return nil
}
