package browser

import "context"

// viewportWidth/viewportHeight is the fixed emulated viewport every page
// renders at.
const (
	viewportWidth  = 1920
	viewportHeight = 1080
)

// defaultNavigationTimeout bounds how long a single Page.Navigate call may
// block before the fetcher gives up on it.
const defaultNavigationTimeout = 30

// ProxyConfig configures the upstream proxy the browser process launches
// through. It is a pool-level setting: chromedp only exposes proxy
// configuration as an ExecAllocator launch flag, so every page created by a
// given Pool shares the same proxy. A run that needs per-page proxies needs
// one Pool per proxy.
type ProxyConfig struct {
	Server   string
	Username string
	Password string
}

// Page is one isolated browser tab. Navigation and DOM access happen through
// Context; the caller that obtained a Page from Pool.CreatePage is always
// responsible for passing it back to Pool.ClosePage, on both success and
// failure.
type Page struct {
	Context context.Context
	cancel  context.CancelFunc

	// UserAgent is the UA string this page was created with, recorded for
	// callers that need to vary fetch behavior on it (the fetcher takes a
	// user agent per fetch, not per pool).
	UserAgent string
}
