package controller

import (
	"context"
	"net/url"

	"github.com/wraithcrawl/seoscan/internal/browser"
	"github.com/wraithcrawl/seoscan/internal/fetcher"
	"github.com/wraithcrawl/seoscan/internal/linkextract"
	"github.com/wraithcrawl/seoscan/internal/plugin"
	"github.com/wraithcrawl/seoscan/internal/robots"
	"github.com/wraithcrawl/seoscan/internal/storage"
)

// PageFetcher is the slice of internal/fetcher.Fetcher the workers drive.
type PageFetcher interface {
	Fetch(ctx context.Context, targetURL, userAgent string) (fetcher.FetchResult, *browser.Page, string, []fetcher.RedirectHop, error)
}

// PagePool is the slice of internal/browser.Pool the workers need: returning
// every page a fetch handed them.
type PagePool interface {
	ClosePage(page *browser.Page)
}

// RobotPolicy is the slice of internal/robots.CachedRobot the controller
// consults: per-URL allow/deny decisions and robots.txt sitemap directives.
type RobotPolicy interface {
	Decide(u url.URL) (robots.Decision, error)
	Sitemaps(scheme, host string) ([]string, error)
}

// PageStore is the slice of internal/storage.Store the workers persist
// through.
type PageStore interface {
	SaveFetchedPage(ctx context.Context, input storage.SaveFetchedPageInput) (int64, error)
	SaveRedirects(ctx context.Context, urlID int64, hops []fetcher.RedirectHop)
	EnsurePendingURL(ctx context.Context, input storage.EnsurePendingURLInput) (int64, error)
	SaveLink(ctx context.Context, projectID, fromURLID, toURLID int64, link linkextract.Link)
	SaveAnalyzerOutcome(ctx context.Context, projectID, urlID int64, outcome plugin.Outcome)
}
