package plugin

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/wraithcrawl/seoscan/internal/browser"
)

// FindingSink buffers findings an analyzer raises against the current URL.
// Analyzers never write to storage directly: the Runtime flushes every sink
// in one batch after all analyzers for a URL have run.
type FindingSink interface {
	Add(Finding)
}

// ReportSink buffers report rows an analyzer raises against the current URL.
type ReportSink interface {
	Add(ReportRow)
}

// EnqueueFunc lets an analyzer discover and submit a new URL to the frontier.
// It may be a no-op in configurations that don't allow analyzer-driven
// discovery; callers must not assume every call enqueues.
type EnqueueFunc func(rawURL string) error

// UrlContext is the read-only view of one crawled URL and its facts, plus the
// write-only sinks and services an Analyzer.Execute call is given.
type UrlContext struct {
	URL          string
	Page         *browser.Page
	RenderedHTML string
	Headers      map[string]string
	Settings     ProjectSettingsView
	Metadata     UrlMetadataView
	Findings     FindingSink
	Reports      ReportSink
	Enqueue      EnqueueFunc
	Logger       zerolog.Logger
}

// bufferedFindingSink is the in-memory FindingSink every Runtime.Run call
// creates fresh for one URL's analyzer pass.
type bufferedFindingSink struct {
	items []Finding
}

func (s *bufferedFindingSink) Add(f Finding) {
	s.items = append(s.items, f)
}

// bufferedReportSink is the in-memory ReportSink counterpart to
// bufferedFindingSink.
type bufferedReportSink struct {
	items []ReportRow
}

func (s *bufferedReportSink) Add(r ReportRow) {
	s.items = append(s.items, r)
}

// Analyzer is one pluggable SEO check. Priority determines run order
// (ascending); lower-priority analyzers observe the page before
// higher-priority ones, but all see the same immutable UrlContext.
type Analyzer interface {
	Key() string
	DisplayName() string
	Priority() int
	Execute(ctx context.Context, uc *UrlContext) error
}
