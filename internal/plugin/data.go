package plugin

import "time"

// Severity is a Finding's triage level, assigned by the analyzer that raised it.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Finding is one issue an analyzer raised against a single crawled URL.
type Finding struct {
	TaskKey  string
	Severity Severity
	Code     string
	Message  string
	Details  map[string]string
}

// ReportRow is one arbitrary, analyzer-defined data row destined for a crawl
// report, independent of the Finding severity model.
type ReportRow struct {
	TaskKey string
	URLID   *int64
	DataMap map[string]string
}

// ProjectSettingsView is the read-only subset of a project's settings an
// analyzer is allowed to see.
type ProjectSettingsView struct {
	ProjectID        int64
	BaseURL          string
	MaxCrawlDepth    int
	UserAgent        string
	RespectRobotsTxt bool
	UseSitemapXML    bool
}

// UrlMetadataView is the read-only subset of a crawled URL's stored facts an
// analyzer is allowed to see, assembled fresh for each Run call.
type UrlMetadataView struct {
	URLID         int64
	StatusCode    int
	ContentType   string
	ContentLength int64
	Depth         int
	CrawledAt     time.Time

	Title           string
	MetaDescription string
	RobotsNoindex   *bool
	RobotsNofollow  *bool
	HasMetaRefresh  bool
	StructuredTypes []string
}
