package storage

import (
	"github.com/wraithcrawl/seoscan/internal/extractor"
	"github.com/wraithcrawl/seoscan/internal/fetcher"
	"github.com/wraithcrawl/seoscan/internal/urlnorm"
)

// URLStatus mirrors the urls table's status column.
type URLStatus string

const (
	URLStatusPending   URLStatus = "Pending"
	URLStatusCompleted URLStatus = "Completed"
	URLStatusFailed    URLStatus = "Failed"
)

// SaveFetchedPageInput is the full set of facts one completed fetch
// contributes to the urls table and its child tables.
type SaveFetchedPageInput struct {
	ProjectID           int64
	Normalized          urlnorm.Normalized
	Depth               int32
	DiscoveredFromURLID *int64
	RobotsAllowed       *bool
	Fetch               fetcher.FetchResult
	Facts               extractor.PageFacts
	HTML                []byte
}

// EnsurePendingURLInput describes a link target that must exist as a Pending
// urls row before a links row can reference it.
type EnsurePendingURLInput struct {
	ProjectID           int64
	Normalized          urlnorm.Normalized
	Depth               int32
	DiscoveredFromURLID int64
}
