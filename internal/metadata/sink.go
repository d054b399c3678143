package metadata

import "time"

// MetadataSink is the observability seam every pipeline package writes through.
// Implementations MUST treat every call as side-effect-free with respect to
// control flow: nothing here may influence retries, continuation, or abort
// decisions (see ErrorCause's own rules).
type MetadataSink interface {
	// RecordFetch logs one completed page fetch attempt.
	RecordFetch(fetchURL string, httpStatus int, duration time.Duration, contentType string, retryCount int, crawlDepth int)

	// RecordAssetFetch logs one completed auxiliary fetch (robots.txt, sitemap document, ...).
	RecordAssetFetch(fetchURL string, httpStatus int, duration time.Duration, retryCount int)

	// RecordError logs a classified failure observed by a pipeline package.
	RecordError(observedAt time.Time, packageName string, action string, cause ErrorCause, errorString string, attrs []Attribute)

	// RecordArtifact logs a durable side effect (a database row set, a report file, ...).
	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
}

// CrawlFinalizer records the terminal, derived summary of a completed crawl.
// It is invoked exactly once, by the controller, after all workers have drained.
type CrawlFinalizer interface {
	RecordFinalCrawlStats(totalPages int, totalErrors int, totalAssets int, duration time.Duration)
}
