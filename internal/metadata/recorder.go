/*
Metadata Collected
- Fetch timestamps
- HTTP status codes
- Content hashes
- Crawl depth

Logging Goals
- Debuggable crawl behavior
- Post-run auditability
- Failure diagnostics

Structured logging is preferred.

Allowed:
- Primitive values
- Timestamps
- URLs (as values, not objects with behavior)
- Hashes
- Status codes
- Durations
- Identifiers (page ID, crawl ID)
*/
package metadata

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Recorder is the zerolog-backed implementation of MetadataSink and CrawlFinalizer.
// It writes one structured event per call; it never aggregates, buffers, or
// derives control-flow decisions from what it's given.
type Recorder struct {
	log zerolog.Logger
}

// NewRecorder builds a Recorder writing to w at the given level.
func NewRecorder(w io.Writer, level zerolog.Level) *Recorder {
	return &Recorder{
		log: zerolog.New(w).Level(level).With().Timestamp().Logger(),
	}
}

func (r *Recorder) RecordFetch(fetchURL string, httpStatus int, duration time.Duration, contentType string, retryCount int, crawlDepth int) {
	r.log.Info().
		Str("event", "fetch").
		Str(string(AttrURL), fetchURL).
		Int(string(AttrHTTPStatus), httpStatus).
		Dur("duration", duration).
		Str("content_type", contentType).
		Int("retry_count", retryCount).
		Int(string(AttrDepth), crawlDepth).
		Msg("page fetched")
}

func (r *Recorder) RecordAssetFetch(fetchURL string, httpStatus int, duration time.Duration, retryCount int) {
	r.log.Info().
		Str("event", "asset_fetch").
		Str(string(AttrAssetURL), fetchURL).
		Int(string(AttrHTTPStatus), httpStatus).
		Dur("duration", duration).
		Int("retry_count", retryCount).
		Msg("auxiliary resource fetched")
}

func (r *Recorder) RecordError(observedAt time.Time, packageName string, action string, cause ErrorCause, errorString string, attrs []Attribute) {
	event := r.log.Warn().
		Str("event", "error").
		Str("package", packageName).
		Str("action", action).
		Int("cause", int(cause)).
		Time("observed_at", observedAt)

	for _, attr := range attrs {
		event = event.Str(string(attr.Key), attr.Value)
	}

	event.Msg(errorString)
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	event := r.log.Info().
		Str("event", "artifact").
		Str("kind", string(kind)).
		Str("path", path)

	for _, attr := range attrs {
		event = event.Str(string(attr.Key), attr.Value)
	}

	event.Msg("artifact recorded")
}

func (r *Recorder) RecordFinalCrawlStats(totalPages int, totalErrors int, totalAssets int, duration time.Duration) {
	r.log.Info().
		Str("event", "crawl_finished").
		Int("total_pages", totalPages).
		Int("total_errors", totalErrors).
		Int("total_assets", totalAssets).
		Dur("duration", duration).
		Msg("crawl finished")
}
