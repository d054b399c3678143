/*
Responsibilities

- Persist one fetched page's full fact set idempotently, keyed by
  (project_id, normalized_key)
- Ensure every discovered link's target exists as a Pending row
- Record every outbound link as a links row

Writes are best-effort beyond the core URL row: a failure saving headers,
hreflangs, structured data, a redirect chain, or a link is logged through
the metadata sink and does not fail the enclosing save.
*/
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/wraithcrawl/seoscan/internal/extractor"
	"github.com/wraithcrawl/seoscan/internal/fetcher"
	"github.com/wraithcrawl/seoscan/internal/linkextract"
	"github.com/wraithcrawl/seoscan/internal/metadata"
	"github.com/wraithcrawl/seoscan/internal/plugin"
	"github.com/wraithcrawl/seoscan/pkg/hashutil"
)

// Store is the sqlite-backed persistence layer.
type Store struct {
	db   *sql.DB
	sink metadata.MetadataSink
}

// NewStore builds a Store backed by database, reporting failures through sink.
func NewStore(database *sql.DB, sink metadata.MetadataSink) Store {
	return Store{db: database, sink: sink}
}

// EnsureProject finds the project row for name, or creates one seeded with
// settingsBlob (a Config.ToDTO() value) if none exists yet. A project name
// is the resume key: starting the CLI twice against the same name resumes
// the same crawl_queue instead of starting a second, colliding one.
func (s Store) EnsureProject(ctx context.Context, name string, settingsBlob []byte) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM projects WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, s.recordAndWrap("EnsureProject", err, true, "")
	}

	result, err := s.db.ExecContext(ctx, `INSERT INTO projects (name, settings_blob) VALUES (?, ?)`, name, string(settingsBlob))
	if err != nil {
		return 0, s.recordAndWrap("EnsureProject", err, true, "")
	}
	return result.LastInsertId()
}

// LoadProjectSettings returns a project's id and stored settings_blob by
// name. It is the resume command's lookup: resuming never re-derives
// settings from flags, it reloads exactly what the original run persisted.
func (s Store) LoadProjectSettings(ctx context.Context, name string) (int64, []byte, error) {
	var id int64
	var blob string
	err := s.db.QueryRowContext(ctx, `SELECT id, settings_blob FROM projects WHERE name = ?`, name).Scan(&id, &blob)
	if err != nil {
		return 0, nil, s.recordAndWrap("LoadProjectSettings", err, false, "")
	}
	return id, []byte(blob), nil
}

// SaveFetchedPage upserts the urls row for input.Normalized and its child
// rows. It returns the row's id. A failure in the core upsert is returned;
// every other failure is recorded and ignored.
func (s Store) SaveFetchedPage(ctx context.Context, input SaveFetchedPageInput) (int64, error) {
	urlID, created, err := s.upsertURL(ctx, input)
	if err != nil {
		return 0, s.recordAndWrap("SaveFetchedPage", err, true, input.Normalized.Address)
	}

	if created {
		if err := s.saveHeaders(ctx, urlID, input.Fetch.Headers); err != nil {
			s.recordNonFatal("saveHeaders", err, input.Normalized.Address)
		}
	}

	if err := s.replaceHreflangs(ctx, urlID, input.Facts.Hreflangs); err != nil {
		s.recordNonFatal("replaceHreflangs", err, input.Normalized.Address)
	}

	if err := s.replaceStructuredData(ctx, urlID, input.Facts.StructuredData); err != nil {
		s.recordNonFatal("replaceStructuredData", err, input.Normalized.Address)
	}

	return urlID, nil
}

// SaveRedirects records fetchResult's redirect chain against urlID. This is
// a separate batch from the URL save and its failure is non-fatal; any
// previously recorded chain for urlID is replaced.
func (s Store) SaveRedirects(ctx context.Context, urlID int64, hops []fetcher.RedirectHop) {
	if len(hops) == 0 {
		return
	}
	if err := s.replaceRedirects(ctx, urlID, hops); err != nil {
		s.recordNonFatal("SaveRedirects", err, "")
	}
}

// EnsurePendingURL guarantees a urls row exists for input.Normalized,
// inserting a Pending row with discovered_from_url_id set if one does not
// already exist, and returns its id either way.
func (s Store) EnsurePendingURL(ctx context.Context, input EnsurePendingURLInput) (int64, error) {
	var existingID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM urls WHERE project_id = ? AND normalized_key = ?`,
		input.ProjectID, input.Normalized.NormalizedKey,
	).Scan(&existingID)
	if err == nil {
		return existingID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, s.recordAndWrap("EnsurePendingURL", err, true, input.Normalized.Address)
	}

	scheme, host, path := splitAddress(input.Normalized.Address)
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO urls (project_id, address, normalized_key, scheme, host, path, depth, first_seen_at, status, discovered_from_url_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		input.ProjectID, input.Normalized.Address, input.Normalized.NormalizedKey, scheme, host, path,
		input.Depth, time.Now(), URLStatusPending, input.DiscoveredFromURLID,
	)
	if err != nil {
		return 0, s.recordAndWrap("EnsurePendingURL", err, true, input.Normalized.Address)
	}
	return result.LastInsertId()
}

// SaveLink records one extracted link from fromURLID to toURLID. Failures
// are logged and never propagated: a broken link row must never abort the
// page save it belongs to.
func (s Store) SaveLink(ctx context.Context, projectID, fromURLID, toURLID int64, link linkextract.Link) {
	isNofollow, isUGC, isSponsored := classifyRel(link.Rel)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO links (project_id, from_url_id, to_url_id, anchor_text, link_type, rel, is_nofollow, is_ugc, is_sponsored)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		projectID, fromURLID, toURLID, nullString(link.AnchorText), string(link.Type), nullString(link.Rel),
		isNofollow, isUGC, isSponsored,
	)
	if err != nil {
		s.recordNonFatal("SaveLink", err, link.URL)
	}
}

// SaveAnalyzerOutcome persists one plugin.Runtime.Run batch for urlID:
// findings and report rows are appended, never replaced, since a resumed
// crawl may re-run analyzers against the same URL and each pass is a
// distinct observation. Failures are logged and non-fatal.
func (s Store) SaveAnalyzerOutcome(ctx context.Context, projectID, urlID int64, outcome plugin.Outcome) {
	now := time.Now()
	for _, f := range outcome.Findings {
		details, _ := json.Marshal(f.Details)
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO findings (project_id, url_id, task_key, severity, code, message, details, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			projectID, urlID, f.TaskKey, string(f.Severity), f.Code, f.Message, string(details), now,
		); err != nil {
			s.recordNonFatal("SaveAnalyzerOutcome.findings", err, "")
		}
	}
	for _, r := range outcome.Reports {
		data, _ := json.Marshal(r.DataMap)
		rowURLID := urlID
		if r.URLID != nil {
			rowURLID = *r.URLID
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO report_rows (project_id, task_key, url_id, data_map, created_at) VALUES (?, ?, ?, ?, ?)`,
			projectID, r.TaskKey, rowURLID, string(data), now,
		); err != nil {
			s.recordNonFatal("SaveAnalyzerOutcome.reports", err, "")
		}
	}
}

func (s Store) upsertURL(ctx context.Context, input SaveFetchedPageInput) (id int64, created bool, err error) {
	var existingID int64
	selectErr := s.db.QueryRowContext(ctx,
		`SELECT id FROM urls WHERE project_id = ? AND normalized_key = ?`,
		input.ProjectID, input.Normalized.NormalizedKey,
	).Scan(&existingID)

	scheme, host, path := splitAddress(input.Normalized.Address)
	facts := input.Facts
	canonicalIssuesJSON, _ := json.Marshal(facts.CanonicalIssues)
	fingerprint := contentFingerprint(input.HTML)

	if selectErr == nil {
		_, err = s.db.ExecContext(ctx,
			`UPDATE urls SET
				address = ?, scheme = ?, host = ?, path = ?, depth = ?, last_crawled_at = ?,
				status = ?, http_status = ?, content_type = ?, robots_allowed = ?, error_message = ?,
				title = ?, meta_description = ?, canonical_html = ?, canonical_http = ?,
				has_multiple_canonicals = ?, has_cross_domain_canonical = ?, canonical_issues = ?,
				robots_noindex = ?, robots_nofollow = ?, robots_noarchive = ?, robots_nosnippet = ?,
				robots_noimageindex = ?, robots_source = ?, x_robots_tag = ?, has_robots_conflict = ?,
				html_lang = ?, content_language_header = ?, has_meta_refresh = ?, meta_refresh_delay = ?,
				meta_refresh_target = ?, cache_control = ?, vary = ?, content_encoding = ?, link_header = ?,
				has_hsts = ?, redirect_target = ?, content_fingerprint = ?
			 WHERE id = ?`,
			input.Normalized.Address, scheme, host, path, input.Depth, lastCrawledAt(input),
			pageStatus(input), nullInt(input.Fetch.Status), nullString(input.Fetch.ContentType),
			nullBoolPtr(input.RobotsAllowed), nullString(input.Fetch.ErrorMessage),
			nullString(facts.Title), nullString(facts.MetaDescription), nullString(facts.CanonicalHTML),
			nullString(facts.CanonicalHTTP), facts.HasMultipleCanonicals, facts.HasCrossDomainCanonical,
			string(canonicalIssuesJSON),
			nullBoolPtr(facts.RobotsNoindex), nullBoolPtr(facts.RobotsNofollow), nullBoolPtr(facts.RobotsNoarchive),
			nullBoolPtr(facts.RobotsNosnippet), nullBoolPtr(facts.RobotsNoimageindex), string(facts.RobotsSource),
			nullString(facts.XRobotsTag), facts.HasRobotsConflict,
			nullString(facts.HTMLLang), nullString(facts.ContentLanguageHeader), facts.HasMetaRefresh,
			nullFloatPtr(facts.MetaRefreshDelay), nullString(facts.MetaRefreshTarget),
			nullString(facts.CacheControl), nullString(facts.Vary), nullString(facts.ContentEncoding),
			nullString(facts.LinkHeader), facts.HasHSTS, nullString(input.Fetch.FinalURL), nullString(fingerprint),
			existingID,
		)
		return existingID, false, err
	}
	if !errors.Is(selectErr, sql.ErrNoRows) {
		return 0, false, selectErr
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO urls (
			project_id, address, normalized_key, scheme, host, path, depth, first_seen_at, last_crawled_at,
			status, http_status, content_type, robots_allowed, discovered_from_url_id, error_message,
			title, meta_description, canonical_html, canonical_http, has_multiple_canonicals,
			has_cross_domain_canonical, canonical_issues, robots_noindex, robots_nofollow, robots_noarchive,
			robots_nosnippet, robots_noimageindex, robots_source, x_robots_tag, has_robots_conflict,
			html_lang, content_language_header, has_meta_refresh, meta_refresh_delay, meta_refresh_target,
			cache_control, vary, content_encoding, link_header, has_hsts, redirect_target, content_fingerprint
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		input.ProjectID, input.Normalized.Address, input.Normalized.NormalizedKey, scheme, host, path,
		input.Depth, time.Now(), lastCrawledAt(input),
		pageStatus(input), nullInt(input.Fetch.Status), nullString(input.Fetch.ContentType),
		nullBoolPtr(input.RobotsAllowed), input.DiscoveredFromURLID, nullString(input.Fetch.ErrorMessage),
		nullString(facts.Title), nullString(facts.MetaDescription), nullString(facts.CanonicalHTML),
		nullString(facts.CanonicalHTTP), facts.HasMultipleCanonicals, facts.HasCrossDomainCanonical,
		string(canonicalIssuesJSON),
		nullBoolPtr(facts.RobotsNoindex), nullBoolPtr(facts.RobotsNofollow), nullBoolPtr(facts.RobotsNoarchive),
		nullBoolPtr(facts.RobotsNosnippet), nullBoolPtr(facts.RobotsNoimageindex), string(facts.RobotsSource),
		nullString(facts.XRobotsTag), facts.HasRobotsConflict,
		nullString(facts.HTMLLang), nullString(facts.ContentLanguageHeader), facts.HasMetaRefresh,
		nullFloatPtr(facts.MetaRefreshDelay), nullString(facts.MetaRefreshTarget),
		nullString(facts.CacheControl), nullString(facts.Vary), nullString(facts.ContentEncoding),
		nullString(facts.LinkHeader), facts.HasHSTS, nullString(input.Fetch.FinalURL), nullString(fingerprint),
	)
	if err != nil {
		return 0, false, err
	}
	insertedID, err := result.LastInsertId()
	return insertedID, true, err
}

// contentFingerprint hashes a fetched page's rendered HTML with BLAKE3 so
// duplicate-content detection (same body under two different URLs) can
// compare urls.content_fingerprint instead of the full HTML column the
// schema deliberately doesn't keep. Empty for fetches that never reached a
// renderable body (robots-blocked, transport failure).
func contentFingerprint(html []byte) string {
	if len(html) == 0 {
		return ""
	}
	sum, err := hashutil.HashBytes(html, hashutil.HashAlgoBLAKE3)
	if err != nil {
		return ""
	}
	return sum
}

func (s Store) saveHeaders(ctx context.Context, urlID int64, headers map[string][]string) error {
	for name, values := range headers {
		for _, value := range values {
			if _, err := s.db.ExecContext(ctx,
				`INSERT INTO headers (url_id, name, value) VALUES (?, ?, ?)`, urlID, name, value,
			); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s Store) replaceHreflangs(ctx context.Context, urlID int64, hreflangs []extractor.Hreflang) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM hreflangs WHERE url_id = ?`, urlID); err != nil {
		return err
	}
	for _, h := range hreflangs {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO hreflangs (url_id, language_code, target_url, source, is_x_default) VALUES (?, ?, ?, ?, ?)`,
			urlID, h.LanguageCode, h.TargetURL, string(h.Source), h.IsXDefault,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s Store) replaceStructuredData(ctx context.Context, urlID int64, items []extractor.StructuredDataItem) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM structured_data WHERE url_id = ?`, urlID); err != nil {
		return err
	}
	for _, item := range items {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO structured_data (url_id, type, schema_type, raw, is_valid, validation_errors) VALUES (?, ?, ?, ?, ?, ?)`,
			urlID, item.Type, nullString(item.SchemaType), item.Raw, item.IsValid, nullString(item.ValidationErrors),
		); err != nil {
			return err
		}
	}
	return nil
}

func (s Store) replaceRedirects(ctx context.Context, urlID int64, hops []fetcher.RedirectHop) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM redirects WHERE url_id = ?`, urlID); err != nil {
		return err
	}
	for _, hop := range hops {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO redirects (url_id, from_url, to_url, status_code, position) VALUES (?, ?, ?, ?, ?)`,
			urlID, hop.From, hop.To, hop.StatusCode, hop.Position,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s Store) recordNonFatal(action string, err error, address string) {
	se := &StorageError{Message: err.Error(), Retryable: true, Cause: ErrCauseWriteFailure}
	if s.sink == nil {
		return
	}
	var attrs []metadata.Attribute
	if address != "" {
		attrs = append(attrs, metadata.NewAttr(metadata.AttrURL, address))
	}
	s.sink.RecordError(time.Now(), "storage", action, metadata.CauseStorageFailure, se.Error(), attrs)
}

func (s Store) recordAndWrap(action string, err error, retryable bool, address string) error {
	se := &StorageError{Message: err.Error(), Retryable: retryable, Cause: ErrCauseWriteFailure}
	if s.sink != nil {
		var attrs []metadata.Attribute
		if address != "" {
			attrs = append(attrs, metadata.NewAttr(metadata.AttrURL, address))
		}
		s.sink.RecordError(time.Now(), "storage", action, metadata.CauseStorageFailure, se.Error(), attrs)
	}
	return se
}

// pageStatus derives the urls.status value from a save's inputs. A
// robots-denied URL was never fetched, so it completes without a status
// code rather than failing.
func pageStatus(input SaveFetchedPageInput) URLStatus {
	if input.RobotsAllowed != nil && !*input.RobotsAllowed {
		return URLStatusCompleted
	}
	if input.Fetch.IsSuccess {
		return URLStatusCompleted
	}
	return URLStatusFailed
}

// lastCrawledAt returns the timestamp for urls.last_crawled_at, null when no
// fetch attempt produced a status code (the column is set iff http_status is).
func lastCrawledAt(input SaveFetchedPageInput) sql.NullTime {
	if input.Fetch.Status == 0 {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: time.Now(), Valid: true}
}

// classifyRel derives the three rel-based booleans from a link's raw rel
// attribute value, matched as whole, space-separated tokens.
func classifyRel(rel string) (isNofollow, isUGC, isSponsored bool) {
	for _, token := range splitTokens(rel) {
		switch token {
		case "nofollow":
			isNofollow = true
		case "ugc":
			isUGC = true
		case "sponsored":
			isSponsored = true
		}
	}
	return
}
