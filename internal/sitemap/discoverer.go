/*
Responsibilities

- Ask the robots cache for any sitemap: directives
- Probe a fixed list of common sitemap paths
- Walk sitemap indexes to their leaf url sets, bounded and loop-safe
- Collect absolute page URLs for the frontier to seed from

Per-document failures are logged and skipped; they never abort the walk.
*/
package sitemap

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/wraithcrawl/seoscan/internal/metadata"
	"github.com/wraithcrawl/seoscan/pkg/failure"
	"github.com/wraithcrawl/seoscan/pkg/retry"
	"github.com/wraithcrawl/seoscan/pkg/timeutil"
	"github.com/wraithcrawl/seoscan/pkg/urlutil"
)

// maxDocumentSize bounds a single sitemap document read, guarding against a
// misbehaving or malicious host serving an unbounded body.
const maxDocumentSize = 10 * 1024 * 1024

// defaultRetryParam covers the same transient classes fetchRaw already marks
// Retryable (transport failure, 5xx) with a small, fixed attempt count — a
// sitemap document that still fails after two tries is recorded and skipped,
// never blocking the rest of the walk.
var defaultRetryParam = retry.NewRetryParam(
	250*time.Millisecond,
	100*time.Millisecond,
	time.Now().UnixNano(),
	2,
	timeutil.NewBackoffParam(250*time.Millisecond, 2.0, 1*time.Second),
)

// Discoverer walks sitemap.xml documents (and sitemap indexes) reachable from
// a host's robots.txt directives and a fixed list of common paths.
type Discoverer struct {
	httpClient *http.Client
	userAgent  string
	sink       metadata.MetadataSink
}

// NewDiscoverer builds a Discoverer recording fetch outcomes through sink.
func NewDiscoverer(sink metadata.MetadataSink, userAgent string) *Discoverer {
	return &Discoverer{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		userAgent:  userAgent,
		sink:       sink,
	}
}

// Discover walks every candidate sitemap document for scheme://host, starting
// from robotsSitemaps (the sitemap: directives the robots cache collected)
// plus the fixed probe list, and returns every <url> entry found. It halts
// once maxURLs entries have been collected or every candidate is exhausted.
func (d *Discoverer) Discover(ctx context.Context, scheme, host string, robotsSitemaps []string) []Entry {
	queue := make([]string, 0, len(robotsSitemaps)+len(commonPaths))
	queue = append(queue, robotsSitemaps...)
	for _, p := range commonPaths {
		queue = append(queue, fmt.Sprintf("%s://%s%s", scheme, host, p))
	}

	visited := make(map[string]bool, len(queue))
	entries := make([]Entry, 0)

	for len(queue) > 0 && len(entries) < maxURLs {
		loc := queue[0]
		queue = queue[1:]

		key := canonicalizeKey(loc)
		if visited[key] {
			continue
		}
		visited[key] = true

		doc, err := d.fetchDocument(ctx, loc)
		if err != nil {
			d.recordError(loc, err)
			continue
		}

		if doc.isIndex {
			queue = append(queue, doc.childSitemaps...)
			continue
		}

		for _, e := range doc.urls {
			entries = append(entries, e)
			if len(entries) >= maxURLs {
				break
			}
		}
	}

	return entries
}

// canonicalizeKey dedupes the crawl queue of candidate sitemap URLs:
// robots.txt's sitemap: directives and the fixed probe list can both surface
// the same document under different spellings (trailing slash, host case),
// and without collapsing those the walk would fetch it twice. Falls back to
// the raw string for anything that fails to parse, so an unparsable entry
// still gets a (non-colliding) dedup key rather than crashing the walk.
func canonicalizeKey(loc string) string {
	parsed, err := url.Parse(loc)
	if err != nil {
		return loc
	}
	canon := urlutil.Canonicalize(*parsed)
	return canon.String()
}

type parsedDocument struct {
	isIndex       bool
	childSitemaps []string
	urls          []Entry
}

// fetchedBody is one successful network read of a sitemap document, carried
// out of fetchRaw so fetchDocument can record it and hand it to parseDocument.
type fetchedBody struct {
	body       []byte
	statusCode int
}

func (d *Discoverer) fetchDocument(ctx context.Context, loc string) (parsedDocument, *SitemapError) {
	start := time.Now()

	fetched, fetchErr := d.fetchWithRetry(ctx, loc)
	if fetchErr != nil {
		return parsedDocument{}, fetchErr
	}

	d.sink.RecordAssetFetch(loc, fetched.statusCode, time.Since(start), 0)

	doc, parseErr := parseDocument(fetched.body)
	if parseErr != nil {
		return parsedDocument{}, parseErr
	}
	return doc, nil
}

// fetchWithRetry wraps fetchRaw in a small, fixed retry budget for the
// transient classes fetchRaw itself marks Retryable (transport failure,
// 5xx); a non-retryable outcome (4xx, oversized body) returns on the first
// attempt.
func (d *Discoverer) fetchWithRetry(ctx context.Context, loc string) (fetchedBody, *SitemapError) {
	task := func() (fetchedBody, failure.ClassifiedError) {
		return d.fetchRaw(ctx, loc)
	}

	outcome := retry.Retry(defaultRetryParam, task)
	if outcome.IsSuccess() {
		return outcome.Value(), nil
	}

	var sitemapErr *SitemapError
	if errors.As(outcome.Err(), &sitemapErr) {
		return fetchedBody{}, sitemapErr
	}
	return fetchedBody{}, &SitemapError{Message: outcome.Err().Error(), Retryable: false, Cause: ErrCauseFetchFailure}
}

// fetchRaw is one unretried attempt at fetching and size-checking loc's body.
func (d *Discoverer) fetchRaw(ctx context.Context, loc string) (fetchedBody, *SitemapError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc, nil)
	if err != nil {
		return fetchedBody{}, &SitemapError{
			Message:   fmt.Sprintf("failed to build request for %s: %v", loc, err),
			Retryable: false,
			Cause:     ErrCauseFetchFailure,
		}
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "application/xml,text/xml,*/*")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fetchedBody{}, &SitemapError{
			Message:   fmt.Sprintf("failed to fetch %s: %v", loc, err),
			Retryable: true,
			Cause:     ErrCauseFetchFailure,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fetchedBody{}, &SitemapError{
			Message:   fmt.Sprintf("status %d fetching %s", resp.StatusCode, loc),
			Retryable: resp.StatusCode >= 500,
			Cause:     ErrCauseHttpStatus,
		}
	}

	limited := io.LimitReader(resp.Body, maxDocumentSize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return fetchedBody{}, &SitemapError{
			Message:   fmt.Sprintf("failed to read body of %s: %v", loc, err),
			Retryable: true,
			Cause:     ErrCauseFetchFailure,
		}
	}
	if len(body) > maxDocumentSize {
		return fetchedBody{}, &SitemapError{
			Message:   fmt.Sprintf("%s exceeded the %d byte sitemap size limit", loc, maxDocumentSize),
			Retryable: false,
			Cause:     ErrCauseTooLarge,
		}
	}

	return fetchedBody{body: body, statusCode: resp.StatusCode}, nil
}

// rootElementName peeks at the first start element of an XML document without
// fully decoding it, so the caller can branch between the two sitemap schemas.
func rootElementName(body []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := decoder.Token()
		if err != nil {
			return "", err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local, nil
		}
	}
}

type xmlSitemapIndex struct {
	XMLName  xml.Name      `xml:"sitemapindex"`
	Sitemaps []xmlLocEntry `xml:"sitemap"`
}

type xmlURLSet struct {
	XMLName xml.Name      `xml:"urlset"`
	URLs    []xmlURLEntry `xml:"url"`
}

type xmlLocEntry struct {
	Loc string `xml:"loc"`
}

type xmlURLEntry struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

func parseDocument(body []byte) (parsedDocument, *SitemapError) {
	root, err := rootElementName(body)
	if err != nil {
		return parsedDocument{}, &SitemapError{
			Message:   fmt.Sprintf("malformed sitemap XML: %v", err),
			Retryable: false,
			Cause:     ErrCauseMalformedXML,
		}
	}

	switch root {
	case "sitemapindex":
		var index xmlSitemapIndex
		if err := xml.Unmarshal(body, &index); err != nil {
			return parsedDocument{}, &SitemapError{
				Message:   fmt.Sprintf("malformed sitemapindex XML: %v", err),
				Retryable: false,
				Cause:     ErrCauseMalformedXML,
			}
		}
		children := make([]string, 0, len(index.Sitemaps))
		for _, s := range index.Sitemaps {
			if s.Loc != "" {
				children = append(children, s.Loc)
			}
		}
		return parsedDocument{isIndex: true, childSitemaps: children}, nil

	case "urlset":
		var set xmlURLSet
		if err := xml.Unmarshal(body, &set); err != nil {
			return parsedDocument{}, &SitemapError{
				Message:   fmt.Sprintf("malformed urlset XML: %v", err),
				Retryable: false,
				Cause:     ErrCauseMalformedXML,
			}
		}
		entries := make([]Entry, 0, len(set.URLs))
		for _, u := range set.URLs {
			if u.Loc == "" {
				continue
			}
			entries = append(entries, Entry{
				Address:    u.Loc,
				LastMod:    parseLastMod(u.LastMod),
				ChangeFreq: u.ChangeFreq,
				Priority:   parsePriority(u.Priority),
			})
		}
		return parsedDocument{urls: entries}, nil

	default:
		return parsedDocument{}, &SitemapError{
			Message:   fmt.Sprintf("unrecognized sitemap root element %q", root),
			Retryable: false,
			Cause:     ErrCauseUnknownRoot,
		}
	}
}

func parseLastMod(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parsePriority(value string) float64 {
	if value == "" {
		return 0
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return f
}

func (d *Discoverer) recordError(loc string, err *SitemapError) {
	d.sink.RecordError(
		time.Now(),
		"sitemap",
		"discover",
		mapSitemapErrorToMetadataCause(err),
		err.Message,
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrURL, loc)},
	)
}
