/*
Responsibilities

- Resolve a candidate link against its page's base URL
- Reject non-http(s), off-site, and binary-extension targets
- Derive the normalized_key/host_key every downstream component keys on

A candidate never reaches the frontier without passing through here first.
*/
package urlnorm

import (
	"net/url"
	"strings"
	"time"

	"github.com/wraithcrawl/seoscan/internal/metadata"
	"github.com/wraithcrawl/seoscan/pkg/fileutil"
)

// Normalizer resolves and filters candidate URLs against a fixed project
// base. It records unparsable candidates through sink; rejections that parse
// fine (off-site, wrong scheme, binary extension) are ordinary outcomes, not
// errors, and are never logged as failures.
type Normalizer struct {
	base *url.URL
	sink metadata.MetadataSink
}

// NewNormalizer builds a Normalizer anchored to baseURL, the project's seed
// address. baseURL must already be a valid absolute http(s) URL.
func NewNormalizer(baseURL *url.URL, sink metadata.MetadataSink) Normalizer {
	return Normalizer{base: baseURL, sink: sink}
}

// Normalize resolves raw against the page it was found on (pageURL, which may
// differ from n.base for links discovered deeper in the crawl) and an
// optional <base href> override, then applies the accept/reject rules.
func (n Normalizer) Normalize(raw string, pageURL *url.URL, baseHref *url.URL) Result {
	resolveAgainst := pageURL
	if baseHref != nil {
		resolveAgainst = baseHref
	}

	resolved, err := resolveReference(raw, resolveAgainst)
	if err != nil {
		n.recordUnparsable(raw, err)
		return Result{Outcome: OutcomeUnparsable}
	}

	resolved.Fragment = ""
	resolved.RawFragment = ""

	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return Result{Outcome: OutcomeUnsupportedScheme, Resolved: toNormalized(resolved)}
	}

	if !SameSite(resolved.Hostname(), n.base.Hostname()) {
		return Result{Outcome: OutcomeDifferentSite, Resolved: toNormalized(resolved)}
	}

	if IsBinaryExtension(resolved.Path) {
		return Result{Outcome: OutcomeBinaryExtension, Resolved: toNormalized(resolved)}
	}

	normalized := toNormalized(resolved)
	return Result{
		Outcome:  OutcomeAccepted,
		Accepted: normalized,
		Resolved: normalized,
	}
}

// resolveReference parses raw and resolves it against base, handling the
// scheme-relative "//host/..." form explicitly: url.URL.ResolveReference
// already does this correctly via a leading-"//" reference, but raw may also
// be a bare, unparsable string, which must surface as OutcomeUnparsable
// rather than panicking or silently passing through.
func resolveReference(raw string, base *url.URL) (*url.URL, *UrlNormError) {
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, &UrlNormError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseUnparsable,
		}
	}
	resolved := base.ResolveReference(ref)
	if resolved.Host == "" {
		return nil, &UrlNormError{
			Message:   "resolved URL has no host",
			Retryable: false,
			Cause:     ErrCauseUnparsable,
		}
	}
	return resolved, nil
}

func (n Normalizer) recordUnparsable(raw string, err *UrlNormError) {
	if n.sink == nil {
		return
	}
	n.sink.RecordError(
		time.Now(),
		"urlnorm",
		"normalize",
		mapUrlNormErrorToMetadataCause(err),
		err.Message,
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrURL, raw)},
	)
}

// toNormalized derives the NormalizedKey/HostKey pair from an already
// resolved, fragment-stripped absolute URL.
func toNormalized(u *url.URL) Normalized {
	return Normalized{
		Address:       u.String(),
		NormalizedKey: strings.ToLower(u.Scheme + "://" + u.Host + u.Path + queryPart(u.RawQuery)),
		HostKey:       strings.ToLower(u.Host),
	}
}

func queryPart(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	return "?" + rawQuery
}

// SameSite reports whether two hosts belong to the same site: a single
// leading "www." is stripped from each side before the case-insensitive
// comparison, so "example.com" and "www.example.com" are the same site but
// "blog.example.com" is not.
func SameSite(a, b string) bool {
	return strings.EqualFold(stripWWW(a), stripWWW(b))
}

func stripWWW(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

// IsBinaryExtension reports whether path's final extension is in the fixed
// media/binary skip list, case-insensitively.
func IsBinaryExtension(path string) bool {
	ext := strings.ToLower(fileutil.GetFileExtension(path))
	if ext == "" {
		return false
	}
	_, found := binaryExtensions[ext]
	return found
}
