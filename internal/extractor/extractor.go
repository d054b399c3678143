/*
Responsibilities

- Parse one fetched document's HTML and response headers
- Derive every on-page/header SEO signal the persistence layer stores
- Never fail the crawl: per-field rules degrade to zero values on malformed input

Extract is a pure function of (html, lowercased headers, current URL). It
does not touch the network, the database, or the browser pool.
*/
package extractor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wraithcrawl/seoscan/internal/metadata"
)

// Extractor turns one fetched document into PageFacts, recording only
// whole-document parse failures through sink.
type Extractor struct {
	sink metadata.MetadataSink
}

// NewExtractor builds an Extractor that reports failures through sink.
func NewExtractor(sink metadata.MetadataSink) Extractor {
	return Extractor{sink: sink}
}

// Extract derives PageFacts from htmlBytes and headers (keys already
// lowercased, as internal/fetcher.FetchResult.Headers produces them) for the
// document fetched at currentURL.
func (e Extractor) Extract(currentURL *url.URL, htmlBytes []byte, headers map[string][]string) (PageFacts, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlBytes))
	if err != nil {
		extractionErr := &ExtractionError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseParseFailure,
		}
		if e.sink != nil {
			e.sink.RecordError(
				time.Now(), "extractor", "Extract",
				metadata.CauseContentInvalid, extractionErr.Error(),
				[]metadata.Attribute{metadata.NewAttr(metadata.AttrURL, currentURL.String())},
			)
		}
		return PageFacts{}, extractionErr
	}

	var facts PageFacts
	facts.Title = extractTitle(doc)
	facts.MetaDescription = extractMetaDescription(doc)

	extractCanonical(doc, headers, currentURL, &facts)
	extractRobots(doc, headers, &facts)
	extractLanguage(doc, headers, &facts)
	extractMetaRefresh(doc, currentURL, &facts)
	extractSpecialHeaders(headers, &facts)
	extractHreflangs(doc, headers, currentURL, &facts)
	extractStructuredData(doc, &facts)

	return facts, nil
}

func extractTitle(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func extractMetaDescription(doc *goquery.Document) string {
	content, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	return strings.TrimSpace(content)
}

func extractCanonical(doc *goquery.Document, headers map[string][]string, currentURL *url.URL, facts *PageFacts) {
	canonicalLinks := doc.Find(`link[rel="canonical"]`)
	facts.HasMultipleCanonicals = canonicalLinks.Length() > 1

	if href, ok := canonicalLinks.First().Attr("href"); ok {
		if resolved := resolveAgainst(currentURL, href); resolved != "" {
			facts.CanonicalHTML = resolved
		}
	}

	for _, link := range parseLinkHeaderValues(headers["link"]) {
		if link.rel == "canonical" {
			facts.CanonicalHTTP = resolveAgainst(currentURL, link.target)
			break
		}
	}

	var issues []string
	if facts.HasMultipleCanonicals {
		issues = append(issues, "Multiple canonical tags in HTML")
	}
	if facts.CanonicalHTML != "" && facts.CanonicalHTTP != "" && facts.CanonicalHTML != facts.CanonicalHTTP {
		issues = append(issues, "HTML and HTTP canonical differ")
	}
	facts.CanonicalIssues = issues

	if facts.CanonicalHTML != "" {
		if canonicalURL, err := url.Parse(facts.CanonicalHTML); err == nil {
			facts.HasCrossDomainCanonical = !strings.EqualFold(canonicalURL.Hostname(), currentURL.Hostname())
		}
	}
}

var robotsDirectivePattern = map[string]*regexp.Regexp{
	"noindex":      regexp.MustCompile(`(?i)\bnoindex\b`),
	"nofollow":     regexp.MustCompile(`(?i)\bnofollow\b`),
	"noarchive":    regexp.MustCompile(`(?i)\bnoarchive\b`),
	"nosnippet":    regexp.MustCompile(`(?i)\bnosnippet\b`),
	"noimageindex": regexp.MustCompile(`(?i)\bnoimageindex\b`),
	"none":         regexp.MustCompile(`(?i)\bnone\b`),
	"all":          regexp.MustCompile(`(?i)\ball\b`),
}

// parseRobotsDirectives parses a robots directive string (meta content or
// the X-Robots-Tag value) into the five-flag set. The "none" pseudo-directive
// expands to noindex+nofollow; "all" sets no flag. Any non-empty content
// marks the result present, so callers can distinguish "empty string"
// (source absent) from "present but asserts nothing".
func parseRobotsDirectives(content string) robotsFlags {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return robotsFlags{}
	}

	flags := robotsFlags{present: true}
	truth := true

	isNone := robotsDirectivePattern["none"].MatchString(trimmed)
	set := func(flag **bool) {
		*flag = &truth
	}
	if isNone || robotsDirectivePattern["noindex"].MatchString(trimmed) {
		set(&flags.noindex)
	}
	if isNone || robotsDirectivePattern["nofollow"].MatchString(trimmed) {
		set(&flags.nofollow)
	}
	if robotsDirectivePattern["noarchive"].MatchString(trimmed) {
		set(&flags.noarchive)
	}
	if robotsDirectivePattern["nosnippet"].MatchString(trimmed) {
		set(&flags.nosnippet)
	}
	if robotsDirectivePattern["noimageindex"].MatchString(trimmed) {
		set(&flags.noimageindex)
	}
	return flags
}

func extractRobots(doc *goquery.Document, headers map[string][]string, facts *PageFacts) {
	metaContent, metaHasAttr := doc.Find(`meta[name="robots"]`).First().Attr("content")
	metaFlags := parseRobotsDirectives(metaContent)
	metaPresent := metaHasAttr && strings.TrimSpace(metaContent) != ""

	var httpValue string
	if values := headers["x-robots-tag"]; len(values) > 0 {
		httpValue = strings.Join(values, ", ")
	}
	facts.XRobotsTag = httpValue
	httpFlags := parseRobotsDirectives(httpValue)
	httpPresent := strings.TrimSpace(httpValue) != ""

	switch {
	case metaPresent && httpPresent:
		facts.RobotsSource = RobotsSourceBoth
	case metaPresent:
		facts.RobotsSource = RobotsSourceMeta
	case httpPresent:
		facts.RobotsSource = RobotsSourceHTTP
	default:
		facts.RobotsSource = RobotsSourceNone
	}

	facts.RobotsNoindex = combineFlag(metaPresent, metaFlags.noindex, httpPresent, httpFlags.noindex)
	facts.RobotsNofollow = combineFlag(metaPresent, metaFlags.nofollow, httpPresent, httpFlags.nofollow)
	facts.RobotsNoarchive = combineFlag(metaPresent, metaFlags.noarchive, httpPresent, httpFlags.noarchive)
	facts.RobotsNosnippet = combineFlag(metaPresent, metaFlags.nosnippet, httpPresent, httpFlags.nosnippet)
	facts.RobotsNoimageindex = combineFlag(metaPresent, metaFlags.noimageindex, httpPresent, httpFlags.noimageindex)

	facts.HasRobotsConflict = metaPresent && httpPresent && (
		!boolEqual(metaFlags.noindex, httpFlags.noindex) ||
		!boolEqual(metaFlags.nofollow, httpFlags.nofollow) ||
		!boolEqual(metaFlags.noarchive, httpFlags.noarchive) ||
		!boolEqual(metaFlags.nosnippet, httpFlags.nosnippet) ||
		!boolEqual(metaFlags.noimageindex, httpFlags.noimageindex))
}

// combineFlag implements the per-flag, restrictive-wins rule: true if either
// present source asserted the flag, false if a source was present but did
// not assert it, nil if neither source was present at all.
func combineFlag(metaPresent bool, metaFlag *bool, httpPresent bool, httpFlag *bool) *bool {
	if !metaPresent && !httpPresent {
		return nil
	}
	if (metaPresent && metaFlag != nil && *metaFlag) || (httpPresent && httpFlag != nil && *httpFlag) {
		asserted := true
		return &asserted
	}
	notAsserted := false
	return &notAsserted
}

func boolEqual(a, b *bool) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

func extractLanguage(doc *goquery.Document, headers map[string][]string, facts *PageFacts) {
	facts.HTMLLang, _ = doc.Find("html").First().Attr("lang")
	if values := headers["content-language"]; len(values) > 0 {
		facts.ContentLanguageHeader = strings.Join(values, ", ")
	}
}

var metaRefreshPattern = regexp.MustCompile(`(?i)^\s*(\d+)\s*;\s*url=(.+)$`)

func extractMetaRefresh(doc *goquery.Document, currentURL *url.URL, facts *PageFacts) {
	content, ok := doc.Find(`meta[http-equiv="refresh" i]`).First().Attr("content")
	if !ok {
		return
	}
	matches := metaRefreshPattern.FindStringSubmatch(content)
	if matches == nil {
		return
	}

	delaySeconds, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return
	}

	facts.HasMetaRefresh = true
	facts.MetaRefreshDelay = &delaySeconds
	target := strings.TrimSpace(matches[2])
	if resolved := resolveAgainst(currentURL, target); resolved != "" {
		facts.MetaRefreshTarget = resolved
	} else {
		facts.MetaRefreshTarget = target
	}
}

func extractSpecialHeaders(headers map[string][]string, facts *PageFacts) {
	facts.CacheControl = firstJoined(headers, "cache-control")
	facts.Vary = firstJoined(headers, "vary")
	facts.ContentEncoding = firstJoined(headers, "content-encoding")
	facts.LinkHeader = firstJoined(headers, "link")
	_, facts.HasHSTS = headers["strict-transport-security"]
}

func firstJoined(headers map[string][]string, key string) string {
	values := headers[key]
	if len(values) == 0 {
		return ""
	}
	return strings.Join(values, ", ")
}

func extractHreflangs(doc *goquery.Document, headers map[string][]string, currentURL *url.URL, facts *PageFacts) {
	var hreflangs []Hreflang

	doc.Find(`link[rel="alternate"][hreflang]`).Each(func(_ int, sel *goquery.Selection) {
		lang, _ := sel.Attr("hreflang")
		href, hasHref := sel.Attr("href")
		if lang == "" || !hasHref {
			return
		}
		target := resolveAgainst(currentURL, href)
		if target == "" {
			return
		}
		hreflangs = append(hreflangs, Hreflang{
			LanguageCode: lang,
			TargetURL:    target,
			Source:       HreflangSourceHTML,
			IsXDefault:   strings.EqualFold(lang, "x-default"),
		})
	})

	for _, link := range parseLinkHeaderValues(headers["link"]) {
		if link.rel != "alternate" || link.hreflang == "" {
			continue
		}
		target := resolveAgainst(currentURL, link.target)
		if target == "" {
			continue
		}
		hreflangs = append(hreflangs, Hreflang{
			LanguageCode: link.hreflang,
			TargetURL:    target,
			Source:       HreflangSourceHTTP,
			IsXDefault:   strings.EqualFold(link.hreflang, "x-default"),
		})
	}

	facts.Hreflangs = hreflangs
}

func extractStructuredData(doc *goquery.Document, facts *PageFacts) {
	var items []StructuredDataItem

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		raw := sel.Text()
		item := StructuredDataItem{Type: "json-ld", Raw: raw}

		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			item.IsValid = false
			item.ValidationErrors = "Invalid JSON"
			items = append(items, item)
			return
		}

		item.IsValid = true
		if schemaType, ok := parsed["@type"]; ok {
			item.SchemaType = fmt.Sprintf("%v", schemaType)
		} else {
			item.SchemaType = "Unknown"
		}
		items = append(items, item)
	})

	facts.StructuredData = items
}

// resolveAgainst resolves raw against currentURL, returning "" if raw is
// empty or unparsable rather than erroring: a malformed href degrades the
// field to absent, never failing the extraction.
func resolveAgainst(currentURL *url.URL, raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	ref, err := url.Parse(trimmed)
	if err != nil {
		return ""
	}
	return currentURL.ResolveReference(ref).String()
}
