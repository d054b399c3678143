/*
Responsibilities

- Walk a fetched document's DOM for every outbound reference worth following
  or reporting: hyperlinks, images, stylesheets, scripts
- Resolve each reference against the page's effective base URL
- Classify, normalize, and hand back a flat list for the persistence layer
  and normalizer to file

Like the extractor, this is a pure, best-effort transform: a malformed
document yields fewer links, never an error.
*/
package linkextract

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// skippedSchemes are href/src prefixes that never denote a crawlable or
// reportable target.
var skippedSchemes = []string{"javascript:", "mailto:", "tel:"}

// Extract parses htmlBytes and returns every Hyperlink/Image/Stylesheet/Script
// reference it contains, resolved against pageURL (or the document's own
// <base href>, when present and itself resolvable). Extraction never fails:
// a document that doesn't parse as HTML yields an empty slice.
func Extract(pageURL *url.URL, htmlBytes []byte) []Link {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlBytes))
	if err != nil {
		return nil
	}

	base := effectiveBase(doc, pageURL)

	var links []Link
	collect := func(raw, anchorText string, linkType LinkType, rel string) {
		if resolved, ok := resolve(base, raw); ok {
			links = append(links, Link{URL: resolved, AnchorText: anchorText, Type: linkType, Rel: rel})
		}
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		rel, _ := sel.Attr("rel")
		collect(href, strings.TrimSpace(sel.Text()), LinkTypeHyperlink, rel)
	})

	doc.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		alt, _ := sel.Attr("alt")
		collect(src, alt, LinkTypeImage, "")
	})

	doc.Find(`link[rel="stylesheet"][href]`).Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		collect(href, "", LinkTypeStylesheet, "stylesheet")
	})

	doc.Find("script[src]").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		collect(src, "", LinkTypeScript, "")
	})

	return links
}

// effectiveBase returns the document's <base href>, resolved against pageURL,
// when one is present and resolvable; otherwise pageURL itself.
func effectiveBase(doc *goquery.Document, pageURL *url.URL) *url.URL {
	href, ok := doc.Find("base[href]").First().Attr("href")
	if !ok {
		return pageURL
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return pageURL
	}
	return pageURL.ResolveReference(ref)
}

// resolve resolves raw against base, stripping its fragment. It reports
// false for references that skip-scheme filtering or parsing rules out.
func resolve(base *url.URL, raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", false
	}

	lower := strings.ToLower(trimmed)
	for _, scheme := range skippedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return "", false
		}
	}

	ref, err := url.Parse(trimmed)
	if err != nil {
		return "", false
	}

	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""
	resolved.RawFragment = ""
	return resolved.String(), true
}
