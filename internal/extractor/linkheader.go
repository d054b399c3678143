package extractor

import "strings"

// linkHeaderValue is one comma-separated entry of an HTTP Link header:
// <https://example.com/en>; rel="alternate"; hreflang="en"
type linkHeaderValue struct {
	target   string
	rel      string
	hreflang string
}

// parseLinkHeaderValues parses every raw Link header line (there may be more
// than one, or one line with several comma-separated entries) into its
// individual link-values. rel and hreflang are matched case-insensitively
// and returned lowercased/as-is respectively; malformed entries are skipped.
func parseLinkHeaderValues(rawLines []string) []linkHeaderValue {
	var values []linkHeaderValue
	for _, line := range rawLines {
		for _, entry := range splitLinkEntries(line) {
			if lv, ok := parseLinkEntry(entry); ok {
				values = append(values, lv)
			}
		}
	}
	return values
}

// splitLinkEntries splits a Link header value on commas that separate
// distinct link-values, ignoring commas that fall inside a quoted parameter
// (e.g. title="a, b" would otherwise be split into two entries).
func splitLinkEntries(line string) []string {
	var entries []string
	var current strings.Builder
	inQuotes := false
	for _, r := range line {
		switch r {
		case '"':
			inQuotes = !inQuotes
			current.WriteRune(r)
		case ',':
			if inQuotes {
				current.WriteRune(r)
			} else {
				entries = append(entries, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		entries = append(entries, current.String())
	}
	return entries
}

func parseLinkEntry(entry string) (linkHeaderValue, bool) {
	entry = strings.TrimSpace(entry)
	start := strings.IndexByte(entry, '<')
	end := strings.IndexByte(entry, '>')
	if start == -1 || end == -1 || end < start {
		return linkHeaderValue{}, false
	}

	lv := linkHeaderValue{target: strings.TrimSpace(entry[start+1 : end])}
	if lv.target == "" {
		return linkHeaderValue{}, false
	}

	for _, param := range strings.Split(entry[end+1:], ";") {
		param = strings.TrimSpace(param)
		name, value, found := strings.Cut(param, "=")
		if !found {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.Trim(strings.TrimSpace(value), `"`)

		switch name {
		case "rel":
			lv.rel = strings.ToLower(value)
		case "hreflang":
			lv.hreflang = value
		}
	}

	return lv, true
}
