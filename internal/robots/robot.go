/*
Responsibilities

- Fetch robots.txt per host
- Cache rules for crawl duration
- Answer allow/disallow decisions for a URL

Workers call Decide on each dequeued URL before fetching it.
*/
package robots

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/wraithcrawl/seoscan/internal/metadata"
	"github.com/wraithcrawl/seoscan/internal/robots/cache"
)

// CachedRobot is the per-run robots.txt authority: it fetches, parses, and caches
// one ruleSet per origin and answers allow/disallow decisions against it. It
// holds all of its mutable state behind a single pointer so the value itself
// stays comparable (callers check it against the zero value after Init).
type CachedRobot struct {
	state *robotState
}

// maxCachedOrigins bounds the per-run robots.txt cache. Once the cache holds
// more than this many origins, the oldest half (by insertion order) is evicted to make
// room, trading a re-fetch for a long-running crawl's memory footprint.
const maxCachedOrigins = 10000

type robotState struct {
	fetcher   *RobotsFetcher
	userAgent string
	sink      metadata.MetadataSink

	mu          sync.Mutex
	ruleSets    map[string]ruleSet
	originOrder []string
}

// NewCachedRobot builds a CachedRobot that records its own fetch failures through sink.
// Call Init or InitWithCache before Decide.
func NewCachedRobot(sink metadata.MetadataSink) CachedRobot {
	return CachedRobot{state: &robotState{sink: sink}}
}

// Init prepares the robot with the default in-memory cache.
func (r CachedRobot) Init(userAgent string) {
	r.InitWithCache(userAgent, cache.NewMemoryCache())
}

// InitWithCache prepares the robot with a caller-supplied Cache implementation.
func (r CachedRobot) InitWithCache(userAgent string, c cache.Cache) {
	r.state.fetcher = NewRobotsFetcher(r.state.sink, userAgent, c)
	r.state.userAgent = userAgent
	r.state.ruleSets = make(map[string]ruleSet)
	r.state.originOrder = nil
}

// Decide fetches (or reuses the cached) robots.txt for u's origin and returns
// whether u may be crawled, per the longest-pattern-match precedence rule.
func (r CachedRobot) Decide(u url.URL) (Decision, error) {
	origin := u.Scheme + "://" + u.Host

	rs, err := r.resolveRuleSet(origin, u.Scheme, u.Host)
	if err != nil {
		r.state.sink.RecordError(
			time.Now(),
			"robots",
			"decide",
			mapRobotsErrorToMetadataCause(err),
			err.Message,
			[]metadata.Attribute{metadata.NewAttr(metadata.AttrURL, u.String())},
		)
		return Decision{}, err
	}

	if !rs.hasGroups {
		return Decision{Url: u, Allowed: true, Reason: EmptyRuleSet}, nil
	}
	if !rs.matchedGroup {
		return Decision{Url: u, Allowed: true, Reason: NoMatchingRules}, nil
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	allowLen, allowMatched := bestMatchLength(rs.allowRules, path)
	disallowLen, disallowMatched := bestMatchLength(rs.disallowRules, path)

	var delay time.Duration
	if rs.crawlDelay != nil {
		delay = *rs.crawlDelay
	}

	switch {
	case !allowMatched && !disallowMatched:
		return Decision{Url: u, Allowed: true, Reason: NoMatchingRules, CrawlDelay: delay}, nil
	case allowMatched && (!disallowMatched || allowLen >= disallowLen):
		return Decision{Url: u, Allowed: true, Reason: AllowedByRobots, CrawlDelay: delay}, nil
	default:
		return Decision{Url: u, Allowed: false, Reason: DisallowedByRobots, CrawlDelay: delay}, nil
	}
}

// Sitemaps returns the sitemap: directives collected from scheme://host's
// robots.txt, fetching and caching it first if this is the first call for
// the origin. The sitemap discoverer uses this as its seed list.
func (r CachedRobot) Sitemaps(scheme, host string) ([]string, error) {
	origin := scheme + "://" + host
	rs, err := r.resolveRuleSet(origin, scheme, host)
	if err != nil {
		r.state.sink.RecordError(
			time.Now(),
			"robots",
			"sitemaps",
			mapRobotsErrorToMetadataCause(err),
			err.Message,
			[]metadata.Attribute{metadata.NewAttr(metadata.AttrHost, host)},
		)
		return nil, err
	}
	return rs.sitemaps, nil
}

func (r CachedRobot) resolveRuleSet(origin, scheme, host string) (ruleSet, *RobotsError) {
	r.state.mu.Lock()
	if rs, found := r.state.ruleSets[origin]; found {
		r.state.mu.Unlock()
		return rs, nil
	}
	r.state.mu.Unlock()

	result, err := r.state.fetcher.Fetch(context.Background(), scheme, host)
	if err != nil {
		return ruleSet{}, err
	}

	rs := MapResponseToRuleSet(result.Response, r.state.userAgent, result.FetchedAt)

	r.state.mu.Lock()
	if _, exists := r.state.ruleSets[origin]; !exists {
		r.state.originOrder = append(r.state.originOrder, origin)
	}
	r.state.ruleSets[origin] = rs
	r.state.evictIfOverCapacityLocked()
	r.state.mu.Unlock()

	return rs, nil
}

// evictIfOverCapacityLocked drops the oldest half of cached origins once the
// cache exceeds maxCachedOrigins. Caller must hold state.mu.
func (s *robotState) evictIfOverCapacityLocked() {
	if len(s.ruleSets) <= maxCachedOrigins {
		return
	}
	evictCount := len(s.originOrder) / 2
	for _, origin := range s.originOrder[:evictCount] {
		delete(s.ruleSets, origin)
	}
	s.originOrder = s.originOrder[evictCount:]
}

// bestMatchLength returns the length of the longest rule pattern in rules that
// matches path, and whether any rule matched at all. Length is the raw pattern's
// character count, per the "more characters wins" precedence robots.txt uses.
func bestMatchLength(rules []pathRule, path string) (int, bool) {
	best := 0
	matched := false
	for _, rule := range rules {
		if !rule.matches(path) {
			continue
		}
		matched = true
		if l := len(rule.prefix); l > best {
			best = l
		}
	}
	return best, matched
}

// matches reports whether path satisfies this rule's pattern. Patterns may use
// "*" as a wildcard matching any run of characters, and a trailing "$" anchors
// the match to the end of path.
func (p pathRule) matches(path string) bool {
	re, err := compiledPattern(p.prefix)
	if err != nil {
		return false
	}
	return re.MatchString(path)
}

var patternCacheMu sync.Mutex
var patternCache = make(map[string]*regexp.Regexp)

func compiledPattern(pattern string) (*regexp.Regexp, error) {
	patternCacheMu.Lock()
	if re, found := patternCache[pattern]; found {
		patternCacheMu.Unlock()
		return re, nil
	}
	patternCacheMu.Unlock()

	anchored := strings.HasSuffix(pattern, "$")
	body := strings.TrimSuffix(pattern, "$")

	segments := strings.Split(body, "*")
	for i, seg := range segments {
		segments[i] = regexp.QuoteMeta(seg)
	}
	expr := "^" + strings.Join(segments, ".*")
	if anchored {
		expr += "$"
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}

	patternCacheMu.Lock()
	patternCache[pattern] = re
	patternCacheMu.Unlock()

	return re, nil
}
