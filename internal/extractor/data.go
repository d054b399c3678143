package extractor

// PageFacts is the full set of on-page and header-derived signals extracted
// from one fetched document. Every field maps directly onto a column of the
// urls table (internal/db/schema.sql) or a related child table.
type PageFacts struct {
	Title           string
	MetaDescription string

	CanonicalHTML           string
	CanonicalHTTP           string
	HasMultipleCanonicals   bool
	HasCrossDomainCanonical bool
	CanonicalIssues         []string

	RobotsNoindex      *bool
	RobotsNofollow     *bool
	RobotsNoarchive    *bool
	RobotsNosnippet    *bool
	RobotsNoimageindex *bool
	RobotsSource       RobotsSource
	XRobotsTag         string
	HasRobotsConflict  bool

	HTMLLang              string
	ContentLanguageHeader string

	HasMetaRefresh    bool
	MetaRefreshDelay  *float64
	MetaRefreshTarget string

	CacheControl    string
	Vary            string
	ContentEncoding string
	LinkHeader      string
	HasHSTS         bool

	Hreflangs      []Hreflang
	StructuredData []StructuredDataItem
}

// RobotsSource records which of {<meta name="robots">, X-Robots-Tag} a
// robots directive combination was assembled from.
type RobotsSource string

const (
	RobotsSourceNone RobotsSource = "none"
	RobotsSourceMeta RobotsSource = "meta"
	RobotsSourceHTTP RobotsSource = "http"
	RobotsSourceBoth RobotsSource = "both"
)

// HreflangSource is the document location an hreflang entry was read from.
type HreflangSource string

const (
	HreflangSourceHTML HreflangSource = "html"
	HreflangSourceHTTP HreflangSource = "http"
)

// Hreflang is one alternate-language annotation for the current page.
type Hreflang struct {
	LanguageCode string
	TargetURL    string
	Source       HreflangSource
	IsXDefault   bool
}

// StructuredDataItem is one parsed (or parse-failed) JSON-LD block.
type StructuredDataItem struct {
	Type             string
	SchemaType       string
	Raw              string
	IsValid          bool
	ValidationErrors string
}

// robotsFlags is the five-flag set directives parse into, before the
// restrictive-wins combination rule is applied across meta/http sources.
type robotsFlags struct {
	noindex      *bool
	nofollow     *bool
	noarchive    *bool
	nosnippet    *bool
	noimageindex *bool
	present      bool
}
