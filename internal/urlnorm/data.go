package urlnorm

// Outcome describes why a candidate URL was accepted or rejected.
type Outcome string

const (
	OutcomeAccepted          Outcome = "accepted"
	OutcomeUnparsable        Outcome = "unparsable"
	OutcomeUnsupportedScheme Outcome = "unsupported_scheme"
	OutcomeDifferentSite     Outcome = "different_site"
	OutcomeBinaryExtension   Outcome = "binary_extension"
)

// Result is the outcome of normalizing one candidate URL against a base.
type Result struct {
	// Accepted is the normalized, absolute URL, valid only when Outcome is
	// OutcomeAccepted. Kept distinct from Resolved so an enqueue call site
	// only ever has to check one field to know a target is frontier-safe.
	Accepted Normalized

	// Resolved is the same derived address/key/host data as Accepted, but
	// populated for every outcome the URL successfully resolved to absolute
	// form against — everything except OutcomeUnparsable. A cross-site or
	// binary-extension link still needs Resolved to record a Link row
	// against its target, even though it will never be Accepted for the
	// frontier.
	Resolved Normalized

	Outcome Outcome
}

// Normalized holds the derived fields the frontier and persistence layer key
// on: the absolute address, its lowercase fingerprint, and its site key.
type Normalized struct {
	// Address is the absolute, fragment-stripped URL as originally cased.
	Address string

	// NormalizedKey is lowercase(scheme://host/path?query), fragment
	// stripped — the frontier/persistence dedup key.
	NormalizedKey string

	// HostKey is lowercase(host) — the politeness-gate and same-site key.
	HostKey string
}

// binaryExtensions is the fixed suffix list that routes a candidate to
// OutcomeBinaryExtension instead of the frontier. Matched case-insensitively
// against the final path segment's extension, without the leading dot.
var binaryExtensions = map[string]struct{}{
	"mp4": {}, "avi": {}, "mov": {}, "wmv": {}, "flv": {}, "mkv": {}, "webm": {}, "m4v": {}, "mpg": {}, "mpeg": {},
	"mp3": {}, "wav": {}, "ogg": {}, "m4a": {}, "aac": {}, "flac": {}, "wma": {},
	"pdf": {}, "doc": {}, "docx": {}, "xls": {}, "xlsx": {}, "ppt": {}, "pptx": {},
	"zip": {}, "rar": {}, "7z": {}, "tar": {}, "gz": {}, "bz2": {},
	"psd": {}, "ai": {}, "svg": {},
	"exe": {}, "dll": {}, "so": {}, "dylib": {}, "bin": {}, "dmg": {}, "iso": {},
	"ttf": {}, "otf": {}, "woff": {}, "woff2": {}, "eot": {},
}
