package sitemap

import "time"

// Entry is one <url> record collected from a sitemap document, whether it was
// reached directly or through a sitemap index.
type Entry struct {
	Address    string
	LastMod    time.Time
	ChangeFreq string
	Priority   float64
}

// commonPaths is probed on every host regardless of what robots.txt advertised,
// since many sites never list their sitemap in robots.txt at all.
var commonPaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/wp-sitemap.xml",
	"/sitemap-index.xml",
	"/sitemap/sitemap.xml",
	"/sitemap1.xml",
	"/media/sitemap.xml",
	"/sitemap-posts.xml",
}

// maxURLs bounds total collection across an entire discovery walk, including
// nested sitemap indexes, per the discoverer's overall halt guard.
const maxURLs = 50000
