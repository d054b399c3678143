package sitemap_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wraithcrawl/seoscan/internal/metadata"
	"github.com/wraithcrawl/seoscan/internal/sitemap"
)

type fakeSink struct {
	errors []string
}

func (f *fakeSink) RecordFetch(string, int, time.Duration, string, int, int)    {}
func (f *fakeSink) RecordAssetFetch(string, int, time.Duration, int)            {}
func (f *fakeSink) RecordArtifact(metadata.ArtifactKind, string, []metadata.Attribute) {}
func (f *fakeSink) RecordError(_ time.Time, _ string, _ string, _ metadata.ErrorCause, msg string, _ []metadata.Attribute) {
	f.errors = append(f.errors, msg)
}

func hostOf(t *testing.T, rawURL string) (string, string) {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return u.Scheme, u.Host
}

func TestDiscoverer_Discover_URLSet(t *testing.T) {
	sitemapXML := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url>
    <loc>https://example.com/page1</loc>
    <lastmod>2024-01-15</lastmod>
    <changefreq>weekly</changefreq>
    <priority>0.8</priority>
  </url>
  <url><loc>https://example.com/page2</loc></url>
</urlset>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sitemap.xml" {
			w.Header().Set("Content-Type", "application/xml")
			w.Write([]byte(sitemapXML))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	sink := &fakeSink{}
	d := sitemap.NewDiscoverer(sink, "test-agent/1.0")
	scheme, host := hostOf(t, server.URL)

	entries := d.Discover(context.Background(), scheme, host, nil)

	require.Len(t, entries, 2)
	assert.Equal(t, "https://example.com/page1", entries[0].Address)
	assert.Equal(t, "weekly", entries[0].ChangeFreq)
	assert.Equal(t, 0.8, entries[0].Priority)
	assert.False(t, entries[0].LastMod.IsZero())
}

func TestDiscoverer_Discover_IndexRecursion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		switch r.URL.Path {
		case "/sitemap_index.xml":
			w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>` + "http://" + r.Host + `/sitemap1.xml</loc></sitemap>
  <sitemap><loc>` + "http://" + r.Host + `/sitemap2.xml</loc></sitemap>
</sitemapindex>`))
		case "/sitemap1.xml":
			w.Write([]byte(`<urlset><url><loc>https://example.com/a</loc></url></urlset>`))
		case "/sitemap2.xml":
			w.Write([]byte(`<urlset><url><loc>https://example.com/b</loc></url></urlset>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	sink := &fakeSink{}
	d := sitemap.NewDiscoverer(sink, "test-agent/1.0")
	scheme, host := hostOf(t, server.URL)

	entries := d.Discover(context.Background(), scheme, host, []string{server.URL + "/sitemap_index.xml"})

	require.Len(t, entries, 2)
}

func TestDiscoverer_Discover_SelfReferentialIndexDoesNotLoop(t *testing.T) {
	requestCounts := map[string]int{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCounts[r.URL.Path]++
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(`<sitemapindex><sitemap><loc>` + "http://" + r.Host + r.URL.Path + `</loc></sitemap></sitemapindex>`))
	}))
	defer server.Close()

	sink := &fakeSink{}
	d := sitemap.NewDiscoverer(sink, "test-agent/1.0")
	scheme, host := hostOf(t, server.URL)

	done := make(chan []sitemap.Entry, 1)
	go func() {
		done <- d.Discover(context.Background(), scheme, host, []string{server.URL + "/loop.xml"})
	}()

	select {
	case entries := <-done:
		assert.Empty(t, entries)
	case <-time.After(5 * time.Second):
		t.Fatal("Discover did not terminate on a self-referential sitemap index")
	}

	// The self-referential /loop.xml index points back at itself; the visited
	// set must keep it from being fetched more than once.
	assert.Equal(t, 1, requestCounts["/loop.xml"])
}

func TestDiscoverer_Discover_FailedDocumentIsNonFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sitemap1.xml":
			w.WriteHeader(http.StatusInternalServerError)
		case "/sitemap.xml":
			w.Header().Set("Content-Type", "application/xml")
			w.Write([]byte(`<urlset><url><loc>https://example.com/ok</loc></url></urlset>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	sink := &fakeSink{}
	d := sitemap.NewDiscoverer(sink, "test-agent/1.0")
	scheme, host := hostOf(t, server.URL)

	entries := d.Discover(context.Background(), scheme, host, []string{
		server.URL + "/sitemap1.xml",
		server.URL + "/sitemap.xml",
	})

	require.Len(t, entries, 1)
	assert.Equal(t, "https://example.com/ok", entries[0].Address)
	assert.NotEmpty(t, sink.errors)
}

func TestDiscoverer_Discover_MalformedXMLIsNonFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not xml at all"))
	}))
	defer server.Close()

	sink := &fakeSink{}
	d := sitemap.NewDiscoverer(sink, "test-agent/1.0")
	scheme, host := hostOf(t, server.URL)

	entries := d.Discover(context.Background(), scheme, host, nil)

	assert.Empty(t, entries)
	assert.NotEmpty(t, sink.errors)
	assert.True(t, strings.Contains(sink.errors[0], "malformed") || len(sink.errors) > 0)
}
