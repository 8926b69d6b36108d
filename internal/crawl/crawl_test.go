// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package crawl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/answer-engine/pkg/types"
)

func testSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/help", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><head><title>Help Center</title></head><body>
			<nav><a href="/help/hidden">nav link</a></nav>
			<h1>Help Center</h1>
			<p>Welcome to the help center.</p>
			<a href="/help/channels">Channels</a>
			<a href="/help/channels/">Channels again</a>
			<a href="/help/workspaces#section">Workspaces</a>
			<a href="https://elsewhere.example.com/help/external">External</a>
			<a href="/pricing">Out of scope</a>
		</body></html>`))
	})
	mux.HandleFunc("/help/channels", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><head><title>Channels</title></head><body>
			<h2>Creating a channel</h2>
			<p>Click the plus button in the sidebar.</p>
			<a href="/help/channels/archive">Archiving</a>
		</body></html>`))
	})
	mux.HandleFunc("/help/workspaces", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><head><title>Workspaces</title></head><body>
			<p>Workspaces hold channels.</p>
		</body></html>`))
	})
	mux.HandleFunc("/help/channels/archive", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><head><title>Archiving</title></head><body>
			<p>Archive a channel when work wraps up.</p>
		</body></html>`))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func testCrawler(t *testing.T, cfg types.CrawlConfig) (*Crawler, string) {
	t.Helper()
	pagesDir := filepath.Join(t.TempDir(), "pages")
	cfg.PagesDir = pagesDir
	cfg.RequestDelay = time.Millisecond
	return New(cfg, nil), pagesDir
}

func readFrontMatter(t *testing.T, path string) types.Page {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := strings.TrimPrefix(string(data), "---\n")
	end := strings.Index(text, "\n---\n")
	if end < 0 {
		t.Fatalf("no front matter in %s", path)
	}
	var page types.Page
	if err := yaml.Unmarshal([]byte(text[:end]), &page); err != nil {
		t.Fatal(err)
	}
	return page
}

func TestCrawl(t *testing.T) {
	ts := testSite(t)
	c, pagesDir := testCrawler(t, types.CrawlConfig{MaxDepth: 1})

	summary, err := c.Crawl(context.Background(), ts.URL+"/help")
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}

	// Start page plus /help/channels and /help/workspaces. The nav link,
	// the external link and /pricing are out of scope; the trailing-slash
	// and fragment variants deduplicate.
	if summary.Fetched != 3 {
		t.Errorf("Fetched = %d, want 3", summary.Fetched)
	}
	if summary.Failed != 0 {
		t.Errorf("Failed = %d, want 0", summary.Failed)
	}

	entries, err := os.ReadDir(pagesDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("wrote %d files, want 3", len(entries))
	}
}

func TestCrawlWritesFrontMatterAndBody(t *testing.T) {
	ts := testSite(t)
	c, pagesDir := testCrawler(t, types.CrawlConfig{MaxDepth: 1, MaxPages: 1})

	if _, err := c.Crawl(context.Background(), ts.URL+"/help"); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(pagesDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("wrote %d files, want 1", len(entries))
	}

	path := filepath.Join(pagesDir, entries[0].Name())
	page := readFrontMatter(t, path)
	if page.Title != "Help Center" {
		t.Errorf("Title = %q", page.Title)
	}
	if page.URL != ts.URL+"/help" {
		t.Errorf("URL = %q", page.URL)
	}
	if page.Depth != 0 {
		t.Errorf("Depth = %d, want 0", page.Depth)
	}
	if page.FetchedAt.IsZero() {
		t.Error("FetchedAt not set")
	}

	data, _ := os.ReadFile(path)
	body := string(data)
	if !strings.Contains(body, "# Help Center") {
		t.Errorf("body missing heading: %s", body)
	}
	if !strings.Contains(body, "Welcome to the help center.") {
		t.Errorf("body missing paragraph: %s", body)
	}
	if strings.Contains(body, "nav link") {
		t.Errorf("nav chrome leaked into body: %s", body)
	}
}

func TestCrawlRespectsMaxDepth(t *testing.T) {
	ts := testSite(t)
	c, _ := testCrawler(t, types.CrawlConfig{MaxDepth: 2})

	summary, err := c.Crawl(context.Background(), ts.URL+"/help")
	if err != nil {
		t.Fatal(err)
	}
	// Depth 2 reaches /help/channels/archive as well.
	if summary.Fetched != 4 {
		t.Errorf("Fetched = %d, want 4", summary.Fetched)
	}
}

func TestCrawlRespectsMaxPages(t *testing.T) {
	ts := testSite(t)
	c, _ := testCrawler(t, types.CrawlConfig{MaxDepth: 3, MaxPages: 2})

	summary, err := c.Crawl(context.Background(), ts.URL+"/help")
	if err != nil {
		t.Fatal(err)
	}
	if summary.Total() != 2 {
		t.Errorf("Total = %d, want 2", summary.Total())
	}
}

func TestCrawlContinuesAfterFetchFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><body>
			<a href="/docs/broken">Broken</a>
			<a href="/docs/fine">Fine</a>
		</body></html>`))
	})
	mux.HandleFunc("/docs/broken", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/docs/fine", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><body><p>Fine.</p></body></html>`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c, _ := testCrawler(t, types.CrawlConfig{MaxDepth: 1})
	summary, err := c.Crawl(context.Background(), ts.URL+"/docs")
	if err != nil {
		t.Fatal(err)
	}
	if summary.Fetched != 2 {
		t.Errorf("Fetched = %d, want 2", summary.Fetched)
	}
	if summary.Failed != 1 {
		t.Errorf("Failed = %d, want 1", summary.Failed)
	}
}

func TestCrawlRejectsBadStartURL(t *testing.T) {
	c, _ := testCrawler(t, types.CrawlConfig{})
	if _, err := c.Crawl(context.Background(), "ftp://example.com/docs"); err == nil {
		t.Error("want error for non-http scheme")
	}
}

func TestCrawlCancellation(t *testing.T) {
	ts := testSite(t)
	c, _ := testCrawler(t, types.CrawlConfig{MaxDepth: 3})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Crawl(ctx, ts.URL+"/help"); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

// --- URL handling ---

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://h.example.com/help/", "https://h.example.com/help"},
		{"https://h.example.com/help#intro", "https://h.example.com/help"},
		{"https://h.example.com/", "https://h.example.com/"},
		{"https://h.example.com/a/b/", "https://h.example.com/a/b"},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.in)
		if err != nil {
			t.Fatal(err)
		}
		normalizeURL(u)
		if u.String() != tt.want {
			t.Errorf("normalizeURL(%q) = %q, want %q", tt.in, u.String(), tt.want)
		}
	}
}

func TestIsInternal(t *testing.T) {
	base, _ := url.Parse("https://docs.example.com/help")

	tests := []struct {
		link string
		want bool
	}{
		{"https://docs.example.com/help/channels", true},
		{"https://docs.example.com/help", true},
		{"https://docs.example.com/pricing", false},
		{"https://other.example.com/help/channels", false},
		{"https://docs.example.com/", false},
		{"mailto:support@example.com", false},
	}
	for _, tt := range tests {
		link, err := url.Parse(tt.link)
		if err != nil {
			t.Fatal(err)
		}
		if got := isInternal(base, link); got != tt.want {
			t.Errorf("isInternal(%q) = %v, want %v", tt.link, got, tt.want)
		}
	}
}

func TestPageIDStable(t *testing.T) {
	a, _ := url.Parse("https://docs.example.com/help")
	b, _ := url.Parse("https://docs.example.com/help")
	c, _ := url.Parse("https://docs.example.com/other")

	if pageID(a) != pageID(b) {
		t.Error("same URL must produce the same id")
	}
	if pageID(a) == pageID(c) {
		t.Error("different URLs must produce different ids")
	}
	if len(pageID(a)) != 12 {
		t.Errorf("id length = %d, want 12", len(pageID(a)))
	}
}

// --- HTML extraction ---

func TestParsePage(t *testing.T) {
	input := `<html><head><title>Doc Title</title><style>.x{}</style></head><body>
		<header><p>site banner</p></header>
		<h1>Main Heading</h1>
		<p>First paragraph.</p>
		<h2>Sub Heading</h2>
		<ul><li>item one</li><li>item two</li></ul>
		<a href="/a">A</a>
		<a href="#frag">Fragment</a>
		<a href="">Empty</a>
		<script>var x = 1;</script>
		<footer>copyright</footer>
	</body></html>`

	doc, err := parsePage(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}

	if doc.title != "Doc Title" {
		t.Errorf("title = %q", doc.title)
	}
	if len(doc.links) != 1 || doc.links[0] != "/a" {
		t.Errorf("links = %v, want [/a]", doc.links)
	}
	for _, want := range []string{"# Main Heading", "## Sub Heading", "First paragraph.", "item one"} {
		if !strings.Contains(doc.body, want) {
			t.Errorf("body missing %q:\n%s", want, doc.body)
		}
	}
	for _, banned := range []string{"site banner", "var x", "copyright", ".x{}"} {
		if strings.Contains(doc.body, banned) {
			t.Errorf("body contains %q:\n%s", banned, doc.body)
		}
	}
}

func TestTidy(t *testing.T) {
	in := "  a  \n\n\n\nb\n   \nc   \n"
	want := "a\n\nb\n\nc"
	if got := tidy(in); got != want {
		t.Errorf("tidy = %q, want %q", got, want)
	}
}
