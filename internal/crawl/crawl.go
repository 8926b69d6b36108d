// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package crawl fetches a documentation site breadth-first and writes
// each page as Markdown with YAML front matter for the corpus indexer.
// Implements: prd007-crawler (R1-R6);
//
//	docs/ARCHITECTURE § Crawler.
package crawl

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/answer-engine/internal/httputil"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// Summary holds counts from one crawl run.
type Summary struct {
	Fetched int
	Failed  int
}

// Total returns the number of pages attempted.
func (s Summary) Total() int {
	return s.Fetched + s.Failed
}

// Crawler walks a documentation site breadth-first, staying on the
// start page's host and path prefix.
type Crawler struct {
	client *http.Client
	cfg    types.CrawlConfig
	w      io.Writer
}

// New builds a Crawler. Zero config fields take defaults.
func New(cfg types.CrawlConfig, w io.Writer) *Crawler {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 1
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 200
	}
	if cfg.RequestDelay <= 0 {
		cfg.RequestDelay = time.Second
	}
	if cfg.PagesDir == "" {
		cfg.PagesDir = filepath.Join("corpus", "pages")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "answer-engine/0.1"
	}
	if w == nil {
		w = io.Discard
	}
	return &Crawler{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		w:      w,
	}
}

type queueItem struct {
	url   *url.URL
	depth int
}

// Crawl fetches pages breadth-first from startURL, following internal
// links up to MaxDepth hops and MaxPages pages. Each fetched page is
// written to the pages directory; individual fetch failures are
// reported and skipped, the crawl continues.
func (c *Crawler) Crawl(ctx context.Context, startURL string) (Summary, error) {
	base, err := url.Parse(startURL)
	if err != nil {
		return Summary{}, fmt.Errorf("parsing start URL %q: %w", startURL, err)
	}
	normalizeURL(base)
	if base.Scheme != "http" && base.Scheme != "https" {
		return Summary{}, fmt.Errorf("start URL %q must be http or https", startURL)
	}

	if err := os.MkdirAll(c.cfg.PagesDir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("creating pages directory: %w", err)
	}

	var summary Summary
	queue := []queueItem{{url: base, depth: 0}}
	visited := map[string]bool{base.String(): true}

	for len(queue) > 0 && summary.Total() < c.cfg.MaxPages {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		item := queue[0]
		queue = queue[1:]

		if summary.Total() > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(c.cfg.RequestDelay):
			}
		}

		fmt.Fprintf(c.w, "fetching %s (depth %d)\n", item.url, item.depth)

		doc, err := c.fetch(ctx, item.url)
		if err != nil {
			fmt.Fprintf(c.w, "failed  %s: %v\n", item.url, err)
			summary.Failed++
			continue
		}

		page := types.Page{
			ID:        pageID(item.url),
			URL:       item.url.String(),
			Title:     doc.title,
			Depth:     item.depth,
			FetchedAt: time.Now().UTC(),
		}
		if err := c.writePage(page, doc.body); err != nil {
			fmt.Fprintf(c.w, "failed  %s: %v\n", item.url, err)
			summary.Failed++
			continue
		}
		summary.Fetched++

		if item.depth >= c.cfg.MaxDepth {
			continue
		}

		for _, href := range doc.links {
			link, err := item.url.Parse(href)
			if err != nil {
				continue
			}
			normalizeURL(link)
			if !isInternal(base, link) || visited[link.String()] {
				continue
			}
			visited[link.String()] = true
			queue = append(queue, queueItem{url: link, depth: item.depth + 1})
		}
	}

	fmt.Fprintf(c.w, "\nfetched: %d, failed: %d\n", summary.Fetched, summary.Failed)
	return summary, nil
}

func (c *Crawler) fetch(ctx context.Context, u *url.URL) (pageDoc, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return pageDoc{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := httputil.DoWithRetry(ctx, c.client, req, 0)
	if err != nil {
		return pageDoc{}, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return pageDoc{}, fmt.Errorf("HTTP %d from %s", resp.StatusCode, u)
	}

	return parsePage(resp.Body)
}

// writePage writes one page file: YAML front matter, then the extracted
// Markdown body. A temp file rename keeps partial writes out of the
// pages directory.
func (c *Crawler) writePage(page types.Page, body string) error {
	meta, err := yaml.Marshal(&page)
	if err != nil {
		return fmt.Errorf("marshaling front matter: %w", err)
	}

	destPath := filepath.Join(c.cfg.PagesDir, page.ID+".md")
	tmpFile, err := os.CreateTemp(c.cfg.PagesDir, ".crawl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := fmt.Fprintf(tmpFile, "---\n%s---\n%s\n", meta, body)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing page: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
