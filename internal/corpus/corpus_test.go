package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// --- test helpers ---

func testSetup(t *testing.T) (*Store, string) {
	t.Helper()
	tmpDir := t.TempDir()

	pagesDir := filepath.Join(tmpDir, "pages")
	if err := os.MkdirAll(pagesDir, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := types.CorpusConfig{
		PagesDir:   pagesDir,
		IndexDir:   filepath.Join(tmpDir, "index"),
		MaxResults: 20,
	}
	store, err := NewStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return store, pagesDir
}

func writePage(t *testing.T, pagesDir string, page types.Page, body string) {
	t.Helper()
	meta, err := yaml.Marshal(&page)
	if err != nil {
		t.Fatal(err)
	}
	content := "---\n" + string(meta) + "---\n" + body
	path := filepath.Join(pagesDir, page.ID+".md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func samplePage(id string) (types.Page, string) {
	page := types.Page{
		ID:        id,
		URL:       "https://docs.example.com/" + id,
		Title:     "Getting started",
		Depth:     1,
		FetchedAt: time.Now().UTC(),
	}
	body := `# Getting started

Channels organize conversations by topic, project, or team.

## Creating a channel

Click the plus button next to Channels in the sidebar, then choose
Create a channel. Pick a descriptive name.

## Joining a workspace

Accept an invitation email or ask an administrator for an invite link.
`
	return page, body
}

func ingestHelper(t *testing.T, store *Store, pagesDir, pageID string) {
	t.Helper()
	page, body := samplePage(pageID)
	writePage(t, pagesDir, page, body)
	var buf strings.Builder
	if _, err := store.Ingest(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}
}

// --- schema tests ---

func TestNewStoreCreatesSchema(t *testing.T) {
	store, _ := testSetup(t)

	tables := []string{"pages", "passages", "passages_fts", "indexing_status"}
	for _, table := range tables {
		var count int
		err := store.db.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type IN ('table','view') AND name = ?`, table,
		).Scan(&count)
		if err != nil {
			t.Fatalf("checking table %s: %v", table, err)
		}
		if count == 0 {
			t.Errorf("table %s does not exist", table)
		}
	}
}

func TestNewStoreCreatesDBFile(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := types.CorpusConfig{
		PagesDir: filepath.Join(tmpDir, "pages"),
		IndexDir: filepath.Join(tmpDir, "index"),
	}
	store, err := NewStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := os.Stat(filepath.Join(tmpDir, "index", dbFile)); os.IsNotExist(err) {
		t.Error("database file not created")
	}
}

// --- ingest tests ---

func TestIngest(t *testing.T) {
	tests := []struct {
		name        string
		pages       int
		wantIndexed int
	}{
		{"single page", 1, 1},
		{"multiple pages", 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, pagesDir := testSetup(t)

			for i := 0; i < tt.pages; i++ {
				page, body := samplePage(fmt.Sprintf("page-%d", i))
				writePage(t, pagesDir, page, body)
			}

			var buf strings.Builder
			summary, err := store.Ingest(context.Background(), &buf)
			if err != nil {
				t.Fatalf("Ingest: %v", err)
			}
			if summary.Indexed != tt.wantIndexed {
				t.Errorf("Indexed = %d, want %d", summary.Indexed, tt.wantIndexed)
			}
			if summary.Failed != 0 {
				t.Errorf("Failed = %d, want 0; output: %s", summary.Failed, buf.String())
			}
		})
	}
}

func TestIngestChunksByHeadings(t *testing.T) {
	store, pagesDir := testSetup(t)
	ingestHelper(t, store, pagesDir, "chunk-page")

	var count int
	err := store.db.QueryRow(
		`SELECT count(*) FROM passages WHERE page_id = ?`, "chunk-page",
	).Scan(&count)
	if err != nil {
		t.Fatal(err)
	}
	// Intro under "Getting started" plus the two subsections.
	if count != 3 {
		t.Errorf("passages = %d, want 3", count)
	}
}

func TestIngestPopulatesPagesTable(t *testing.T) {
	store, pagesDir := testSetup(t)
	ingestHelper(t, store, pagesDir, "meta-page")

	var url, title string
	err := store.db.QueryRow(
		`SELECT url, title FROM pages WHERE id = ?`, "meta-page",
	).Scan(&url, &title)
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://docs.example.com/meta-page" {
		t.Errorf("url = %q", url)
	}
	if title != "Getting started" {
		t.Errorf("title = %q", title)
	}
}

func TestIngestRejectsMissingFrontMatter(t *testing.T) {
	store, pagesDir := testSetup(t)

	path := filepath.Join(pagesDir, "bare.md")
	if err := os.WriteFile(path, []byte("# No front matter\n\nBody.\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf strings.Builder
	summary, err := store.Ingest(context.Background(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Failed != 1 {
		t.Errorf("Failed = %d, want 1; output: %s", summary.Failed, buf.String())
	}
}

func TestIngestSkipsUnchanged(t *testing.T) {
	store, pagesDir := testSetup(t)
	ingestHelper(t, store, pagesDir, "skip-page")

	var buf strings.Builder
	summary, err := store.Ingest(context.Background(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", summary.Skipped)
	}
	if summary.Indexed != 0 {
		t.Errorf("Indexed = %d, want 0", summary.Indexed)
	}
}

func TestIngestUpdatesChanged(t *testing.T) {
	store, pagesDir := testSetup(t)
	ingestHelper(t, store, pagesDir, "update-page")

	page, _ := samplePage("update-page")
	writePage(t, pagesDir, page, "# Replaced\n\nEntirely new body about notifications.\n")

	path := filepath.Join(pagesDir, "update-page.md")
	future := time.Now().Add(time.Second)
	os.Chtimes(path, future, future)

	var buf strings.Builder
	summary, err := store.Ingest(context.Background(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Updated != 1 {
		t.Errorf("Updated = %d, want 1", summary.Updated)
	}

	// Old passages are replaced, not accumulated.
	var count int
	if err := store.db.QueryRow(
		`SELECT count(*) FROM passages WHERE page_id = ?`, "update-page",
	).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("passages = %d, want 1 after update", count)
	}
}

func TestIngestSummaryTotal(t *testing.T) {
	s := IngestSummary{Indexed: 2, Updated: 1, Skipped: 3, Failed: 1}
	if s.Total() != 7 {
		t.Errorf("Total() = %d, want 7", s.Total())
	}
}

// --- search tests ---

func TestSearch(t *testing.T) {
	store, pagesDir := testSetup(t)
	ingestHelper(t, store, pagesDir, "search-page")

	tests := []struct {
		name    string
		query   string
		wantMin int
	}{
		{"matching term", "channel", 1},
		{"multiple terms", "create a channel", 1},
		{"no match", "quantum entanglement xyzzy", 0},
		{"punctuation only", "???!!!", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := store.Search(context.Background(), tt.query, 10)
			if err != nil {
				t.Fatal(err)
			}
			if len(results) < tt.wantMin {
				t.Errorf("got %d results, want >= %d", len(results), tt.wantMin)
			}
		})
	}
}

func TestSearchResultsCarryURLAndScore(t *testing.T) {
	store, pagesDir := testSetup(t)
	ingestHelper(t, store, pagesDir, "score-page")

	results, err := store.Search(context.Background(), "channel", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	for _, r := range results {
		if r.SourceID != "https://docs.example.com/score-page" {
			t.Errorf("SourceID = %q", r.SourceID)
		}
		if r.Score <= 0 || r.Score > 1 {
			t.Errorf("Score = %f, want in (0, 1]", r.Score)
		}
		if r.Passage == "" {
			t.Error("empty passage")
		}
	}
}

func TestSearchRespectsK(t *testing.T) {
	store, pagesDir := testSetup(t)
	ingestHelper(t, store, pagesDir, "limit-page")

	results, err := store.Search(context.Background(), "channel workspace sidebar", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) > 1 {
		t.Errorf("got %d results, want <= 1", len(results))
	}
}

func TestSearchIgnoresFTSOperators(t *testing.T) {
	store, pagesDir := testSetup(t)
	ingestHelper(t, store, pagesDir, "operator-page")

	// Raw FTS syntax in a user query must not produce a parse error.
	for _, q := range []string{`"unterminated`, `channel AND (`, `col:channel`, `channel*`} {
		if _, err := store.Search(context.Background(), q, 5); err != nil {
			t.Errorf("Search(%q): %v", q, err)
		}
	}
}

func TestName(t *testing.T) {
	store, _ := testSetup(t)
	if store.Name() != "corpus" {
		t.Errorf("Name() = %q", store.Name())
	}
}

// --- chunking and parsing ---

func TestChunkByHeadings(t *testing.T) {
	body := `Intro text before any heading.

## First

First body.

## Second

Second body.

### Nested

Nested body.

## Empty
`
	got := chunkByHeadings(body)
	want := []passage{
		{heading: "", content: "Intro text before any heading."},
		{heading: "First", content: "First body."},
		{heading: "Second", content: "Second body."},
		{heading: "Nested", content: "Nested body."},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d passages, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("passage %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReadPageFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "page.md")
	content := `---
id: abc123
url: https://docs.example.com/start
title: Start here
depth: 0
---
# Start here

Welcome.
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	page, body, err := readPageFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if page.ID != "abc123" || page.URL != "https://docs.example.com/start" {
		t.Errorf("page = %+v", page)
	}
	if !strings.Contains(body, "Welcome.") {
		t.Errorf("body = %q", body)
	}
	if strings.Contains(body, "url:") {
		t.Error("front matter leaked into body")
	}
}

func TestStableID(t *testing.T) {
	a := stableID("page", "heading", "content")
	b := stableID("page", "heading", "content")
	c := stableID("page", "heading", "different")

	if a != b {
		t.Error("same inputs must produce the same id")
	}
	if a == c {
		t.Error("different content must produce a different id")
	}
	if len(a) != 12 {
		t.Errorf("id length = %d, want 12", len(a))
	}
}

func TestFTSQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"how do i create a channel", `"how" OR "do" OR "i" OR "create" OR "a" OR "channel"`},
		{`"quoted" AND (ops)`, `"quoted" OR "AND" OR "ops"`},
		{"???", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ftsQuery(tt.in); got != tt.want {
			t.Errorf("ftsQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
