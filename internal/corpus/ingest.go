// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// IngestSummary holds counts from a corpus indexing run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of pages processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Ingest reads crawled page files from the pages directory, chunks each
// body into heading-delimited passages, and populates the database. It
// detects new, changed, and unchanged files for incremental updates.
func (s *Store) Ingest(ctx context.Context, w io.Writer) (IngestSummary, error) {
	entries, err := os.ReadDir(s.pagesDir)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("reading pages directory %s: %w", s.pagesDir, err)
	}

	var summary IngestSummary

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		pageID := strings.TrimSuffix(entry.Name(), ".md")
		filePath := filepath.Join(s.pagesDir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", pageID, err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		// Unchanged files are skipped.
		var storedModTime string
		err = s.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM indexing_status WHERE page_id = ?`, pageID,
		).Scan(&storedModTime)

		if err == nil && storedModTime == modTime {
			fmt.Fprintf(w, "skipped %s\n", pageID)
			summary.Skipped++
			continue
		}

		isUpdate := err == nil

		page, body, err := readPageFile(filePath)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", pageID, err)
			summary.Failed++
			continue
		}
		if page.ID == "" {
			page.ID = pageID
		}

		passages := chunkByHeadings(body)
		if err := s.ingestPage(ctx, page, passages, modTime, isUpdate); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", pageID, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d passages)\n", pageID, len(passages))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s (%d passages)\n", pageID, len(passages))
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)

	return summary, nil
}

func (s *Store) ingestPage(ctx context.Context, page types.Page, passages []passage, modTime string, isUpdate bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if isUpdate {
		if _, err := tx.ExecContext(ctx, `DELETE FROM passages WHERE page_id = ?`, page.ID); err != nil {
			return fmt.Errorf("deleting old passages: %w", err)
		}
	}

	fetchedAt := ""
	if !page.FetchedAt.IsZero() {
		fetchedAt = page.FetchedAt.Format(time.RFC3339)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO pages (id, url, title, depth, fetched_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			url=excluded.url, title=excluded.title, depth=excluded.depth,
			fetched_at=excluded.fetched_at`,
		page.ID, page.URL, page.Title, page.Depth, fetchedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting page: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO passages (id, page_id, heading, content) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range passages {
		id := stableID(page.ID, p.heading, p.content)
		if _, err := stmt.ExecContext(ctx, id, page.ID, p.heading, p.content); err != nil {
			return fmt.Errorf("inserting passage %s: %w", id, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO indexing_status (page_id, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(page_id) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		page.ID, modTime,
	)
	if err != nil {
		return fmt.Errorf("updating indexing status: %w", err)
	}

	return tx.Commit()
}

const frontMatterDelim = "---\n"

// readPageFile splits a crawled page file into its YAML front matter and
// Markdown body.
func readPageFile(path string) (types.Page, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Page{}, "", fmt.Errorf("reading page: %w", err)
	}

	text := string(data)
	if !strings.HasPrefix(text, frontMatterDelim) {
		return types.Page{}, "", fmt.Errorf("page %s has no front matter", path)
	}
	rest := text[len(frontMatterDelim):]
	end := strings.Index(rest, "\n"+frontMatterDelim)
	if end < 0 {
		return types.Page{}, "", fmt.Errorf("page %s has unterminated front matter", path)
	}

	var page types.Page
	if err := yaml.Unmarshal([]byte(rest[:end]), &page); err != nil {
		return types.Page{}, "", fmt.Errorf("parsing front matter: %w", err)
	}

	body := rest[end+len(frontMatterDelim)+1:]
	return page, body, nil
}

// passage is one heading-delimited chunk of a page body.
type passage struct {
	heading string
	content string
}

// chunkByHeadings splits Markdown into passages at #, ## and ###
// headings. Text before the first heading becomes a heading-less
// passage; blank sections are dropped.
func chunkByHeadings(body string) []passage {
	lines := strings.Split(body, "\n")
	var passages []passage
	currentHeading := ""
	var bodyLines []string

	flush := func() {
		content := strings.TrimSpace(strings.Join(bodyLines, "\n"))
		if content != "" {
			passages = append(passages, passage{
				heading: currentHeading,
				content: content,
			})
		}
		bodyLines = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if isHeading(trimmed) {
			flush()
			currentHeading = stripHeadingPrefix(trimmed)
			continue
		}
		bodyLines = append(bodyLines, line)
	}

	flush()
	return passages
}

func isHeading(line string) bool {
	return strings.HasPrefix(line, "# ") ||
		strings.HasPrefix(line, "## ") ||
		strings.HasPrefix(line, "### ")
}

func stripHeadingPrefix(line string) string {
	return strings.TrimSpace(strings.TrimLeft(line, "#"))
}

// stableID derives a deterministic passage identifier so re-ingesting an
// unchanged page produces the same rows.
func stableID(pageID, heading, content string) string {
	h := sha256.New()
	h.Write([]byte(pageID))
	h.Write([]byte(heading))
	h.Write([]byte(content))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}
