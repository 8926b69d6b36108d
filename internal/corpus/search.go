// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/answer-engine/internal/retrieve"
)

// Name identifies the store as the corpus retrieval port.
func (s *Store) Name() string {
	return "corpus"
}

// Search runs a full-text query over indexed passages and returns up to
// k results ordered by relevance. Query text is reduced to bare terms
// with OR semantics before matching; a query with no indexable terms
// returns no results.
func (s *Store) Search(ctx context.Context, queryText string, k int) ([]retrieve.Result, error) {
	if k <= 0 || k > s.maxResults {
		k = s.maxResults
	}

	match := ftsQuery(queryText)
	if match == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT p.content, pg.url, passages_fts.rank
		FROM passages_fts
		JOIN passages p ON p.rowid = passages_fts.rowid
		JOIN pages pg ON p.page_id = pg.id
		WHERE passages_fts MATCH ?
		ORDER BY passages_fts.rank
		LIMIT ?`,
		match, k,
	)
	if err != nil {
		return nil, fmt.Errorf("querying corpus: %w", err)
	}
	defer rows.Close()

	var results []retrieve.Result
	for rows.Next() {
		var (
			passage string
			url     string
			rank    float64
		)
		if err := rows.Scan(&passage, &url, &rank); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		results = append(results, retrieve.Result{
			Passage:  passage,
			SourceID: url,
			Score:    rankScore(rank),
		})
	}

	return results, rows.Err()
}

// rankScore maps the bm25 rank (more negative is better) onto (0, 1],
// the score range evidence items carry.
func rankScore(rank float64) float64 {
	raw := -rank
	if raw <= 0 {
		return 0.01
	}
	return raw / (raw + 1)
}

// ftsQuery reduces free text to a safe FTS5 match expression: bare
// alphanumeric terms, quoted, joined with OR. Operators and punctuation
// in user queries must never reach the FTS parser.
func ftsQuery(text string) string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})

	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		terms = append(terms, `"`+f+`"`)
	}
	return strings.Join(terms, " OR ")
}
