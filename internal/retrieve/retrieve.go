// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieve shapes corpus search results into evidence bundles.
// Implements: prd002-retrieval (R1-R3);
//
//	docs/ARCHITECTURE § Retrieval.
package retrieve

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// Port searches the corpus for passages relevant to a query. The
// production implementation is the SQLite corpus store; tests supply
// mocks. Implementations must be safe for concurrent use by
// independent pipeline runs.
type Port interface {
	Name() string
	Search(ctx context.Context, queryText string, k int) ([]Result, error)
}

// Result is one raw hit from the port, before ranking and shaping.
type Result struct {
	Passage  string
	SourceID string
	Score    float64
}

// ErrUnavailable marks a retrieval port that cannot serve searches
// (corpus missing, index locked, timeout). The orchestrator does not
// retry this failure.
var ErrUnavailable = errors.New("retrieval unavailable")

// Stage invokes the port and produces ordered evidence bundles.
type Stage struct {
	port Port
}

// NewStage returns a Stage backed by port.
func NewStage(port Port) *Stage {
	return &Stage{port: port}
}

// Retrieve searches for up to k passages and shapes them into a bundle
// ordered by descending score, ties kept in original port order. Zero
// results yield an empty bundle with no error; emptiness is an expected
// state the orchestrator handles. Port errors are wrapped in
// ErrUnavailable.
func (s *Stage) Retrieve(ctx context.Context, q types.Query, k int) (types.EvidenceBundle, error) {
	if k <= 0 {
		return types.EvidenceBundle{}, fmt.Errorf("retrieve: k must be positive, got %d", k)
	}

	results, err := s.port.Search(ctx, q.Normalized, k)
	if err != nil {
		return types.EvidenceBundle{}, fmt.Errorf("%s: %w: %v", s.port.Name(), ErrUnavailable, err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}

	items := make([]types.EvidenceItem, 0, len(results))
	for i, r := range results {
		items = append(items, types.EvidenceItem{
			Passage:  r.Passage,
			SourceID: r.SourceID,
			Score:    r.Score,
			Rank:     i + 1,
		})
	}

	return types.EvidenceBundle{Items: items}, nil
}
