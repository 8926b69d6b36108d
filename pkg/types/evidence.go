// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// EvidenceItem is one retrieved passage. Immutable once produced by the
// retriever stage.
type EvidenceItem struct {
	// Passage is the literal text retrieved from the corpus.
	Passage string `json:"passage" yaml:"passage"`

	// SourceID identifies the origin of the passage, typically the URL
	// of the crawled page.
	SourceID string `json:"source_id" yaml:"source_id"`

	// Score is the retrieval relevance score in [0, 1].
	Score float64 `json:"score" yaml:"score"`

	// Rank is the 1-based position in the retrieval ordering.
	Rank int `json:"rank" yaml:"rank"`
}

// EvidenceBundle is the ordered set of passages conditioning one
// generation attempt. Items are sorted by descending score with ties in
// original retrieval order. Owned by a single pipeline run.
type EvidenceBundle struct {
	Items []EvidenceItem `json:"items" yaml:"items"`
}

// Empty reports whether retrieval produced no usable passages. An empty
// bundle is a valid state the orchestrator handles explicitly.
func (b EvidenceBundle) Empty() bool {
	return len(b.Items) == 0
}

// SourceIDs returns the distinct source identifiers in rank order.
func (b EvidenceBundle) SourceIDs() []string {
	seen := make(map[string]bool, len(b.Items))
	var ids []string
	for _, item := range b.Items {
		if item.SourceID == "" || seen[item.SourceID] {
			continue
		}
		seen[item.SourceID] = true
		ids = append(ids, item.SourceID)
	}
	return ids
}
