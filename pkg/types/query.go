// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the value types shared across pipeline stages.
//
// See docs/ARCHITECTURE.md § Pipeline Interface, § Data Structures.
package types

import (
	"strings"

	"github.com/google/uuid"
)

// Query is one user question flowing through the pipeline. It is created
// once per request and never mutated.
type Query struct {
	// ID is the correlation identifier for this pipeline run.
	ID string `json:"id" yaml:"id"`

	// Raw is the question text exactly as submitted.
	Raw string `json:"raw" yaml:"raw"`

	// Normalized is the lowercased, whitespace-collapsed form of Raw.
	// Routing and retrieval operate on this form so that equivalent
	// questions take identical paths.
	Normalized string `json:"normalized" yaml:"normalized"`
}

// NewQuery builds a Query with a fresh correlation ID.
func NewQuery(raw string) Query {
	return Query{
		ID:         uuid.NewString(),
		Raw:        raw,
		Normalized: NormalizeQuery(raw),
	}
}

// NormalizeQuery lowercases the text and collapses runs of whitespace
// into single spaces.
func NormalizeQuery(raw string) string {
	return strings.ToLower(strings.Join(strings.Fields(raw), " "))
}

// IsEmpty reports whether the query carries no searchable text.
func (q Query) IsEmpty() bool {
	return q.Normalized == ""
}
