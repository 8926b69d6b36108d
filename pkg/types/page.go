// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Page is the metadata record for one crawled documentation page. The
// crawler writes it as YAML front matter on the page file; the corpus
// indexer reads it back when building the retrieval index.
type Page struct {
	// ID is a stable identifier derived from the normalized URL.
	ID string `json:"id" yaml:"id"`

	// URL is the normalized address the page was fetched from.
	URL string `json:"url" yaml:"url"`

	// Title is the HTML document title, if any.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Depth is the link distance from the crawl start page.
	Depth int `json:"depth" yaml:"depth"`

	// FetchedAt records when the page was downloaded.
	FetchedAt time.Time `json:"fetched_at" yaml:"fetched_at"`
}
