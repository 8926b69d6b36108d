package types

import (
	"fmt"
	"time"
)

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "answer-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// CrawlConfig holds settings for the documentation crawler.
type CrawlConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxDepth is how many link hops to follow from the start page (default 1).
	MaxDepth int `json:"max_depth" yaml:"max_depth"`

	// MaxPages caps the number of pages fetched in one run (default 200).
	MaxPages int `json:"max_pages" yaml:"max_pages"`

	// RequestDelay is the pause between consecutive fetches (default 1s).
	RequestDelay time.Duration `json:"request_delay" yaml:"request_delay"`

	// PagesDir is where crawled pages are written (default "corpus/pages").
	PagesDir string `json:"pages_dir" yaml:"pages_dir"`
}

// CorpusConfig holds settings for the passage index.
type CorpusConfig struct {
	// PagesDir is where crawled pages are read from (default "corpus/pages").
	PagesDir string `json:"pages_dir" yaml:"pages_dir"`

	// IndexDir is where the SQLite index lives (default "corpus/index").
	IndexDir string `json:"index_dir" yaml:"index_dir"`

	// MaxResults is the default maximum number of search results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// GenerationConfig holds settings for the generation backend.
type GenerationConfig struct {
	// BaseURL is the Ollama API address (default "http://127.0.0.1:11434").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Model is the model identifier (default "qwen2.5").
	Model string `json:"model" yaml:"model"`

	// APIKey is an optional bearer token for deployments behind an
	// authenticating proxy.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of HTTP-level retry attempts on rate
	// limiting (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// OrchestratorConfig holds the pipeline retry and deadline policy.
type OrchestratorConfig struct {
	// RetrievalK is the maximum passage count requested per retrieval
	// (default 5). Retries relax it upward.
	RetrievalK int `json:"retrieval_k" yaml:"retrieval_k"`

	// RetrievalRetryLimit caps retrieval attempts per run (default 2).
	RetrievalRetryLimit int `json:"retrieval_retry_limit" yaml:"retrieval_retry_limit"`

	// RegenerationRetryLimit caps generation attempts per run (default 2).
	RegenerationRetryLimit int `json:"regeneration_retry_limit" yaml:"regeneration_retry_limit"`

	// PortDeadline bounds every retrieval or generation call (default 30s).
	PortDeadline time.Duration `json:"port_deadline" yaml:"port_deadline"`
}

// Validate rejects malformed policy values. Called once at startup;
// violations are fatal there, never per query.
func (c OrchestratorConfig) Validate() error {
	if c.RetrievalK <= 0 {
		return fmt.Errorf("retrieval_k must be positive, got %d", c.RetrievalK)
	}
	if c.RetrievalRetryLimit <= 0 {
		return fmt.Errorf("retrieval_retry_limit must be positive, got %d", c.RetrievalRetryLimit)
	}
	if c.RegenerationRetryLimit <= 0 {
		return fmt.Errorf("regeneration_retry_limit must be positive, got %d", c.RegenerationRetryLimit)
	}
	if c.PortDeadline <= 0 {
		return fmt.Errorf("port_deadline must be positive, got %v", c.PortDeadline)
	}
	return nil
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Crawl        CrawlConfig        `json:"crawl" yaml:"crawl"`
	Corpus       CorpusConfig       `json:"corpus" yaml:"corpus"`
	Generation   GenerationConfig   `json:"generation" yaml:"generation"`
	Orchestrator OrchestratorConfig `json:"orchestrator" yaml:"orchestrator"`
}
