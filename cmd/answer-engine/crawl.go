package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/answer-engine/internal/crawl"
	"github.com/pdiddy/answer-engine/pkg/types"
)

const defaultUserAgent = "answer-engine/0.1"

var crawlCmd = &cobra.Command{
	Use:   "crawl [start-url]",
	Short: "Fetch a documentation site into the pages directory",
	Long: `Crawl walks a documentation site breadth-first from the start URL,
staying on the same host and path prefix. Each fetched page is written
as Markdown with YAML front matter, ready for indexing.`,
	Args: cobra.ExactArgs(1),
	RunE: runCrawl,
}

func init() {
	crawlCmd.Flags().Int("max-depth", 0, "link hops to follow from the start page (default 1)")
	crawlCmd.Flags().Int("max-pages", 0, "page cap for one run (default 200)")
	crawlCmd.Flags().Duration("delay", 0, "pause between consecutive fetches (default 1s)")
	crawlCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 30s)")
	crawlCmd.Flags().String("pages-dir", "", "directory for crawled pages (default corpus/pages)")

	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	maxDepth, _ := cmd.Flags().GetInt("max-depth")
	if maxDepth == 0 {
		maxDepth = viper.GetInt("crawl.max_depth")
	}
	maxPages, _ := cmd.Flags().GetInt("max-pages")
	if maxPages == 0 {
		maxPages = viper.GetInt("crawl.max_pages")
	}
	delay, _ := cmd.Flags().GetDuration("delay")
	if delay == 0 {
		delay = viper.GetDuration("crawl.request_delay")
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")
	pagesDir, _ := cmd.Flags().GetString("pages-dir")
	if pagesDir == "" {
		pagesDir = viper.GetString("crawl.pages_dir")
	}
	if pagesDir == "" {
		pagesDir = filepath.Join("corpus", "pages")
	}

	cfg := types.CrawlConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		MaxDepth:     maxDepth,
		MaxPages:     maxPages,
		RequestDelay: delay,
		PagesDir:     pagesDir,
	}

	summary, err := crawl.New(cfg, os.Stdout).Crawl(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d page(s) failed", summary.Failed)
	}
	return nil
}
