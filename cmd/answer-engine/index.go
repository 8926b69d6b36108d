package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/answer-engine/internal/corpus"
	"github.com/pdiddy/answer-engine/pkg/types"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the corpus index from crawled pages",
	Long: `Index reads crawled page files from the pages directory, chunks each
page into heading-delimited passages, and ingests them into a SQLite
database with FTS5 indexing. Unchanged pages are skipped on subsequent
runs.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().String("pages-dir", "", "directory of crawled pages (default corpus/pages)")
	indexCmd.Flags().String("index-dir", "", "directory for the SQLite index (default corpus/index)")

	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	store, err := corpus.NewStore(corpusConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(cmd.Context(), os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d page(s) failed indexing", summary.Failed)
	}
	return nil
}

// corpusConfig resolves corpus settings from flags, then config, then
// package defaults.
func corpusConfig(cmd *cobra.Command) types.CorpusConfig {
	pagesDir, _ := cmd.Flags().GetString("pages-dir")
	if pagesDir == "" {
		pagesDir = viper.GetString("corpus.pages_dir")
	}
	indexDir, _ := cmd.Flags().GetString("index-dir")
	if indexDir == "" {
		indexDir = viper.GetString("corpus.index_dir")
	}

	return types.CorpusConfig{
		PagesDir:   pagesDir,
		IndexDir:   indexDir,
		MaxResults: viper.GetInt("corpus.max_results"),
	}
}
