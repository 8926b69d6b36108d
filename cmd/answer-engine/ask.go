// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/answer-engine/internal/corpus"
	"github.com/pdiddy/answer-engine/internal/generate"
	"github.com/pdiddy/answer-engine/internal/grade"
	"github.com/pdiddy/answer-engine/internal/ollama"
	"github.com/pdiddy/answer-engine/internal/pipeline"
	"github.com/pdiddy/answer-engine/internal/retrieve"
	"github.com/pdiddy/answer-engine/internal/router"
	"github.com/pdiddy/answer-engine/pkg/types"
)

var askCmd = &cobra.Command{
	Use:   "ask [question...]",
	Short: "Answer a question from the indexed corpus",
	Long: `Ask runs one question through the full pipeline: the router decides
how to handle it, relevant passages are retrieved from the corpus, a
draft answer is generated, and the draft is checked for grounding in
the retrieved evidence and for actually addressing the question before
it is shown. Answers that fail the checks within the retry budget come
back as a warning instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().String("base-url", "", "Ollama API address (default http://127.0.0.1:11434)")
	askCmd.Flags().String("model", "", "model identifier (default qwen2.5)")
	askCmd.Flags().Int("k", 0, "passages to retrieve per attempt (default 5)")
	askCmd.Flags().Duration("port-deadline", 0, "deadline per model or corpus call (default 30s)")
	askCmd.Flags().String("pages-dir", "", "directory of crawled pages (default corpus/pages)")
	askCmd.Flags().String("index-dir", "", "directory for the SQLite index (default corpus/index)")
	askCmd.Flags().Bool("verbose", false, "print stage progress and the run report to stderr")

	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")

	ocfg := orchestratorConfig(cmd)
	if err := ocfg.Validate(); err != nil {
		return fmt.Errorf("invalid pipeline config: %w", err)
	}

	gcfg := generationConfig(cmd)
	backend := ollama.New(gcfg)
	if err := backend.CheckRunning(cmd.Context()); err != nil {
		return err
	}

	store, err := corpus.NewStore(corpusConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	var progress io.Writer
	if verbose {
		progress = os.Stderr
	}

	orch := pipeline.New(
		router.New(backend),
		retrieve.NewStage(store),
		generate.NewDrafter(backend),
		grade.New(backend),
		ocfg,
		progress,
	)

	q := types.NewQuery(strings.Join(args, " "))
	result, report := orch.Run(cmd.Context(), q)

	if verbose {
		data, err := yaml.Marshal(report)
		if err == nil {
			fmt.Fprintf(os.Stderr, "---\n%s", data)
		}
	}

	return renderResult(os.Stdout, result)
}

// renderResult prints a terminal pipeline result. Infra failures return
// an error so the process exits non-zero; quality warnings and
// clarification requests are normal output.
func renderResult(w io.Writer, result types.PipelineResult) error {
	switch result.Kind {
	case types.ResultAnswered:
		fmt.Fprintln(w, result.Text)
		if len(result.Sources) > 0 {
			fmt.Fprintln(w, "\nSources:")
			for _, src := range result.Sources {
				fmt.Fprintf(w, "  - %s\n", src)
			}
		}
		return nil

	case types.ResultClarification:
		fmt.Fprintln(w, result.Text)
		return nil

	case types.ResultWarning:
		if result.Failure == types.FailureInfra {
			return fmt.Errorf("%s: %s", result.Text, result.Reason)
		}
		fmt.Fprintf(w, "warning: %s\n", result.Text)
		if result.Reason != "" {
			fmt.Fprintf(w, "  %s\n", result.Reason)
		}
		return nil

	default:
		return fmt.Errorf("unexpected result kind %q", result.Kind)
	}
}

func generationConfig(cmd *cobra.Command) types.GenerationConfig {
	baseURL, _ := cmd.Flags().GetString("base-url")
	if baseURL == "" {
		baseURL = viper.GetString("generation.base_url")
	}
	model, _ := cmd.Flags().GetString("model")
	if model == "" {
		model = viper.GetString("generation.model")
	}

	return types.GenerationConfig{
		BaseURL:    baseURL,
		Model:      model,
		APIKey:     secretDefault("generation-api-key", viper.GetString("generation.api_key")),
		MaxRetries: viper.GetInt("generation.max_retries"),
	}
}

func orchestratorConfig(cmd *cobra.Command) types.OrchestratorConfig {
	k, _ := cmd.Flags().GetInt("k")
	if k == 0 {
		k = viper.GetInt("orchestrator.retrieval_k")
	}
	if k == 0 {
		k = 5
	}

	retryLimit := viper.GetInt("orchestrator.retrieval_retry_limit")
	if retryLimit == 0 {
		retryLimit = 2
	}
	regenLimit := viper.GetInt("orchestrator.regeneration_retry_limit")
	if regenLimit == 0 {
		regenLimit = 2
	}

	deadline, _ := cmd.Flags().GetDuration("port-deadline")
	if deadline == 0 {
		deadline = viper.GetDuration("orchestrator.port_deadline")
	}
	if deadline == 0 {
		deadline = 30 * time.Second
	}

	return types.OrchestratorConfig{
		RetrievalK:             k,
		RetrievalRetryLimit:    retryLimit,
		RegenerationRetryLimit: regenLimit,
		PortDeadline:           deadline,
	}
}
