// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generate defines the generation port and drafts candidate
// answers from a query and its evidence bundle.
// Implements: prd004-generation (R1-R3);
//
//	docs/ARCHITECTURE § Generation.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// Generator executes a prompt against the language model backend. All
// pipeline stages that need model output call through this interface so
// tests can supply deterministic fakes. Implementations must be safe
// for concurrent use by independent pipeline runs.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrUnavailable marks a generation backend that cannot be reached.
var ErrUnavailable = errors.New("generation unavailable")

// ErrTimeout marks a generation call that exceeded its deadline.
var ErrTimeout = errors.New("generation timed out")

// answerPrompt instructs the model to answer only from the supplied
// documentation passages.
const answerPrompt = `You are an assistant for question-answering tasks over product documentation.
Use only the information in the context below to answer the question.
Give a clear, concise answer. If the context does not contain the answer, say so.

Context:
%s

Question: %s

Answer:`

// directPrompt handles queries routed past retrieval: greetings and
// questions about the assistant itself.
const directPrompt = `You are an assistant that answers questions about product documentation.
Reply briefly and politely to the following message. Do not invent facts
about the documentation.

Message: %s

Reply:`

// Drafter produces DraftAnswer values through a Generator.
type Drafter struct {
	gen Generator
}

// NewDrafter returns a Drafter backed by gen.
func NewDrafter(gen Generator) *Drafter {
	return &Drafter{gen: gen}
}

// Draft generates one answer attempt conditioned on the bundle. With an
// empty bundle it falls back to the direct-reply prompt. The attempt
// number is recorded on the draft for diagnostics; each call returns a
// new DraftAnswer, prior attempts are never mutated.
func (d *Drafter) Draft(ctx context.Context, q types.Query, bundle types.EvidenceBundle, attempt int) (types.DraftAnswer, error) {
	var prompt string
	if bundle.Empty() {
		prompt = fmt.Sprintf(directPrompt, q.Raw)
	} else {
		prompt = fmt.Sprintf(answerPrompt, FormatEvidence(bundle), q.Raw)
	}

	text, err := d.gen.Generate(ctx, prompt)
	if err != nil {
		return types.DraftAnswer{}, fmt.Errorf("drafting answer: %w", err)
	}

	return types.DraftAnswer{
		Text:     strings.TrimSpace(text),
		Evidence: bundle,
		Attempt:  attempt,
	}, nil
}

// FormatEvidence renders a bundle as numbered passages with source
// markers, the form both the answer prompt and the grading prompts use.
func FormatEvidence(bundle types.EvidenceBundle) string {
	if bundle.Empty() {
		return "(no passages)"
	}
	var b strings.Builder
	for i, item := range bundle.Items {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] (source: %s)\n%s", item.Rank, item.SourceID, item.Passage)
	}
	return b.String()
}
