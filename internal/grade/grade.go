// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package grade implements the relevance, grounding, and answer graders.
// Each grader builds a prompt, runs it through the generation port, and
// parses a leading yes/no into a typed verdict. Graders decide, never
// branch: retry and escalation policy belongs to the orchestrator.
// Implements: prd003-grading (R1, R2, R4);
//
//	docs/ARCHITECTURE § Grading.
package grade

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/answer-engine/internal/generate"
	"github.com/pdiddy/answer-engine/pkg/types"
)

const relevancePrompt = `You are a grader assessing whether retrieved documentation passages
contain material sufficient to answer a user question. This is not a
stringent test: if the passages cover the topic of the question, grade
them as sufficient.

Question: %s

Passages:
%s

Answer with 'yes' or 'no' first. If 'no', follow with a short reason.`

const groundingPrompt = `You are a grader assessing whether an answer is grounded in a set of
documentation passages. Review the answer meticulously: every factual
claim must be supported by the passages below. Extra claims not found in
the passages mean the answer is not grounded.

Passages:
%s

Answer to check:
%s

Answer with 'yes' if every claim is supported, or 'no' followed by a
short reason naming an unsupported claim.`

const answerPrompt = `You are a grader assessing whether an answer is useful to resolve a
question. The answer may be faithful to the documentation yet still fail
to address what was asked.

Question: %s

Answer to check:
%s

Answer with 'yes' if the answer addresses the question, or 'no' followed
by a short reason.`

// Grader runs the three grading stages through one generation port.
type Grader struct {
	gen generate.Generator
}

// New returns a Grader backed by gen.
func New(gen generate.Generator) *Grader {
	return &Grader{gen: gen}
}

// Relevance judges whether the bundle, taken as a whole, is sufficient
// to answer the query. Per-item retrieval scores are advisory only; the
// verdict is bundle-level.
func (g *Grader) Relevance(ctx context.Context, q types.Query, bundle types.EvidenceBundle) (types.GradeVerdict, error) {
	prompt := fmt.Sprintf(relevancePrompt, q.Raw, generate.FormatEvidence(bundle))
	return g.run(ctx, types.StageRelevance, prompt)
}

// Grounding judges whether the draft's claims are supported by the
// exact bundle the draft was conditioned on. The caller must never pass
// a draft with an empty bundle; there is nothing to check against.
func (g *Grader) Grounding(ctx context.Context, draft types.DraftAnswer) (types.GradeVerdict, error) {
	if draft.Evidence.Empty() {
		return types.GradeVerdict{}, fmt.Errorf("grounding check requires a non-empty evidence bundle")
	}
	prompt := fmt.Sprintf(groundingPrompt, generate.FormatEvidence(draft.Evidence), draft.Text)
	return g.run(ctx, types.StageGrounding, prompt)
}

// Answer judges responsiveness: whether a grounded draft actually
// answers the question asked.
func (g *Grader) Answer(ctx context.Context, q types.Query, draft types.DraftAnswer) (types.GradeVerdict, error) {
	prompt := fmt.Sprintf(answerPrompt, q.Raw, draft.Text)
	return g.run(ctx, types.StageAnswer, prompt)
}

func (g *Grader) run(ctx context.Context, stage types.GradeStage, prompt string) (types.GradeVerdict, error) {
	reply, err := g.gen.Generate(ctx, prompt)
	if err != nil {
		return types.GradeVerdict{}, fmt.Errorf("%s grading: %w", stage, err)
	}
	return parseVerdict(stage, reply), nil
}

// parseVerdict maps a yes/no reply onto a verdict. An unparseable reply
// fails conservatively: the gates exist to block bad answers, so an
// unreadable grade must not open them.
func parseVerdict(stage types.GradeStage, reply string) types.GradeVerdict {
	trimmed := strings.TrimSpace(reply)
	lower := strings.ToLower(trimmed)

	switch {
	case hasDecisionPrefix(lower, "yes"):
		return types.Pass(stage)
	case hasDecisionPrefix(lower, "no"):
		reason := strings.TrimSpace(strings.TrimLeft(trimmed[2:], ".,:;- \t\n"))
		if reason == "" {
			reason = fmt.Sprintf("%s grader rejected the candidate", stage)
		}
		return types.Fail(stage, reason)
	default:
		return types.Fail(stage, fmt.Sprintf("unparseable grader reply: %.80s", trimmed))
	}
}

// hasDecisionPrefix reports whether s starts with word followed by a
// boundary, so "note" does not read as "no".
func hasDecisionPrefix(s, word string) bool {
	if !strings.HasPrefix(s, word) {
		return false
	}
	if len(s) == len(word) {
		return true
	}
	next := s[len(word)]
	return next == ' ' || next == '.' || next == ',' || next == ':' || next == ';' || next == '\n' || next == '-' || next == '!'
}
