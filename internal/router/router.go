// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package router classifies incoming queries into handling modes before
// any retrieval work happens.
// Implements: prd001-routing (R1-R4);
//
//	docs/ARCHITECTURE § Routing.
package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/answer-engine/internal/generate"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// classifyPrompt asks the model for a single routing token. The
// temperature contract lives on the generation backend; the prompt pins
// the output format so routing stays reproducible for a given model.
const classifyPrompt = `You route user questions for a documentation assistant.
Classify the question below into exactly one category and reply with only
that single word, no preamble:

- RETRIEVE: a real question about the product that documentation could answer.
- DIRECT: a greeting or a question about the assistant itself.
- CLARIFY: nonsensical or too vague to act on.
- OUTOFSCOPE: offensive, or clearly unrelated to the product documentation.

Question: %s

Category:`

// greetings are replied to without touching the corpus.
var greetings = map[string]bool{
	"hi": true, "hello": true, "hey": true,
	"thanks": true, "thank you": true,
	"good morning": true, "good afternoon": true, "good evening": true,
}

// blocklist holds terms that route a query out of scope with a polite
// warning. Deliberately short; the model pass catches the long tail.
var blocklist = []string{
	"damn", "shit", "fuck", "bastard", "asshole",
}

// Router assigns a RouteDecision to each query. With a nil Generator it
// runs the rule pass only and defaults to retrieval, which keeps unit
// tests and offline use deterministic.
type Router struct {
	gen generate.Generator
}

// New returns a Router. gen may be nil to disable model classification.
func New(gen generate.Generator) *Router {
	return &Router{gen: gen}
}

// Route classifies the query. It never returns an error: if model
// classification itself fails, the query is routed to Clarify with a
// rationale naming the failure, so no query is ever left unrouted. Given
// the same normalized text and the same backend behavior, the same
// decision is produced.
func (r *Router) Route(ctx context.Context, q types.Query) types.RouteDecision {
	if d, ok := r.ruleRoute(q.Normalized); ok {
		return d
	}

	if r.gen == nil {
		return types.RouteDecision{Kind: types.RouteRetrieve, Rationale: "rule pass: default to retrieval"}
	}

	// Classify over the normalized text so equivalent queries produce
	// identical prompts, and therefore identical decisions.
	reply, err := r.gen.Generate(ctx, fmt.Sprintf(classifyPrompt, q.Normalized))
	if err != nil {
		return types.RouteDecision{
			Kind:      types.RouteClarify,
			Rationale: fmt.Sprintf("classification failed (%v); please rephrase your question", err),
		}
	}

	return parseRouteReply(reply)
}

// ruleRoute handles the cases cheap string inspection can settle.
func (r *Router) ruleRoute(normalized string) (types.RouteDecision, bool) {
	if normalized == "" {
		return types.RouteDecision{
			Kind:      types.RouteClarify,
			Rationale: "the question is empty; please ask something about the documentation",
		}, true
	}

	for _, term := range blocklist {
		if containsWord(normalized, term) {
			return types.RouteDecision{
				Kind:      types.RouteOutOfScope,
				Rationale: "please keep questions respectful; offensive language is not answered",
			}, true
		}
	}

	if greetings[strings.TrimRight(normalized, "!.,")] {
		return types.RouteDecision{Kind: types.RouteDirect, Rationale: "greeting"}, true
	}

	return types.RouteDecision{}, false
}

// containsWord reports whether term appears as a whole word in text.
func containsWord(text, term string) bool {
	for _, f := range strings.Fields(text) {
		if strings.Trim(f, "!.,?;:") == term {
			return true
		}
	}
	return false
}

// parseRouteReply maps the model's token onto a RouteDecision. Anything
// unparseable routes to Clarify rather than silently defaulting.
func parseRouteReply(reply string) types.RouteDecision {
	token := strings.ToUpper(strings.TrimSpace(reply))
	if i := strings.IndexAny(token, " \n\t"); i >= 0 {
		token = token[:i]
	}
	token = strings.Trim(token, ".:")

	switch token {
	case "RETRIEVE", "VECTORSEARCH":
		return types.RouteDecision{Kind: types.RouteRetrieve, Rationale: "model classification"}
	case "DIRECT":
		return types.RouteDecision{Kind: types.RouteDirect, Rationale: "model classification"}
	case "CLARIFY":
		return types.RouteDecision{
			Kind:      types.RouteClarify,
			Rationale: "the question was unclear; please rephrase it",
		}
	case "OUTOFSCOPE":
		return types.RouteDecision{
			Kind:      types.RouteOutOfScope,
			Rationale: "the question is outside the scope of this documentation",
		}
	default:
		return types.RouteDecision{
			Kind:      types.RouteClarify,
			Rationale: fmt.Sprintf("unrecognized routing reply %q; please rephrase your question", token),
		}
	}
}
