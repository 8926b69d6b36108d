// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// RouteKind is the handling mode the Router assigns to a query.
type RouteKind string

const (
	// RouteDirect marks a query answerable without corpus retrieval
	// (greetings, questions about the assistant itself).
	RouteDirect RouteKind = "direct_answer"

	// RouteRetrieve marks a query that needs corpus evidence.
	RouteRetrieve RouteKind = "retrieve"

	// RouteClarify marks a query too unclear to answer as asked.
	RouteClarify RouteKind = "clarify"

	// RouteOutOfScope marks a query the pipeline declines to handle.
	RouteOutOfScope RouteKind = "out_of_scope"
)

// RouteDecision is the Router's verdict for one query. Produced once per
// query; the orchestrator uses it to pick the first pipeline state.
type RouteDecision struct {
	Kind RouteKind `json:"kind" yaml:"kind"`

	// Rationale explains the decision. For RouteClarify it doubles as
	// the clarification prompt shown to the user.
	Rationale string `json:"rationale,omitempty" yaml:"rationale,omitempty"`
}
