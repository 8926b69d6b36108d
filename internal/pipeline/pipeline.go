// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences the query pipeline: routing, retrieval,
// evidence grading, generation, grounding, and answer grading. The
// orchestrator owns every state transition; the stages it calls are
// pure decision functions that return typed verdicts and never branch
// control flow themselves.
// Implements: prd005-orchestration (R1-R7);
//
//	docs/ARCHITECTURE § Orchestration.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/answer-engine/internal/generate"
	"github.com/pdiddy/answer-engine/internal/retrieve"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// Stage names the orchestrator states.
type Stage string

const (
	StageRouting           Stage = "routing"
	StageRetrieving        Stage = "retrieving"
	StageGradingEvidence   Stage = "grading_evidence"
	StageGenerating        Stage = "generating"
	StageCheckingGrounding Stage = "checking_grounding"
	StageGradingAnswer     Stage = "grading_answer"
	StageTerminal          Stage = "terminal"
)

// Router assigns a handling mode to a query.
type Router interface {
	Route(ctx context.Context, q types.Query) types.RouteDecision
}

// Retriever produces an evidence bundle for a query.
type Retriever interface {
	Retrieve(ctx context.Context, q types.Query, k int) (types.EvidenceBundle, error)
}

// Drafter generates one answer attempt conditioned on a bundle.
type Drafter interface {
	Draft(ctx context.Context, q types.Query, bundle types.EvidenceBundle, attempt int) (types.DraftAnswer, error)
}

// Grader runs the three grading stages.
type Grader interface {
	Relevance(ctx context.Context, q types.Query, bundle types.EvidenceBundle) (types.GradeVerdict, error)
	Grounding(ctx context.Context, draft types.DraftAnswer) (types.GradeVerdict, error)
	Answer(ctx context.Context, q types.Query, draft types.DraftAnswer) (types.GradeVerdict, error)
}

// runState is the orchestrator's working record for one query. Owned
// exclusively by one Run invocation; never shared or persisted. It holds
// at most one current bundle and one current draft; prior attempts feed
// only the counters and the diagnostics report.
type runState struct {
	stage Stage
	route types.RouteDecision

	// k is the current retrieval width; relaxed on retries.
	k int

	// retrievalAttempts counts retrieval calls made, including ones
	// whose bundle was later rejected by the relevance grader. The two
	// cases share one budget.
	retrievalAttempts int

	// generationAttempts counts drafts produced. Grounding and answer
	// failures share this budget.
	generationAttempts int

	// portRetried records the single permitted retry of a failed
	// generation call.
	portRetried bool

	bundle types.EvidenceBundle
	draft  types.DraftAnswer

	report RunReport
}

// RunReport is the diagnostics record of one pipeline run.
type RunReport struct {
	QueryID string              `json:"query_id" yaml:"query_id"`
	Route   types.RouteDecision `json:"route" yaml:"route"`

	RetrievalCalls  int `json:"retrieval_calls" yaml:"retrieval_calls"`
	GenerationCalls int `json:"generation_calls" yaml:"generation_calls"`
	GroundingChecks int `json:"grounding_checks" yaml:"grounding_checks"`
	AnswerChecks    int `json:"answer_checks" yaml:"answer_checks"`

	// Verdicts lists every grading verdict in the order produced.
	Verdicts []types.GradeVerdict `json:"verdicts,omitempty" yaml:"verdicts,omitempty"`
}

// Orchestrator drives one query at a time through the pipeline. Multiple
// queries may run concurrently through the same Orchestrator as long as
// the injected ports are safe for concurrent use; each Run owns its
// state exclusively.
type Orchestrator struct {
	router    Router
	retriever Retriever
	drafter   Drafter
	grader    Grader
	cfg       types.OrchestratorConfig
	w         io.Writer
}

// New builds an Orchestrator. Zero config fields take policy defaults;
// call cfg.Validate() at startup to reject malformed values. w receives
// stage progress lines; pass nil to discard them.
func New(router Router, retriever Retriever, drafter Drafter, grader Grader, cfg types.OrchestratorConfig, w io.Writer) *Orchestrator {
	if cfg.RetrievalK <= 0 {
		cfg.RetrievalK = 5
	}
	if cfg.RetrievalRetryLimit <= 0 {
		cfg.RetrievalRetryLimit = 2
	}
	if cfg.RegenerationRetryLimit <= 0 {
		cfg.RegenerationRetryLimit = 2
	}
	if cfg.PortDeadline <= 0 {
		cfg.PortDeadline = defaultPortDeadline
	}
	if w == nil {
		w = io.Discard
	}
	return &Orchestrator{
		router:    router,
		retriever: retriever,
		drafter:   drafter,
		grader:    grader,
		cfg:       cfg,
		w:         w,
	}
}

const defaultPortDeadline = 30 * time.Second

// Run executes the pipeline for one query and returns its terminal
// result plus the diagnostics report. The result is always well formed;
// port failures surface as warnings, never as returned errors. Every
// path reaches the terminal state within a bounded number of stage
// executions.
func (o *Orchestrator) Run(ctx context.Context, q types.Query) (types.PipelineResult, RunReport) {
	rs := &runState{stage: StageRouting, k: o.cfg.RetrievalK}
	rs.report.QueryID = q.ID

	result := o.run(ctx, q, rs)
	rs.stage = StageTerminal
	fmt.Fprintf(o.w, "stage %s\n", rs.stage)
	fmt.Fprintf(o.w, "run %s: %s\n", q.ID, result.Kind)
	return result, rs.report
}

func (o *Orchestrator) run(ctx context.Context, q types.Query, rs *runState) types.PipelineResult {
	// Structural termination comes from the bounded counters below; the
	// step cap is a backstop that turns a logic regression into a
	// visible infra warning instead of a spin.
	maxSteps := 4 * (o.cfg.RetrievalRetryLimit + o.cfg.RegenerationRetryLimit + 2)

	for step := 0; ; step++ {
		// Cancellation is honored between stages, never mid-call.
		if err := ctx.Err(); err != nil {
			return types.Warning(types.FailureCancelled, "run cancelled", err.Error())
		}
		if step >= maxSteps {
			return types.Warning(types.FailureInfra, "pipeline stage budget exceeded", string(rs.stage))
		}

		fmt.Fprintf(o.w, "stage %s\n", rs.stage)

		switch rs.stage {
		case StageRouting:
			if r := o.stepRouting(ctx, q, rs); r != nil {
				return *r
			}
		case StageRetrieving:
			if r := o.stepRetrieving(ctx, q, rs); r != nil {
				return *r
			}
		case StageGradingEvidence:
			if r := o.stepGradingEvidence(ctx, q, rs); r != nil {
				return *r
			}
		case StageGenerating:
			if r := o.stepGenerating(ctx, q, rs); r != nil {
				return *r
			}
		case StageCheckingGrounding:
			if r := o.stepCheckingGrounding(ctx, q, rs); r != nil {
				return *r
			}
		case StageGradingAnswer:
			if r := o.stepGradingAnswer(ctx, q, rs); r != nil {
				return *r
			}
		default:
			return types.Warning(types.FailureInfra, "unknown pipeline stage", string(rs.stage))
		}
	}
}

func (o *Orchestrator) stepRouting(ctx context.Context, q types.Query, rs *runState) *types.PipelineResult {
	dctx, cancel := context.WithTimeout(ctx, o.cfg.PortDeadline)
	decision := o.router.Route(dctx, q)
	cancel()

	rs.route = decision
	rs.report.Route = decision

	switch decision.Kind {
	case types.RouteRetrieve:
		rs.stage = StageRetrieving
	case types.RouteDirect:
		// Direct answers skip retrieval and run with an empty bundle.
		rs.stage = StageGenerating
	case types.RouteClarify:
		return terminal(types.Clarification(decision.Rationale))
	case types.RouteOutOfScope:
		return terminal(types.Warning(types.FailureQuality, decision.Rationale, "query out of scope"))
	default:
		return terminal(types.Warning(types.FailureInfra, "router produced an unknown decision", string(decision.Kind)))
	}
	return nil
}

func (o *Orchestrator) stepRetrieving(ctx context.Context, q types.Query, rs *runState) *types.PipelineResult {
	dctx, cancel := context.WithTimeout(ctx, o.cfg.PortDeadline)
	bundle, err := o.retriever.Retrieve(dctx, q, rs.k)
	cancel()

	rs.retrievalAttempts++
	rs.report.RetrievalCalls++

	if err != nil {
		// A dead corpus is not retried: the retry budget is reserved
		// for quality issues.
		return terminal(types.Warning(types.FailureInfra, "documentation corpus is unavailable", err.Error()))
	}

	if bundle.Empty() {
		if rs.retrievalAttempts < o.cfg.RetrievalRetryLimit {
			rs.relaxRetrieval()
			return nil
		}
		return terminal(types.Warning(types.FailureQuality, "no evidence found", "retrieval returned no passages"))
	}

	rs.bundle = bundle
	rs.stage = StageGradingEvidence
	return nil
}

func (o *Orchestrator) stepGradingEvidence(ctx context.Context, q types.Query, rs *runState) *types.PipelineResult {
	verdict, err := o.callGrader(ctx, func(dctx context.Context) (types.GradeVerdict, error) {
		return o.grader.Relevance(dctx, q, rs.bundle)
	})
	if err != nil {
		return o.portFailure(rs, StageGradingEvidence, err)
	}

	rs.report.Verdicts = append(rs.report.Verdicts, verdict)

	if verdict.Passed {
		rs.stage = StageGenerating
		return nil
	}

	// Insufficient evidence shares the retrieval budget with the
	// empty-bundle case.
	if rs.retrievalAttempts < o.cfg.RetrievalRetryLimit {
		rs.relaxRetrieval()
		return nil
	}
	return terminal(types.Warning(types.FailureQuality, "retrieved evidence was not relevant to the question", verdict.Reason))
}

func (o *Orchestrator) stepGenerating(ctx context.Context, q types.Query, rs *runState) *types.PipelineResult {
	rs.generationAttempts++

	dctx, cancel := context.WithTimeout(ctx, o.cfg.PortDeadline)
	draft, err := o.drafter.Draft(dctx, q, rs.bundle, rs.generationAttempts)
	cancel()

	rs.report.GenerationCalls++

	if err != nil {
		rs.generationAttempts-- // a failed call is not a quality attempt
		return o.portFailure(rs, StageGenerating, err)
	}

	rs.draft = draft

	// A draft conditioned on nothing has nothing to ground against; the
	// grounding gate only applies to evidence-backed drafts.
	if rs.bundle.Empty() {
		rs.stage = StageGradingAnswer
	} else {
		rs.stage = StageCheckingGrounding
	}
	return nil
}

func (o *Orchestrator) stepCheckingGrounding(ctx context.Context, q types.Query, rs *runState) *types.PipelineResult {
	verdict, err := o.callGrader(ctx, func(dctx context.Context) (types.GradeVerdict, error) {
		return o.grader.Grounding(dctx, rs.draft)
	})
	rs.report.GroundingChecks++
	if err != nil {
		return o.portFailure(rs, StageCheckingGrounding, err)
	}

	rs.report.Verdicts = append(rs.report.Verdicts, verdict)

	if verdict.Passed {
		rs.stage = StageGradingAnswer
		return nil
	}

	// Regenerate with the same bundle; retrieval is not re-invoked for
	// a grounding failure.
	if rs.generationAttempts < o.cfg.RegenerationRetryLimit {
		rs.stage = StageGenerating
		return nil
	}
	return terminal(types.Warning(types.FailureQuality, "could not produce a grounded answer", verdict.Reason))
}

func (o *Orchestrator) stepGradingAnswer(ctx context.Context, q types.Query, rs *runState) *types.PipelineResult {
	verdict, err := o.callGrader(ctx, func(dctx context.Context) (types.GradeVerdict, error) {
		return o.grader.Answer(dctx, q, rs.draft)
	})
	rs.report.AnswerChecks++
	if err != nil {
		return o.portFailure(rs, StageGradingAnswer, err)
	}

	rs.report.Verdicts = append(rs.report.Verdicts, verdict)

	if verdict.Passed {
		return terminal(types.Answered(rs.draft.Text, rs.bundle.SourceIDs()))
	}

	// Non-responsive answers share the regeneration budget with
	// grounding failures.
	if rs.generationAttempts < o.cfg.RegenerationRetryLimit {
		rs.stage = StageGenerating
		return nil
	}
	return terminal(types.Warning(types.FailureQuality, "answer did not address the question", verdict.Reason))
}

// callGrader wraps a grading call with the port deadline.
func (o *Orchestrator) callGrader(ctx context.Context, f func(context.Context) (types.GradeVerdict, error)) (types.GradeVerdict, error) {
	dctx, cancel := context.WithTimeout(ctx, o.cfg.PortDeadline)
	defer cancel()
	return f(dctx)
}

// relaxRetrieval widens k and sends the run back to retrieval.
func (rs *runState) relaxRetrieval() {
	rs.k *= 2
	rs.bundle = types.EvidenceBundle{}
	rs.stage = StageRetrieving
}

// portFailure applies the port-failure policy for generation-backed
// stages: one retry of the failed stage per run, then a terminal infra
// warning carrying the failure class.
func (o *Orchestrator) portFailure(rs *runState, stage Stage, err error) *types.PipelineResult {
	if !rs.portRetried {
		rs.portRetried = true
		rs.stage = stage
		return nil
	}
	return terminal(types.Warning(types.FailureInfra, failureText(err), err.Error()))
}

// failureText names the failure class for operators.
func failureText(err error) string {
	switch {
	case errors.Is(err, retrieve.ErrUnavailable):
		return "documentation corpus is unavailable"
	case errors.Is(err, generate.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "generation timed out"
	case errors.Is(err, generate.ErrUnavailable):
		return "generation backend is unavailable"
	default:
		return "generation failed"
	}
}

func terminal(r types.PipelineResult) *types.PipelineResult {
	return &r
}
