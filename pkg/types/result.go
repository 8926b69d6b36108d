// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ResultKind tags the terminal outcome of a pipeline run.
type ResultKind string

const (
	// ResultAnswered carries a validated answer with its source references.
	ResultAnswered ResultKind = "answered"

	// ResultWarning carries an explicit failure: the pipeline could not
	// produce a validated answer.
	ResultWarning ResultKind = "warning"

	// ResultClarification asks the user to restate the question.
	ResultClarification ResultKind = "clarification_requested"
)

// FailureClass distinguishes warning causes so operators can tell
// infrastructure outages from model quality issues.
type FailureClass string

const (
	// FailureQuality marks exhausted retry budgets on grading or
	// grounding verdicts.
	FailureQuality FailureClass = "quality"

	// FailureInfra marks port-level failures: retrieval or generation
	// unavailable, or a port call deadline exceeded.
	FailureInfra FailureClass = "infra"

	// FailureCancelled marks a run cancelled by its owner between stages.
	FailureCancelled FailureClass = "cancelled"
)

// PipelineResult is the single terminal output of a pipeline run, handed
// to the UI layer. Exactly one is produced per query; it is immutable
// once constructed.
type PipelineResult struct {
	Kind ResultKind `json:"kind" yaml:"kind"`

	// Text is the answer text (ResultAnswered), the warning message
	// (ResultWarning), or the clarification prompt (ResultClarification).
	Text string `json:"text" yaml:"text"`

	// Sources lists the evidence source identifiers backing an answer.
	Sources []string `json:"sources,omitempty" yaml:"sources,omitempty"`

	// Reason carries the underlying cause of a warning.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// Failure classifies a warning. Empty for other kinds.
	Failure FailureClass `json:"failure,omitempty" yaml:"failure,omitempty"`
}

// Answered builds the success result.
func Answered(text string, sources []string) PipelineResult {
	return PipelineResult{Kind: ResultAnswered, Text: text, Sources: sources}
}

// Warning builds a failure result with the given class and cause.
func Warning(class FailureClass, text, reason string) PipelineResult {
	return PipelineResult{Kind: ResultWarning, Text: text, Reason: reason, Failure: class}
}

// Clarification builds a request for the user to restate the question.
func Clarification(prompt string) PipelineResult {
	return PipelineResult{Kind: ResultClarification, Text: prompt}
}
