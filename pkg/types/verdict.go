// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// GradeStage identifies which grading stage produced a verdict.
type GradeStage string

const (
	StageRelevance GradeStage = "relevance"
	StageGrounding GradeStage = "grounding"
	StageAnswer    GradeStage = "answer"
)

// GradeVerdict is a pass/fail classification from a grading stage. The
// same shape is produced by the relevance grader, the grounding checker,
// and the answer grader; Stage records the origin for diagnostics.
type GradeVerdict struct {
	Stage  GradeStage `json:"stage" yaml:"stage"`
	Passed bool       `json:"passed" yaml:"passed"`

	// Reason explains a failure. Empty on pass.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Pass builds a passing verdict for the given stage.
func Pass(stage GradeStage) GradeVerdict {
	return GradeVerdict{Stage: stage, Passed: true}
}

// Fail builds a failing verdict with a reason.
func Fail(stage GradeStage, reason string) GradeVerdict {
	return GradeVerdict{Stage: stage, Passed: false, Reason: reason}
}

func (v GradeVerdict) String() string {
	if v.Passed {
		return fmt.Sprintf("%s: pass", v.Stage)
	}
	return fmt.Sprintf("%s: fail (%s)", v.Stage, v.Reason)
}

// DraftAnswer is one generated answer attempt together with the exact
// evidence it was conditioned on. Retries produce a new DraftAnswer
// rather than patching the old one.
type DraftAnswer struct {
	// Text is the generated answer.
	Text string `json:"text" yaml:"text"`

	// Evidence is the bundle the generation prompt was built from. The
	// grounding check compares Text against this bundle, never a newer one.
	Evidence EvidenceBundle `json:"evidence" yaml:"evidence"`

	// Attempt is the 1-based generation attempt number within the run.
	Attempt int `json:"attempt" yaml:"attempt"`
}
