package linkit

import "github.com/rgonek/linkit/model"

// Outcome tells the UI layer what a request did.
type Outcome string

const (
	OutcomeApplied  Outcome = "applied"
	OutcomeNoOp     Outcome = "noop"
	OutcomeDisabled Outcome = "disabled"
	OutcomePending  Outcome = "pending"
)

// Result holds the outcome of an editor request.
type Result struct {
	Outcome  Outcome     `json:"outcome"`
	Warnings []Warning   `json:"warnings,omitempty"`
	Batch    model.Batch `json:"-"`
}

// WarningType categorizes recovered failures.
type WarningType string

const (
	WarningStructuralViolation WarningType = "structural_violation"
	WarningStaleSelection      WarningType = "stale_selection"
	WarningMalformedIdentity   WarningType = "malformed_identity"
	WarningNoOp                WarningType = "noop"
	WarningDuplicateCompletion WarningType = "duplicate_completion"
	WarningPostfixDiverged     WarningType = "postfix_diverged"
)

// Warning represents a failure that was recovered where it was detected.
type Warning struct {
	Type     WarningType `json:"type"`
	NodeType string      `json:"nodeType,omitempty"`
	Message  string      `json:"message"`
}

// Changed reports whether the request modified the document.
func (r Result) Changed() bool {
	return !r.Batch.IsEmpty()
}
