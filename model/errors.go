package model

import (
	"errors"
	"fmt"
)

var (
	// ErrStructuralViolation indicates a write the schema does not allow.
	ErrStructuralViolation = errors.New("structural violation")
	// ErrPostfixDiverged indicates postfixers kept producing changes past the pass limit.
	ErrPostfixDiverged = errors.New("postfixers did not converge")
	// ErrDetached indicates an operation on a node that is not part of the document.
	ErrDetached = errors.New("node is not attached to the document")
)

// StructuralViolationError describes a rejected write.
type StructuralViolationError struct {
	Parent string
	Mark   string
	Reason string
}

func (e *StructuralViolationError) Error() string {
	if e.Mark != "" {
		return fmt.Sprintf("%s: mark %q in %q: %s", ErrStructuralViolation, e.Mark, e.Parent, e.Reason)
	}
	return fmt.Sprintf("%s: in %q: %s", ErrStructuralViolation, e.Parent, e.Reason)
}

func (e *StructuralViolationError) Unwrap() error {
	return ErrStructuralViolation
}
