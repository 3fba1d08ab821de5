package triage

import "fmt"

// InvariantError marks a rejected mutation: phase regression, a direct
// urgency decrease, or any write against a resolved case. The mutation is
// dropped and the prior state stands.
type InvariantError struct {
	CaseID string
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("case %s: invariant violation: %s", e.CaseID, e.Reason)
}

// NotFoundError is returned by Service operations on an unknown case ID.
type NotFoundError struct {
	CaseID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("case %s not found", e.CaseID)
}
