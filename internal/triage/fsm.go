package triage

// HasCriticalFlag reports whether any collected red flag belongs to the
// critical list.
func (e *Engine) HasCriticalFlag(s *CaseState) bool {
	for _, rf := range s.Clinical.RedFlags {
		if _, ok := e.critical[rf]; ok {
			return true
		}
	}
	return false
}

// NextPhase computes the phase to present next. The walk is forward-only
// within the path's fixed ordering: the first phase at or after the current
// one whose required slot is still unfilled is re-emitted or entered, and
// Disposition is reached only once every earlier phase is satisfied.
//
// The single exception is EmergencyOverride: a critical red flag observed at
// any phase jumps there immediately, and from there the only exit is
// Disposition.
func (e *Engine) NextPhase(s *CaseState) CasePhase {
	if s.Branch == BranchInformationOnly {
		return s.Phase
	}
	switch s.Phase {
	case PhaseDisposition, PhaseEmergencyOverride:
		return PhaseDisposition
	}
	if e.HasCriticalFlag(s) || s.Clinical.SelfHarmRisk {
		return PhaseEmergencyOverride
	}

	cur := phaseRank(s.Path, s.Phase)
	for i, p := range phaseOrder[s.Path] {
		if i < cur || p == PhaseDisposition {
			continue
		}
		if _, filled := requiredSlotFilled(s, p); !filled {
			return p
		}
	}
	return PhaseDisposition
}

// Advance moves the case to next, enforcing the forward-only invariant. A
// regressing transition is rejected with an InvariantError and the state is
// left untouched.
func Advance(s *CaseState, next CasePhase) error {
	if next == PhaseEmergencyOverride || next == s.Phase {
		s.Phase = next
		return nil
	}
	if phaseRank(s.Path, next) < phaseRank(s.Path, s.Phase) {
		return &InvariantError{CaseID: s.ID, Reason: "phase regression " + string(s.Phase) + " -> " + string(next)}
	}
	s.Phase = next
	return nil
}
