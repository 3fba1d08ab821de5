package triage

import (
	"fmt"
	"sort"
	"time"

	"github.com/linnemanlabs/navigator/internal/extract"
)

// Merge folds one utterance's extracted slots into the case state. It is
// pure over its inputs: the receiver state is cloned, never mutated. Rules,
// in priority order:
//
//   - a populated scalar slot (age, location, chief complaint, pain, sex,
//     duration) is never overwritten; first write wins for the case's life
//   - red flags and medication/allergy lists are unioned, never replaced
//   - urgency moves to max(current, proposed)
//   - remaining metadata is last-write-wins
//
// Every slot actually written is appended to the slot log.
func Merge(s *CaseState, x extract.Extracted, districtFor func(string) string) *CaseState {
	out := s.Clone()
	now := time.Now()

	record := func(slot, value string) {
		out.SlotLog = append(out.SlotLog, SlotEvent{Turn: out.Turns, Slot: slot, Value: value, At: now})
	}

	if x.Age != nil && out.Patient.Age == nil {
		out.Patient.Age = clonePtr(x.Age)
		record("age", fmt.Sprint(*x.Age))
	}
	if x.Location != "" && out.Patient.Location == "" {
		out.Patient.Location = x.Location
		if districtFor != nil {
			out.Patient.District = districtFor(x.Location)
		}
		record("location", x.Location)
	}
	if x.PainScore != nil && out.Clinical.PainScore == nil {
		out.Clinical.PainScore = clonePtr(x.PainScore)
		record("pain_score", fmt.Sprint(*x.PainScore))
	}
	if x.Duration != nil && out.Clinical.Duration == nil {
		out.Clinical.Duration = clonePtr(x.Duration)
		record("duration", x.Duration.String())
	}
	if x.Pregnant != nil && out.Patient.Pregnant == nil {
		out.Patient.Pregnant = clonePtr(x.Pregnant)
		record("pregnant", fmt.Sprint(*x.Pregnant))
	}
	if len(x.Symptoms) > 0 && out.Clinical.ChiefComplaint == "" {
		out.Clinical.ChiefComplaint = x.Symptoms[0].Canonical
		record("chief_complaint", x.Symptoms[0].Canonical)
	}

	for _, rf := range x.RedFlags {
		if addToSet(&out.Clinical.RedFlags, rf) {
			record("red_flag", rf)
		}
	}
	for _, m := range x.Medications {
		if addToSet(&out.Clinical.Medications, m) {
			record("medication", m)
		}
	}
	for _, a := range x.Allergies {
		if addToSet(&out.Clinical.Allergies, a) {
			record("allergy", a)
		}
	}

	return out
}

// addToSet inserts v keeping the slice sorted and duplicate-free. Reports
// whether v was new.
func addToSet(set *[]string, v string) bool {
	i := sort.SearchStrings(*set, v)
	if i < len(*set) && (*set)[i] == v {
		return false
	}
	*set = append(*set, "")
	copy((*set)[i+1:], (*set)[i:])
	(*set)[i] = v
	return true
}

// RaiseUrgency applies max(current, proposed). A lower proposal is ignored,
// never an error: downgrades are simply not a thing urgency does.
func RaiseUrgency(s *CaseState, proposed int) {
	if proposed > s.Meta.Urgency {
		s.Meta.Urgency = proposed
	}
}

// Completeness describes how much of the path's required slot set is filled.
type Completeness struct {
	Percent    int      `json:"percent"`
	Missing    []string `json:"missing,omitempty"`
	CanProceed bool     `json:"can_proceed"`
}

// requiredSlot names the slot a phase needs before the machine may advance
// past it. Phases whose answer can legitimately be empty (red flags,
// anamnesis, risk assessment) instead require that their question was asked
// and the answer processed.
func requiredSlotFilled(s *CaseState, phase CasePhase) (slot string, filled bool) {
	switch phase {
	case PhaseConsent:
		return "consent", s.Clinical.Consent != nil && *s.Clinical.Consent
	case PhaseLocation:
		return "location", s.Patient.Location != ""
	case PhaseDemographics:
		return "age", s.Patient.Age != nil
	case PhaseChiefComplaint:
		return "chief_complaint", s.Clinical.ChiefComplaint != ""
	case PhasePainScale:
		return "pain_score", s.Clinical.PainScore != nil
	case PhaseRedFlags:
		return "red_flags", s.Answered[PhaseRedFlags] || len(s.Clinical.RedFlags) > 0
	case PhaseRiskAssessment:
		return "risk_assessment", s.Answered[PhaseRiskAssessment]
	case PhaseAnamnesis:
		return "anamnesis", s.Answered[PhaseAnamnesis]
	default:
		return "", true
	}
}

// CompletenessOf reports path-aware completeness: the percentage of required
// slots filled across the whole path, the ones still missing, and whether
// the machine may advance past the current phase.
func CompletenessOf(s *CaseState) Completeness {
	var c Completeness
	order := phaseOrder[s.Path]
	total := 0
	for _, phase := range order {
		if phase == PhaseDisposition {
			continue
		}
		total++
		if slot, ok := requiredSlotFilled(s, phase); !ok {
			c.Missing = append(c.Missing, slot)
		}
	}
	if total > 0 {
		c.Percent = (total - len(c.Missing)) * 100 / total
	} else {
		c.Percent = 100
	}
	_, c.CanProceed = requiredSlotFilled(s, s.Phase)
	return c
}
