package triage

import (
	"time"

	"github.com/linnemanlabs/navigator/internal/extract"
)

// CasePath is the high-level protocol a case follows. It is chosen once, on
// the first turn, and never changes for the life of the case.
type CasePath string

const (
	PathEmergency    CasePath = "emergency"
	PathMentalHealth CasePath = "mental_health"
	PathStandard     CasePath = "standard"
)

// CaseBranch decides whether the phase machine runs at all.
type CaseBranch string

const (
	BranchTriage          CaseBranch = "triage"
	BranchInformationOnly CaseBranch = "information_only"
)

// CasePhase is the current question stage. Each path walks a fixed subset of
// these in a fixed order (see phaseOrder); PhaseEmergencyOverride is the one
// phase reachable from anywhere.
type CasePhase string

const (
	PhaseIntentDetection   CasePhase = "intent_detection"
	PhaseConsent           CasePhase = "consent"
	PhaseLocation          CasePhase = "location"
	PhaseDemographics      CasePhase = "demographics"
	PhaseChiefComplaint    CasePhase = "chief_complaint"
	PhasePainScale         CasePhase = "pain_scale"
	PhaseRedFlags          CasePhase = "red_flags"
	PhaseRiskAssessment    CasePhase = "risk_assessment"
	PhaseAnamnesis         CasePhase = "anamnesis"
	PhaseDisposition       CasePhase = "disposition"
	PhaseEmergencyOverride CasePhase = "emergency_override"
)

// phaseOrder fixes the forward-only question ordering per path.
var phaseOrder = map[CasePath][]CasePhase{
	PathEmergency: {
		PhaseLocation, PhaseChiefComplaint, PhaseRedFlags, PhaseDisposition,
	},
	PathMentalHealth: {
		PhaseConsent, PhaseLocation, PhaseDemographics, PhaseChiefComplaint,
		PhaseRiskAssessment, PhaseDisposition,
	},
	PathStandard: {
		PhaseLocation, PhaseChiefComplaint, PhasePainScale, PhaseRedFlags,
		PhaseAnamnesis, PhaseDisposition,
	},
}

// phaseRank places a phase inside its path's ordering. IntentDetection sits
// before everything; the terminal phases sit after everything so that the
// forward-only check holds across the override jump.
func phaseRank(path CasePath, phase CasePhase) int {
	switch phase {
	case PhaseIntentDetection:
		return -1
	case PhaseEmergencyOverride:
		return len(phaseOrder[path])
	case PhaseDisposition:
		return len(phaseOrder[path]) + 1
	}
	for i, p := range phaseOrder[path] {
		if p == phase {
			return i
		}
	}
	return -1
}

// PatientInfo holds demographic slots. Pointer fields distinguish "never
// stated" from a stated zero value.
type PatientInfo struct {
	Age      *int   `json:"age,omitempty"`
	Sex      string `json:"sex,omitempty"` // M, F, "" when not stated
	Location string `json:"location,omitempty"`
	District string `json:"district,omitempty"`
	Pregnant *bool  `json:"pregnant,omitempty"`
}

// ClinicalData holds the clinical slots collected turn by turn. RedFlags is a
// set: strictly additive, kept sorted, never shrinks.
type ClinicalData struct {
	ChiefComplaint string            `json:"chief_complaint,omitempty"`
	PainScore      *int              `json:"pain_score,omitempty"`
	Duration       *extract.Duration `json:"duration,omitempty"`
	RedFlags       []string          `json:"red_flags,omitempty"`
	Medications    []string          `json:"medications,omitempty"`
	Allergies      []string          `json:"allergies,omitempty"`
	Consent        *bool             `json:"consent,omitempty"`
	SelfHarmRisk   bool              `json:"self_harm_risk,omitempty"`
}

// CaseMetadata carries the classification outputs. Urgency is 1..5 and only
// ever moves up.
type CaseMetadata struct {
	Urgency      int     `json:"urgency"`
	Area         string  `json:"area,omitempty"` // clinical macro-area tag
	Confidence   float64 `json:"confidence,omitempty"`
	FallbackUsed bool    `json:"fallback_used,omitempty"`
	Hostility    int     `json:"hostility,omitempty"` // 0 none .. 3 severe
}

// SlotEvent is one entry in the case's slot log: which slot was written, with
// what value, on which turn.
type SlotEvent struct {
	Turn  int       `json:"turn"`
	Slot  string    `json:"slot"`
	Value string    `json:"value"`
	At    time.Time `json:"at"`
}

// Disposition is the terminal care recommendation, with the rationale in
// SBAR form. Distance and travel notes are left to downstream consumers.
type Disposition struct {
	FacilityKind   string    `json:"facility_kind"` // 112, PS, CAU, GM, CSM, CSM-minori, AMB
	FacilityName   string    `json:"facility_name,omitempty"`
	District       string    `json:"district,omitempty"`
	Urgency        int       `json:"urgency"`
	Situation      string    `json:"situation"`
	Background     string    `json:"background"`
	Assessment     string    `json:"assessment"`
	Recommendation string    `json:"recommendation"`
	CreatedAt      time.Time `json:"created_at"`
}

// CaseState is the authoritative record for one triage case.
type CaseState struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Path   CasePath   `json:"path"`
	Branch CaseBranch `json:"branch"`
	Phase  CasePhase  `json:"phase"`

	Patient  PatientInfo  `json:"patient"`
	Clinical ClinicalData `json:"clinical"`
	Meta     CaseMetadata `json:"meta"`

	// Answered marks phases whose question was put to the caller and whose
	// answer was processed, for phases with no mandatory slot (red flags,
	// anamnesis, risk assessment can all legitimately come back empty).
	Answered map[CasePhase]bool `json:"answered,omitempty"`

	Turns   int         `json:"turns"`
	SlotLog []SlotEvent `json:"slot_log,omitempty"`

	Disposition *Disposition `json:"disposition,omitempty"`
}

// Resolved reports whether the case has reached its terminal recommendation.
// A resolved case is immutable.
func (s *CaseState) Resolved() bool { return s.Disposition != nil }

// Clone deep-copies the state so a caller can mutate its copy without
// touching the stored one.
func (s *CaseState) Clone() *CaseState {
	out := *s
	out.Patient.Age = clonePtr(s.Patient.Age)
	out.Patient.Pregnant = clonePtr(s.Patient.Pregnant)
	out.Clinical.PainScore = clonePtr(s.Clinical.PainScore)
	out.Clinical.Duration = clonePtr(s.Clinical.Duration)
	out.Clinical.Consent = clonePtr(s.Clinical.Consent)
	out.Clinical.RedFlags = append([]string(nil), s.Clinical.RedFlags...)
	out.Clinical.Medications = append([]string(nil), s.Clinical.Medications...)
	out.Clinical.Allergies = append([]string(nil), s.Clinical.Allergies...)
	out.SlotLog = append([]SlotEvent(nil), s.SlotLog...)
	if s.Answered != nil {
		out.Answered = make(map[CasePhase]bool, len(s.Answered))
		for k, v := range s.Answered {
			out.Answered[k] = v
		}
	}
	if s.Disposition != nil {
		d := *s.Disposition
		out.Disposition = &d
	}
	return &out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
