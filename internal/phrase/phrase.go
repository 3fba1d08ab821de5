// Package phrase renders the next triage question in Italian from canned
// templates. It is deliberately deterministic: the same case state always
// produces the same question, so transcripts are reproducible.
package phrase

import (
	"context"
	"strings"

	"github.com/linnemanlabs/navigator/internal/triage"
)

// Templates implements triage.Phraser with fixed per-phase question text.
type Templates struct{}

// New returns the template phraser.
func New() *Templates { return &Templates{} }

var questions = map[triage.CasePhase]string{
	triage.PhaseConsent: "Prima di continuare ho bisogno del tuo consenso al trattamento dei dati sanitari. Sei d'accordo?",
	triage.PhaseLocation: "In quale comune ti trovi in questo momento?",
	triage.PhaseDemographics: "Quanti anni hai?",
	triage.PhasePainScale: "Su una scala da 0 a 10, quanto è forte il dolore in questo momento?",
	triage.PhaseRiskAssessment: "Hai pensieri di farti del male o di non voler più vivere?",
	triage.PhaseAnamnesis: "Assumi farmaci regolarmente o hai allergie note?",
}

// Question returns the Italian prompt for the case's current phase. Resolved
// cases get no question. A hostile caller gets a de-escalating preamble before
// the same question.
func (t *Templates) Question(_ context.Context, s *triage.CaseState) string {
	if s.Resolved() {
		return ""
	}

	q := t.phaseQuestion(s)
	if q == "" {
		return ""
	}
	if pre := hostilityPreamble(s.Meta.Hostility); pre != "" {
		return pre + " " + q
	}
	return q
}

func (t *Templates) phaseQuestion(s *triage.CaseState) string {
	switch s.Phase {
	case triage.PhaseChiefComplaint:
		if s.Path == triage.PathMentalHealth {
			return "Vuoi raccontarmi come ti senti e da quanto tempo va avanti?"
		}
		return "Qual è il problema principale per cui chiami? Da quanto tempo è presente?"
	case triage.PhaseDemographics:
		if s.Patient.Age != nil {
			return "Sei un uomo o una donna?"
		}
		return questions[triage.PhaseDemographics]
	case triage.PhaseRedFlags:
		if s.Path == triage.PathEmergency {
			return "La persona è cosciente e respira normalmente?"
		}
		return "Hai anche altri sintomi come difficoltà a respirare, dolore al petto, svenimenti o sangue?"
	default:
		return questions[s.Phase]
	}
}

// hostilityPreamble maps the hostility score to a de-escalating opener.
// Levels follow the engine's scoring: 0 none, 1 light, 2 medium, 3 severe.
func hostilityPreamble(level int) string {
	switch {
	case level >= 3:
		return "Capisco che sei arrabbiato e mi dispiace per l'attesa. Sono qui per aiutarti: restiamo sul problema di salute."
	case level == 2:
		return "Capisco la frustrazione, cerco di farti perdere meno tempo possibile."
	default:
		return ""
	}
}

// Reask wraps a question after a validation failure, naming the value that
// was not understood.
func Reask(question, badValue string) string {
	b := strings.TrimSpace(badValue)
	if b == "" {
		return "Non ho capito la risposta. " + question
	}
	return "Non ho capito \"" + b + "\". " + question
}
