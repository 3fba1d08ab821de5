package triage

import (
	"fmt"
	"strings"
	"time"
)

// adultAge is the threshold separating adult from minor mental-health
// services.
const adultAge = 18

// Route resolves the terminal facility recommendation for a case that has
// reached Disposition. Urgency decides first; path, age and district break
// ties. The rationale comes back in SBAR form.
func (e *Engine) Route(s *CaseState) *Disposition {
	d := &Disposition{
		Urgency:   s.Meta.Urgency,
		District:  s.Patient.District,
		CreatedAt: time.Now(),
	}

	switch {
	case s.Clinical.SelfHarmRisk || s.Meta.Urgency >= 5:
		d.FacilityKind = "112"
		d.FacilityName = "Numero unico di emergenza 112"

	case s.Meta.Urgency == 4:
		d.FacilityKind = "PS"
		d.FacilityName = e.facilityName("PS", s.Patient.District, "Pronto Soccorso più vicino")

	case s.Path == PathMentalHealth:
		kind := "CSM"
		fallback := "Centro di Salute Mentale di riferimento"
		if s.Patient.Age != nil && *s.Patient.Age < adultAge {
			kind = "CSM-minori"
			fallback = "Neuropsichiatria Infanzia e Adolescenza di riferimento"
		}
		d.FacilityKind = kind
		d.FacilityName = e.facilityName(kind, s.Patient.District, fallback)

	case s.Meta.Urgency == 3:
		d.FacilityKind = "CAU"
		d.FacilityName = e.facilityName("CAU", s.Patient.District, "Centro di Assistenza e Urgenza più vicino")

	default: // urgency 1-2
		if f, ok := e.ref.SpecializedService(s.Meta.Area, s.Patient.District); ok {
			d.FacilityKind = f.Kind
			d.FacilityName = f.Name
		} else if name := e.facilityName("CAU", s.Patient.District, ""); name != "" {
			d.FacilityKind = "CAU"
			d.FacilityName = name
		} else {
			d.FacilityKind = "GM"
			d.FacilityName = e.facilityName("GM", s.Patient.District, "Continuità assistenziale (ex Guardia Medica)")
		}
	}

	d.Situation = sbarSituation(s)
	d.Background = sbarBackground(s)
	d.Assessment = sbarAssessment(s)
	d.Recommendation = sbarRecommendation(d)
	return d
}

// facilityName picks a facility of the given kind, preferring the case's
// district and falling back to any district, then to the given default.
func (e *Engine) facilityName(kind, district, fallback string) string {
	if district != "" {
		if fs := e.ref.FacilitiesByKind(kind, district); len(fs) > 0 {
			return fs[0].Name
		}
	}
	if fs := e.ref.FacilitiesByKind(kind, ""); len(fs) > 0 {
		return fs[0].Name
	}
	return fallback
}

func sbarSituation(s *CaseState) string {
	var b strings.Builder
	b.WriteString("Paziente")
	if s.Patient.Age != nil {
		fmt.Fprintf(&b, " di %d anni", *s.Patient.Age)
	}
	if s.Patient.Location != "" {
		fmt.Fprintf(&b, " a %s", s.Patient.Location)
	}
	if s.Clinical.ChiefComplaint != "" {
		fmt.Fprintf(&b, ", riferisce: %s", s.Clinical.ChiefComplaint)
	}
	if s.Clinical.Duration != nil {
		fmt.Fprintf(&b, " da %s", s.Clinical.Duration)
	}
	b.WriteString(".")
	return b.String()
}

func sbarBackground(s *CaseState) string {
	var parts []string
	if s.Clinical.PainScore != nil {
		parts = append(parts, fmt.Sprintf("dolore %d/10", *s.Clinical.PainScore))
	}
	if len(s.Clinical.Medications) > 0 {
		parts = append(parts, "farmaci: "+strings.Join(s.Clinical.Medications, ", "))
	}
	if len(s.Clinical.Allergies) > 0 {
		parts = append(parts, "allergie: "+strings.Join(s.Clinical.Allergies, ", "))
	}
	if len(parts) == 0 {
		return "Nessuna anamnesi rilevante raccolta."
	}
	return strings.ToUpper(parts[0][:1]) + parts[0][1:] + sbarJoinRest(parts) + "."
}

func sbarJoinRest(parts []string) string {
	if len(parts) < 2 {
		return ""
	}
	return "; " + strings.Join(parts[1:], "; ")
}

func sbarAssessment(s *CaseState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Percorso %s, urgenza %d/5", pathLabel(s.Path), s.Meta.Urgency)
	if len(s.Clinical.RedFlags) > 0 {
		fmt.Fprintf(&b, ". Segnali di allarme: %s", strings.Join(s.Clinical.RedFlags, ", "))
	}
	if s.Meta.Area != "" {
		fmt.Fprintf(&b, ". %s", s.Meta.Area)
	}
	b.WriteString(".")
	return b.String()
}

func sbarRecommendation(d *Disposition) string {
	switch d.FacilityKind {
	case "112":
		return "Chiamare immediatamente il 112. Non mettersi alla guida."
	case "PS":
		return fmt.Sprintf("Recarsi al Pronto Soccorso senza attendere: %s.", d.FacilityName)
	case "CAU":
		return fmt.Sprintf("Accesso diretto consigliato presso: %s.", d.FacilityName)
	case "CSM", "CSM-minori":
		return fmt.Sprintf("Contattare il servizio territoriale: %s.", d.FacilityName)
	case "GM":
		return fmt.Sprintf("Contattare la continuità assistenziale: %s.", d.FacilityName)
	default:
		return fmt.Sprintf("Prenotare una valutazione presso: %s.", d.FacilityName)
	}
}

func pathLabel(p CasePath) string {
	switch p {
	case PathEmergency:
		return "emergenza"
	case PathMentalHealth:
		return "salute mentale"
	default:
		return "standard"
	}
}

// InfoDisposition builds the terminal record for an information-only case.
// No triage happened, so the SBAR fields carry the request context only.
func (e *Engine) InfoDisposition(s *CaseState, request string) *Disposition {
	name := e.facilityName("CAU", s.Patient.District, "URP dell'AUSL di riferimento")
	return &Disposition{
		FacilityKind:   "INFO",
		FacilityName:   name,
		District:       s.Patient.District,
		Urgency:        s.Meta.Urgency,
		Situation:      "Richiesta informativa, nessun sintomo riferito.",
		Background:     fmt.Sprintf("Richiesta: %s", request),
		Assessment:     "Nessuna valutazione clinica effettuata.",
		Recommendation: fmt.Sprintf("Rivolgersi a: %s.", name),
		CreatedAt:      time.Now(),
	}
}
