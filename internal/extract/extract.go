// Package extract pulls typed clinical facts out of free-text utterances.
// Each slot has an ordered list of patterns; within one utterance the first
// pattern that matches a slot wins and later patterns for the same slot are
// skipped. One utterance may populate several slots at once. Nothing is ever
// inferred: a slot the text does not state stays empty.
package extract

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/linnemanlabs/navigator/internal/normalize"
	"github.com/linnemanlabs/navigator/internal/refdata"
)

// ValidationError marks a value the text did state but that falls outside the
// slot's declared domain. The caller must re-prompt; nothing is clamped.
type ValidationError struct {
	Slot   string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Slot, e.Value, e.Reason)
}

// Duration is a stated symptom duration, magnitude plus unit.
type Duration struct {
	Magnitude int    `json:"magnitude"`
	Unit      string `json:"unit"` // minuti, ore, giorni, settimane
}

func (d Duration) String() string { return fmt.Sprintf("%d %s", d.Magnitude, d.Unit) }

// Extracted holds every slot one utterance populated. Pointer fields
// distinguish "not stated" from a zero value.
type Extracted struct {
	Age         *int
	PainScore   *int
	Pregnant    *bool
	Duration    *Duration
	Location    string             // canonical municipality name, already resolved
	Symptoms    []normalize.Result // canonical symptom terms, order of appearance
	RedFlags    []string           // canonical red-flag terms, a subset of Symptoms' domain
	Medications []string           // stated drug names, lowercase
	Allergies   []string           // stated allergens, lowercase
}

// Empty reports whether nothing was extracted (a normal outcome, not an error).
func (x Extracted) Empty() bool {
	return x.Age == nil && x.PainScore == nil && x.Pregnant == nil &&
		x.Duration == nil && x.Location == "" && len(x.Symptoms) == 0 &&
		len(x.RedFlags) == 0 && len(x.Medications) == 0 && len(x.Allergies) == 0
}

// Extractor scans utterances against the fixed pattern set. Safe for
// concurrent use; all state is read-only after construction.
type Extractor struct {
	norm *normalize.Normalizer
	ref  *refdata.Set
}

// New builds an Extractor over the given normalizer and reference tables.
func New(norm *normalize.Normalizer, ref *refdata.Set) *Extractor {
	return &Extractor{norm: norm, ref: ref}
}

var (
	agePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bho\s+(\d{1,3})\s+anni\b`),
		regexp.MustCompile(`(?i)\b(\d{1,3})\s+anni\b`),
		regexp.MustCompile(`(?i)\bet[aà]\s*:?\s*(\d{1,3})\b`),
	}
	painPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d{1,2})\s*/\s*10\b`),
		regexp.MustCompile(`(?i)\bdolore\s+(?:di\s+|a\s+)?(\d{1,2})\b`),
		regexp.MustCompile(`(?i)\bscala\s+(?:del\s+dolore\s+)?(\d{1,2})\b`),
	}
	durationPattern = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(minut[oi]|or[ae]|giorn[oi]|settiman[ae])\b`)
	locPattern      = regexp.MustCompile(`(?i)\b(?:abito|vivo)\s+a\s+([\p{L}' ]+?)(?:[,.!?]|$|\be\b)`)
	symptomPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bmi\s+fa(?:nno)?\s+male\s+(?:la\s+|il\s+|lo\s+|le\s+|i\s+|l')?([\p{L}à-ù]+)`),
		regexp.MustCompile(`(?i)\bmale\s+(?:alla\s+|al\s+|allo\s+|alle\s+|ai\s+|a\s+|l')?([\p{L}à-ù]+)`),
		regexp.MustCompile(`(?i)\bdolore\s+(?:alla\s+|al\s+|allo\s+|alle\s+|ai\s+|a\s+|di\s+|nel(?:la)?\s+)?([\p{L}à-ù]+)`),
	}
)

// durationUnit folds inflected unit spellings onto the plural form.
func durationUnit(u string) string {
	switch u = strings.ToLower(u); {
	case strings.HasPrefix(u, "minut"):
		return "minuti"
	case strings.HasPrefix(u, "or"):
		return "ore"
	case strings.HasPrefix(u, "giorn"):
		return "giorni"
	default:
		return "settimane"
	}
}

// Extract scans one utterance and returns every slot it populates. A stated
// value outside its domain aborts the whole utterance with a ValidationError
// so the caller re-prompts instead of merging a partial read.
func (e *Extractor) Extract(ctx context.Context, text string) (Extracted, error) {
	var out Extracted

	if v, raw, ok := firstInt(agePatterns, text); ok {
		if v < 0 || v > 120 {
			return Extracted{}, &ValidationError{Slot: "age", Value: raw, Reason: "outside 0-120"}
		}
		out.Age = &v
	}

	if v, raw, ok := firstInt(painPatterns, text); ok {
		// The age pattern owns "NN anni"; a pain pattern must not re-read it.
		if out.Age == nil || *out.Age != v || strings.Contains(text, raw+"/10") {
			if v < 0 || v > 10 {
				return Extracted{}, &ValidationError{Slot: "pain score", Value: raw, Reason: "outside 0-10"}
			}
			out.PainScore = &v
		}
	}

	loc, err := e.location(text)
	if err != nil {
		return Extracted{}, err
	}
	out.Location = loc

	out.Duration = duration(text)
	out.Symptoms = e.symptoms(ctx, text)
	out.RedFlags = e.redFlags(ctx, text)
	out.Medications = medications(text)
	out.Allergies = allergies(text)
	out.Pregnant = pregnant(text)

	return out, nil
}

func firstInt(patterns []*regexp.Regexp, text string) (v int, raw string, ok bool) {
	for _, p := range patterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return n, m[1], true
	}
	return 0, "", false
}

func duration(text string) *Duration {
	if m := durationPattern.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return &Duration{Magnitude: n, Unit: durationUnit(m[2])}
	}
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "da ieri"):
		return &Duration{Magnitude: 1, Unit: "giorni"}
	case strings.Contains(lower, "da stamattina"), strings.Contains(lower, "da stanotte"):
		return &Duration{Magnitude: 12, Unit: "ore"}
	case strings.Contains(lower, "da una settimana"):
		return &Duration{Magnitude: 1, Unit: "settimane"}
	}
	return nil
}

// location resolves a municipality mention. A bare mention of a served
// municipality counts; an explicit "abito a X" with an unserved X is a
// ValidationError rather than a silent miss.
func (e *Extractor) location(text string) (string, error) {
	for _, comune := range e.ref.Municipalities() {
		if containsWord(text, comune) {
			return comune, nil
		}
	}
	if m := locPattern.FindStringSubmatch(text); m != nil {
		stated := strings.TrimSpace(m[1])
		if !e.ref.ValidMunicipality(stated) {
			return "", &ValidationError{Slot: "location", Value: stated, Reason: "not a served municipality"}
		}
		return refdata.NormalizeKey(stated), nil
	}
	return "", nil
}

func containsWord(text, word string) bool {
	padded := " " + refdata.NormalizeKey(stripPunct(text)) + " "
	return strings.Contains(padded, " "+word+" ")
}

var punctRE = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

func stripPunct(s string) string { return punctRE.ReplaceAllString(s, " ") }

// symptoms collects canonical symptom terms: a whole-utterance keyword sweep
// plus the "mi fa male X / dolore X" constructions rebuilt as "dolore X" and
// run through the normalizer.
func (e *Extractor) symptoms(ctx context.Context, text string) []normalize.Result {
	results := e.norm.Scan(text)
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		seen[r.Canonical] = struct{}{}
	}
	for _, p := range symptomPatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		r := e.norm.Normalize(ctx, "dolore "+strings.ToLower(m[1]), "")
		if !r.Known() {
			continue
		}
		if _, dup := seen[r.Canonical]; dup {
			continue
		}
		seen[r.Canonical] = struct{}{}
		results = append(results, r)
		break
	}
	return results
}

// redFlags returns the canonical form of every red-flag phrase the utterance
// contains, critical and high-severity lists both.
func (e *Extractor) redFlags(ctx context.Context, text string) []string {
	padded := " " + normalize.Preprocess(text) + " "
	var out []string
	seen := map[string]struct{}{}
	for _, list := range [][]string{refdata.CriticalRedFlags, refdata.HighSeverityRedFlags} {
		for _, kw := range list {
			key := " " + normalize.Preprocess(kw) + " "
			if !strings.Contains(padded, key) {
				continue
			}
			canonical := kw
			if r := e.norm.Normalize(ctx, kw, ""); r.Known() {
				canonical = r.Canonical
			}
			if _, dup := seen[canonical]; dup {
				continue
			}
			seen[canonical] = struct{}{}
			out = append(out, canonical)
		}
	}
	return out
}

var (
	medsGeneric = map[string]struct{}{
		"farmaci": {}, "farmaco": {}, "medicine": {}, "medicina": {},
		"medicinali": {}, "niente": {}, "nulla": {}, "qualcosa": {},
		"nessuna": {}, "nessuno": {},
	}
	medsListPattern    = regexp.MustCompile(`(?i)\bfarmaci\s*:\s*([\p{L}à-ù' ,]+)`)
	medsPattern        = regexp.MustCompile(`(?i)\b(non\s+)?(?:prendo|assumo)\s+(?:il\s+|la\s+|lo\s+|le\s+|i\s+|l')?([\p{L}à-ù]+)`)
	allergyListPattern = regexp.MustCompile(`(?i)\ballergi[ae]\s*:\s*([\p{L}à-ù' ,]+)`)
	allergyPattern     = regexp.MustCompile(`(?i)\b(non\s+sono\s+|sono\s+)?allergic[oa]\s+(?:all'|alle|alla|allo|agli|ai|al|a)\s*([\p{L}à-ù]+)`)
	listSepPattern     = regexp.MustCompile(`\s*(?:,|\be\b)\s*`)
)

// splitList breaks a stated "X, Y e Z" enumeration into lowercase items,
// dropping generic filler words that name no concrete substance.
func splitList(s string) []string {
	var out []string
	for _, item := range listSepPattern.Split(strings.ToLower(s), -1) {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, generic := medsGeneric[item]; generic {
			continue
		}
		out = append(out, item)
	}
	return out
}

// medications reads stated drug names. "non prendo X" is a denial, not a
// medication; a bare "prendo farmaci" names nothing and yields nothing.
func medications(text string) []string {
	if m := medsListPattern.FindStringSubmatch(text); m != nil {
		return splitList(m[1])
	}
	m := medsPattern.FindStringSubmatch(text)
	if m == nil || m[1] != "" {
		return nil
	}
	return splitList(m[2])
}

// allergies reads stated allergens, same denial rules as medications.
func allergies(text string) []string {
	if m := allergyListPattern.FindStringSubmatch(text); m != nil {
		return splitList(m[1])
	}
	m := allergyPattern.FindStringSubmatch(text)
	if m == nil || strings.HasPrefix(strings.ToLower(strings.TrimSpace(m[1])), "non") {
		return nil
	}
	return splitList(m[2])
}

// pregnant reads a stated pregnancy status, nil when not stated.
func pregnant(text string) *bool {
	padded := " " + refdata.NormalizeKey(stripPunct(text)) + " "
	switch {
	case strings.Contains(padded, " non sono incinta "),
		strings.Contains(padded, " non e incinta "),
		strings.Contains(padded, " non in gravidanza "):
		v := false
		return &v
	case strings.Contains(padded, " incinta "),
		strings.Contains(padded, " in gravidanza "):
		v := true
		return &v
	}
	return nil
}

var (
	consentYes = []string{"si", "sì", "ok", "va bene", "accetto", "certo", "acconsento", "d'accordo"}
	consentNo  = []string{"no", "non voglio", "rifiuto", "non accetto", "preferisco di no"}
)

// Consent reads an explicit consent answer. answered is false when the text
// states neither a grant nor a refusal.
func Consent(text string) (granted, answered bool) {
	padded := " " + refdata.NormalizeKey(stripPunct(text)) + " "
	for _, kw := range consentNo {
		if strings.Contains(padded, " "+refdata.NormalizeKey(kw)+" ") {
			return false, true
		}
	}
	for _, kw := range consentYes {
		if strings.Contains(padded, " "+refdata.NormalizeKey(kw)+" ") {
			return true, true
		}
	}
	return false, false
}

// Sex reads a stated biological sex, "" when not stated.
func Sex(text string) string {
	padded := " " + refdata.NormalizeKey(stripPunct(text)) + " "
	switch {
	case strings.Contains(padded, " maschio "), strings.Contains(padded, " uomo "), strings.Contains(padded, " m "):
		return "M"
	case strings.Contains(padded, " femmina "), strings.Contains(padded, " donna "), strings.Contains(padded, " f "):
		return "F"
	}
	return ""
}
