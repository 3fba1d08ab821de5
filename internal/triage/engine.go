package triage

import (
	"context"
	"strings"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/navigator/internal/extract"
	"github.com/linnemanlabs/navigator/internal/normalize"
	"github.com/linnemanlabs/navigator/internal/refdata"
)

// Engine holds the pure decision logic: initial classification, phase
// transitions, and final routing. It owns no mutable state beyond the
// normalizer's unknown-term audit log and is safe for concurrent use over
// independent cases.
type Engine struct {
	norm   *normalize.Normalizer
	ext    *extract.Extractor
	ref    *refdata.Set
	logger log.Logger

	// canonical forms of the red-flag keyword lists, resolved once
	critical map[string]struct{}
	high     map[string]struct{}
}

// NewEngine builds an Engine over the given normalizer, extractor and
// reference tables.
func NewEngine(norm *normalize.Normalizer, ext *extract.Extractor, ref *refdata.Set, logger log.Logger) *Engine {
	e := &Engine{
		norm:     norm,
		ext:      ext,
		ref:      ref,
		logger:   logger,
		critical: canonicalSet(norm, refdata.CriticalRedFlags),
		high:     canonicalSet(norm, refdata.HighSeverityRedFlags),
	}
	return e
}

func canonicalSet(norm *normalize.Normalizer, keywords []string) map[string]struct{} {
	out := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		canonical := kw
		if r := norm.Normalize(context.Background(), kw, ""); r.Known() {
			canonical = r.Canonical
		}
		out[canonical] = struct{}{}
	}
	return out
}

// Extract exposes the engine's extractor to the service layer.
func (e *Engine) Extract(ctx context.Context, text string) (extract.Extracted, error) {
	return e.ext.Extract(ctx, text)
}

// DistrictFor resolves a municipality to its district code, "" when the
// municipality is not served.
func (e *Engine) DistrictFor(comune string) string {
	return e.ref.DistrictFor(comune)
}

// UnknownCount reports how many distinct phrases have failed normalization so
// far in this process.
func (e *Engine) UnknownCount() int {
	return len(e.norm.Unknown())
}

// FlagUrgency proposes an urgency from the collected red flags: 5 for any
// critical flag, 4 for any high-severity flag, 0 otherwise. The caller folds
// it in through RaiseUrgency, so it can only push urgency up.
func (e *Engine) FlagUrgency(s *CaseState) int {
	urgency := 0
	for _, rf := range s.Clinical.RedFlags {
		if _, ok := e.critical[rf]; ok {
			return 5
		}
		if _, ok := e.high[rf]; ok {
			urgency = 4
		}
	}
	return urgency
}

// Classification is the outcome of the first-utterance cascade.
type Classification struct {
	Path    CasePath
	Branch  CaseBranch
	Urgency int
	Rule    string // which cascade step fired, for logging and audit
}

// Fallback reports whether the cascade fell through to the default step
// without any keyword evidence.
func (c Classification) Fallback() bool { return c.Rule == "default" }

// Confidence grades the cascade outcome: a keyword hit is strong evidence,
// the default step is a guess.
func (c Classification) Confidence() float64 {
	if c.Fallback() {
		return 0.5
	}
	return 0.9
}

// Classify runs the six-step priority cascade over a first utterance. Each
// step short-circuits on match; the last is the default.
func (e *Engine) Classify(ctx context.Context, text string) Classification {
	if containsAny(text, refdata.InfoRequestKeywords) {
		return Classification{Path: PathStandard, Branch: BranchInformationOnly, Urgency: 1, Rule: "info_request"}
	}
	if containsAny(text, refdata.CriticalRedFlags) {
		return Classification{Path: PathEmergency, Branch: BranchTriage, Urgency: 5, Rule: "critical_red_flag"}
	}
	if containsAny(text, refdata.HighSeverityRedFlags) {
		return Classification{Path: PathEmergency, Branch: BranchTriage, Urgency: 4, Rule: "high_red_flag"}
	}
	if containsAny(text, refdata.SelfHarmKeywords) || containsAny(text, refdata.MentalHealthKeywords) {
		return Classification{Path: PathMentalHealth, Branch: BranchTriage, Urgency: 2, Rule: "mental_health"}
	}
	if containsAny(text, refdata.MildSymptomKeywords) {
		return Classification{Path: PathStandard, Branch: BranchTriage, Urgency: 2, Rule: "mild_symptom"}
	}
	return Classification{Path: PathStandard, Branch: BranchTriage, Urgency: 3, Rule: "default"}
}

// SelfHarm reports whether the utterance states self-harm ideation.
func (e *Engine) SelfHarm(text string) bool {
	return containsAny(text, refdata.SelfHarmKeywords)
}

// Hostility grades the utterance 0 (none) to 3 (severe).
func (e *Engine) Hostility(text string) int {
	switch {
	case containsAny(text, refdata.HostilitySevere):
		return 3
	case containsAny(text, refdata.HostilityMedium):
		return 2
	case containsAny(text, refdata.HostilityLight):
		return 1
	}
	return 0
}

// MacroArea tags the utterance with the clinical area whose keyword list
// scores the most hits, "" when nothing matches.
func (e *Engine) MacroArea(text string) string {
	padded := paddedKey(text)
	best, bestHits := "", 0
	// Deterministic tie-break: iterate areas in a fixed order.
	for _, area := range macroAreaOrder {
		hits := 0
		for _, kw := range refdata.MacroAreas[area] {
			if strings.Contains(padded, " "+kw+" ") {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = area, hits
		}
	}
	return best
}

var macroAreaOrder = []string{
	"Area Cardiologica",
	"Area Neurologica",
	"Area Traumatologica",
	"Area Chirurgica",
	"Area Materno-Infantile",
	"Area Psichiatrica",
	"Area Medica",
}

func paddedKey(text string) string {
	return " " + normalize.Preprocess(text) + " "
}

func containsAny(text string, keywords []string) bool {
	padded := paddedKey(text)
	for _, kw := range keywords {
		if strings.Contains(padded, " "+normalize.Preprocess(kw)+" ") {
			return true
		}
	}
	return false
}
