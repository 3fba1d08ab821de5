// Package normalize maps free-text symptom phrasings onto canonical clinical
// terms. Matching is staged: an exact lookup on the preprocessed phrase, then
// string similarity against the canonical table, then disambiguation via the
// clinical context of the utterance. A phrase that survives all three stages
// unmatched is returned verbatim and recorded for vocabulary audit.
package normalize

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/navigator/internal/refdata"
)

// Tier identifies which matching stage produced a result.
type Tier string

const (
	TierExact      Tier = "exact"
	TierFuzzy      Tier = "fuzzy"
	TierContextual Tier = "contextual"
	TierUnknown    Tier = "unknown"
)

// Result is the outcome of normalizing one phrase.
type Result struct {
	Term       string  // the input, as given
	Canonical  string  // canonical clinical term; equals Term when unknown
	Tier       Tier    // which stage matched
	Confidence float64 // 1.0 exact, similarity score otherwise, 0 unknown
}

// Known reports whether the phrase resolved to a canonical term.
func (r Result) Known() bool { return r.Tier != TierUnknown }

// DefaultThreshold is the minimum similarity accepted by the fuzzy stage.
const DefaultThreshold = 0.85

// contextSlack widens the candidate pool for the contextual stage; a
// candidate below the fuzzy threshold can still win when the utterance
// context vouches for it.
const contextSlack = 0.9

// Options configures a Normalizer. The zero value selects the built-in
// canonical table, DefaultThreshold, and a no-op logger.
type Options struct {
	Logger    log.Logger
	Threshold float64
	// Extra variant -> canonical entries merged over the built-in table.
	Extra map[string]string
}

// Normalizer resolves symptom phrasings to canonical terms. Safe for
// concurrent use.
type Normalizer struct {
	kb        map[string]string
	keys      []string
	threshold float64
	log       log.Logger

	mu      sync.Mutex
	unknown map[string]struct{}
}

// New builds a Normalizer. Variant keys are preprocessed the same way input
// phrases are, so table lookups and user text meet in the same key space.
func New(opts Options) *Normalizer {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.Threshold <= 0 || opts.Threshold > 1 {
		opts.Threshold = DefaultThreshold
	}
	n := &Normalizer{
		kb:        make(map[string]string, len(canonicalKB)+len(opts.Extra)),
		threshold: opts.Threshold,
		log:       opts.Logger,
		unknown:   make(map[string]struct{}),
	}
	for variant, canonical := range canonicalKB {
		n.add(variant, canonical)
	}
	for variant, canonical := range opts.Extra {
		n.add(variant, canonical)
	}
	n.keys = make([]string, 0, len(n.kb))
	for k := range n.kb {
		n.keys = append(n.keys, k)
	}
	sort.Strings(n.keys)
	return n
}

func (n *Normalizer) add(variant, canonical string) {
	if key := Preprocess(variant); key != "" {
		n.kb[key] = canonical
	}
}

// Normalize resolves term to a canonical clinical name. hint is the clinical
// context of the utterance ("Area Cardiologica", "trauma", ...) and may be
// empty; it only participates in the contextual stage.
func (n *Normalizer) Normalize(ctx context.Context, term, hint string) Result {
	cleaned := Preprocess(term)
	if cleaned == "" {
		return Result{Term: term, Canonical: term, Tier: TierUnknown}
	}

	if canonical, ok := n.kb[cleaned]; ok {
		return Result{Term: term, Canonical: canonical, Tier: TierExact, Confidence: 1.0}
	}

	type candidate struct {
		key string
		sim float64
	}
	var (
		best  candidate
		loose []candidate
	)
	floor := n.threshold * contextSlack
	for _, key := range n.keys {
		sim := Similarity(cleaned, key)
		if sim < floor {
			continue
		}
		loose = append(loose, candidate{key, sim})
		if sim > best.sim {
			best = candidate{key, sim}
		}
	}

	if best.sim >= n.threshold {
		return Result{
			Term:       term,
			Canonical:  n.kb[best.key],
			Tier:       TierFuzzy,
			Confidence: best.sim,
		}
	}

	if hint != "" {
		sort.Slice(loose, func(i, j int) bool { return loose[i].sim > loose[j].sim })
		for _, c := range loose {
			canonical := n.kb[c.key]
			if contextRelevant(canonical, hint) {
				return Result{
					Term:       term,
					Canonical:  canonical,
					Tier:       TierContextual,
					Confidence: c.sim,
				}
			}
		}
	}

	n.mu.Lock()
	n.unknown[term] = struct{}{}
	n.mu.Unlock()
	n.log.Warn(ctx, "symptom normalization miss", "term", term, "cleaned", cleaned)
	return Result{Term: term, Canonical: term, Tier: TierUnknown}
}

// Scan sweeps an utterance for known symptom phrasings and returns one exact
// Result per distinct canonical term found, in order of first appearance.
// Only whole-word occurrences count.
func (n *Normalizer) Scan(text string) []Result {
	cleaned := " " + Preprocess(text) + " "
	var (
		out  []Result
		seen = map[string]struct{}{}
	)
	type hit struct {
		pos int
		res Result
	}
	var hits []hit
	for _, key := range n.keys {
		pos := strings.Index(cleaned, " "+key+" ")
		if pos < 0 {
			continue
		}
		canonical := n.kb[key]
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		hits = append(hits, hit{pos, Result{Term: key, Canonical: canonical, Tier: TierExact, Confidence: 1.0}})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	for _, h := range hits {
		out = append(out, h.res)
	}
	return out
}

// NormalizeAll maps Normalize over a batch sharing one context hint.
func (n *Normalizer) NormalizeAll(ctx context.Context, terms []string, hint string) []Result {
	out := make([]Result, len(terms))
	for i, t := range terms {
		out[i] = n.Normalize(ctx, t, hint)
	}
	return out
}

// Unknown returns the phrases that failed every stage, sorted, for
// vocabulary audit.
func (n *Normalizer) Unknown() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.unknown))
	for t := range n.unknown {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

var punct = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

// Preprocess lowercases, folds diacritics, strips punctuation, and removes
// filler words so that phrase variants collapse onto one lookup key.
func Preprocess(s string) string {
	s = punct.ReplaceAllString(s, " ")
	s = refdata.NormalizeKey(s)
	words := strings.Fields(s)
	kept := words[:0]
	for _, w := range words {
		if _, stop := stopWords[w]; !stop {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

var stopWords = map[string]struct{}{
	"ho": {}, "hai": {}, "ha": {}, "un": {}, "una": {}, "il": {}, "la": {},
	"lo": {}, "di": {}, "da": {}, "in": {}, "per": {}, "con": {}, "su": {},
	"a": {}, "che": {}, "mi": {}, "ti": {}, "si": {}, "al": {}, "alla": {},
	"del": {}, "della": {}, "delle": {}, "dei": {}, "degli": {},
	"molto": {}, "tanto": {}, "poco": {},
}

// contextKeywords keys are matched as substrings of the lowercased hint, so
// "Area Cardiologica", "cardiologia" and "cardio" all select the same row.
var contextKeywords = map[string][]string{
	"trauma":  {"trauma", "caduta", "botta", "frattura"},
	"cardio":  {"toracico", "cuore", "petto", "dispnea", "palpitazioni"},
	"gastro":  {"addominale", "stomaco", "nausea", "vomito", "diarrea"},
	"neuro":   {"cefalea", "vertigini", "testa", "parestesia"},
	"psich":   {"ansia", "panico", "depressione", "stress", "umore", "insonnia"},
	"mental":  {"ansia", "panico", "depressione", "stress", "umore", "insonnia"},
	"materno": {"contrazioni", "gravidanza"},
}

func contextRelevant(canonical, hint string) bool {
	hint = strings.ToLower(hint)
	canonical = strings.ToLower(canonical)
	for key, kws := range contextKeywords {
		if !strings.Contains(hint, key) {
			continue
		}
		for _, kw := range kws {
			if strings.Contains(canonical, kw) {
				return true
			}
		}
	}
	return false
}
