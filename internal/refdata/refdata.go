// Package refdata loads the fixed reference tables the triage core consults:
// the municipality/district mapping for the served region, the facility
// registry used for final routing, and the classification keyword lists.
// Tables are loaded once at process start and are immutable afterwards.
package refdata

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed districts.json
var districtsJSON []byte

//go:embed facilities.json
var facilitiesJSON []byte

// District is one health district within a regional health authority.
type District struct {
	Code string `json:"code"`
	Name string `json:"name"`
	AUSL string `json:"ausl"`
}

// Facility is one care structure a case can be routed to.
type Facility struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"` // PS, CAU, CSM, CSM-minori, GM, MMG
	Comune   string `json:"comune"`
	District string `json:"district"`
	Area     string `json:"area,omitempty"` // clinical area for specialized services
	Notes    string `json:"notes,omitempty"`
}

type districtFile struct {
	Districts []District        `json:"districts"`
	Comuni    map[string]string `json:"comune_to_district"`
}

type facilityFile struct {
	Facilities []Facility `json:"facilities"`
}

// Set holds all reference tables. Safe for concurrent reads.
type Set struct {
	districts  map[string]District // code -> district
	comuni     map[string]string   // normalized comune -> district code
	facilities []Facility
}

// Load parses the embedded reference tables. It is called once from main;
// a parse failure is a build defect, not a runtime condition.
func Load() (*Set, error) {
	var df districtFile
	if err := json.Unmarshal(districtsJSON, &df); err != nil {
		return nil, fmt.Errorf("refdata: parse districts: %w", err)
	}
	var ff facilityFile
	if err := json.Unmarshal(facilitiesJSON, &ff); err != nil {
		return nil, fmt.Errorf("refdata: parse facilities: %w", err)
	}

	s := &Set{
		districts:  make(map[string]District, len(df.Districts)),
		comuni:     make(map[string]string, len(df.Comuni)),
		facilities: ff.Facilities,
	}
	for _, d := range df.Districts {
		s.districts[d.Code] = d
	}
	for comune, code := range df.Comuni {
		if _, ok := s.districts[code]; !ok {
			return nil, fmt.Errorf("refdata: comune %q maps to unknown district %q", comune, code)
		}
		s.comuni[NormalizeKey(comune)] = code
	}
	return s, nil
}

// MustLoad is Load for tests and package defaults.
func MustLoad() *Set {
	s, err := Load()
	if err != nil {
		panic(err)
	}
	return s
}

// ValidMunicipality reports whether name resolves to a served municipality.
func (s *Set) ValidMunicipality(name string) bool {
	_, ok := s.comuni[NormalizeKey(name)]
	return ok
}

// DistrictFor returns the district code for a municipality, or "" when the
// municipality is not served.
func (s *Set) DistrictFor(comune string) string {
	return s.comuni[NormalizeKey(comune)]
}

// DistrictName returns the display name for a district code. Unknown codes
// come back verbatim so callers never lose the raw value.
func (s *Set) DistrictName(code string) string {
	d, ok := s.districts[code]
	if !ok {
		return code
	}
	return fmt.Sprintf("%s (%s)", d.Name, d.AUSL)
}

// Municipalities returns the normalized names of all served municipalities.
func (s *Set) Municipalities() []string {
	out := make([]string, 0, len(s.comuni))
	for c := range s.comuni {
		out = append(out, c)
	}
	return out
}

// FacilitiesByKind returns all facilities of the given kind, optionally
// restricted to a district ("" matches any).
func (s *Set) FacilitiesByKind(kind, district string) []Facility {
	var out []Facility
	for _, f := range s.facilities {
		if f.Kind != kind {
			continue
		}
		if district != "" && f.District != district {
			continue
		}
		out = append(out, f)
	}
	return out
}

// SpecializedService looks up a specialized facility for a clinical area,
// preferring the case's district but falling back to any district.
func (s *Set) SpecializedService(area, district string) (Facility, bool) {
	var fallback *Facility
	for i, f := range s.facilities {
		if f.Area == "" || !strings.EqualFold(f.Area, area) {
			continue
		}
		if f.District == district {
			return f, true
		}
		if fallback == nil {
			fallback = &s.facilities[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return Facility{}, false
}

// diacriticFold maps the accented vowels that occur in Italian municipality
// and symptom spellings onto their base letters.
var diacriticFold = strings.NewReplacer(
	"à", "a", "á", "a",
	"è", "e", "é", "e",
	"ì", "i", "í", "i",
	"ò", "o", "ó", "o",
	"ù", "u", "ú", "u",
)

// NormalizeKey lowercases, folds diacritics, and collapses whitespace so that
// "Forlì", "forli" and " FORLI " all hit the same table entry.
func NormalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = diacriticFold.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
