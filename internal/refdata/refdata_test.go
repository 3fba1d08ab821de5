package refdata

import (
	"testing"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	s, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(s.districts) == 0 || len(s.comuni) == 0 || len(s.facilities) == 0 {
		t.Fatalf("Load returned empty tables: %d districts, %d comuni, %d facilities",
			len(s.districts), len(s.comuni), len(s.facilities))
	}
}

func TestNormalizeKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Bologna", "bologna"},
		{"  FORLÌ ", "forli"},
		{"San   Lazzaro", "san lazzaro"},
		{"città di castello", "citta di castello"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeKey(tt.in); got != tt.want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDistrictLookup(t *testing.T) {
	t.Parallel()

	s := MustLoad()

	tests := []struct {
		comune string
		valid  bool
		code   string
	}{
		{"Bologna", true, "BOL-CIT"},
		{"forlì", true, "FC-FOR"},
		{"RICCIONE", true, "RN-SUD"},
		{"Milano", false, ""},
		{"", false, ""},
	}
	for _, tt := range tests {
		if got := s.ValidMunicipality(tt.comune); got != tt.valid {
			t.Errorf("ValidMunicipality(%q) = %v, want %v", tt.comune, got, tt.valid)
		}
		if got := s.DistrictFor(tt.comune); got != tt.code {
			t.Errorf("DistrictFor(%q) = %q, want %q", tt.comune, got, tt.code)
		}
	}
}

func TestDistrictName(t *testing.T) {
	t.Parallel()

	s := MustLoad()
	if got := s.DistrictName("IMO"); got != "Distretto di Imola (AUSL Imola)" {
		t.Errorf("DistrictName(IMO) = %q", got)
	}
	// Unknown codes pass through untouched.
	if got := s.DistrictName("XX"); got != "XX" {
		t.Errorf("DistrictName(XX) = %q", got)
	}
}

func TestFacilitiesByKind(t *testing.T) {
	t.Parallel()

	s := MustLoad()

	ps := s.FacilitiesByKind("PS", "BOL-CIT")
	if len(ps) == 0 {
		t.Fatal("no PS facilities in BOL-CIT")
	}
	for _, f := range ps {
		if f.Kind != "PS" || f.District != "BOL-CIT" {
			t.Errorf("unexpected facility in filtered set: %+v", f)
		}
	}

	all := s.FacilitiesByKind("CAU", "")
	if len(all) < len(s.FacilitiesByKind("CAU", "BOL-CIT")) {
		t.Error("district filter returned more facilities than the unfiltered set")
	}

	if got := s.FacilitiesByKind("PS", "NO-SUCH"); len(got) != 0 {
		t.Errorf("FacilitiesByKind for unknown district = %v, want empty", got)
	}
}

func TestSpecializedService(t *testing.T) {
	t.Parallel()

	s := MustLoad()

	// Same-district match.
	f, ok := s.SpecializedService("Area Cardiologica", "BOL-CIT")
	if !ok {
		t.Fatal("no cardiology service found for BOL-CIT")
	}
	if f.District != "BOL-CIT" {
		t.Errorf("expected same-district match, got %+v", f)
	}

	// Out-of-district fallback still resolves.
	f, ok = s.SpecializedService("Area Cardiologica", "RN-SUD")
	if !ok {
		t.Fatal("expected cross-district fallback for cardiology")
	}
	if f.Area != "Area Cardiologica" {
		t.Errorf("fallback returned wrong area: %+v", f)
	}

	if _, ok := s.SpecializedService("Area Inesistente", "BOL-CIT"); ok {
		t.Error("unknown area resolved to a facility")
	}
}

func TestKeywordTablesNormalized(t *testing.T) {
	t.Parallel()

	lists := map[string][]string{
		"critical":   CriticalRedFlags,
		"high":       HighSeverityRedFlags,
		"self-harm":  SelfHarmKeywords,
		"mental":     MentalHealthKeywords,
		"mild":       MildSymptomKeywords,
		"info":       InfoRequestKeywords,
		"host-sev":   HostilitySevere,
		"host-med":   HostilityMedium,
		"host-light": HostilityLight,
	}
	for name, list := range lists {
		if len(list) == 0 {
			t.Errorf("keyword list %s is empty", name)
		}
		for _, kw := range list {
			if kw != NormalizeKey(kw) {
				t.Errorf("keyword list %s entry %q is not normalized", name, kw)
			}
		}
	}
	for area, kws := range MacroAreas {
		if len(kws) == 0 {
			t.Errorf("macro area %s has no keywords", area)
		}
	}
}
