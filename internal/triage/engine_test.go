package triage

import (
	"context"
	"testing"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/navigator/internal/extract"
	"github.com/linnemanlabs/navigator/internal/normalize"
	"github.com/linnemanlabs/navigator/internal/refdata"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	ref := refdata.MustLoad()
	norm := normalize.New(normalize.Options{Logger: log.Nop()})
	ext := extract.New(norm, ref)
	return NewEngine(norm, ext, ref, log.Nop())
}

func TestClassify_Cascade(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		utterance string
		wantPath  CasePath
		wantRule  string
		wantUrg   int
	}{
		{
			name:      "info request bypasses triage",
			utterance: "a che ora apre il CUP di Bologna?",
			wantPath:  PathStandard,
			wantRule:  "info_request",
			wantUrg:   1,
		},
		{
			name:      "critical red flag",
			utterance: "ho un forte dolore al petto e sudo freddo",
			wantPath:  PathEmergency,
			wantRule:  "critical_red_flag",
			wantUrg:   5,
		},
		{
			name:      "high severity red flag",
			utterance: "mio figlio ha battuto la testa, trauma cranico",
			wantPath:  PathEmergency,
			wantRule:  "high_red_flag",
			wantUrg:   4,
		},
		{
			name:      "mental health",
			utterance: "mi sento molto ansioso e non riesco a calmarmi",
			wantPath:  PathMentalHealth,
			wantRule:  "mental_health",
			wantUrg:   2,
		},
		{
			name:      "self harm goes to mental health path",
			utterance: "voglio farla finita",
			wantPath:  PathMentalHealth,
			wantRule:  "mental_health",
			wantUrg:   2,
		},
		{
			name:      "mild symptom",
			utterance: "ho il raffreddore da due giorni",
			wantPath:  PathStandard,
			wantRule:  "mild_symptom",
			wantUrg:   2,
		},
		{
			name:      "default standard",
			utterance: "ho mal di pancia da ieri sera",
			wantPath:  PathStandard,
			wantRule:  "default",
			wantUrg:   3,
		},
	}

	e := testEngine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := e.Classify(context.Background(), tt.utterance)
			if got.Path != tt.wantPath {
				t.Errorf("path = %s, want %s", got.Path, tt.wantPath)
			}
			if got.Rule != tt.wantRule {
				t.Errorf("rule = %s, want %s", got.Rule, tt.wantRule)
			}
			if got.Urgency != tt.wantUrg {
				t.Errorf("urgency = %d, want %d", got.Urgency, tt.wantUrg)
			}
		})
	}
}

func TestClassify_CriticalBeatsMentalHealth(t *testing.T) {
	t.Parallel()

	// An utterance matching both lists must take the higher-priority step.
	e := testEngine(t)
	got := e.Classify(context.Background(), "ho ansia e un dolore al petto fortissimo")
	if got.Rule != "critical_red_flag" {
		t.Errorf("rule = %s, want critical_red_flag", got.Rule)
	}
	if got.Path != PathEmergency {
		t.Errorf("path = %s, want emergency", got.Path)
	}
}

func TestFlagUrgency(t *testing.T) {
	t.Parallel()

	e := testEngine(t)
	tests := []struct {
		name  string
		flags []string
		want  int
	}{
		{"no flags", nil, 0},
		{"critical flag", []string{"Dolore toracico"}, 5},
		{"high flag", []string{"trauma cranico"}, 4},
		{"critical beats high", []string{"trauma cranico", "Dolore toracico"}, 5},
		{"unlisted flag", []string{"Cefalea"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := &CaseState{Clinical: ClinicalData{RedFlags: tt.flags}}
			if got := e.FlagUrgency(s); got != tt.want {
				t.Errorf("FlagUrgency = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSelfHarm(t *testing.T) {
	t.Parallel()

	e := testEngine(t)
	if !e.SelfHarm("a volte penso di farmi del male") {
		t.Error("self-harm phrase not detected")
	}
	if e.SelfHarm("mi fa male la schiena") {
		t.Error("back pain flagged as self-harm")
	}
}

func TestHostility(t *testing.T) {
	t.Parallel()

	e := testEngine(t)
	tests := []struct {
		text string
		want int
	}{
		{"buongiorno, avrei bisogno di aiuto", 0},
		{"basta con queste domande", 1},
		{"questo servizio è inutile", 2},
		{"vaffanculo, voglio una persona vera", 3},
	}
	for _, tt := range tests {
		if got := e.Hostility(tt.text); got != tt.want {
			t.Errorf("Hostility(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestMacroArea(t *testing.T) {
	t.Parallel()

	e := testEngine(t)
	tests := []struct {
		text string
		want string
	}{
		{"sento il cuore battere forte, palpitazioni", "Area Cardiologica"},
		{"sono caduto e ho una botta al ginocchio", "Area Traumatologica"},
		{"il bambino ha la febbre", "Area Materno-Infantile"},
		{"buongiorno", ""},
	}
	for _, tt := range tests {
		if got := e.MacroArea(tt.text); got != tt.want {
			t.Errorf("MacroArea(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}
