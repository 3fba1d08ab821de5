package refdata

// Keyword lists driving the initial classification cascade. Order inside a
// list does not matter; the lists themselves are checked in cascade order by
// the classifier. All entries are pre-normalized with NormalizeKey.

// CriticalRedFlags force an immediate emergency path at urgency 5.
var CriticalRedFlags = []string{
	"dolore toracico",
	"dolore petto",
	"dolore al petto",
	"oppressione torace",
	"non riesco respirare",
	"non riesco a respirare",
	"soffoco",
	"difficolta respiratoria grave",
	"perdita di coscienza",
	"svenuto",
	"svenimento",
	"convulsioni",
	"crisi convulsiva",
	"emorragia massiva",
	"sangue abbondante",
	"emorragia",
	"paralisi",
	"meta corpo bloccata",
}

// HighSeverityRedFlags fast-track to the emergency path at urgency 4.
var HighSeverityRedFlags = []string{
	"dolore addominale acuto",
	"addome acuto",
	"trauma cranico",
	"febbre 40",
	"febbre alta persistente",
	"vomito con sangue",
	"sangue nelle feci",
	"ferita profonda",
}

// SelfHarmKeywords mark high self-harm risk on the mental-health path.
var SelfHarmKeywords = []string{
	"farla finita",
	"non voglio piu vivere",
	"pensieri di suicidio",
	"suicidio",
	"farmi del male",
	"autolesionismo",
}

// MentalHealthKeywords select the mental-health path.
var MentalHealthKeywords = []string{
	"ansia",
	"ansioso",
	"ansiosa",
	"attacco di panico",
	"panico",
	"depressione",
	"depresso",
	"depressa",
	"crisi di pianto",
	"stress",
	"non dormo",
	"pensieri intrusivi",
}

// MildSymptomKeywords map to the standard path at low urgency.
var MildSymptomKeywords = []string{
	"raffreddore",
	"mal di gola",
	"leggero mal di testa",
	"lieve",
	"leggero",
	"un po stanco",
	"stanchezza",
	"tosse da qualche giorno",
	"prurito",
}

// InfoRequestKeywords mark information-seeking utterances that bypass triage.
var InfoRequestKeywords = []string{
	"dove trovo",
	"dove si trova",
	"orari",
	"a che ora apre",
	"a che ora chiude",
	"quanto costa",
	"come funziona",
	"cosa fai",
	"che servizi",
	"numero di telefono",
	"farmacia di turno",
}

// MacroAreas tags a case with a clinical area from keyword co-occurrence.
// Used by the specialized-service lookup during final routing.
var MacroAreas = map[string][]string{
	"Area Medica":            {"febbre", "stomaco", "respiro", "tosse", "testa", "pancia", "nausea", "vertigini", "diarrea", "pressione", "stanchezza", "debolezza"},
	"Area Chirurgica":        {"emorragia", "ferita profonda", "appendice", "addome acuto", "ascesso", "sangue", "ernia", "calcoli"},
	"Area Traumatologica":    {"caduta", "botta", "frattura", "distorsione", "incidente", "trauma", "gonfiore", "contusione"},
	"Area Materno-Infantile": {"bambino", "neonato", "gravidanza", "pediatrico", "contrazioni", "allattamento", "parto"},
	"Area Cardiologica":      {"petto", "cuore", "palpitazioni", "tachicardia", "aritmia", "infarto"},
	"Area Neurologica":       {"svenimento", "convulsioni", "paralisi", "formicolio", "confusione", "ictus"},
	"Area Psichiatrica":      {"ansia", "panico", "depressione", "stress", "autolesionismo"},
}

// Hostility keyword tiers, highest tier wins.
var (
	HostilitySevere = []string{"vaffanculo", "bastardo", "cazzo", "merda", "stronzo"}
	HostilityMedium = []string{"stupido", "inutile", "idiota", "rotto", "incompetente"}
	HostilityLight  = []string{"fastidio", "basta", "insistere", "ripetere"}
)
