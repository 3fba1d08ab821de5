package normalize

// canonicalKB maps reported phrasings onto canonical clinical terms. Keys are
// written as users say them; New preprocesses them before insertion, so
// variants that differ only by filler words collapse onto one entry.
var canonicalKB = map[string]string{
	// Cefalea
	"mal di testa":      "Cefalea",
	"testa che fa male": "Cefalea",
	"dolore testa":      "Cefalea",
	"dolore alla testa": "Cefalea",
	"emicrania":         "Cefalea",
	"cefalea":           "Cefalea",

	// Dolore addominale
	"mal di pancia":  "Dolore addominale",
	"dolore pancia":  "Dolore addominale",
	"dolore addome":  "Dolore addominale",
	"dolore stomaco": "Dolore addominale",
	"mal di stomaco": "Dolore addominale",
	"crampi pancia":  "Dolore addominale",

	// Dolore toracico
	"dolore petto":      "Dolore toracico",
	"dolore torace":     "Dolore toracico",
	"dolore al petto":   "Dolore toracico",
	"dolore cuore":      "Dolore toracico",
	"oppressione petto": "Dolore toracico",
	"peso sul petto":    "Dolore toracico",

	// Dispnea
	"difficoltà respirare":   "Dispnea",
	"difficolta respiro":     "Dispnea",
	"non riesco respirare":   "Dispnea grave",
	"non riesco a respirare": "Dispnea grave",
	"soffoco":                "Dispnea grave",
	"affanno":                "Dispnea",
	"fiato corto":            "Dispnea",

	// Febbre
	"febbre":           "Febbre",
	"temperatura alta": "Febbre",
	"febbrile":         "Febbre",

	// Tosse
	"tosse":       "Tosse",
	"tossisco":    "Tosse",
	"colpi tosse": "Tosse",

	// Trauma
	"caduta":      "Trauma",
	"sono caduto": "Trauma",
	"sono caduta": "Trauma",
	"botta":       "Trauma",
	"incidente":   "Trauma",
	"trauma":      "Trauma",

	// Vertigini
	"vertigini":       "Vertigini",
	"capogiro":        "Vertigini",
	"giramento testa": "Vertigini",
	"testa che gira":  "Vertigini",

	// Nausea / vomito / diarrea
	"nausea":          "Nausea",
	"voglia vomitare": "Nausea",
	"vomito":          "Vomito",
	"ho vomitato":     "Vomito",
	"rimetto":         "Vomito",
	"diarrea":         "Diarrea",
	"scariche":        "Diarrea",
	"feci liquide":    "Diarrea",

	// Apparato muscoloscheletrico
	"dolore articolazioni": "Dolore articolare",
	"male alle ossa":       "Dolore articolare",
	"dolore ginocchio":     "Dolore articolare",
	"dolore schiena":       "Lombalgia",
	"mal di schiena":       "Lombalgia",
	"torcicollo":           "Cervicalgia",
	"dolore cervicale":     "Cervicalgia",

	// Orecchio, naso, gola, cute
	"mal di orecchio":  "Otalgia",
	"mal di gola":      "Faringodinia",
	"gola che brucia":  "Faringodinia",
	"sangue dal naso":  "Epistassi",
	"eruzione cutanea": "Eruzione cutanea",
	"macchie pelle":    "Eruzione cutanea",
	"prurito":          "Prurito",

	// Cardiocircolatorio
	"palpitazioni":      "Palpitazioni",
	"cuore batte forte": "Palpitazioni",
	"batticuore":        "Palpitazioni",

	// Urinario
	"bruciore urinare":   "Disuria",
	"bruciore a urinare": "Disuria",

	// Neurologico
	"formicolio": "Parestesia",

	// Salute mentale
	"ansia":          "Ansia",
	"ansioso":        "Ansia",
	"ansiosa":        "Ansia",
	"attacco panico": "Attacco di panico",
	"panico":         "Attacco di panico",
	"depressione":    "Depressione",
	"depresso":       "Depressione",
	"triste":         "Umore depresso",
	"stress":         "Stress",
	"non dormo":      "Insonnia",
	"insonnia":       "Insonnia",
}
