package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	CasesTotal         *prometheus.CounterVec
	TurnsTotal         prometheus.Counter
	TurnDuration       prometheus.Histogram
	DispositionsTotal  *prometheus.CounterVec
	OverridesTotal     prometheus.Counter
	ValidationErrors   *prometheus.CounterVec
	UnknownTermsTotal  prometheus.Counter
	CaseTurns          prometheus.Histogram
	UrgencyAtResolve   prometheus.Histogram
	CompletenessAtDisp prometheus.Histogram
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CasesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "navigator_cases_total",
			Help: "Cases opened, by path and classification rule.",
		}, []string{"path", "rule"}),
		TurnsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "navigator_turns_total",
			Help: "Total conversation turns processed.",
		}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "navigator_turn_duration_seconds",
			Help:    "Duration of one turn through extraction, merge and routing.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms .. ~1s
		}),
		DispositionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "navigator_dispositions_total",
			Help: "Resolved cases by facility kind.",
		}, []string{"facility_kind"}),
		OverridesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "navigator_emergency_overrides_total",
			Help: "Mid-case jumps to the emergency override phase.",
		}),
		ValidationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "navigator_validation_errors_total",
			Help: "Extracted values rejected as out of domain, by slot.",
		}, []string{"slot"}),
		UnknownTermsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "navigator_unknown_terms_total",
			Help: "Symptom phrases that failed every normalization stage.",
		}),
		CaseTurns: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "navigator_case_turns",
			Help:    "Turns taken to resolve a case.",
			Buckets: prometheus.LinearBuckets(1, 1, 12), // 1 .. 12
		}),
		UrgencyAtResolve: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "navigator_urgency_at_resolve",
			Help:    "Final urgency of resolved cases.",
			Buckets: prometheus.LinearBuckets(1, 1, 5), // 1 .. 5
		}),
		CompletenessAtDisp: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "navigator_completeness_at_disposition_percent",
			Help:    "Slot completeness when the disposition was attached.",
			Buckets: prometheus.LinearBuckets(0, 10, 11), // 0 .. 100
		}),
	}

	reg.MustRegister(
		m.CasesTotal,
		m.TurnsTotal,
		m.TurnDuration,
		m.DispositionsTotal,
		m.OverridesTotal,
		m.ValidationErrors,
		m.UnknownTermsTotal,
		m.CaseTurns,
		m.UrgencyAtResolve,
		m.CompletenessAtDisp,
	)

	return m
}
