package verify

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	decisions *prometheus.CounterVec
	failures  *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lounge",
				Name:      "access_decisions_total",
				Help:      "Access decisions taken at the lounge entrance.",
			},
			[]string{"decision"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lounge",
				Name:      "verification_failures_total",
				Help:      "Verifications that could not resolve a customer, by reason.",
			},
			[]string{"reason"},
		),
	}
	reg.MustRegister(m.decisions, m.failures)
	return m
}

func (m *Metrics) decision(s State) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(s.String()).Inc()
}

func (m *Metrics) failure(r Reason) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(r.String()).Inc()
}
