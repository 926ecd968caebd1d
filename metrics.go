package checklist

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts engine and session activity. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	conditions  prometheus.Counter
	rules       prometheus.Counter
	stale       prometheus.Counter
	saves       *prometheus.CounterVec
	submissions *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		conditions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "checklist",
			Name:      "conditions_evaluated_total",
			Help:      "Conditions evaluated after field value changes.",
		}),
		rules: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "checklist",
			Name:      "rules_applied_total",
			Help:      "Conditional rules applied, including nested cascades.",
		}),
		stale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "checklist",
			Name:      "stale_references_total",
			Help:      "Template references to missing conditions, fields or groups.",
		}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checklist",
			Name:      "autosaves_total",
			Help:      "Debounced autosaves by result (ok, error, dropped).",
		}, []string{"result"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checklist",
			Name:      "submissions_total",
			Help:      "Submission attempts by result (ok, invalid, error).",
		}, []string{"result"}),
	}
	for _, c := range []prometheus.Collector{m.conditions, m.rules, m.stale, m.saves, m.submissions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) conditionEvaluated() {
	if m != nil {
		m.conditions.Inc()
	}
}

func (m *Metrics) ruleApplied() {
	if m != nil {
		m.rules.Inc()
	}
}

func (m *Metrics) staleReference() {
	if m != nil {
		m.stale.Inc()
	}
}

func (m *Metrics) saved(result string) {
	if m != nil {
		m.saves.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) submitted(result string) {
	if m != nil {
		m.submissions.WithLabelValues(result).Inc()
	}
}
