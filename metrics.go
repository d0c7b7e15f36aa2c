package vo2trend

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds batch counters. A nil *Metrics records nothing.
type Metrics struct {
	activities     *prometheus.CounterVec
	decodeWarnings prometheus.Counter
	vo2Max         prometheus.Histogram
}

// NewMetrics creates the batch collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		activities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vo2trend",
			Subsystem: "batch",
			Name:      "activities_total",
			Help:      "Number of processed activities grouped by outcome.",
		}, []string{"outcome"}),
		decodeWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vo2trend",
			Subsystem: "batch",
			Name:      "decode_warnings_total",
			Help:      "Number of non-fatal decode warnings reported by the record decoder.",
		}),
		vo2Max: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vo2trend",
			Subsystem: "batch",
			Name:      "vo2_max",
			Help:      "Distribution of extracted VO2 Max values (ml/kg/min).",
			Buckets:   prometheus.LinearBuckets(30, 5, 10),
		}),
	}
	reg.MustRegister(m.activities, m.decodeWarnings, m.vo2Max)
	return m
}

func (m *Metrics) record(d Diagnostic) {
	if m == nil {
		return
	}
	m.activities.WithLabelValues(string(d.Outcome)).Inc()
	m.decodeWarnings.Add(float64(len(d.DecodeErrors)))
	if d.Outcome == OutcomeOK {
		m.vo2Max.Observe(d.Value)
	}
}
