package counter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records counter activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Operations *prometheus.CounterVec
	Clamps     *prometheus.CounterVec
	Value      prometheus.Gauge
}

// NewMetrics registers the counter metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tally",
			Subsystem: "counter",
			Name:      "operations_total",
			Help:      "Counter operations by name.",
		}, []string{"op"}),
		Clamps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tally",
			Subsystem: "counter",
			Name:      "clamps_total",
			Help:      "Operations whose result was clamped, by bound.",
		}, []string{"bound"}),
		Value: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "tally",
			Subsystem: "counter",
			Name:      "value",
			Help:      "Last value written by this process.",
		}),
	}
}

func (m *Metrics) observe(op string, b bound, value int) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op).Inc()
	if b != boundNone {
		m.Clamps.WithLabelValues(string(b)).Inc()
	}
	m.Value.Set(float64(value))
}
