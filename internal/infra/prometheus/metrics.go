package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "powerqr"

// Metrics holds the redirect path collectors.
type Metrics struct {
	resolutions    *prometheus.CounterVec
	visits         *prometheus.CounterVec
	recordDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Short code resolutions by outcome.",
		}, []string{"outcome"}),
		visits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visits_recorded_total",
			Help:      "Committed visits, split by first-seen visitor.",
		}, []string{"unique"}),
		recordDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "record_duration_seconds",
			Help:      "Time spent in the visit recording transaction.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{m.resolutions, m.visits, m.recordDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) ObserveResolution(outcome string) {
	m.resolutions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveVisit(unique bool, elapsed time.Duration) {
	m.visits.WithLabelValues(strconv.FormatBool(unique)).Inc()
	m.recordDuration.Observe(elapsed.Seconds())
}
