package assistant

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the assistant pipeline. A nil *Metrics records nothing.
type Metrics struct {
	Replies          *prometheus.CounterVec
	UpstreamAttempts *prometheus.CounterVec
	PacingWait       prometheus.Histogram
	CacheEntries     prometheus.GaugeFunc
}

// NewMetrics registers the assistant metrics on reg.
func NewMetrics(reg prometheus.Registerer, cache *Cache) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{}

	m.Replies = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_replies_total",
			Help: "Assistant replies by source (model, cache, fallback)",
		},
		[]string{"source"},
	)

	m.UpstreamAttempts = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_upstream_attempts_total",
			Help: "Calls to the generation service by outcome",
		},
		[]string{"outcome"},
	)

	m.PacingWait = f.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assistant_pacing_wait_seconds",
			Help:    "Time spent waiting on the pacing gate before a call",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5},
		},
	)

	if cache != nil {
		m.CacheEntries = f.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "assistant_cache_entries",
				Help: "Replies currently held in the response cache",
			},
			func() float64 { return float64(cache.Len()) },
		)
	}

	return m
}

func (m *Metrics) countReply(source Source) {
	if m == nil {
		return
	}
	m.Replies.WithLabelValues(string(source)).Inc()
}

func (m *Metrics) countAttempt(outcome string) {
	if m == nil {
		return
	}
	m.UpstreamAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observePacing(d time.Duration) {
	if m == nil {
		return
	}
	m.PacingWait.Observe(d.Seconds())
}
