package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/janhq/sense-api/internal/domain/capability"
	"github.com/janhq/sense-api/internal/domain/usage"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "sense_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "sense_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 90},
		},
		[]string{"method", "endpoint", "status"},
	)

	ProviderAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "sense_api",
			Name:      "provider_attempts_total",
			Help:      "Adapter attempts by outcome",
		},
		[]string{"capability", "provider", "outcome"},
	)

	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "sense_api",
			Name:      "provider_duration_seconds",
			Help:      "Adapter call duration in seconds",
			Buckets:   []float64{0.01, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"capability", "provider"},
	)

	ServedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "sense_api",
			Name:      "served_total",
			Help:      "Requests served, by provider and whether it was the local fallback",
		},
		[]string{"capability", "provider", "degraded"},
	)

	ExhaustedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "sense_api",
			Name:      "providers_exhausted_total",
			Help:      "Requests for which every provider failed",
		},
		[]string{"capability"},
	)

	QuotaRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "sense_api",
			Name:      "quota_rejections_total",
			Help:      "Quota rejections by stage (check or commit)",
		},
		[]string{"feature", "tier", "stage"},
	)

	UsageRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "sense_api",
			Name:      "usage_recorded_total",
			Help:      "Committed usage in feature units",
		},
		[]string{"feature", "tier"},
	)
)

// RecordRequest records an HTTP request.
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint, status).Observe(durationSec)
}

// Recorder feeds orchestrator and meter events into the collectors above.
type Recorder struct{}

func NewRecorder() *Recorder {
	return &Recorder{}
}

var (
	_ capability.Observer = (*Recorder)(nil)
	_ usage.Observer      = (*Recorder)(nil)
)

func (*Recorder) AttemptFinished(c capability.Capability, provider string, outcome capability.Outcome, elapsed time.Duration) {
	ProviderAttemptsTotal.WithLabelValues(string(c), provider, string(outcome)).Inc()
	ProviderDuration.WithLabelValues(string(c), provider).Observe(elapsed.Seconds())
}

func (*Recorder) Served(c capability.Capability, provider string, degraded bool) {
	label := "false"
	if degraded {
		label = "true"
	}
	ServedTotal.WithLabelValues(string(c), provider, label).Inc()
}

func (*Recorder) Exhausted(c capability.Capability) {
	ExhaustedTotal.WithLabelValues(string(c)).Inc()
}

func (*Recorder) UsageRecorded(feature usage.Feature, tier usage.Tier, amount decimal.Decimal) {
	UsageRecordedTotal.WithLabelValues(string(feature), string(tier)).Add(amount.InexactFloat64())
}

func (*Recorder) QuotaRejected(feature usage.Feature, tier usage.Tier, stage string) {
	QuotaRejectionsTotal.WithLabelValues(string(feature), string(tier), stage).Inc()
}
