package manager

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

var tracer trace.Tracer

func init() {
	tracer = otel.Tracer("github.com/larchio/larch/manager",
		trace.WithSchemaURL(semconv.SchemaURL),
	)
}

// metrics holds the Prometheus collectors a Manager updates. They are
// registered against a Registry private to the Manager rather than the
// global default, so a process can run more than one Manager (or none)
// without collectors colliding.
type metrics struct {
	tierHits   *prometheus.CounterVec
	promotions *prometheus.CounterVec
	promoteDur prometheus.Histogram
	uploadSize prometheus.Counter
}

func newMetrics(reg *prometheus.Registry) *metrics {
	m := &metrics{
		tierHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "larch",
			Subsystem: "manager",
			Name:      "tier_hits_total",
			Help:      "Layer reads resolved per tier and outcome.",
		}, []string{"tier", "outcome"}),
		promotions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "larch",
			Subsystem: "manager",
			Name:      "promotions_total",
			Help:      "Promotion attempts by outcome.",
		}, []string{"outcome"}),
		promoteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "larch",
			Subsystem: "manager",
			Name:      "promotion_duration_seconds",
			Help:      "Time spent copying and publishing a promoted layer.",
			Buckets:   prometheus.DefBuckets,
		}),
		uploadSize: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "larch",
			Subsystem: "manager",
			Name:      "upload_bytes_total",
			Help:      "Total bytes accepted across all completed uploads.",
		}),
	}
	reg.MustRegister(m.tierHits, m.promotions, m.promoteDur, m.uploadSize)
	return m
}
