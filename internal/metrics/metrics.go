package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MutationsTotal counts applied balance changes by kind (CHARGE|USE).
	MutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "point_mutations_total",
			Help: "Total applied point mutations",
		},
		[]string{"kind"},
	)

	// MutationsRejected counts mutations refused before any write.
	MutationsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "point_mutations_rejected_total",
			Help: "Total point mutations rejected by validation",
		},
		[]string{"kind", "reason"},
	)

	// MutationsFailed counts mutations that failed in the backing store.
	MutationsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "point_mutations_failed_total",
			Help: "Total point mutations that failed to persist",
		},
		[]string{"kind"},
	)

	// RequestsTotal counts HTTP requests by route, method and status.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	initOnce sync.Once
)

// Handler serves the default registry for /metrics.
var Handler = promhttp.Handler

// Init registers the collectors with the default registry. Safe to call more
// than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(MutationsTotal)
		prometheus.MustRegister(MutationsRejected)
		prometheus.MustRegister(MutationsFailed)
		prometheus.MustRegister(RequestsTotal)
	})
}
