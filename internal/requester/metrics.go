package requester

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess    = "success"
	outcomeNetwork    = "network"
	outcomeTimeout    = "timeout"
	outcomeUnparsable = "unparsable_json"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchkit",
			Name:      "requests_total",
			Help:      "Settled requests by outcome.",
		},
		[]string{"outcome"},
	)

	requestAbortsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "searchkit",
			Name:      "request_aborts_total",
			Help:      "Connections aborted on timeout or transport failure.",
		},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "searchkit",
			Name:      "request_duration_seconds",
			Help:      "Wall-clock time from send to settlement.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
)
