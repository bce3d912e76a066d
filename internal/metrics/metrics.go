// Package metrics defines the Prometheus metric types the engine updates
// as it runs. See m-lab-tcp-info/metrics/metrics.go for the promauto usage
// pattern this follows.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds one process's counters/histograms. Built per-Engine rather
// than as package-level promauto vars, so a test can construct more than
// one Engine without double-registering collectors against the default
// registry.
type Metrics struct {
	GrantRequestsSent   prometheus.Counter
	GrantRequestsResent prometheus.Counter
	GrantsSent          prometheus.Counter
	GrantsReceived      prometheus.Counter
	DataPacketsSent     prometheus.Counter
	DataPacketsReceived prometheus.Counter
	BytesSent           prometheus.Counter
	BytesReceived       prometheus.Counter
	MempoolExhausted    prometheus.Counter
	ActiveSetFull       prometheus.Counter
	SequenceMismatches  prometheus.Counter
	FlowsCompleted      prometheus.Counter
	FCTSeconds          prometheus.Histogram
}

// New registers a fresh set of metrics against reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		GrantRequestsSent: f.NewCounter(prometheus.CounterOpts{
			Name: "homaflow_grant_requests_sent_total",
			Help: "Number of GRANT_REQUEST packets emitted.",
		}),
		GrantRequestsResent: f.NewCounter(prometheus.CounterOpts{
			Name: "homaflow_grant_requests_resent_total",
			Help: "Number of GRANT_REQUEST retransmissions emitted.",
		}),
		GrantsSent: f.NewCounter(prometheus.CounterOpts{
			Name: "homaflow_grants_sent_total",
			Help: "Number of GRANT packets emitted.",
		}),
		GrantsReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "homaflow_grants_received_total",
			Help: "Number of GRANT packets received.",
		}),
		DataPacketsSent: f.NewCounter(prometheus.CounterOpts{
			Name: "homaflow_data_packets_sent_total",
			Help: "Number of DATA packets emitted.",
		}),
		DataPacketsReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "homaflow_data_packets_received_total",
			Help: "Number of DATA packets received.",
		}),
		BytesSent: f.NewCounter(prometheus.CounterOpts{
			Name: "homaflow_bytes_sent_total",
			Help: "Number of DATA payload bytes sent.",
		}),
		BytesReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "homaflow_bytes_received_total",
			Help: "Number of DATA payload bytes received.",
		}),
		MempoolExhausted: f.NewCounter(prometheus.CounterOpts{
			Name: "homaflow_mempool_exhausted_total",
			Help: "Number of times packet allocation failed due to pool exhaustion.",
		}),
		ActiveSetFull: f.NewCounter(prometheus.CounterOpts{
			Name: "homaflow_active_set_full_total",
			Help: "Number of times an active-set insertion was rejected at capacity.",
		}),
		SequenceMismatches: f.NewCounter(prometheus.CounterOpts{
			Name: "homaflow_sequence_mismatches_total",
			Help: "Number of DATA packets whose sent_seq didn't match data_recv_next.",
		}),
		FlowsCompleted: f.NewCounter(prometheus.CounterOpts{
			Name: "homaflow_flows_completed_total",
			Help: "Number of receiver flows that reached RECEIVE_CLOSED.",
		}),
		FCTSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "homaflow_fct_seconds",
			Help:    "Flow completion time distribution, in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 20),
		}),
	}
}
