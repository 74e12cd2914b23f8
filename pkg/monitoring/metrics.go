package monitoring

import "github.com/prometheus/client_golang/prometheus"

const namespace = "sobelfarm"

// Drop reasons.
const (
	ReasonEncode    = "encode"
	ReasonTransport = "transport"
	ReasonMalformed = "malformed"
	ReasonProcess   = "process"
	ReasonSize      = "size"
)

// Host side.
var (
	Dispatched = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "host", Name: "frames_dispatched_total",
		Help: "Frames sent to workers.",
	})
	Dropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "frames_dropped_total",
		Help: "Frames lost on purpose, by reason.",
	}, []string{"reason"})
	Received = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "host", Name: "results_received_total",
		Help: "Results read from the transport.",
	})
	Stale = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "host", Name: "results_stale_total",
		Help: "Results that came too late or twice.",
	})
	Presented = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "host", Name: "frames_presented_total",
		Help: "Edge maps handed to the presenter.",
	})
	Skipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "host", Name: "frames_skipped_total",
		Help: "Sequence numbers stepped over.",
	})
	InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "host", Name: "frames_in_flight",
		Help: "Frames sent and not yet consumed.",
	})
	ReorderDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "host", Name: "reorder_depth",
		Help: "Results waiting for an earlier frame.",
	})
	RoundTrip = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "host", Name: "round_trip_seconds",
		Help:    "Time from dispatch to result arrival.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})
)

// Worker side.
var (
	Processed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "worker", Name: "tasks_processed_total",
		Help: "Tasks turned into results.",
	})
	Failed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "worker", Name: "tasks_failed_total",
		Help: "Tasks dropped by the worker.",
	})
	ProcessTime = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "worker", Name: "process_seconds",
		Help:    "Edge detection time per frame.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	})
)

func init() {
	prometheus.MustRegister(
		Dispatched, Dropped, Received, Stale, Presented, Skipped, InFlight, ReorderDepth, RoundTrip,
		Processed, Failed, ProcessTime,
	)
}
