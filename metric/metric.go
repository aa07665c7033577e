package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docquery",
		Subsystem: "engine",
		Name:      "evaluations_total",
		Help:      "Finished evaluations by verdict.",
	}, []string{"verdict"})
	EvaluationErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "docquery",
		Subsystem: "engine",
		Name:      "evaluation_errors_total",
		Help:      "Evaluations aborted by a matcher error or cancellation.",
	})
	EvaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "docquery",
		Subsystem: "engine",
		Name:      "evaluation_duration_seconds",
		Help:      "",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 12),
	})
	TermLookups = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "docquery",
		Subsystem: "engine",
		Name:      "term_lookups",
		Help:      "Matcher calls per evaluation.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})
	TreeSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "docquery",
		Subsystem: "engine",
		Name:      "tree_size",
		Help:      "Nodes in the parsed query tree.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docquery",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "",
	}, []string{"path", "status"})

	StoredVerdictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "docquery",
		Subsystem: "storage",
		Name:      "stored_verdicts_total",
		Help:      "",
	})
	StoreErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "docquery",
		Subsystem: "storage",
		Name:      "store_errors_total",
		Help:      "",
	})
)
