package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for monitoring service health and performance
var (
	ImportBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_batches_total",
			Help: "Total number of schedule imports by source",
		},
		[]string{"source"},
	)

	ImportedRecordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "imported_records_total",
			Help: "Total number of notification records imported",
		},
	)

	ImportSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "import_skipped_total",
			Help: "Total number of duplicate records skipped during import",
		},
	)

	CapturesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "captures_total",
			Help: "Total number of capture attempts by outcome",
		},
		[]string{"outcome"},
	)

	CaptureDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "capture_duration_seconds",
			Help:    "Duration of capture completion including artifact storage",
			Buckets: prometheus.DefBuckets,
		},
	)

	VerifyRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verify_requests_total",
			Help: "Total number of public verification lookups by result",
		},
		[]string{"result"},
	)

	VerifyCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "verify_cache_hits_total",
			Help: "Total number of verification lookups served from cache",
		},
	)

	SMSDispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sms_dispatch_total",
			Help: "Total number of SMS dispatch attempts by outcome",
		},
		[]string{"outcome"},
	)
)

// Register registers all Prometheus metrics
func Register() {
	prometheus.MustRegister(ImportBatchesTotal)
	prometheus.MustRegister(ImportedRecordsTotal)
	prometheus.MustRegister(ImportSkippedTotal)
	prometheus.MustRegister(CapturesTotal)
	prometheus.MustRegister(CaptureDuration)
	prometheus.MustRegister(VerifyRequestsTotal)
	prometheus.MustRegister(VerifyCacheHitsTotal)
	prometheus.MustRegister(SMSDispatchTotal)
}
