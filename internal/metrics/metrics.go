package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for the scan, capture and delivery pipeline
var (
	ScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanlead_scans_total",
			Help: "Total number of redirect requests by outcome",
		},
		[]string{"outcome"},
	)

	ScanEventsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scanlead_scan_events_dropped_total",
			Help: "Scan events dropped because the worker buffer was full",
		},
	)

	ScanSessionWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanlead_scan_session_writes_total",
			Help: "Scan session inserts performed by the workers",
		},
		[]string{"result"},
	)

	LeadsCapturedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanlead_leads_captured_total",
			Help: "Leads created, labelled by whether a scan session was claimed",
		},
		[]string{"attributed"},
	)

	DispatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanlead_dispatches_total",
			Help: "Bulk message dispatches by outcome",
		},
		[]string{"outcome"},
	)

	GatewayRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scanlead_gateway_request_duration_seconds",
			Help:    "Duration of outbound gateway requests",
			Buckets: prometheus.DefBuckets,
		},
	)

	DeliveryCallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanlead_delivery_callbacks_total",
			Help: "Delivery webhook callbacks by result",
		},
		[]string{"result"},
	)

	StalePendingRecipients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scanlead_stale_pending_recipients",
			Help: "Recipients still pending past the configured threshold",
		},
	)
)

var registerOnce sync.Once

// Register registers all Prometheus metrics with the default registry.
// Calling it more than once is harmless.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ScansTotal,
			ScanEventsDroppedTotal,
			ScanSessionWritesTotal,
			LeadsCapturedTotal,
			DispatchesTotal,
			GatewayRequestDuration,
			DeliveryCallbacksTotal,
			StalePendingRecipients,
		)
	})
}
