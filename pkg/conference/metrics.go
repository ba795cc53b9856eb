package conference

import "github.com/prometheus/client_golang/prometheus"

var (
	negotiationRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: "negotiation",
		Name:      "recomputes",
	})

	negotiationEmpty = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: "negotiation",
		Name:      "empty_orders",
	})

	negotiationPushes = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: "negotiation",
		Name:      "pushes",
	})

	negotiationNoSession = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: "negotiation",
		Name:      "missing_session",
	})

	telemetryBatches = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: "telemetry",
		Name:      "batches",
	})

	telemetryDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: "telemetry",
		Name:      "batches_dropped",
	})

	telemetryRecords = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: "telemetry",
		Name:      "records",
	})
)

func init() {
	prometheus.MustRegister(negotiationRuns)
	prometheus.MustRegister(negotiationEmpty)
	prometheus.MustRegister(negotiationPushes)
	prometheus.MustRegister(negotiationNoSession)
	prometheus.MustRegister(telemetryBatches)
	prometheus.MustRegister(telemetryDropped)
	prometheus.MustRegister(telemetryRecords)
}
