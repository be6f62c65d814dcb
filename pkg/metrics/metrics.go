package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// HistogramBuckets covers webhook handling latencies in milliseconds. Provider
// timeouts sit around 10s, anything slower is counted in the last bucket.
var HistogramBuckets = []float64{
	5, 10, 25, 50, 100, 250, 500,
	1000, 2500, 5000, 10000, 30000,
}

// Metric describes one collector; MetricCollector is set once registered.
type Metric struct {
	MetricCollector prometheus.Collector
	ID              string
	Name            string
	Description     string
	Type            string
	Args            []string
}

// NewMetric builds the collector for m.Type. Only the vector kinds used by
// this service are supported; any other type yields nil.
func NewMetric(m *Metric, subsystem string) prometheus.Collector {
	switch m.Type {
	case "counter_vec":
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      m.Name,
			Help:      m.Description,
		}, m.Args)
	case "histogram_vec":
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      m.Name,
			Help:      m.Description,
			Buckets:   HistogramBuckets,
		}, m.Args)
	case "summary_vec":
		return prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Subsystem: subsystem,
			Name:      m.Name,
			Help:      m.Description,
		}, m.Args)
	}
	return nil
}

var webhookEvents = &Metric{
	ID:          "webhookEvents",
	Name:        "webhook_events_total",
	Description: "Webhook deliveries by event type and result.",
	Type:        "counter_vec",
	Args:        []string{"event_type", "result"},
}

var reconcileDur = &Metric{
	ID:          "reconcileDur",
	Name:        "reconcile_dur_ms",
	Description: "Booking reconciliation latency in milliseconds.",
	Type:        "histogram_vec",
	Args:        []string{"kind", "outcome"},
}

var ledgerRepairs = &Metric{
	ID:          "ledgerRepairs",
	Name:        "ledger_repairs_total",
	Description: "Ledger repair sweep results.",
	Type:        "counter_vec",
	Args:        []string{"result"},
}

// BusinessMetrics lists the domain metrics; pass it as MetricsList.
var BusinessMetrics = []*Metric{webhookEvents, reconcileDur, ledgerRepairs}
