package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder records domain metrics. The zero value and a nil *Recorder are
// no-ops, so services can be built without a registry in tests.
type Recorder struct {
	webhookEvents *prometheus.CounterVec
	reconcileDur  *prometheus.HistogramVec
	ledgerRepairs *prometheus.CounterVec
}

// NewRecorder builds a Recorder from metrics registered by NewPrometheus.
func NewRecorder(p *Prometheus) *Recorder {
	r := &Recorder{}
	if p == nil {
		return r
	}
	for _, m := range p.MetricsList {
		switch m {
		case webhookEvents:
			r.webhookEvents, _ = m.MetricCollector.(*prometheus.CounterVec)
		case reconcileDur:
			r.reconcileDur, _ = m.MetricCollector.(*prometheus.HistogramVec)
		case ledgerRepairs:
			r.ledgerRepairs, _ = m.MetricCollector.(*prometheus.CounterVec)
		}
	}
	return r
}

func (r *Recorder) WebhookEvent(eventType, result string) {
	if r == nil || r.webhookEvents == nil {
		return
	}
	r.webhookEvents.WithLabelValues(eventType, result).Inc()
}

func (r *Recorder) Reconcile(kind, outcome string, ms float64) {
	if r == nil || r.reconcileDur == nil {
		return
	}
	r.reconcileDur.WithLabelValues(kind, outcome).Observe(ms)
}

func (r *Recorder) LedgerRepairs(resolved, failed int) {
	if r == nil || r.ledgerRepairs == nil {
		return
	}
	r.ledgerRepairs.WithLabelValues("resolved").Add(float64(resolved))
	r.ledgerRepairs.WithLabelValues("failed").Add(float64(failed))
}
